package schedule

import "errors"

var (
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrMembershipNotFound = errors.New("schedule membership not found")
	ErrAlreadyMember      = errors.New("already joined schedule")
	ErrScheduleFull       = errors.New("schedule is full")
	ErrForbidden          = errors.New("approved gathering membership required")
	ErrNotCreator         = errors.New("caller is not the schedule creator")
	ErrScheduleCompleted  = errors.New("schedule is completed")
	ErrInvalidState       = errors.New("transition not legal from current status")
	ErrInvalidAttendance  = errors.New("invalid attendance status")
)
