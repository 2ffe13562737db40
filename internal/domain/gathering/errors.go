package gathering

import "errors"

var (
	ErrGatheringNotFound  = errors.New("gathering not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrAlreadyMember      = errors.New("already a member")
	ErrGatheringFull      = errors.New("gathering is full")
	ErrNotCreator         = errors.New("caller is not the gathering creator")
	ErrCannotKickCreator  = errors.New("cannot kick the gathering creator")
	ErrCreatorCannotLeave = errors.New("creator cannot leave own gathering")
	ErrInvalidState       = errors.New("transition not legal from current status")
	ErrGatheringCompleted = errors.New("gathering is completed")
)
