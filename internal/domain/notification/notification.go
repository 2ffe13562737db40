package notification

import "context"

const (
	TypeMembershipApproved = "membership_approved"
	TypeMembershipRejected = "membership_rejected"
	TypeMembershipKicked   = "membership_kicked"
	TypeScheduleCompleted  = "schedule_completed"
	TypeScheduleCanceled   = "schedule_canceled"
)

// Event is handed to an external delivery mechanism; the core only emits.
type Event struct {
	Type          string
	GatheringID   string
	RelatedUserID string
	TargetUserID  string
}

type Notifier interface {
	Notify(ctx context.Context, event Event)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
