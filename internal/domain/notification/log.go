package notification

import (
	"context"

	"meetup-app-go/pkg/logger"
)

// LogNotifier is the default sink when no delivery channel is configured.
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) {
	n.log.Info("notification: event emitted",
		"type", event.Type,
		"gathering_id", event.GatheringID,
		"related_user_id", event.RelatedUserID,
		"target_user_id", event.TargetUserID,
	)
}
