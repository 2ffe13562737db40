package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"meetup-app-go/internal/config"
	"meetup-app-go/internal/domain/notification"
	"meetup-app-go/pkg/logger"
)

// Notifier forwards membership and schedule events to a Telegram chat.
// Delivery is best effort; a failed send is logged and dropped.
type Notifier struct {
	api    *telego.Bot
	chatID int64
	log    logger.Logger
}

func New(cfg config.TelegramConfig, log logger.Logger) (*Notifier, error) {
	api, err := telego.NewBot(cfg.Token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Notifier{api: api, chatID: cfg.ChatID, log: log}, nil
}

func (n *Notifier) Notify(_ context.Context, event notification.Event) {
	text := formatEvent(event)

	_, err := n.api.SendMessage(tu.Message(tu.ID(n.chatID), text))
	if err != nil {
		n.log.Warn("telegram: notification send failed", "err", err, "type", event.Type)
	}
}

func formatEvent(event notification.Event) string {
	switch event.Type {
	case notification.TypeMembershipApproved:
		return fmt.Sprintf("Gathering %s: membership of %s approved by %s",
			event.GatheringID, event.TargetUserID, event.RelatedUserID)
	case notification.TypeMembershipRejected:
		return fmt.Sprintf("Gathering %s: membership of %s rejected by %s",
			event.GatheringID, event.TargetUserID, event.RelatedUserID)
	case notification.TypeMembershipKicked:
		return fmt.Sprintf("Gathering %s: %s was removed by %s",
			event.GatheringID, event.TargetUserID, event.RelatedUserID)
	case notification.TypeScheduleCompleted:
		return fmt.Sprintf("Gathering %s: a schedule was completed by %s",
			event.GatheringID, event.RelatedUserID)
	case notification.TypeScheduleCanceled:
		return fmt.Sprintf("Gathering %s: a schedule was canceled by %s",
			event.GatheringID, event.RelatedUserID)
	default:
		return fmt.Sprintf("Gathering %s: %s", event.GatheringID, event.Type)
	}
}
