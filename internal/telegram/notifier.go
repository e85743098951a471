// Package telegram pushes mission completion notices to a Telegram chat.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nats-io/nats.go"

	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/natsbus"
)

type Notifier struct {
	bot    *telego.Bot
	chatID int64
	sub    *nats.Subscription
}

func NewNotifier(cfg config.TelegramConfig) (*Notifier, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: cfg.ChatID}, nil
}

// Start subscribes the notifier to mission events. Only terminal events
// produce a message; per-task chatter stays on the bus.
func (n *Notifier) Start(client *natsbus.Client) error {
	sub, err := client.Subscribe(natsbus.TopicEventsMission, n.handleEvent)
	if err != nil {
		return fmt.Errorf("subscribe mission events: %w", err)
	}
	n.sub = sub
	slog.Info("telegram notifier started", "chat", n.chatID)
	return nil
}

func (n *Notifier) Stop() {
	if n.sub != nil {
		_ = n.sub.Unsubscribe()
	}
}

func (n *Notifier) handleEvent(msg *nats.Msg) {
	var ev natsbus.Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		slog.Warn("invalid mission event", "error", err)
		return
	}

	var text string
	switch ev.Kind {
	case "mission_synthesized":
		text = fmt.Sprintf("Mission finished: %v task(s) processed.", ev.Payload["tasks"])
	case "mission_aborted":
		text = "Mission aborted."
		if reason, ok := ev.Payload["error"]; ok {
			text = fmt.Sprintf("Mission aborted: %v", reason)
		}
	default:
		return
	}

	if err := n.SendMessage(context.Background(), text); err != nil {
		slog.Error("failed to send telegram message", "chat", n.chatID, "error", err)
	}
}

func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	for _, chunk := range chunkMessage(text, 4096) {
		if _, err := n.bot.SendMessage(ctx, tu.Message(tu.ID(n.chatID), chunk)); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}
