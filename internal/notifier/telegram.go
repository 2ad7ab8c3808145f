package notifier

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/ponisha-watch/internal/project"
	"github.com/pfrederiksen/ponisha-watch/internal/telegram"
)

// MessageSender sends a formatted text message. *telegram.Client satisfies it.
type MessageSender interface {
	SendMessage(ctx context.Context, text string) error
}

// TelegramNotifier posts projects to a Telegram chat
type TelegramNotifier struct {
	sender MessageSender
}

// NewTelegramNotifier creates a notifier sending through sender
func NewTelegramNotifier(sender MessageSender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

// Notify formats p and sends it once
func (n *TelegramNotifier) Notify(ctx context.Context, p *project.Project) error {
	if err := n.sender.SendMessage(ctx, telegram.FormatProject(p)); err != nil {
		return fmt.Errorf("sending project %s: %w", p.ID, err)
	}
	return nil
}
