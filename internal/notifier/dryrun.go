package notifier

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pfrederiksen/ponisha-watch/internal/project"
	"github.com/pfrederiksen/ponisha-watch/internal/telegram"
)

// DryRunNotifier prints what would be sent without contacting any API
type DryRunNotifier struct {
	out   io.Writer
	count int
}

// NewDryRunNotifier creates a new dry-run notifier writing to out
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	return &DryRunNotifier{out: out}
}

// Notify prints the message that would be posted for p
func (n *DryRunNotifier) Notify(ctx context.Context, p *project.Project) error {
	n.count++
	msg := telegram.FormatProject(p)

	fmt.Fprintf(n.out, "--- Message %d (project %s) ---\n", n.count, p.ID)
	fmt.Fprintln(n.out, msg)
	_, err := fmt.Fprintf(n.out, "\n(Length: %d characters)\n\n", utf8.RuneCountInString(msg))
	return err
}
