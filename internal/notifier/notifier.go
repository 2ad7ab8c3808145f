package notifier

import (
	"context"

	"github.com/pfrederiksen/ponisha-watch/internal/project"
)

// Notifier defines the interface for delivering a project notification
type Notifier interface {
	// Notify makes a single delivery attempt for p. Callers do not retry.
	Notify(ctx context.Context, p *project.Project) error
}
