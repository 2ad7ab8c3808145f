// Package watcher runs one check of the projects page: load the seen IDs, fetch
// and extract listings, announce the new ones and record the latest snapshot.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/pfrederiksen/ponisha-watch/internal/filter"
	"github.com/pfrederiksen/ponisha-watch/internal/logger"
	"github.com/pfrederiksen/ponisha-watch/internal/notifier"
	"github.com/pfrederiksen/ponisha-watch/internal/project"
	"github.com/pfrederiksen/ponisha-watch/internal/scraper"
	"github.com/pfrederiksen/ponisha-watch/internal/storage"
	"github.com/pfrederiksen/ponisha-watch/internal/telegram"
)

// ErrFetch marks a failure to retrieve the projects page. It aborts the run.
var ErrFetch = errors.New("fetching projects page")

// Source fetches and extracts listings. *scraper.Scraper satisfies it.
type Source interface {
	URL() string
	Fetch(ctx context.Context) (*goquery.Document, error)
	Extract(doc *goquery.Document, max int) ([]*project.Project, error)
}

// Report summarizes a completed run
type Report struct {
	CheckedAt   time.Time          `json:"checked_at"`
	Processed   int                `json:"processed"`
	NewProjects []*project.Project `json:"new_projects"`
	NewCount    int                `json:"new_count"`
	Notified    int                `json:"notified"`
	Failed      int                `json:"failed"`
	Filtered    int                `json:"filtered"`
	StateSaved  bool               `json:"state_saved"`
	StateError  string             `json:"state_error,omitempty"`
}

// Watcher wires the source, state store and notifier for a single run
type Watcher struct {
	source      Source
	store       storage.Store
	notifier    notifier.Notifier
	filter      *filter.Filter
	limiter     *rate.Limiter
	log         *logger.Logger
	metrics     *logger.Metrics
	maxProjects int
	now         func() time.Time
}

// Option configures a Watcher
type Option func(*Watcher)

// WithFilter announces only new projects matching f
func WithFilter(f *filter.Filter) Option {
	return func(w *Watcher) { w.filter = f }
}

// WithLogger sets the run logger
func WithLogger(l *logger.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithMetrics records counters and timings into m
func WithMetrics(m *logger.Metrics) Option {
	return func(w *Watcher) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithMaxProjects caps how many listings are processed
func WithMaxProjects(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.maxProjects = n
		}
	}
}

// WithSendInterval spaces successive notifications by at least d
func WithSendInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d <= 0 {
			w.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		w.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// New creates a Watcher
func New(source Source, store storage.Store, n notifier.Notifier, opts ...Option) *Watcher {
	w := &Watcher{
		source:      source,
		store:       store,
		notifier:    n,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		log:         logger.Nop(),
		metrics:     logger.NewMetrics(),
		maxProjects: scraper.DefaultMaxProjects,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Metrics returns the tracker the run records into
func (w *Watcher) Metrics() *logger.Metrics {
	return w.metrics
}

// Run performs one check.
//
// Only a fetch failure (wrapped in ErrFetch), a strict extraction failure or
// a cancelled context abort the run. Unreadable or unwritable state and
// failed notifications are logged and the run carries on. The state is
// rewritten iff at least one new project was found, and holds the IDs of this
// run's listings, including those whose notification failed.
//
// When the context ends between two notifications, the report is returned
// with the context error. The state is still saved, leaving out only the new
// projects that were never attempted.
func (w *Watcher) Run(ctx context.Context) (*Report, error) {
	seen, err := w.store.Load(ctx)
	if err != nil {
		w.log.Warn("there was a problem reading the state", logger.Fields{"error": err.Error()})
	}
	if seen == nil {
		seen = project.NewSeenSet()
	}
	w.log.Debug("loaded seen projects", logger.Fields{"count": seen.Len()})

	w.log.Info("requesting page", logger.Fields{"url": w.source.URL()})
	start := time.Now()
	doc, err := w.source.Fetch(ctx)
	w.metrics.RecordTiming("fetch", time.Since(start))
	if err != nil {
		w.metrics.IncrCounter("fetch.failed")
		w.logFetchError(err)
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	w.log.Debug("starting processing", nil)
	projects, err := w.source.Extract(doc, w.maxProjects)
	if err != nil {
		w.log.Critical("could not extract projects", nil, err)
		return nil, fmt.Errorf("extracting projects: %w", err)
	}

	diff := project.Diff(projects, seen)
	announce, skipped := w.filter.Split(diff.New)

	report := &Report{
		CheckedAt:   w.now().UTC(),
		Processed:   len(projects),
		NewProjects: diff.New,
		NewCount:    len(diff.New),
		Filtered:    len(skipped),
	}

	for _, p := range skipped {
		w.log.Info("project does not match filter, not sending", logger.Fields{"project_id": p.ID})
	}

	// pending holds new projects never attempted because the run was cancelled
	var pending []*project.Project
	var interrupted error

	for i, p := range announce {
		if err := w.limiter.Wait(ctx); err != nil {
			pending = announce[i:]
			interrupted = fmt.Errorf("waiting to send project %s: %w", p.ID, err)
			w.log.Warn("run interrupted, remaining projects are left for the next run",
				logger.Fields{"pending": len(pending)})
			break
		}

		w.log.Info("project was not seen before, sending notification", logger.Fields{"project_id": p.ID})
		start := time.Now()
		err := w.notifier.Notify(ctx, p)
		w.metrics.RecordTiming("notify", time.Since(start))

		if err != nil {
			report.Failed++
			w.metrics.IncrCounter("notify.failed")
			w.logNotifyError(p, err)
			continue
		}
		report.Notified++
		w.metrics.IncrCounter("notify.sent")
	}

	// Every attempted or filtered project is recorded, so none is sent twice
	if !diff.Changed || len(pending) == len(diff.New) {
		w.log.Debug("no change for the state", nil)
		return report, interrupted
	}

	ids := withoutProjects(diff.IDs, pending)
	w.log.Info("saving the changes to the state", logger.Fields{"count": len(ids)})
	if err := w.store.Save(context.WithoutCancel(ctx), ids); err != nil {
		report.StateError = err.Error()
		w.log.Warn("there was a problem saving the state", logger.Fields{"error": err.Error()})
		return report, interrupted
	}
	report.StateSaved = true

	return report, interrupted
}

// withoutProjects returns ids minus those of ps, keeping order
func withoutProjects(ids []string, ps []*project.Project) []string {
	if len(ps) == 0 {
		return ids
	}
	drop := project.NewSeenSet()
	for _, p := range ps {
		drop.Add(p.ID)
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !drop.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

func (w *Watcher) logFetchError(err error) {
	var statusErr *scraper.StatusError
	if errors.As(err, &statusErr) {
		w.log.Critical("requested URL returned an error status", logger.Fields{"status": statusErr.StatusCode}, nil)
		return
	}
	w.log.Critical("could not fetch projects page", nil, err)
}

func (w *Watcher) logNotifyError(p *project.Project, err error) {
	fields := logger.Fields{"project_id": p.ID}

	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		fields["status"] = apiErr.StatusCode
		w.log.Error("notification request returned an error status", fields, err)
		return
	}
	w.log.Error("notification failed", fields, err)
}
