package notifier

import (
	"context"
	"time"
)

// RunSummary is what a notification reports about one run.
type RunSummary struct {
	Domain    string
	Action    string
	DryRun    bool
	Succeeded int
	Total     int
	Deleted   int
	// Failures holds one "resource: error" line per failed resource.
	Failures []string
	Duration time.Duration
}

// Partial reports whether some work in the run did not succeed.
func (s RunSummary) Partial() bool {
	return s.Succeeded < s.Total || len(s.Failures) > 0
}

type Notifier interface {
	NotifyStart(ctx context.Context, domain, action string) error
	NotifySuccess(ctx context.Context, s RunSummary) error
	NotifyPartial(ctx context.Context, s RunSummary) error
	NotifyError(ctx context.Context, domain, action string, err error) error
	NotifyTest(ctx context.Context) error
}

// NotifyOutcome sends success or partial depending on s.
func NotifyOutcome(ctx context.Context, n Notifier, s RunSummary) error {
	if n == nil {
		return nil
	}
	if s.Partial() {
		return n.NotifyPartial(ctx, s)
	}
	return n.NotifySuccess(ctx, s)
}
