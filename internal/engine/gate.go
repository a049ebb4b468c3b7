package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/set"
	"github.com/juju/retry"

	"SnapKeeper/internal/metrics"
)

var (
	ErrReadinessTimeout  = errors.New("resource did not become ready in time")
	ErrReadinessTerminal = errors.New("resource entered a terminal state")
)

type Outcome int

const (
	Ready Outcome = iota
	TerminalFailure
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case TerminalFailure:
		return "terminal"
	case TimedOut:
		return "timeout"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

const StatusReady = "ready"

var terminalStatuses = set.NewStrings("error", "locked", "deleting")

type terminalStatusError struct {
	status string
}

func (e *terminalStatusError) Error() string {
	return fmt.Sprintf("%v: %s", ErrReadinessTerminal, e.status)
}

func (e *terminalStatusError) Unwrap() error { return ErrReadinessTerminal }

// ReadinessGate blocks until a resource has no mutation in flight. The
// platform rejects a second mutating call on a resource that is still busy.
type ReadinessGate struct {
	backend Backend
	clock   clock.Clock
	logger  *slog.Logger
	metrics metrics.Metrics
}

func NewReadinessGate(b Backend, clk clock.Clock, logger *slog.Logger, m metrics.Metrics) *ReadinessGate {
	if clk == nil {
		clk = clock.WallClock
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &ReadinessGate{backend: b, clock: clk, logger: logger, metrics: m}
}

// WaitUntilReady polls the resource status every interval. It returns Ready
// as soon as the status is "ready" and TerminalFailure on the first
// error/locked/deleting status. The last wait is cut short so the final poll
// lands on the deadline; after it, or when ctx is done, it returns TimedOut.
// The returned error is nil only for Ready.
func (g *ReadinessGate) WaitUntilReady(ctx context.Context, res Resource, timeout, interval time.Duration) (Outcome, error) {
	if timeout <= 0 || interval <= 0 {
		return TimedOut, fmt.Errorf("%w: invalid wait (timeout %s, interval %s)", ErrReadinessTimeout, timeout, interval)
	}
	start := g.clock.Now()
	polls := 0
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			polls++
			status, err := g.backend.ResourceStatus(ctx, res)
			if err != nil {
				g.logger.Warn("status check failed", "resource", res.Name, "error", err)
				return err
			}
			if status == StatusReady {
				return nil
			}
			if terminalStatuses.Contains(status) {
				return &terminalStatusError{status: status}
			}
			return fmt.Errorf("status %q", status)
		},
		IsFatalError: func(err error) bool {
			return errors.Is(err, ErrReadinessTerminal)
		},
		NotifyFunc: func(lastErr error, attempt int) {
			g.logger.Debug("waiting for resource", "resource", res.Name, "attempt", attempt, "reason", lastErr)
		},
		// Never sleep past the deadline. Once it has passed, a full interval
		// makes retry.Call give up.
		BackoffFunc: func(time.Duration, int) time.Duration {
			remaining := timeout - g.clock.Now().Sub(start)
			if remaining <= 0 || remaining > interval {
				return interval
			}
			return remaining
		},
		Attempts:    -1,
		Delay:       interval,
		MaxDuration: timeout,
		Clock:       g.clock,
		Stop:        ctx.Done(),
	})

	outcome := Ready
	switch {
	case err == nil:
	case errors.Is(err, ErrReadinessTerminal):
		outcome = TerminalFailure
	default:
		outcome = TimedOut
		err = fmt.Errorf("%w after %s (%d polls): %v", ErrReadinessTimeout, timeout, polls, retry.LastError(err))
	}
	g.metrics.ObserveReadinessWait(g.backend.Domain(), outcome.String(), g.clock.Now().Sub(start))
	return outcome, err
}
