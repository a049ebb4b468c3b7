package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/juju/clock"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/metrics"
)

// WaitConfig bounds the readiness wait between two creates on one resource.
// FailureTimeout applies after a create that failed.
type WaitConfig struct {
	Timeout        time.Duration
	FailureTimeout time.Duration
	PollInterval   time.Duration
}

func WaitConfigFrom(r config.ReadinessConfig) WaitConfig {
	return WaitConfig{Timeout: r.Timeout, FailureTimeout: r.FailureTimeout, PollInterval: r.PollInterval}
}

// Creator issues one create call per target, waiting for the resource to be
// ready between consecutive calls.
type Creator struct {
	backend Backend
	gate    *ReadinessGate
	clock   clock.Clock
	wait    WaitConfig
	logger  *slog.Logger
	metrics metrics.Metrics
}

func NewCreator(b Backend, gate *ReadinessGate, clk clock.Clock, wait WaitConfig, logger *slog.Logger, m metrics.Metrics) *Creator {
	if clk == nil {
		clk = clock.WallClock
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &Creator{backend: b, gate: gate, clock: clk, wait: wait, logger: logger, metrics: m}
}

// CreateForResource creates an artifact for each target in order, all named
// with the same timestamp. A failed create is counted and the loop moves on.
// A wait that does not end Ready abandons the remaining targets; they still
// count towards Total. Only ErrMalformedResponse is returned as an error.
func (c *Creator) CreateForResource(ctx context.Context, res Resource, targets []Target, expiryDays int, dryRun bool) (Tally, error) {
	tally, _, err := c.Create(ctx, res, targets, expiryDays, dryRun)
	return tally, err
}

// Create is CreateForResource that also returns the artifacts made. In a dry
// run those are the artifacts that would have been made, with no ID.
func (c *Creator) Create(ctx context.Context, res Resource, targets []Target, expiryDays int, dryRun bool) (Tally, []Artifact, error) {
	tally := Tally{Total: len(targets)}
	var made []Artifact
	now := c.clock.Now().UTC()
	var expiresAt time.Time
	if c.backend.SupportsExpiry() {
		expiresAt = config.ExpiresAt(now, expiryDays)
	}
	domain := c.backend.Domain()

	for i, t := range targets {
		name := ArtifactName(res.Name, t.LogicalKey, now)
		log := c.logger.With("resource", res.Name, "target", t.Name, "artifact", name, "origin", string(t.Origin))

		if dryRun {
			log.Info("would create artifact", "expires_at", formatExpiry(expiresAt))
			c.metrics.IncCreated(domain, string(t.Origin), "dry_run")
			tally.Succeeded++
			made = append(made, Artifact{
				Name:       name,
				LogicalKey: t.LogicalKey,
				CreatedAt:  now,
				ExpiresAt:  expiresAt,
				Origin:     t.Origin,
			})
			continue
		}

		ok := true
		a, err := c.backend.CreateArtifact(ctx, res, t, name, expiresAt)
		switch {
		case errors.Is(err, ErrMalformedResponse):
			return tally, made, err
		case err != nil:
			ok = false
			log.Error("create failed", "error", err)
			c.metrics.IncCreated(domain, string(t.Origin), "failed")
		default:
			tally.Succeeded++
			made = append(made, a)
			log.Info("artifact created", "id", a.ID, "expires_at", formatExpiry(expiresAt))
			c.metrics.IncCreated(domain, string(t.Origin), "ok")
		}

		if i == len(targets)-1 {
			break
		}
		timeout := c.wait.Timeout
		if !ok {
			timeout = c.wait.FailureTimeout
		}
		outcome, err := c.gate.WaitUntilReady(ctx, res, timeout, c.wait.PollInterval)
		if outcome != Ready {
			c.logger.Warn("aborting remaining targets",
				"resource", res.Name, "outcome", outcome.String(), "skipped", len(targets)-i-1, "error", err)
			break
		}
	}
	return tally, made, nil
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
