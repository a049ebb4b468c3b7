package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/juju/clock"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/metrics"
)

// Pruner deletes owned artifacts that fall outside a retention policy.
// Deletions are not gated on readiness.
type Pruner struct {
	backend Backend
	clock   clock.Clock
	logger  *slog.Logger
	metrics metrics.Metrics
}

func NewPruner(b Backend, clk clock.Clock, logger *slog.Logger, m metrics.Metrics) *Pruner {
	if clk == nil {
		clk = clock.WallClock
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &Pruner{backend: b, clock: clk, logger: logger, metrics: m}
}

// Prune returns the number of artifacts deleted, or in a dry run the number
// that would be. A failed deletion is logged and skipped.
func (p *Pruner) Prune(ctx context.Context, res Resource, policy config.RetentionConfig, dryRun bool) (int, error) {
	return p.PruneWithPlanned(ctx, res, policy, dryRun, nil)
}

// PruneWithPlanned ranks planned alongside the listed artifacts. A dry-run
// create passes the artifacts it would have made so the count matches a live
// run, where they already exist. planned is ignored outside a dry run.
func (p *Pruner) PruneWithPlanned(ctx context.Context, res Resource, policy config.RetentionConfig, dryRun bool, planned []Artifact) (int, error) {
	artifacts, err := p.backend.ListArtifacts(ctx, res, OwnedPrefix(res.Name))
	if err != nil {
		return 0, fmt.Errorf("list artifacts of %s: %w", res.Name, err)
	}
	if dryRun {
		artifacts = append(artifacts, planned...)
	}
	owned := artifacts[:0:0]
	for _, a := range artifacts {
		if Owns(res.Name, a) {
			owned = append(owned, a)
		}
	}

	candidates := SelectForDeletion(owned, policy, p.clock.Now())
	domain := p.backend.Domain()
	deleted := 0
	for _, a := range candidates {
		log := p.logger.With("resource", res.Name, "key", a.LogicalKey, "artifact", a.Name, "id", a.ID)
		if dryRun {
			log.Info("would delete artifact", "created_at", a.CreatedAt.Format(time.RFC3339))
			deleted++
			continue
		}
		if err := p.backend.DeleteArtifact(ctx, res, a); err != nil {
			if errors.Is(err, ErrMalformedResponse) {
				return deleted, err
			}
			log.Error("delete failed", "error", err)
			p.metrics.IncDeleted(domain, "failed")
			continue
		}
		log.Info("artifact deleted", "created_at", a.CreatedAt.Format(time.RFC3339))
		p.metrics.IncDeleted(domain, "ok")
		deleted++
	}
	return deleted, nil
}

// SelectForDeletion picks deletion candidates from owned artifacts. Within
// each logical key, artifacts are ranked newest first; those ranked at or
// past MaxCount are candidates. With MaxAgeDays set a candidate must also be
// older than the age limit, and with MaxCount unset age alone decides.
func SelectForDeletion(artifacts []Artifact, policy config.RetentionConfig, now time.Time) []Artifact {
	if policy.MaxCount <= 0 && policy.MaxAgeDays <= 0 {
		return nil
	}
	groups := GroupByKey(artifacts)
	var out []Artifact
	for _, key := range SortedKeys(groups) {
		for i, a := range groups[key] {
			if policy.MaxCount > 0 && i < policy.MaxCount {
				continue
			}
			if policy.MaxAgeDays > 0 && !config.IsExpired(a.CreatedAt, now, policy.MaxAgeDays) {
				continue
			}
			out = append(out, a)
		}
	}
	return out
}

// GroupByKey groups artifacts by logical key, each group sorted newest first
// with ties broken by ascending ID.
func GroupByKey(artifacts []Artifact) map[string][]Artifact {
	groups := make(map[string][]Artifact)
	for _, a := range artifacts {
		groups[a.LogicalKey] = append(groups[a.LogicalKey], a)
	}
	for _, g := range groups {
		SortNewestFirst(g)
	}
	return groups
}

func SortNewestFirst(artifacts []Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		a, b := artifacts[i], artifacts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func SortedKeys(groups map[string][]Artifact) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
