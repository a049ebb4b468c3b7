package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/set"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/metrics"
)

var ErrResourceNotFound = errors.New("resource not found")

type Action string

const (
	ActionCreate  Action = "create"
	ActionList    Action = "list"
	ActionCleanup Action = "cleanup"
)

type RunOptions struct {
	Action Action
	Policy config.RetentionConfig
	DryRun bool
	// Allow restricts create to targets whose name, ID or logical key is
	// listed. Empty means every target.
	Allow []string
	// IncludeReserved creates artifacts for the backend's reserved keys too.
	IncludeReserved bool
	// PruneAfterCreate runs retention on each resource right after its
	// creates.
	PruneAfterCreate bool
}

// Group is one logical key's artifacts, newest first.
type Group struct {
	Key       string
	Artifacts []Artifact
}

type ResourceResult struct {
	Name     string
	Resource Resource
	Tally    Tally
	// Skipped lists reserved keys left out of a create.
	Skipped []string
	Groups  []Group
	Err     error
}

type Result struct {
	Domain     string
	Action     Action
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Resources  []ResourceResult
	Tally      Tally
}

// Errors returns the resources that failed before their action could run.
func (r *Result) Errors() []ResourceResult {
	var out []ResourceResult
	for _, rr := range r.Resources {
		if rr.Err != nil {
			out = append(out, rr)
		}
	}
	return out
}

// Runner applies one action to resources one at a time, in the order given.
type Runner struct {
	backend Backend
	creator *Creator
	pruner  *Pruner
	clock   clock.Clock
	logger  *slog.Logger
	metrics metrics.Metrics
}

func NewRunner(b Backend, clk clock.Clock, wait WaitConfig, logger *slog.Logger, m metrics.Metrics) *Runner {
	if clk == nil {
		clk = clock.WallClock
	}
	if m == nil {
		m = metrics.Noop{}
	}
	logger = logger.With("domain", b.Domain())
	gate := NewReadinessGate(b, clk, logger, m)
	return &Runner{
		backend: b,
		creator: NewCreator(b, gate, clk, wait, logger, m),
		pruner:  NewPruner(b, clk, logger, m),
		clock:   clk,
		logger:  logger,
		metrics: m,
	}
}

// Run resolves names (all resources when empty) and applies opts.Action to
// each. Per-resource failures are recorded on the result and the loop goes
// on; only ErrMalformedResponse stops the run and is returned.
func (r *Runner) Run(ctx context.Context, names []string, opts RunOptions) (*Result, error) {
	res := &Result{
		Domain:    r.backend.Domain(),
		Action:    opts.Action,
		DryRun:    opts.DryRun,
		StartedAt: r.clock.Now().UTC(),
	}
	defer func() {
		res.FinishedAt = r.clock.Now().UTC()
		r.metrics.SetLastRun(res.Domain, res.FinishedAt)
	}()

	resources, err := r.resolve(ctx, names)
	if err != nil {
		return res, err
	}
	for _, rr := range resources {
		if rr.Err == nil {
			if err := r.runOne(ctx, &rr, opts); err != nil {
				res.Resources = append(res.Resources, rr)
				return res, err
			}
		}
		if rr.Err != nil {
			r.logger.Error("resource failed", "resource", rr.Name, "error", rr.Err)
			r.metrics.IncResourceErrors(res.Domain)
		}
		res.Tally.Add(rr.Tally)
		res.Resources = append(res.Resources, rr)
	}
	r.logger.Info("run finished",
		"action", string(opts.Action), "dry_run", opts.DryRun,
		"succeeded", res.Tally.Succeeded, "total", res.Tally.Total, "deleted", res.Tally.Deleted)
	return res, nil
}

func (r *Runner) resolve(ctx context.Context, names []string) ([]ResourceResult, error) {
	if len(names) == 0 {
		all, err := r.backend.ListResources(ctx, "")
		if err != nil {
			if errors.Is(err, ErrMalformedResponse) {
				return nil, err
			}
			return []ResourceResult{{Name: "*", Err: fmt.Errorf("list resources: %w", err)}}, nil
		}
		out := make([]ResourceResult, 0, len(all))
		for _, res := range all {
			out = append(out, ResourceResult{Name: res.Name, Resource: res})
		}
		return out, nil
	}

	out := make([]ResourceResult, 0, len(names))
	for _, name := range names {
		rr := ResourceResult{Name: name}
		found, err := r.backend.ListResources(ctx, name)
		switch {
		case errors.Is(err, ErrMalformedResponse):
			return nil, err
		case err != nil:
			rr.Err = fmt.Errorf("look up %s: %w", name, err)
		default:
			rr.Err = fmt.Errorf("%w: %s", ErrResourceNotFound, name)
			for _, res := range found {
				if res.Name == name {
					rr.Resource, rr.Err = res, nil
					break
				}
			}
		}
		out = append(out, rr)
	}
	return out, nil
}

// runOne fills rr for one resolved resource. A returned error is fatal to
// the run; anything else lands in rr.Err.
func (r *Runner) runOne(ctx context.Context, rr *ResourceResult, opts RunOptions) error {
	res := rr.Resource
	var err error
	switch opts.Action {
	case ActionCreate:
		err = r.create(ctx, rr, opts)
	case ActionCleanup:
		rr.Tally.Deleted, err = r.pruner.Prune(ctx, res, opts.Policy, opts.DryRun)
	case ActionList:
		err = r.list(ctx, rr)
	default:
		return fmt.Errorf("unknown action %q", opts.Action)
	}
	if errors.Is(err, ErrMalformedResponse) {
		return err
	}
	rr.Err = err
	return nil
}

func (r *Runner) create(ctx context.Context, rr *ResourceResult, opts RunOptions) error {
	res := rr.Resource
	targets, err := r.backend.ListTargets(ctx, res)
	if err != nil {
		return fmt.Errorf("list targets of %s: %w", res.Name, err)
	}
	targets, rr.Skipped = r.filterTargets(targets, opts)
	if len(rr.Skipped) > 0 {
		r.logger.Info("skipping reserved keys", "resource", res.Name, "keys", rr.Skipped)
	}
	if len(targets) == 0 {
		r.logger.Warn("no targets to back up", "resource", res.Name)
	}

	var made []Artifact
	rr.Tally, made, err = r.creator.Create(ctx, res, targets, opts.Policy.ExpiryDays, opts.DryRun)
	if err != nil {
		return err
	}
	if !opts.PruneAfterCreate || (opts.Policy.MaxCount <= 0 && opts.Policy.MaxAgeDays <= 0) {
		return nil
	}
	rr.Tally.Deleted, err = r.pruner.PruneWithPlanned(ctx, res, opts.Policy, opts.DryRun, made)
	return err
}

func (r *Runner) filterTargets(targets []Target, opts RunOptions) (kept []Target, skipped []string) {
	allow := set.NewStrings(opts.Allow...)
	reserved := r.backend.ReservedKeys()
	for _, t := range targets {
		if !allow.IsEmpty() && !allow.Contains(t.Name) && !allow.Contains(t.ID) && !allow.Contains(t.LogicalKey) {
			continue
		}
		if !opts.IncludeReserved && reserved.Contains(t.LogicalKey) {
			skipped = append(skipped, t.LogicalKey)
			continue
		}
		kept = append(kept, t)
	}
	return kept, skipped
}

// list reports the artifacts this tool owns on the resource, the same set
// cleanup ranks.
func (r *Runner) list(ctx context.Context, rr *ResourceResult) error {
	res := rr.Resource
	artifacts, err := r.backend.ListArtifacts(ctx, res, OwnedPrefix(res.Name))
	if err != nil {
		return fmt.Errorf("list artifacts of %s: %w", res.Name, err)
	}
	owned := artifacts[:0:0]
	for _, a := range artifacts {
		if Owns(res.Name, a) {
			owned = append(owned, a)
		}
	}
	groups := GroupByKey(owned)
	for _, key := range SortedKeys(groups) {
		rr.Groups = append(rr.Groups, Group{Key: key, Artifacts: groups[key]})
	}
	return nil
}
