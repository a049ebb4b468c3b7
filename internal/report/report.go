// Package report turns a run result into a document that can be printed,
// serialized, or kept in object storage.
package report

import (
	"time"

	"SnapKeeper/internal/engine"
)

type Report struct {
	Domain     string           `json:"domain" yaml:"domain"`
	Action     string           `json:"action" yaml:"action"`
	DryRun     bool             `json:"dry_run" yaml:"dry_run"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
	Succeeded  int              `json:"succeeded" yaml:"succeeded"`
	Total      int              `json:"total" yaml:"total"`
	Deleted    int              `json:"deleted" yaml:"deleted"`
	Resources  []ResourceReport `json:"resources" yaml:"resources"`
}

type ResourceReport struct {
	Name      string        `json:"name" yaml:"name"`
	ID        string        `json:"id,omitempty" yaml:"id,omitempty"`
	Locality  string        `json:"locality,omitempty" yaml:"locality,omitempty"`
	Succeeded int           `json:"succeeded" yaml:"succeeded"`
	Total     int           `json:"total" yaml:"total"`
	Deleted   int           `json:"deleted" yaml:"deleted"`
	Skipped   []string      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Groups    []GroupReport `json:"groups,omitempty" yaml:"groups,omitempty"`
}

type GroupReport struct {
	Key       string           `json:"key" yaml:"key"`
	Artifacts []ArtifactReport `json:"artifacts" yaml:"artifacts"`
}

type ArtifactReport struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Origin    string     `json:"origin" yaml:"origin"`
	Status    string     `json:"status" yaml:"status"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	SizeBytes int64      `json:"size_bytes" yaml:"size_bytes"`
}

// FromResult copies a run result into a report.
func FromResult(r *engine.Result) *Report {
	rep := &Report{
		Domain:     r.Domain,
		Action:     string(r.Action),
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
		Succeeded:  r.Tally.Succeeded,
		Total:      r.Tally.Total,
		Deleted:    r.Tally.Deleted,
		Resources:  make([]ResourceReport, 0, len(r.Resources)),
	}
	for _, rr := range r.Resources {
		res := ResourceReport{
			Name:      rr.Name,
			ID:        rr.Resource.ID,
			Locality:  rr.Resource.Locality,
			Succeeded: rr.Tally.Succeeded,
			Total:     rr.Tally.Total,
			Deleted:   rr.Tally.Deleted,
			Skipped:   rr.Skipped,
		}
		if rr.Err != nil {
			res.Error = rr.Err.Error()
		}
		for _, g := range rr.Groups {
			gr := GroupReport{Key: g.Key, Artifacts: make([]ArtifactReport, 0, len(g.Artifacts))}
			for _, a := range g.Artifacts {
				gr.Artifacts = append(gr.Artifacts, fromArtifact(a))
			}
			res.Groups = append(res.Groups, gr)
		}
		rep.Resources = append(rep.Resources, res)
	}
	return rep
}

func fromArtifact(a engine.Artifact) ArtifactReport {
	out := ArtifactReport{
		ID:        a.ID,
		Name:      a.Name,
		Origin:    string(a.Origin),
		Status:    a.Status,
		CreatedAt: a.CreatedAt.UTC(),
		SizeBytes: a.SizeBytes,
	}
	if !a.ExpiresAt.IsZero() {
		exp := a.ExpiresAt.UTC()
		out.ExpiresAt = &exp
	}
	return out
}

// Failures lists "<resource>: <error>" for every resource that failed.
func (r *Report) Failures() []string {
	var out []string
	for _, res := range r.Resources {
		if res.Error != "" {
			out = append(out, res.Name+": "+res.Error)
		}
	}
	return out
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
