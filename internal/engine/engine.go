// Package engine holds the lifecycle logic shared by volume snapshots and
// database backups: naming, readiness gating, creation, retention pruning and
// the per-resource batch loop. Backend adapters translate each API family into
// the types defined here.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/juju/collections/set"
)

// ErrMalformedResponse marks a payload missing a field the engine depends on.
// It aborts the whole run.
var ErrMalformedResponse = errors.New("malformed response")

// Origin records which API family produced a record.
type Origin string

const (
	OriginLegacy    Origin = "legacy"
	OriginBlock     Origin = "block"
	OriginManagedDB Origin = "managed-db"
)

type ResourceKind string

const (
	KindServer           ResourceKind = "server"
	KindDatabaseInstance ResourceKind = "database-instance"
)

// Resource is the parent entity artifacts are taken of: a server or a
// database instance. Locality is its zone or region.
type Resource struct {
	ID       string
	Name     string
	Kind     ResourceKind
	Locality string
}

// Target is one unit of a resource that gets its own artifact.
type Target struct {
	ID         string
	Name       string
	LogicalKey string
	Origin     Origin
	Type       string
	SizeBytes  int64
}

// Artifact is a snapshot or backup. ExpiresAt is zero when none is set.
type Artifact struct {
	ID         string
	Name       string
	LogicalKey string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	SizeBytes  int64
	Status     string
	Origin     Origin
}

// Backend is the capability set an API family provides to the engine.
type Backend interface {
	// Domain names the backend in logs and metrics ("volumes", "databases").
	Domain() string
	// ListResources returns resources whose name matches name as the API
	// understands it; the empty name lists all of them.
	ListResources(ctx context.Context, name string) ([]Resource, error)
	ListTargets(ctx context.Context, res Resource) ([]Target, error)
	// ListArtifacts returns artifacts of res whose name starts with prefix,
	// merged across every API family the backend covers.
	ListArtifacts(ctx context.Context, res Resource, prefix string) ([]Artifact, error)
	CreateArtifact(ctx context.Context, res Resource, t Target, name string, expiresAt time.Time) (Artifact, error)
	DeleteArtifact(ctx context.Context, res Resource, a Artifact) error
	ResourceStatus(ctx context.Context, res Resource) (string, error)
	SupportsExpiry() bool
	// ReservedKeys are logical keys that are skipped on create unless
	// explicitly included.
	ReservedKeys() set.Strings
}

// Tally counts outcomes. Succeeded and Total count create attempts; Deleted
// counts artifacts removed (or that would be removed in a dry run).
type Tally struct {
	Succeeded int
	Total     int
	Deleted   int
}

func (t *Tally) Add(o Tally) {
	t.Succeeded += o.Succeeded
	t.Total += o.Total
	t.Deleted += o.Deleted
}

// Failed is the number of create attempts that did not succeed, including
// targets never attempted after an aborted wait.
func (t Tally) Failed() int {
	return t.Total - t.Succeeded
}
