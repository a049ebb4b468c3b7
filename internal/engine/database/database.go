// Package database adapts the Managed Database API to engine.Backend: one
// backup per logical database, keyed by database name.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/juju/collections/set"

	"SnapKeeper/internal/engine"
	"SnapKeeper/internal/scaleway"
)

const Domain = "databases"

// SystemDatabases are platform-managed and skipped unless asked for.
var SystemDatabases = []string{"rdb", "postgres", "template0", "template1"}

type API interface {
	Region() string
	ListInstances(ctx context.Context, name string) ([]scaleway.Instance, error)
	GetInstance(ctx context.Context, id string) (*scaleway.Instance, error)
	ListDatabases(ctx context.Context, instanceID string) ([]scaleway.Database, error)
	ListBackups(ctx context.Context, instanceID, databaseName string) ([]scaleway.DatabaseBackup, error)
	CreateBackup(ctx context.Context, instanceID, databaseName, name, expiresAt string) (*scaleway.DatabaseBackup, error)
	DeleteBackup(ctx context.Context, id string) error
}

type Backend struct {
	api API
}

func New(api API) *Backend {
	return &Backend{api: api}
}

func (b *Backend) Domain() string { return Domain }

func (b *Backend) SupportsExpiry() bool { return true }

func (b *Backend) ReservedKeys() set.Strings { return set.NewStrings(SystemDatabases...) }

func (b *Backend) ListResources(ctx context.Context, name string) ([]engine.Resource, error) {
	instances, err := b.api.ListInstances(ctx, name)
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]engine.Resource, 0, len(instances))
	for _, in := range instances {
		region := in.Region
		if region == "" {
			region = b.api.Region()
		}
		out = append(out, engine.Resource{ID: in.ID, Name: in.Name, Kind: engine.KindDatabaseInstance, Locality: region})
	}
	return out, nil
}

func (b *Backend) ListTargets(ctx context.Context, res engine.Resource) ([]engine.Target, error) {
	dbs, err := b.api.ListDatabases(ctx, res.ID)
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]engine.Target, 0, len(dbs))
	for _, db := range dbs {
		out = append(out, engine.Target{
			ID:         db.Name,
			Name:       db.Name,
			LogicalKey: db.Name,
			Origin:     engine.OriginManagedDB,
			SizeBytes:  db.Size,
		})
	}
	return out, nil
}

func (b *Backend) ListArtifacts(ctx context.Context, res engine.Resource, prefix string) ([]engine.Artifact, error) {
	backups, err := b.api.ListBackups(ctx, res.ID, "")
	if err != nil {
		return nil, wrap(err)
	}
	var out []engine.Artifact
	for _, bk := range backups {
		if !strings.HasPrefix(bk.Name, prefix) {
			continue
		}
		a, err := fromBackup(bk, true)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (b *Backend) CreateArtifact(ctx context.Context, res engine.Resource, t engine.Target, name string, expiresAt time.Time) (engine.Artifact, error) {
	var expiry string
	if !expiresAt.IsZero() {
		expiry = expiresAt.UTC().Format(time.RFC3339)
	}
	bk, err := b.api.CreateBackup(ctx, res.ID, t.LogicalKey, name, expiry)
	if err != nil {
		return engine.Artifact{}, wrap(err)
	}
	a, err := fromBackup(*bk, false)
	if a.LogicalKey == "" {
		a.LogicalKey = t.LogicalKey
	}
	return a, err
}

func (b *Backend) DeleteArtifact(ctx context.Context, _ engine.Resource, a engine.Artifact) error {
	return wrap(b.api.DeleteBackup(ctx, a.ID))
}

// ResourceStatus returns the instance status as reported.
func (b *Backend) ResourceStatus(ctx context.Context, res engine.Resource) (string, error) {
	in, err := b.api.GetInstance(ctx, res.ID)
	if err != nil {
		return "", wrap(err)
	}
	return in.Status, nil
}

func fromBackup(bk scaleway.DatabaseBackup, requireTime bool) (engine.Artifact, error) {
	a := engine.Artifact{
		ID:         bk.ID,
		Name:       bk.Name,
		LogicalKey: bk.DatabaseName,
		Status:     bk.Status,
		Origin:     engine.OriginManagedDB,
	}
	if bk.Size != nil {
		a.SizeBytes = *bk.Size
	}
	created, err := parseTime(bk.CreatedAt, requireTime)
	if err != nil {
		return a, fmt.Errorf("%w: backup %s created_at: %v", engine.ErrMalformedResponse, bk.ID, err)
	}
	a.CreatedAt = created
	if bk.ExpiresAt != nil && *bk.ExpiresAt != "" {
		exp, err := parseTime(*bk.ExpiresAt, true)
		if err != nil {
			return a, fmt.Errorf("%w: backup %s expires_at: %v", engine.ErrMalformedResponse, bk.ID, err)
		}
		a.ExpiresAt = exp
	}
	return a, nil
}

func parseTime(s string, required bool) (time.Time, error) {
	if s == "" {
		if required {
			return time.Time{}, errors.New("empty timestamp")
		}
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func wrap(err error) error {
	if err != nil && errors.Is(err, scaleway.ErrMalformedResponse) {
		return fmt.Errorf("%w: %v", engine.ErrMalformedResponse, err)
	}
	return err
}
