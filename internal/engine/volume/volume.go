// Package volume adapts the Instance and Block Storage APIs to engine.Backend.
// A server's volumes are snapshotted through whichever API owns their type,
// and snapshots from both are merged into one artifact list.
package volume

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

const Domain = "volumes"

// DefaultVolumeName keys volumes that have no name.
const DefaultVolumeName = "root"

// DefaultServers are backed up when no server is named.
var DefaultServers = []string{"tools-prod", "management", "authentik-prod"}

var busyVolumeStates = set.NewStrings("snapshotting", "saving", "resizing", "fetching", "hotsyncing", "updating", "creating")

// API is the part of *scaleway.Client this backend uses.
type API interface {
	Zone() string
	ListServers(ctx context.Context, name string) ([]scaleway.Server, error)
	GetServer(ctx context.Context, id string) (*scaleway.ServerDetail, error)
	ListInstanceSnapshots(ctx context.Context) ([]scaleway.InstanceSnapshot, error)
	CreateInstanceSnapshot(ctx context.Context, volumeID, name string) (*scaleway.InstanceSnapshot, error)
	DeleteInstanceSnapshot(ctx context.Context, id string) error
	ListBlockSnapshots(ctx context.Context) ([]scaleway.BlockSnapshot, error)
	CreateBlockSnapshot(ctx context.Context, volumeID, name string) (*scaleway.BlockSnapshot, error)
	DeleteBlockSnapshot(ctx context.Context, id string) error
}

type Backend struct {
	api API
}

func New(api API) *Backend {
	return &Backend{api: api}
}

// Classify maps a volume type to the API family that snapshots it.
func Classify(volumeType string) engine.Origin {
	if strings.HasPrefix(volumeType, "sbs_") || strings.HasPrefix(volumeType, "b_") {
		return engine.OriginBlock
	}
	return engine.OriginLegacy
}

func (b *Backend) Domain() string { return Domain }

func (b *Backend) SupportsExpiry() bool { return false }

func (b *Backend) ReservedKeys() set.Strings { return set.NewStrings() }

func (b *Backend) ListResources(ctx context.Context, name string) ([]engine.Resource, error) {
	servers, err := b.api.ListServers(ctx, name)
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]engine.Resource, 0, len(servers))
	for _, s := range servers {
		zone := s.Zone
		if zone == "" {
			zone = b.api.Zone()
		}
		out = append(out, engine.Resource{ID: s.ID, Name: s.Name, Kind: engine.KindServer, Locality: zone})
	}
	return out, nil
}

func (b *Backend) ListTargets(ctx context.Context, res engine.Resource) ([]engine.Target, error) {
	detail, err := b.api.GetServer(ctx, res.ID)
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]engine.Target, 0, len(detail.Volumes))
	for _, v := range detail.Volumes {
		key := volumeKey(v.Name)
		out = append(out, engine.Target{
			ID:         v.ID,
			Name:       key,
			LogicalKey: key,
			Origin:     Classify(v.VolumeType),
			Type:       v.VolumeType,
			SizeBytes:  v.Size,
		})
	}
	return out, nil
}

// ListArtifacts merges instance and block snapshots whose name starts with
// prefix. An empty prefix returns every snapshot of the server's current
// volumes, including manual ones.
func (b *Backend) ListArtifacts(ctx context.Context, res engine.Resource, prefix string) ([]engine.Artifact, error) {
	var volumeIDs set.Strings
	if prefix == "" {
		detail, err := b.api.GetServer(ctx, res.ID)
		if err != nil {
			return nil, wrap(err)
		}
		volumeIDs = set.NewStrings()
		for _, v := range detail.Volumes {
			volumeIDs.Add(v.ID)
		}
	}
	keep := func(name, volumeID string) bool {
		if prefix != "" {
			return strings.HasPrefix(name, prefix)
		}
		return volumeIDs.Contains(volumeID)
	}

	legacy, err := b.api.ListInstanceSnapshots(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	var out []engine.Artifact
	for _, s := range legacy {
		var volumeID string
		if s.BaseVolume != nil {
			volumeID = s.BaseVolume.ID
		}
		if !keep(s.Name, volumeID) {
			continue
		}
		a, err := fromInstanceSnapshot(s, true)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	block, err := b.api.ListBlockSnapshots(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	for _, s := range block {
		var volumeID string
		if s.ParentVolume != nil {
			volumeID = s.ParentVolume.ID
		}
		if !keep(s.Name, volumeID) {
			continue
		}
		a, err := fromBlockSnapshot(s, true)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (b *Backend) CreateArtifact(ctx context.Context, _ engine.Resource, t engine.Target, name string, _ time.Time) (engine.Artifact, error) {
	if t.Origin == engine.OriginBlock {
		s, err := b.api.CreateBlockSnapshot(ctx, t.ID, name)
		if err != nil {
			return engine.Artifact{}, wrap(err)
		}
		a, err := fromBlockSnapshot(*s, false)
		a.LogicalKey = t.LogicalKey
		return a, err
	}
	s, err := b.api.CreateInstanceSnapshot(ctx, t.ID, name)
	if err != nil {
		return engine.Artifact{}, wrap(err)
	}
	a, err := fromInstanceSnapshot(*s, false)
	a.LogicalKey = t.LogicalKey
	return a, err
}

func (b *Backend) DeleteArtifact(ctx context.Context, _ engine.Resource, a engine.Artifact) error {
	if a.Origin == engine.OriginBlock {
		return wrap(b.api.DeleteBlockSnapshot(ctx, a.ID))
	}
	return wrap(b.api.DeleteInstanceSnapshot(ctx, a.ID))
}

// ResourceStatus folds the server state and its volume states into the
// statuses the readiness gate understands.
func (b *Backend) ResourceStatus(ctx context.Context, res engine.Resource) (string, error) {
	detail, err := b.api.GetServer(ctx, res.ID)
	if err != nil {
		return "", wrap(err)
	}
	if detail.State == "locked" {
		return "locked", nil
	}
	busy := false
	for _, v := range detail.Volumes {
		if v.State == "error" {
			return "error", nil
		}
		if busyVolumeStates.Contains(v.State) {
			busy = true
		}
	}
	if busy {
		return "busy", nil
	}
	return engine.StatusReady, nil
}

func volumeKey(name string) string {
	if name == "" {
		return DefaultVolumeName
	}
	return name
}

func fromInstanceSnapshot(s scaleway.InstanceSnapshot, requireTime bool) (engine.Artifact, error) {
	created, err := parseTime(s.CreationDate, requireTime)
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: snapshot %s creation_date: %v", engine.ErrMalformedResponse, s.ID, err)
	}
	a := engine.Artifact{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: created,
		SizeBytes: s.Size,
		Status:    s.State,
		Origin:    engine.OriginLegacy,
	}
	if s.BaseVolume != nil {
		a.LogicalKey = volumeKey(s.BaseVolume.Name)
	}
	return a, nil
}

func fromBlockSnapshot(s scaleway.BlockSnapshot, requireTime bool) (engine.Artifact, error) {
	created, err := parseTime(s.CreatedAt, requireTime)
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: snapshot %s created_at: %v", engine.ErrMalformedResponse, s.ID, err)
	}
	a := engine.Artifact{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: created,
		SizeBytes: s.Size,
		Status:    s.Status,
		Origin:    engine.OriginBlock,
	}
	if s.ParentVolume != nil {
		a.LogicalKey = volumeKey(s.ParentVolume.Name)
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
