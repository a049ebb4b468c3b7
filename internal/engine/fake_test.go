package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/collections/set"
)

type createCall struct {
	Resource  string
	Target    string
	Name      string
	ExpiresAt time.Time
}

// fakeBackend keeps resources, targets and artifacts in memory and records
// every mutating call.
type fakeBackend struct {
	mu sync.Mutex

	resources []Resource
	targets   map[string][]Target
	artifacts map[string][]Artifact
	// statuses is popped on each status read; the last entry repeats.
	statuses  []string
	statusErr error
	expiry    bool
	reserved  set.Strings

	listErr    map[string]error
	createErrs map[string]error
	deleteErrs map[string]error

	creates     []createCall
	deletes     []string
	statusCalls int
	nextID      int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		targets:    map[string][]Target{},
		artifacts:  map[string][]Artifact{},
		statuses:   []string{StatusReady},
		reserved:   set.NewStrings(),
		listErr:    map[string]error{},
		createErrs: map[string]error{},
		deleteErrs: map[string]error{},
	}
}

func (f *fakeBackend) addResource(name string, targets ...Target) Resource {
	res := Resource{ID: "id-" + name, Name: name, Kind: KindDatabaseInstance, Locality: "fr-par"}
	f.resources = append(f.resources, res)
	f.targets[res.ID] = targets
	return res
}

func (f *fakeBackend) Domain() string { return "test" }

func (f *fakeBackend) ListResources(_ context.Context, name string) ([]Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[name]; err != nil {
		return nil, err
	}
	return append([]Resource(nil), f.resources...), nil
}

func (f *fakeBackend) ListTargets(_ context.Context, res Resource) ([]Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Target(nil), f.targets[res.ID]...), nil
}

func (f *fakeBackend) ListArtifacts(_ context.Context, res Resource, prefix string) ([]Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Artifact
	for _, a := range f.artifacts[res.ID] {
		if len(a.Name) >= len(prefix) && a.Name[:len(prefix)] == prefix {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateArtifact(_ context.Context, res Resource, t Target, name string, expiresAt time.Time) (Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{Resource: res.Name, Target: t.Name, Name: name, ExpiresAt: expiresAt})
	if err := f.createErrs[t.ID]; err != nil {
		return Artifact{}, err
	}
	f.nextID++
	_, at, _ := ParseName(res.Name, name)
	a := Artifact{ID: fmt.Sprintf("art-%d", f.nextID), Name: name, LogicalKey: t.LogicalKey, CreatedAt: at, ExpiresAt: expiresAt, Origin: t.Origin}
	f.artifacts[res.ID] = append(f.artifacts[res.ID], a)
	return a, nil
}

func (f *fakeBackend) DeleteArtifact(_ context.Context, res Resource, a Artifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, a.ID)
	if err := f.deleteErrs[a.ID]; err != nil {
		return err
	}
	kept := f.artifacts[res.ID][:0]
	for _, x := range f.artifacts[res.ID] {
		if x.ID != a.ID {
			kept = append(kept, x)
		}
	}
	f.artifacts[res.ID] = kept
	return nil
}

func (f *fakeBackend) ResourceStatus(context.Context, Resource) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		err := f.statusErr
		f.statusErr = nil
		return "", err
	}
	s := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return s, nil
}

func (f *fakeBackend) SupportsExpiry() bool { return f.expiry }

func (f *fakeBackend) ReservedKeys() set.Strings { return f.reserved }

func (f *fakeBackend) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.deletes)
}

// owned builds an artifact named as this tool would name it.
func owned(id, resource, key string, at time.Time) Artifact {
	return Artifact{ID: id, Name: ArtifactName(resource, key, at), LogicalKey: key, CreatedAt: at, Origin: OriginManagedDB}
}
