package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/logging"
)

func newPruner(b Backend, now time.Time) *Pruner {
	return NewPruner(b, testclock.NewClock(now), logging.Discard(), nil)
}

func ids(artifacts []Artifact) []string {
	out := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, a.ID)
	}
	return out
}

func TestPrune_KeepsNewestPerKey(t *testing.T) {
	b := newFakeBackend()
	res := b.addResource("db1")
	for i, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		b.artifacts[res.ID] = append(b.artifacts[res.ID], owned(id, "db1", "a", t0.AddDate(0, 0, -i)))
	}

	deleted, err := newPruner(b, t0).Prune(context.Background(), res, config.RetentionConfig{MaxCount: 3}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.ElementsMatch(t, []string{"a4", "a5"}, b.deletes)
	assert.ElementsMatch(t, []string{"a1", "a2", "a3"}, ids(b.artifacts[res.ID]))
}

func TestPrune_IgnoresArtifactsItDoesNotOwn(t *testing.T) {
	b := newFakeBackend()
	res := b.addResource("web")
	old := t0.AddDate(0, 0, -30)
	b.artifacts[res.ID] = []Artifact{
		owned("mine-1", "web", "root", t0),
		owned("mine-2", "web", "root", old),
		{ID: "manual", Name: "auto-web-root-before-upgrade", LogicalKey: "root", CreatedAt: old.AddDate(0, 0, -1)},
		{ID: "sibling", Name: ArtifactName("web-prod", "root", old), LogicalKey: "root", CreatedAt: old.AddDate(0, 0, -2)},
		{ID: "unprefixed", Name: "nightly-root", LogicalKey: "root", CreatedAt: old.AddDate(0, 0, -3)},
	}

	deleted, err := newPruner(b, t0).Prune(context.Background(), res, config.RetentionConfig{MaxCount: 1}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, []string{"mine-2"}, b.deletes)
}

func TestPrune_DeleteFailureDoesNotStopOthers(t *testing.T) {
	b := newFakeBackend()
	res := b.addResource("db1")
	b.artifacts[res.ID] = []Artifact{
		owned("a1", "db1", "a", t0),
		owned("a2", "db1", "a", t0.Add(-time.Hour)),
		owned("a3", "db1", "a", t0.Add(-2*time.Hour)),
		owned("b1", "db1", "b", t0),
		owned("b2", "db1", "b", t0.Add(-time.Hour)),
	}
	b.deleteErrs["a2"] = errors.New("409 backup is exporting")

	deleted, err := newPruner(b, t0).Prune(context.Background(), res, config.RetentionConfig{MaxCount: 1}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.ElementsMatch(t, []string{"a2", "a3", "b2"}, b.deletes)
}

func TestPrune_DryRunCountsWithoutDeleting(t *testing.T) {
	live, dry := newFakeBackend(), newFakeBackend()
	for _, b := range []*fakeBackend{live, dry} {
		res := b.addResource("db1")
		for i := 0; i < 6; i++ {
			b.artifacts[res.ID] = append(b.artifacts[res.ID], owned(string(rune('a'+i)), "db1", "app", t0.AddDate(0, 0, -i)))
		}
	}
	policy := config.RetentionConfig{MaxCount: 2}

	want, err := newPruner(live, t0).Prune(context.Background(), live.resources[0], policy, false)
	require.NoError(t, err)
	got, err := newPruner(dry, t0).Prune(context.Background(), dry.resources[0], policy, true)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, dry.mutations())
}

func TestSelectForDeletion(t *testing.T) {
	now := t0
	arts := []Artifact{
		owned("n0", "r", "k", now),
		owned("n1", "r", "k", now.AddDate(0, 0, -1)),
		owned("n5", "r", "k", now.AddDate(0, 0, -5)),
		owned("n10", "r", "k", now.AddDate(0, 0, -10)),
		owned("n20", "r", "k", now.AddDate(0, 0, -20)),
	}
	tests := []struct {
		name   string
		policy config.RetentionConfig
		want   []string
	}{
		{"count", config.RetentionConfig{MaxCount: 2}, []string{"n5", "n10", "n20"}},
		{"age", config.RetentionConfig{MaxAgeDays: 7}, []string{"n10", "n20"}},
		{"count and age", config.RetentionConfig{MaxCount: 4, MaxAgeDays: 3}, []string{"n20"}},
		{"age protects beyond count", config.RetentionConfig{MaxCount: 1, MaxAgeDays: 15}, []string{"n20"}},
		{"count larger than group", config.RetentionConfig{MaxCount: 10}, nil},
		{"no policy", config.RetentionConfig{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectForDeletion(arts, tt.policy, now)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSelectForDeletion_NeverExceedsExcess(t *testing.T) {
	var arts []Artifact
	for key, n := range map[string]int{"a": 7, "b": 2, "c": 4} {
		for i := 0; i < n; i++ {
			arts = append(arts, owned(key+string(rune('0'+i)), "r", key, t0.Add(-time.Duration(i)*time.Hour)))
		}
	}
	for maxCount := 1; maxCount <= 8; maxCount++ {
		got := SelectForDeletion(arts, config.RetentionConfig{MaxCount: maxCount}, t0)
		perKey := map[string]int{}
		for _, a := range got {
			perKey[a.LogicalKey]++
		}
		for key, n := range map[string]int{"a": 7, "b": 2, "c": 4} {
			assert.Equal(t, max(0, n-maxCount), perKey[key], "maxCount=%d key=%s", maxCount, key)
		}
	}
}

func TestGroupByKey_TieBreakOnID(t *testing.T) {
	arts := []Artifact{
		owned("z", "r", "k", t0),
		owned("b", "r", "k", t0),
		owned("m", "r", "k", t0.Add(time.Second)),
		owned("a", "r", "k", t0),
	}
	groups := GroupByKey(arts)
	assert.Equal(t, []string{"m", "a", "b", "z"}, ids(groups["k"]))

	got := SelectForDeletion(arts, config.RetentionConfig{MaxCount: 2}, t0)
	assert.Equal(t, []string{"b", "z"}, ids(got))
}

func TestPruneWithPlanned(t *testing.T) {
	b := newFakeBackend()
	res := b.addResource("web")
	for i := 1; i <= 3; i++ {
		b.artifacts[res.ID] = append(b.artifacts[res.ID], owned(string(rune('a'+i)), "web", "data", t0.AddDate(0, 0, -i)))
	}
	planned := []Artifact{{Name: ArtifactName("web", "data", t0), LogicalKey: "data", CreatedAt: t0}}
	policy := config.RetentionConfig{MaxCount: 3}

	got, err := newPruner(b, t0).PruneWithPlanned(context.Background(), res, policy, true, planned)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Zero(t, b.mutations())

	got, err = newPruner(b, t0).PruneWithPlanned(context.Background(), res, policy, false, planned)
	require.NoError(t, err)
	assert.Equal(t, 0, got, "planned artifacts only count in a dry run")
	assert.Empty(t, b.deletes)
}
