package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/engine"
	"SnapKeeper/internal/engine/database"
	"SnapKeeper/internal/logging"
	"SnapKeeper/internal/metrics"
	"SnapKeeper/internal/notifier"
	"SnapKeeper/internal/report"
	"SnapKeeper/internal/scaleway"
	"SnapKeeper/internal/scaleway/scalewaytest"
)

func setEnv(t *testing.T, api *scalewaytest.API) {
	t.Helper()
	t.Setenv("SCW_ACCESS_KEY", "SCWXXXXXXXXXXXXXXXXX")
	t.Setenv("SCW_SECRET_KEY", scalewaytest.Token)
	t.Setenv("SCW_PROJECT_ID", scalewaytest.ProjectID)
	t.Setenv("SCW_ZONE", scalewaytest.Zone)
	t.Setenv("SCW_REGION", scalewaytest.Region)
	t.Setenv("SNAPKEEPER_READY_POLL_INTERVAL", "10ms")
	t.Setenv("SNAPKEEPER_READY_TIMEOUT", "2s")
	t.Setenv("SNAPKEEPER_READY_FAILURE_TIMEOUT", "1s")
	t.Setenv("SNAPKEEPER_DISCORD_WEBHOOK_URL", "")
	t.Setenv("SNAPKEEPER_REPORT_UPLOAD", "")
	if api != nil {
		t.Setenv("SCW_API_URL", api.Server.URL)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidate_MissingCredentials(t *testing.T) {
	setEnv(t, nil)
	t.Setenv("SCW_SECRET_KEY", "")

	_, err := execute(t, "validate")
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestValidate_InvalidProjectStopsBeforeAnyCall(t *testing.T) {
	api := scalewaytest.New()
	defer api.Close()
	setEnv(t, api)
	t.Setenv("SCW_PROJECT_ID", "not-a-uuid")

	_, err := execute(t, "volumes", "cleanup", "--dry-run=false", "-o", "text")
	assert.ErrorIs(t, err, config.ErrInvalidProjectID)
	assert.Empty(t, api.Calls())
}

func TestValidate_OK(t *testing.T) {
	setEnv(t, nil)
	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration OK")
}

func TestVolumesList_JSON(t *testing.T) {
	api := scalewaytest.New()
	defer api.Close()
	setEnv(t, api)
	api.Servers = []scaleway.Server{{ID: "srv-web", Name: "web", State: "running"}}
	api.Volumes["srv-web"] = []scaleway.Volume{{ID: "vol-a", Name: "data", VolumeType: "l_ssd"}}
	api.InstanceSnapshots = []scaleway.InstanceSnapshot{
		{ID: "s1", Name: "auto-web-data-20250301-020000", State: "available", CreationDate: "2025-03-01T02:00:00Z", BaseVolume: &scaleway.VolumeRef{ID: "vol-a", Name: "data"}},
		{ID: "s2", Name: "auto-web-data-20250302-020000", State: "available", CreationDate: "2025-03-02T02:00:00Z", BaseVolume: &scaleway.VolumeRef{ID: "vol-a", Name: "data"}},
		{ID: "s3", Name: "manual-web-data", State: "available", CreationDate: "2025-03-02T02:00:00Z", BaseVolume: &scaleway.VolumeRef{ID: "vol-a", Name: "data"}},
	}

	out, err := execute(t, "volumes", "list", "--server", "web", "-o", "json", "--dry-run=false")
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, "volumes", rep.Domain)
	require.Len(t, rep.Resources, 1)
	require.Len(t, rep.Resources[0].Groups, 1)
	group := rep.Resources[0].Groups[0]
	assert.Equal(t, "data", group.Key)
	require.Len(t, group.Artifacts, 2)
	assert.Equal(t, "s2", group.Artifacts[0].ID)
	assert.Empty(t, api.MutatingCalls())
}

func TestDatabasesBackup_CreatesAndWritesMetrics(t *testing.T) {
	api := scalewaytest.New()
	defer api.Close()
	setEnv(t, api)
	api.Instances = []scaleway.Instance{{ID: "ins-1", Name: "pg-main", Status: "ready"}}
	api.Databases["ins-1"] = []scaleway.Database{{Name: "app"}, {Name: "rdb"}}
	textfile := filepath.Join(t.TempDir(), "snapkeeper.prom")

	out, err := execute(t, "databases", "backup", "--instance", "pg-main", "--dry-run=false", "-o", "json",
		"--retention-days", "7", "--metrics-textfile", textfile)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, 1, rep.Total)
	assert.Equal(t, []string{"rdb"}, rep.Resources[0].Skipped)
	assert.Equal(t, []string{"POST /rdb/v1/regions/fr-par/backups"}, api.MutatingCalls())
	require.Len(t, api.Backups, 1)
	require.NotNil(t, api.Backups[0].ExpiresAt)

	metricsText, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), `snapkeeper_artifacts_created_total{domain="databases",origin="managed-db",outcome="ok"} 1`)
}

type recordingNotifier struct {
	events  []string
	summary notifier.RunSummary
	err     error
}

func (r *recordingNotifier) NotifyStart(context.Context, string, string) error {
	r.events = append(r.events, "start")
	return nil
}

func (r *recordingNotifier) NotifySuccess(_ context.Context, s notifier.RunSummary) error {
	r.events = append(r.events, "success")
	r.summary = s
	return nil
}

func (r *recordingNotifier) NotifyPartial(_ context.Context, s notifier.RunSummary) error {
	r.events = append(r.events, "partial")
	r.summary = s
	return nil
}

func (r *recordingNotifier) NotifyError(_ context.Context, _, _ string, err error) error {
	r.events = append(r.events, "error")
	r.err = err
	return nil
}

func (r *recordingNotifier) NotifyTest(context.Context) error { return nil }

func testApp(t *testing.T, api *scalewaytest.API, n notifier.Notifier) *app {
	t.Helper()
	cfg := &config.Config{
		Scaleway: config.ScalewayConfig{ProjectID: scalewaytest.ProjectID, Zone: scalewaytest.Zone, Region: scalewaytest.Region},
		Readiness: config.ReadinessConfig{
			Timeout:        time.Second,
			FailureTimeout: 500 * time.Millisecond,
			PollInterval:   10 * time.Millisecond,
		},
	}
	return &app{
		cfg:      cfg,
		logger:   logging.Discard(),
		scw:      api.Client(),
		notifier: n,
		metrics:  metrics.NewProm(),
		clock:    clock.WallClock,
	}
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	dryRun, outputFormat = false, "text"
	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)
	c.SetContext(context.Background())
	return c, &out
}

func TestRunAction_PartialFailureNotifies(t *testing.T) {
	api := scalewaytest.New()
	defer api.Close()
	api.Instances = []scaleway.Instance{{ID: "ins-1", Name: "pg-main", Status: "ready"}}
	api.Databases["ins-1"] = []scaleway.Database{{Name: "app"}, {Name: "billing"}}
	api.FailTargets["app"] = 500

	rec := &recordingNotifier{}
	c, out := testCommand()
	err := runAction(c, testApp(t, api, rec), database.New(api.Client()), []string{"pg-main"}, engine.RunOptions{
		Action: engine.ActionCreate,
		Policy: config.RetentionConfig{ExpiryDays: 7},
	})
	require.NoError(t, err, "partial failures exit zero")
	assert.Equal(t, []string{"start", "partial"}, rec.events)
	assert.Equal(t, 1, rec.summary.Succeeded)
	assert.Equal(t, 2, rec.summary.Total)
	assert.Contains(t, out.String(), "1/2")
}

func TestRunAction_MalformedAborts(t *testing.T) {
	api := scalewaytest.New()
	defer api.Close()
	api.Raw["GET /rdb/v1/regions/fr-par/instances"] = `{"instances": [{"name": "pg-main"}]}`

	rec := &recordingNotifier{}
	c, _ := testCommand()
	err := runAction(c, testApp(t, api, rec), database.New(api.Client()), nil, engine.RunOptions{Action: engine.ActionCleanup, Policy: config.RetentionConfig{MaxCount: 3}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrMalformedResponse), "got %v", err)
	assert.Equal(t, []string{"start", "error"}, rec.events)
	assert.Empty(t, api.MutatingCalls())
}

func TestRunAction_ListDoesNotNotify(t *testing.T) {
	api := scalewaytest.New()
	defer api.Close()
	api.Instances = []scaleway.Instance{{ID: "ins-1", Name: "pg-main", Status: "ready"}}

	rec := &recordingNotifier{}
	c, out := testCommand()
	err := runAction(c, testApp(t, api, rec), database.New(api.Client()), nil, engine.RunOptions{Action: engine.ActionList})
	require.NoError(t, err)
	assert.Empty(t, rec.events)
	assert.True(t, strings.Contains(out.String(), "== pg-main"), out.String())
}

func TestNotifierFromConfig(t *testing.T) {
	assert.Nil(t, NotifierFromConfig(&config.Config{}, nil))

	var warned string
	cfg := &config.Config{Notifications: config.NotificationsConfig{Discord: config.DiscordConfig{WebhookURL: "ftp://x"}}}
	assert.Nil(t, NotifierFromConfig(cfg, func(s string) { warned = s }))
	assert.Contains(t, warned, "discord notification")

	cfg.Notifications.Discord.WebhookURL = "https://discord.example/webhook"
	assert.NotNil(t, NotifierFromConfig(cfg, nil))
}

func TestSystemdUnits_Write(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "systemd-units", "volumes", "--write", "--unit-dir", dir, "--times", "2", "--", "--server", "tools-prod")
	require.NoError(t, err)
	assert.Contains(t, out, "snapkeeper-volumes.timer")

	service, err := os.ReadFile(filepath.Join(dir, "snapkeeper-volumes.service"))
	require.NoError(t, err)
	assert.Contains(t, string(service), "ExecStart=/usr/local/bin/snapkeeper volumes backup --server tools-prod\n")

	timer, err := os.ReadFile(filepath.Join(dir, "snapkeeper-volumes.timer"))
	require.NoError(t, err)
	assert.Contains(t, string(timer), "OnCalendar=*-*-* 14:00:00 UTC")
}

func TestSystemdUnits_UnknownDomain(t *testing.T) {
	_, err := execute(t, "systemd-units", "buckets")
	assert.Error(t, err)
}
