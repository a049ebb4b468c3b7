package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"SnapKeeper/internal/config"
	"SnapKeeper/internal/notifier"
	"SnapKeeper/internal/scaleway"
)

type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

// ScalewayProbe is the read-only part of the Scaleway client doctor uses.
type ScalewayProbe interface {
	ListServers(ctx context.Context, name string) ([]scaleway.Server, error)
	ListInstances(ctx context.Context, name string) ([]scaleway.Instance, error)
}

type BucketProbe interface {
	HeadBucket(ctx context.Context) error
}

// Probes are the remote endpoints to check. A nil probe is reported as not
// configured.
type Probes struct {
	Scaleway ScalewayProbe
	Reports  BucketProbe
	// ReportsErr is the error from building the report storage client.
	ReportsErr error
}

const probeTimeout = 5 * time.Second

func Run(ctx context.Context, cfg *config.Config, p Probes) []CheckResult {
	var results []CheckResult

	if err := config.Validate(cfg); err != nil {
		results = append(results, CheckResult{Name: "config", OK: false, Detail: err.Error()})
		return results
	}
	results = append(results, CheckResult{
		Name:   "config",
		OK:     true,
		Detail: fmt.Sprintf("project %s, zone %s, region %s", cfg.Scaleway.ProjectID, cfg.Scaleway.Zone, cfg.Scaleway.Region),
	})

	if p.Scaleway == nil {
		results = append(results,
			CheckResult{Name: "instance api", OK: false, Detail: "scaleway client not available"},
			CheckResult{Name: "rdb api", OK: false, Detail: "scaleway client not available"},
		)
	} else {
		ok, detail := checkInstanceAPI(ctx, p.Scaleway, cfg.Scaleway.Zone)
		results = append(results, CheckResult{Name: "instance api", OK: ok, Detail: detail})
		ok, detail = checkRDBAPI(ctx, p.Scaleway, cfg.Scaleway.Region)
		results = append(results, CheckResult{Name: "rdb api", OK: ok, Detail: detail})
	}

	ok, detail := checkReportBucket(ctx, cfg, p)
	results = append(results, CheckResult{Name: "report bucket", OK: ok, Detail: detail})

	ok, detail = checkDiscord(cfg.Notifications.Discord)
	results = append(results, CheckResult{Name: "discord", OK: ok, Detail: detail})

	ok, detail = checkTextfileDir(cfg.Metrics.Textfile)
	results = append(results, CheckResult{Name: "metrics textfile", OK: ok, Detail: detail})

	return results
}

// Failed reports whether any check failed.
func Failed(results []CheckResult) bool {
	for _, r := range results {
		if !r.OK {
			return true
		}
	}
	return false
}

func checkInstanceAPI(ctx context.Context, probe ScalewayProbe, zone string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	servers, err := probe.ListServers(ctx, "")
	if err != nil {
		return false, fmt.Sprintf("list servers failed: %v", err)
	}
	return true, fmt.Sprintf("%d servers in %s", len(servers), zone)
}

func checkRDBAPI(ctx context.Context, probe ScalewayProbe, region string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	instances, err := probe.ListInstances(ctx, "")
	if err != nil {
		return false, fmt.Sprintf("list database instances failed: %v", err)
	}
	return true, fmt.Sprintf("%d database instances in %s", len(instances), region)
}

func checkReportBucket(ctx context.Context, cfg *config.Config, p Probes) (bool, string) {
	if cfg.Report.Bucket == "" {
		return true, "report upload not configured"
	}
	if p.ReportsErr != nil {
		return false, fmt.Sprintf("s3 client init failed: %v", p.ReportsErr)
	}
	if p.Reports == nil {
		return false, "s3 client not available"
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := p.Reports.HeadBucket(ctx); err != nil {
		return false, fmt.Sprintf("head bucket failed: %v", err)
	}
	return true, fmt.Sprintf("bucket %s reachable at %s", cfg.Report.Bucket, config.ReportEndpoint(cfg))
}

func checkDiscord(cfg config.DiscordConfig) (bool, string) {
	if cfg.WebhookURL == "" {
		return true, "notifications disabled"
	}
	if _, err := notifier.NewDiscordNotifier(cfg); err != nil {
		return false, err.Error()
	}
	events := "all events"
	if len(cfg.Events) > 0 {
		events = strings.Join(cfg.Events, ",")
	}
	return true, "webhook configured (" + events + ")"
}

func checkTextfileDir(path string) (bool, string) {
	if path == "" {
		return true, "metrics textfile not configured"
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".snapkeeper-doctor-*")
	if err != nil {
		return false, fmt.Sprintf("create temp file failed in %s: %v", dir, err)
	}
	defer os.Remove(f.Name())
	if err := f.Close(); err != nil {
		return false, fmt.Sprintf("close temp file failed: %v", err)
	}
	return true, fmt.Sprintf("textfile dir writable (%s)", dir)
}
