package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestProm_Counters(t *testing.T) {
	p := NewProm()
	p.IncCreated("volumes", "block", "ok")
	p.IncCreated("volumes", "block", "ok")
	p.IncCreated("volumes", "legacy", "failed")
	p.IncDeleted("databases", "ok")
	p.IncResourceErrors("databases")

	if got := testutil.ToFloat64(p.created.WithLabelValues("volumes", "block", "ok")); got != 2 {
		t.Errorf("created{block,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.created.WithLabelValues("volumes", "legacy", "failed")); got != 1 {
		t.Errorf("created{legacy,failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.deleted.WithLabelValues("databases", "ok")); got != 1 {
		t.Errorf("deleted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.resourceErrors.WithLabelValues("databases")); got != 1 {
		t.Errorf("resource errors = %v, want 1", got)
	}
}

func TestProm_RegistriesAreIndependent(t *testing.T) {
	a, b := NewProm(), NewProm()
	a.IncDeleted("volumes", "ok")
	if got := testutil.ToFloat64(b.deleted.WithLabelValues("volumes", "ok")); got != 0 {
		t.Errorf("second registry saw %v deletions", got)
	}
}

func TestProm_WriteTextfile(t *testing.T) {
	p := NewProm()
	p.IncCreated("databases", "managed-db", "ok")
	p.ObserveReadinessWait("databases", "ready", 12*time.Second)
	p.SetLastRun("databases", time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "snapkeeper.prom")
	if err := p.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`snapkeeper_artifacts_created_total{domain="databases",origin="managed-db",outcome="ok"} 1`,
		`snapkeeper_readiness_wait_seconds_count{domain="databases",outcome="ready"} 1`,
		`snapkeeper_last_run_timestamp_seconds{domain="databases"} 1.7e+09`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q\n%s", want, text)
		}
	}
}

func TestNoop_SatisfiesMetrics(t *testing.T) {
	var m Metrics = Noop{}
	m.IncCreated("volumes", "block", "ok")
	m.SetLastRun("volumes", time.Now())
}
