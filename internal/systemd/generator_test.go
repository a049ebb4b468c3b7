package systemd

import (
	"strings"
	"testing"

	"SnapKeeper/internal/schedule"
)

func TestGenerate_ServiceAndTimer(t *testing.T) {
	sched := schedule.Spec{Period: schedule.Daily, Times: 2, Hour: 2, JitterMinutes: 5}
	opts := GeneratorOptions{
		Binary:    "/usr/local/bin/snapkeeper",
		EnvFile:   "/etc/snapkeeper/env",
		Hardening: true,
	}

	units, err := Generate("volumes", []string{"--server", "tools-prod", "--retention", "5"}, sched, opts)
	if err != nil {
		t.Fatal(err)
	}
	if units.Name != "snapkeeper-volumes" {
		t.Errorf("name = %q", units.Name)
	}

	for _, want := range []string{
		"[Unit]",
		"[Service]",
		"Type=oneshot",
		"ExecStart=/usr/local/bin/snapkeeper volumes backup --server tools-prod --retention 5",
		"EnvironmentFile=/etc/snapkeeper/env",
		"ProtectSystem=strict",
	} {
		if !strings.Contains(units.Service, want) {
			t.Errorf("service missing %q:\n%s", want, units.Service)
		}
	}

	for _, want := range []string{
		"[Timer]",
		"Description=Snapkeeper volumes backup (daily 2x)",
		"Requires=snapkeeper-volumes.service",
		"OnCalendar=*-*-* 02:00:00 UTC",
		"OnCalendar=*-*-* 14:00:00 UTC",
		"RandomizedDelaySec=300",
		"Persistent=yes",
	} {
		if !strings.Contains(units.Timer, want) {
			t.Errorf("timer missing %q:\n%s", want, units.Timer)
		}
	}
}

func TestGenerate_Defaults(t *testing.T) {
	units, err := Generate("databases", nil, schedule.Spec{}, GeneratorOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(units.Service, "ExecStart="+DefaultBinary+" databases backup\n") {
		t.Errorf("service ExecStart wrong:\n%s", units.Service)
	}
	if strings.Contains(units.Service, "ProtectSystem") {
		t.Error("hardening should be off by default")
	}
	if strings.Contains(units.Timer, "RandomizedDelaySec") {
		t.Error("no jitter expected")
	}
}

func TestGenerate_Errors(t *testing.T) {
	if _, err := Generate("", nil, schedule.Spec{}, GeneratorOptions{}); err == nil {
		t.Error("expected error for empty domain")
	}
	if _, err := Generate("volumes", nil, schedule.Spec{Period: "hourly"}, GeneratorOptions{}); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestSanitizeUnitName(t *testing.T) {
	if got := sanitizeUnitName("volumes"); got != "volumes" {
		t.Errorf("sanitize volumes = %q", got)
	}
	if got := sanitizeUnitName("my job"); got != "my-job" {
		t.Errorf("sanitize 'my job' = %q", got)
	}
	if got := sanitizeUnitName("a/b"); got != "ab" {
		t.Errorf("sanitize a/b = %q", got)
	}
	if got := sanitizeUnitName(""); got != "default" {
		t.Errorf("sanitize empty = %q", got)
	}
}
