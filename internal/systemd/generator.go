package systemd

import (
	"fmt"
	"strings"

	"SnapKeeper/internal/schedule"
)

const (
	DefaultUnitDir = "/etc/systemd/system"
	DefaultBinary  = "/usr/local/bin/snapkeeper"
	DefaultEnvFile = "/etc/snapkeeper/env"
)

type GeneratorOptions struct {
	Binary string
	// EnvFile holds the SCW_* credentials and SNAPKEEPER_* settings.
	EnvFile   string
	Hardening bool
}

type GeneratedUnits struct {
	Name    string
	Service string
	Timer   string
}

// Generate builds a oneshot service running "<domain> backup <args>" and the
// timer that triggers it.
func Generate(domain string, args []string, sched schedule.Spec, opts GeneratorOptions) (*GeneratedUnits, error) {
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.EnvFile == "" {
		opts.EnvFile = DefaultEnvFile
	}

	name := "snapkeeper-" + sanitizeUnitName(domain)
	execStart := strings.Join(append([]string{opts.Binary, domain, "backup"}, args...), " ")

	return &GeneratedUnits{
		Name:    name,
		Service: buildService(domain, execStart, opts),
		Timer:   buildTimer(name, domain, sched),
	}, nil
}

func buildService(domain, execStart string, opts GeneratorOptions) string {
	var b strings.Builder

	b.WriteString("[Unit]\n")
	b.WriteString(fmt.Sprintf("Description=Snapkeeper %s backup\n", domain))
	b.WriteString("After=network-online.target\n")
	b.WriteString("Wants=network-online.target\n\n")

	b.WriteString("[Service]\n")
	b.WriteString("Type=oneshot\n")
	b.WriteString(fmt.Sprintf("ExecStart=%s\n", execStart))
	b.WriteString("EnvironmentFile=" + opts.EnvFile + "\n")

	if opts.Hardening {
		b.WriteString("DynamicUser=yes\n")
		b.WriteString("ProtectSystem=strict\n")
		b.WriteString("ProtectHome=yes\n")
		b.WriteString("PrivateTmp=yes\n")
		b.WriteString("NoNewPrivileges=yes\n")
		b.WriteString("ProtectKernelTunables=yes\n")
		b.WriteString("ProtectKernelModules=yes\n")
		b.WriteString("ProtectControlGroups=yes\n")
		b.WriteString("RestrictRealtime=yes\n")
		b.WriteString("RestrictSUIDSGID=yes\n")
		b.WriteString("LockPersonality=yes\n")
		b.WriteString("ProtectClock=yes\n")
		b.WriteString("ProtectHostname=yes\n")
		b.WriteString("ProtectKernelLogs=yes\n")
		b.WriteString("RestrictNamespaces=yes\n")
		b.WriteString("RestrictAddressFamilies=AF_UNIX AF_INET AF_INET6\n")
	}

	b.WriteString("\n[Install]\n")
	b.WriteString("WantedBy=multi-user.target\n")
	return b.String()
}

func buildTimer(name, domain string, sched schedule.Spec) string {
	var b strings.Builder

	b.WriteString("[Unit]\n")
	b.WriteString(fmt.Sprintf("Description=Snapkeeper %s backup (%s)\n", domain, schedule.Describe(sched)))
	b.WriteString("Requires=" + name + ".service\n\n")

	b.WriteString("[Timer]\n")
	for _, c := range schedule.OnCalendar(sched) {
		b.WriteString("OnCalendar=" + c + "\n")
	}
	if sched.JitterMinutes > 0 {
		b.WriteString(fmt.Sprintf("RandomizedDelaySec=%d\n", sched.JitterMinutes*60))
	}
	b.WriteString("Persistent=yes\n\n")

	b.WriteString("[Install]\n")
	b.WriteString("WantedBy=timers.target\n")
	return b.String()
}

func sanitizeUnitName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else if r == ' ' || r == '.' {
			b.WriteRune('-')
		}
	}
	s := b.String()
	if s == "" {
		return "default"
	}
	return s
}
