package s3

import (
	"path"
	"strings"
	"time"
)

const (
	ReportsPrefix = "reports"
	// ReportExt marks a zstd-compressed JSON report.
	ReportExt = ".json.zst"

	reportTimestampLayout = "20060102-150405"
)

// ReportKey returns reports/<domain>/<YYYYMMDD-HHMMSS>-<action>.json.zst.
func ReportKey(domain, action string, at time.Time) string {
	return path.Join(ReportsPrefix, domain, at.UTC().Format(reportTimestampLayout)+"-"+action+ReportExt)
}

func ReportsPrefixForDomain(domain string) string {
	return path.Join(ReportsPrefix, domain) + "/"
}

// ParseReportKey extracts the domain, action and time from a relative report key.
func ParseReportKey(relativeKey string) (domain, action string, at time.Time, ok bool) {
	relativeKey = strings.Trim(relativeKey, "/")
	parts := strings.Split(relativeKey, "/")
	if len(parts) != 3 || parts[0] != ReportsPrefix {
		return "", "", time.Time{}, false
	}
	name, found := strings.CutSuffix(parts[2], ReportExt)
	if !found || len(name) < len(reportTimestampLayout)+2 || name[len(reportTimestampLayout)] != '-' {
		return "", "", time.Time{}, false
	}
	at, err := time.Parse(reportTimestampLayout, name[:len(reportTimestampLayout)])
	if err != nil {
		return "", "", time.Time{}, false
	}
	return parts[1], name[len(reportTimestampLayout)+1:], at, true
}
