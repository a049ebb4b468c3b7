package engine

import (
	"strings"
	"time"
)

// NamePrefix marks artifacts this tool owns. Anything without it is never
// touched.
const NamePrefix = "auto-"

const timestampLayout = "20060102-150405"

// ArtifactName returns auto-<resource>-<key>-<YYYYMMDD-HHMMSS> in UTC.
func ArtifactName(resource, key string, at time.Time) string {
	return OwnedPrefix(resource) + key + "-" + at.UTC().Format(timestampLayout)
}

// OwnedPrefix is the listing prefix for artifacts of one resource. It also
// matches resources whose name extends this one; use Owns to decide.
func OwnedPrefix(resource string) string {
	return NamePrefix + resource + "-"
}

// ParseName splits an owned name back into its logical key and timestamp.
func ParseName(resource, name string) (key string, at time.Time, ok bool) {
	rest, found := strings.CutPrefix(name, OwnedPrefix(resource))
	if !found {
		return "", time.Time{}, false
	}
	n := len(rest) - len(timestampLayout)
	if n < 2 || rest[n-1] != '-' {
		return "", time.Time{}, false
	}
	at, err := time.Parse(timestampLayout, rest[n:])
	if err != nil {
		return "", time.Time{}, false
	}
	return rest[:n-1], at, true
}

// Owns reports whether a is an artifact this tool created for resource under
// a's own logical key.
func Owns(resource string, a Artifact) bool {
	key, _, ok := ParseName(resource, a.Name)
	return ok && key == a.LogicalKey
}
