package config

import (
	"path"
	"strings"
)

// NormalizePrefix turns a user-supplied report bucket prefix into the form
// the report keys are joined onto: slash separated, no leading or trailing
// slash, no empty or "." segments. A prefix that cleans to nothing is "".
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.ReplaceAll(prefix, "\\", "/"))
	return strings.Trim(path.Clean("/"+prefix), "/")
}
