package engine

import (
	"testing"
	"time"
)

func TestArtifactName(t *testing.T) {
	at := time.Date(2025, 3, 1, 2, 4, 5, 0, time.FixedZone("CET", 3600))
	if got := ArtifactName("db1", "app", at); got != "auto-db1-app-20250301-010405" {
		t.Errorf("ArtifactName = %q", got)
	}
}

func TestParseName(t *testing.T) {
	at := time.Date(2025, 3, 1, 1, 4, 5, 0, time.UTC)
	tests := []struct {
		name     string
		resource string
		input    string
		wantKey  string
		wantOK   bool
	}{
		{"generated", "web", ArtifactName("web", "root", at), "root", true},
		{"key with dashes", "web", "auto-web-data-disk-20250301-010405", "data-disk", true},
		{"other resource", "web", "auto-api-root-20250301-010405", "", false},
		{"manual", "web", "before-upgrade", "", false},
		{"no key", "web", "auto-web--20250301-010405", "", false},
		{"bad timestamp", "web", "auto-web-root-20251301-010405", "", false},
		{"missing timestamp", "web", "auto-web-root", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ts, ok := ParseName(tt.resource, tt.input)
			if ok != tt.wantOK || key != tt.wantKey {
				t.Fatalf("ParseName(%q) = %q, %v; want %q, %v", tt.input, key, ok, tt.wantKey, tt.wantOK)
			}
			if ok && !ts.Equal(at) {
				t.Errorf("timestamp = %v, want %v", ts, at)
			}
		})
	}
}

func TestOwns_LongerResourceName(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	// web-prod's root volume shares the listing prefix of web.
	a := Artifact{Name: ArtifactName("web-prod", "root", at), LogicalKey: "root"}
	if Owns("web", a) {
		t.Error("web must not own web-prod's artifact")
	}
	if !Owns("web-prod", a) {
		t.Error("web-prod should own its artifact")
	}
}
