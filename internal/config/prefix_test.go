package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only slashes", "///", ""},
		{"dot", ".", ""},
		{"plain", "snapkeeper", "snapkeeper"},
		{"reports dir with slashes", "/reports/", "reports"},
		{"nested with doubled slashes", "ops//snapkeeper///reports/", "ops/snapkeeper/reports"},
		{"windows separators", "ops\\snapkeeper", "ops/snapkeeper"},
		{"dot segments", "./ops/./reports", "ops/reports"},
		{"surrounding spaces", "  reports/  ", "reports"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePrefix(tt.input))
		})
	}
}
