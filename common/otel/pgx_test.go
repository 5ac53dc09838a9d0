package otel

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestQueryName(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected string
	}{
		{
			name:     "sqlc query",
			sql:      "-- name: GetDaySummary :one\nSELECT day, issued, called, resets\nFROM queue_days\nWHERE day = $1\n",
			expected: "GetDaySummary",
		},
		{
			name:     "plain statement",
			sql:      "SELECT 1",
			expected: "",
		},
		{
			name:     "empty header",
			sql:      "-- name:\nSELECT 1",
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, queryName(tc.sql))
		})
	}
}
