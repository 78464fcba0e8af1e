package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlogAttrs(t *testing.T) {
	testCases := []struct {
		name     string
		id       string
		params   []any
		expected []any
	}{
		{
			name:     "scoped with lone error",
			id:       "ecourts: order-retriever.download",
			params:   []any{errors.New("timeout")},
			expected: []any{"scope", "ecourts", "id", "order-retriever.download", "err", "timeout"},
		},
		{
			name:     "unscoped with params",
			id:       "pipeline.attempt",
			params:   []any{errors.New("boom"), "AB12CD3456EF7890"},
			expected: []any{"id", "pipeline.attempt", "params.0", "boom", "params.1", "AB12CD3456EF7890"},
		},
		{
			name:     "debug message",
			params:   []any{3},
			expected: []any{"params.0", 3},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, SlogAPI{}.attrs(test.id, test.params))
		})
	}
}
