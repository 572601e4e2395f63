package joinkey

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
)

func TestResolve(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		candidates    []string
		expected      reconcilebase.JoinKey
		expectedError string
	}{
		{
			desc:       "single key",
			candidates: []string{"id"},
			expected:   reconcilebase.JoinKey{"id"},
		},
		{
			desc:       "blanks are skipped and order kept",
			candidates: []string{"", "Region", "  ", "ID"},
			expected:   reconcilebase.JoinKey{"region", "id"},
		},
		{
			desc:       "later duplicates dropped",
			candidates: []string{"id", "region", "ID", "region"},
			expected:   reconcilebase.JoinKey{"id", "region"},
		},
		{
			desc:       "surrounding whitespace trimmed",
			candidates: []string{" order_id "},
			expected:   reconcilebase.JoinKey{"order_id"},
		},
		{
			desc:          "nothing usable",
			candidates:    []string{"", " \t"},
			expectedError: "at least one join key column is required",
		},
		{
			desc:          "no candidates",
			expectedError: "at least one join key column is required",
		},
		{
			desc:          "too many candidates",
			candidates:    []string{"a", "b", "c", "d", "e"},
			expectedError: "at most 4 join key columns are supported, got 5",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			k, err := Resolve(tc.candidates)
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
				require.True(t, errors.Is(err, reconcilebase.ErrConfiguration))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, k)
		})
	}
}
