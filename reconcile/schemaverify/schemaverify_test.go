package schemaverify

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/reconcile/inconsistency"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
)

func TestAlign(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		left, right   []string
		key           reconcilebase.JoinKey
		expected      Alignment
		expectedError string
	}{
		{
			desc:  "identical schemas",
			left:  []string{"id", "val"},
			right: []string{"id", "val"},
			key:   reconcilebase.JoinKey{"id"},
			expected: Alignment{
				KeyColumns: []reconcilebase.KeyColumn{{Name: "id", Display: "id", Idx: [2]int{0, 0}}},
				Columns: []reconcilebase.ComparableColumn{
					{Name: "val", Display: [2]string{"val", "val"}, Idx: [2]int{1, 1}},
				},
			},
		},
		{
			desc:  "case differences keep display casing",
			left:  []string{"ID", "Amount", "note"},
			right: []string{"NOTE", "amount", "id"},
			key:   reconcilebase.JoinKey{"id"},
			expected: Alignment{
				KeyColumns: []reconcilebase.KeyColumn{{Name: "id", Display: "ID", Idx: [2]int{0, 2}}},
				Columns: []reconcilebase.ComparableColumn{
					{Name: "amount", Display: [2]string{"Amount", "amount"}, Idx: [2]int{1, 1}},
					{Name: "note", Display: [2]string{"note", "NOTE"}, Idx: [2]int{2, 0}},
				},
			},
		},
		{
			desc:  "asymmetric columns are recorded",
			left:  []string{"id", "a", "only_l"},
			right: []string{"only_r1", "id", "a", "only_r2"},
			key:   reconcilebase.JoinKey{"id"},
			expected: Alignment{
				KeyColumns: []reconcilebase.KeyColumn{{Name: "id", Display: "id", Idx: [2]int{0, 1}}},
				Columns: []reconcilebase.ComparableColumn{
					{Name: "a", Display: [2]string{"a", "a"}, Idx: [2]int{1, 2}},
				},
				OnlyInLeft:  []string{"only_l"},
				OnlyInRight: []string{"only_r1", "only_r2"},
				Warnings: []inconsistency.SchemaMismatchWarning{
					{Side: reconcilebase.Left, Column: "only_l"},
					{Side: reconcilebase.Right, Column: "only_r1"},
					{Side: reconcilebase.Right, Column: "only_r2"},
				},
			},
		},
		{
			desc:  "composite key",
			left:  []string{"region", "id", "v"},
			right: []string{"id", "region", "v"},
			key:   reconcilebase.JoinKey{"id", "region"},
			expected: Alignment{
				KeyColumns: []reconcilebase.KeyColumn{
					{Name: "id", Display: "id", Idx: [2]int{1, 0}},
					{Name: "region", Display: "region", Idx: [2]int{0, 1}},
				},
				Columns: []reconcilebase.ComparableColumn{
					{Name: "v", Display: [2]string{"v", "v"}, Idx: [2]int{2, 2}},
				},
			},
		},
		{
			desc:          "key missing on right",
			left:          []string{"id", "v"},
			right:         []string{"pk", "v"},
			key:           reconcilebase.JoinKey{"id"},
			expectedError: "join key column id not found in right dataset",
		},
		{
			desc:          "key missing everywhere",
			left:          []string{"a", "v"},
			right:         []string{"b", "v"},
			key:           reconcilebase.JoinKey{"id"},
			expectedError: "join key column id not found in either dataset",
		},
		{
			desc:          "nothing to compare",
			left:          []string{"id", "a"},
			right:         []string{"id", "b"},
			key:           reconcilebase.JoinKey{"id"},
			expectedError: "no comparable columns outside the join key",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			a, err := Align(
				dataset.MustNew(tc.left, nil),
				dataset.MustNew(tc.right, nil),
				tc.key,
			)
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
				require.True(t, errors.Is(err, reconcilebase.ErrConfiguration))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, a)
		})
	}
}
