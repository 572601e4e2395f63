// Package joinkey resolves the composite join key from user supplied
// candidate column names.
package joinkey

import (
	"strings"

	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/reconcile/reconcilebase"
)

// MaxColumns is the maximum number of columns in a join key.
const MaxColumns = 4

// Resolve builds a join key from up to MaxColumns candidates. Blank
// candidates are skipped and later duplicates dropped, keeping input order.
func Resolve(candidates []string) (reconcilebase.JoinKey, error) {
	if len(candidates) > MaxColumns {
		return nil, reconcilebase.ConfigurationErrorf(
			"at most %d join key columns are supported, got %d",
			MaxColumns,
			len(candidates),
		)
	}
	ret := make(reconcilebase.JoinKey, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		n := dataset.NormalizeName(c)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		ret = append(ret, n)
	}
	if len(ret) == 0 {
		return nil, reconcilebase.ConfigurationErrorf("at least one join key column is required")
	}
	return ret, nil
}
