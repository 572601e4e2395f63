package inconsistency

import "github.com/tmcheck/tmcheck/dataset"

func reportableVals(vals []dataset.Value) []string {
	ret := make([]string, len(vals))
	for i := range vals {
		ret[i] = vals[i].String()
	}
	return ret
}
