// Package reconcilebase contains types shared by the reconciliation stages.
package reconcilebase

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tmcheck/tmcheck/dataset"
)

// ErrConfiguration marks errors caused by an unusable comparison
// configuration, e.g. no join key or nothing left to compare. They are
// deterministic: rerunning with the same inputs fails the same way.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationErrorf returns a new error marked with ErrConfiguration.
func ConfigurationErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

// Side identifies one of the two reconciled datasets.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// JoinKey is the ordered list of normalized column names which identify a
// logical row on both sides. It is never empty and holds no duplicates.
type JoinKey []string

func (k JoinKey) String() string {
	return strings.Join(k, ", ")
}

// KeyColumn is a join key column resolved against both datasets.
type KeyColumn struct {
	Name    string
	Display string
	Idx     [2]int
}

// ComparableColumn is a non-key column present on both sides.
type ComparableColumn struct {
	Name    string
	Display [2]string
	Idx     [2]int
}

// CellDiff is a single differing cell of a mismatched row.
type CellDiff struct {
	Column string        `json:"column"`
	Left   dataset.Value `json:"left"`
	Right  dataset.Value `json:"right"`
}
