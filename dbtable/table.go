package dbtable

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Name identifies a table in a source system. Database and Schema are
// optional; warehouses such as Snowflake need all three parts, MySQL only
// Database and Table.
type Name struct {
	Database string `json:"database,omitempty"`
	Schema   string `json:"schema,omitempty"`
	Table    string `json:"table"`
}

// ParseName parses a dotted `table`, `schema.table` or
// `database.schema.table` identifier.
func ParseName(s string) (Name, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	for _, p := range parts {
		if p == "" {
			return Name{}, errors.Newf("invalid table name %q", s)
		}
	}
	switch len(parts) {
	case 1:
		return Name{Table: parts[0]}, nil
	case 2:
		return Name{Schema: parts[0], Table: parts[1]}, nil
	case 3:
		return Name{Database: parts[0], Schema: parts[1], Table: parts[2]}, nil
	}
	return Name{}, errors.Newf("invalid table name %q: expected at most 3 parts", s)
}

// Parts returns the non-empty parts of the name, outermost first.
func (n Name) Parts() []string {
	ret := make([]string, 0, 3)
	for _, p := range []string{n.Database, n.Schema, n.Table} {
		if p != "" {
			ret = append(ret, p)
		}
	}
	return ret
}

func (n Name) SafeString() string {
	return strings.Join(n.Parts(), ".")
}

func (n Name) String() string {
	return n.SafeString()
}

func (n Name) Compare(o Name) int {
	for _, c := range [][2]string{
		{n.Database, o.Database},
		{n.Schema, o.Schema},
		{n.Table, o.Table},
	} {
		if r := strings.Compare(strings.ToLower(c[0]), strings.ToLower(c[1])); r != 0 {
			return r
		}
	}
	return 0
}

// SourceInfo labels one side of a reconciliation for display. Type is a free
// form source system name, e.g. "snowflake" or "sqlserver".
type SourceInfo struct {
	Type  string `json:"type"`
	Table Name   `json:"table"`
}

// Label renders the info as `TYPE: database.schema.table`.
func (s SourceInfo) Label() string {
	t := s.Table.SafeString()
	switch {
	case s.Type == "" && t == "":
		return "(unnamed)"
	case s.Type == "":
		return t
	case t == "":
		return strings.ToUpper(s.Type)
	}
	return strings.ToUpper(s.Type) + ": " + t
}
