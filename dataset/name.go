package dataset

import "strings"

// NormalizeName returns the form of a column name used for matching.
// Warehouses disagree on identifier case (Snowflake reports upper case, most
// others lower case), so matching is always done on the lower-cased name.
func NormalizeName(n string) string {
	return strings.ToLower(strings.TrimSpace(n))
}
