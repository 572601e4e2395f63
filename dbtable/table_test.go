package dbtable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameCompare(t *testing.T) {
	for _, tc := range []struct {
		a, b     Name
		expected int
	}{
		{a: Name{Schema: "b", Table: "b"}, b: Name{Schema: "b", Table: "b"}, expected: 0},
		{a: Name{Schema: "b", Table: "b"}, b: Name{Schema: "a", Table: "b"}, expected: 1},
		{a: Name{Schema: "c", Table: "b"}, b: Name{Schema: "e", Table: "b"}, expected: -1},
		{a: Name{Schema: "b", Table: "b"}, b: Name{Schema: "B", Table: "c"}, expected: -1},
		{a: Name{Database: "x", Table: "d"}, b: Name{Database: "w", Table: "c"}, expected: 1},
	} {
		t.Run(fmt.Sprintf("%s_%s", tc.a, tc.b), func(t *testing.T) {
			require.Equal(t, tc.expected, tc.a.Compare(tc.b))
			require.Equal(t, -tc.expected, tc.b.Compare(tc.a))
		})
	}
}

func TestParseName(t *testing.T) {
	for _, tc := range []struct {
		in            string
		expected      Name
		expectedError string
	}{
		{in: "orders", expected: Name{Table: "orders"}},
		{in: "public.orders", expected: Name{Schema: "public", Table: "orders"}},
		{in: "SALES.PUBLIC.ORDERS", expected: Name{Database: "SALES", Schema: "PUBLIC", Table: "ORDERS"}},
		{in: "a..b", expectedError: `invalid table name "a..b"`},
		{in: "a.b.c.d", expectedError: `invalid table name "a.b.c.d": expected at most 3 parts`},
	} {
		t.Run(tc.in, func(t *testing.T) {
			n, err := ParseName(tc.in)
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, n)
			require.Equal(t, tc.in, n.SafeString())
		})
	}
}

func TestSourceInfoLabel(t *testing.T) {
	require.Equal(
		t,
		"SNOWFLAKE: SALES.PUBLIC.ORDERS",
		SourceInfo{Type: "snowflake", Table: Name{Database: "SALES", Schema: "PUBLIC", Table: "ORDERS"}}.Label(),
	)
	require.Equal(t, "public.orders", SourceInfo{Table: Name{Schema: "public", Table: "orders"}}.Label())
	require.Equal(t, "(unnamed)", SourceInfo{}.Label())
}
