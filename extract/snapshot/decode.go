package snapshot

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/tmcheck/tmcheck/dataset"
)

func columnType(types map[string]dataset.ColumnType, name string) (dataset.ColumnType, bool) {
	ct, ok := types[dataset.NormalizeName(name)]
	return ct, ok
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// skipBOM drops a leading UTF-8 byte order mark, as written by Excel and
// SQL Server exports.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// ReadCSV decodes a CSV snapshot with a header row. An empty cell is NULL.
func ReadCSV(r io.Reader, types map[string]dataset.ColumnType) (dataset.Dataset, error) {
	cr := csv.NewReader(skipBOM(r))
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return dataset.Dataset{}, errors.New("snapshot is empty: expected a header row")
		}
		return dataset.Dataset{}, errors.Wrap(err, "error reading header")
	}
	colTypes := make([]dataset.ColumnType, len(header))
	for i, h := range header {
		colTypes[i] = dataset.ColumnType{Kind: dataset.KindString}
		if ct, ok := columnType(types, h); ok {
			colTypes[i] = ct
		}
	}

	var rows []dataset.Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return dataset.Dataset{}, errors.Wrapf(err, "error reading row %d", len(rows)+1)
		}
		row := make(dataset.Row, len(rec))
		for i, cell := range rec {
			if cell == "" {
				row[i] = dataset.Null()
				continue
			}
			if row[i], err = colTypes[i].ParseValue(cell); err != nil {
				return dataset.Dataset{}, errors.Wrapf(err, "row %d column %s", len(rows)+1, header[i])
			}
		}
		rows = append(rows, row)
	}
	return dataset.New(header, rows)
}

const maxLineSize = 64 << 20

// ReadJSONL decodes a JSON lines snapshot. Each non-blank line is an object;
// columns appear in the order keys are first seen and keys missing from a
// line are NULL.
func ReadJSONL(r io.Reader, types map[string]dataset.ColumnType) (dataset.Dataset, error) {
	sc := bufio.NewScanner(skipBOM(r))
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	var names []string
	pos := make(map[string]int)
	var rows []dataset.Row
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		keys, raws, err := decodeObject(line)
		if err != nil {
			return dataset.Dataset{}, errors.Wrapf(err, "line %d", lineNum)
		}
		row := make(dataset.Row, len(names), len(names)+len(keys))
		for i, k := range keys {
			idx, ok := pos[k]
			if !ok {
				idx = len(names)
				pos[k] = idx
				names = append(names, k)
				row = append(row, dataset.Null())
			}
			if row[idx], err = jsonValue(raws[i], types, k); err != nil {
				return dataset.Dataset{}, errors.Wrapf(err, "line %d key %s", lineNum, k)
			}
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return dataset.Dataset{}, errors.Wrap(err, "error scanning lines")
	}
	// Rows read before a column first appeared are short.
	for i, row := range rows {
		for len(row) < len(names) {
			row = append(row, dataset.Null())
		}
		rows[i] = row
	}
	return dataset.New(names, rows)
}

func decodeObject(line []byte) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.Newf("expected a JSON object, got %v", tok)
	}
	var keys []string
	var raws []json.RawMessage
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		k, ok := tok.(string)
		if !ok {
			return nil, nil, errors.Newf("expected an object key, got %v", tok)
		}
		if _, dup := seen[k]; dup {
			return nil, nil, errors.Newf("duplicate key %q", k)
		}
		seen[k] = struct{}{}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		keys = append(keys, k)
		raws = append(raws, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if dec.More() {
		return nil, nil, errors.New("unexpected data after object")
	}
	return keys, raws, nil
}

// jsonValue converts a JSON value. A type hint applies to strings and
// numbers; unhinted integers become ints and other numbers floats. Nested
// objects and arrays are kept as compact JSON text.
func jsonValue(raw json.RawMessage, types map[string]dataset.ColumnType, key string) (dataset.Value, error) {
	ct, hinted := columnType(types, key)
	switch raw[0] {
	case 'n':
		return dataset.Null(), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return dataset.Value{}, err
		}
		if hinted && ct.Kind != dataset.KindBool {
			return dataset.Value{}, errors.Newf("expected %s, got bool", ct.Kind)
		}
		return dataset.Bool(b), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return dataset.Value{}, err
		}
		if hinted {
			return ct.ParseValue(s)
		}
		return dataset.String(s), nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return dataset.Value{}, err
		}
		return dataset.String(buf.String()), nil
	}
	num := string(raw)
	if hinted {
		return ct.ParseValue(num)
	}
	if i, err := strconv.ParseInt(num, 10, 64); err == nil {
		return dataset.Int(i), nil
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return dataset.Value{}, errors.Wrapf(err, "invalid number %s", num)
	}
	return dataset.Float(f), nil
}
