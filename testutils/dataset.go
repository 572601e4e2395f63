package testutils

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tmcheck/tmcheck/dataset"
)

// ParseDataset parses a dataset literal. The first line is a comma separated
// header of `name:type` columns (type defaults to string, see
// dataset.ParseColumnType); every following line is a CSV row. The bare cell
// NULL is a null value.
//
//	id:int,val:string,ts:timestamp(s)
//	1,x,2023-01-01T00:00:00Z
//	2,NULL,2023-01-01T00:00:01Z
func ParseDataset(input string) (dataset.Dataset, error) {
	r := csv.NewReader(strings.NewReader(input))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return dataset.Dataset{}, errors.Wrap(err, "error reading header")
	}
	names := make([]string, len(header))
	types := make([]dataset.ColumnType, len(header))
	for i, h := range header {
		name, typ, ok := strings.Cut(h, ":")
		names[i] = strings.TrimSpace(name)
		types[i] = dataset.ColumnType{Kind: dataset.KindString}
		if ok {
			if types[i], err = dataset.ParseColumnType(typ); err != nil {
				return dataset.Dataset{}, errors.Wrapf(err, "column %s", names[i])
			}
		}
	}

	var rows []dataset.Row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return dataset.Dataset{}, errors.Wrapf(err, "error reading row %d", len(rows)+1)
		}
		if len(rec) != len(names) {
			return dataset.Dataset{}, errors.Newf("row %d has %d values, expected %d", len(rows)+1, len(rec), len(names))
		}
		row := make(dataset.Row, len(rec))
		for i, cell := range rec {
			if cell == "NULL" {
				row[i] = dataset.Null()
				continue
			}
			if row[i], err = types[i].ParseValue(cell); err != nil {
				return dataset.Dataset{}, errors.Wrapf(err, "row %d column %s", len(rows)+1, names[i])
			}
		}
		rows = append(rows, row)
	}
	return dataset.New(names, rows)
}
