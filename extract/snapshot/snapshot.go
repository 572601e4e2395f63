// Package snapshot extracts datasets from CSV or JSON lines files stored on
// local disk, S3 or Google Cloud Storage.
package snapshot

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/tmcheck/tmcheck/dataset"
	"github.com/tmcheck/tmcheck/dbtable"
	"github.com/tmcheck/tmcheck/extract"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

type compression int

const (
	compressionNone compression = iota
	compressionGzip
	compressionZstd
)

// IsSnapshotURL returns whether s names a snapshot file rather than a
// database.
func IsSnapshotURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "", "file", "s3", "gs":
		_, _, err := detect(u.Path)
		return err == nil
	}
	return false
}

func detect(p string) (Format, compression, error) {
	c := compressionNone
	switch ext := path.Ext(p); ext {
	case ".gz":
		c = compressionGzip
		p = strings.TrimSuffix(p, ext)
	case ".zst":
		c = compressionZstd
		p = strings.TrimSuffix(p, ext)
	}
	switch path.Ext(p) {
	case ".csv":
		return FormatCSV, c, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, c, nil
	}
	return "", c, errors.Newf("cannot determine snapshot format of %s: expected .csv, .jsonl or .ndjson", p)
}

// Options configures how a snapshot is decoded.
type Options struct {
	// Format overrides the format detected from the file extension.
	Format Format
	// ColumnTypes holds type hints keyed by normalized column name. Columns
	// without a hint are read as strings from CSV and by JSON type from
	// JSON lines.
	ColumnTypes map[string]dataset.ColumnType
	// Columns restricts the dataset to the named columns, in order.
	Columns []string
	// Opener opens the snapshot object. Defaults to OpenURL.
	Opener Opener
}

// Source reads a snapshot file.
type Source struct {
	url    *url.URL
	format Format
	comp   compression
	opts   Options
	info   dbtable.SourceInfo
	logger zerolog.Logger
}

var _ extract.Source = (*Source)(nil)

func New(rawURL string, info dbtable.SourceInfo, opts Options, logger zerolog.Logger) (*Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid snapshot URL %q", rawURL)
	}
	format, comp, err := detect(u.Path)
	if opts.Format != "" {
		format, err = opts.Format, nil
	}
	if err != nil {
		return nil, err
	}
	if format != FormatCSV && format != FormatJSONL {
		return nil, errors.Newf("unknown snapshot format %q", format)
	}
	if opts.Opener == nil {
		opts.Opener = OpenURL
	}
	return &Source{url: u, format: format, comp: comp, opts: opts, info: info, logger: logger}, nil
}

func (s *Source) Info() dbtable.SourceInfo {
	return s.info
}

func (s *Source) Fetch(ctx context.Context) (dataset.Dataset, error) {
	s.logger.Debug().Str("url", s.url.Redacted()).Str("format", string(s.format)).Msgf("reading snapshot")
	rc, err := s.opts.Opener(ctx, s.url)
	if err != nil {
		return dataset.Dataset{}, errors.Wrapf(err, "error opening %s", s.url.Redacted())
	}
	defer func() { _ = rc.Close() }()

	r, err := decompress(rc, s.comp)
	if err != nil {
		return dataset.Dataset{}, errors.Wrapf(err, "error decompressing %s", s.url.Redacted())
	}
	defer func() { _ = r.Close() }()

	var ds dataset.Dataset
	switch s.format {
	case FormatCSV:
		ds, err = ReadCSV(r, s.opts.ColumnTypes)
	case FormatJSONL:
		ds, err = ReadJSONL(r, s.opts.ColumnTypes)
	}
	if err != nil {
		return dataset.Dataset{}, errors.Wrapf(err, "error reading %s", s.url.Redacted())
	}
	if len(s.opts.Columns) > 0 {
		return Project(ds, s.opts.Columns)
	}
	return ds, nil
}

func decompress(r io.Reader, c compression) (io.ReadCloser, error) {
	switch c {
	case compressionGzip:
		return gzip.NewReader(r)
	case compressionZstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	}
	return io.NopCloser(r), nil
}

// Project returns the named columns of ds in the given order.
func Project(ds dataset.Dataset, columns []string) (dataset.Dataset, error) {
	idxs := make([]int, len(columns))
	names := make([]string, len(columns))
	for i, c := range columns {
		idx, ok := ds.ColumnIndex(c)
		if !ok {
			return dataset.Dataset{}, errors.Newf("column %s not found in snapshot", c)
		}
		idxs[i] = idx
		names[i] = ds.Columns[idx].Display
	}
	rows := make([]dataset.Row, len(ds.Rows))
	for r, row := range ds.Rows {
		out := make(dataset.Row, len(idxs))
		for i, idx := range idxs {
			out[i] = row[idx]
		}
		rows[r] = out
	}
	return dataset.New(names, rows)
}
