// Package dbconn connects to the source databases extracts are pulled from.
package dbconn

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/tmcheck/tmcheck/retry"
)

type ID string

type Conn interface {
	ID() ID
	// Close closes the connection.
	Close(ctx context.Context) error
	ConnStr() string
	Dialect() string
	IsCockroach() bool
}

// IsDatabaseURL reports whether connStr names a database Connect understands,
// as opposed to e.g. a snapshot file.
func IsDatabaseURL(connStr string) bool {
	scheme := strings.SplitN(connStr, "://", 2)[0]
	return strings.Contains(scheme, "postgres") ||
		strings.Contains(scheme, "mysql") ||
		scheme == "sqlserver"
}

// Connect opens a connection, dispatching on the scheme of connStr.
func Connect(ctx context.Context, preferredID ID, connStr string) (Conn, error) {
	id := preferredID
	if len(connStr) == 0 {
		return nil, retry.Permanent(errors.Newf("empty connection string"))
	}

	before := strings.SplitN(connStr, "://", 2)

	switch {
	case strings.Contains(before[0], "postgres"):
		cfg, err := parsePGConfig(connStr)
		if err != nil {
			return nil, err
		}
		if id == "" {
			id = ID(cfg.Host)
		}
		return ConnectPGConfig(ctx, id, cfg)
	case strings.Contains(before[0], "mysql"):
		return ConnectMySQL(ctx, id, connStr)
	case before[0] == "sqlserver":
		return ConnectSQLServer(ctx, id, connStr)
	}
	return nil, retry.Permanent(errors.Newf("unrecognised scheme %s from %s", before[0], redact(connStr)))
}

// ConnectWithRetry is Connect, retrying failed attempts with backoff.
// Malformed connection strings are not retried.
func ConnectWithRetry(
	ctx context.Context, logger zerolog.Logger, id ID, connStr string, settings retry.Settings,
) (Conn, error) {
	var conn Conn
	err := retry.Do(ctx, settings, func(ctx context.Context) error {
		var err error
		conn, err = Connect(ctx, id, connStr)
		return err
	}, func(r *retry.Retry, err error) {
		logger.Warn().
			Err(err).
			Str("conn", string(id)).
			Int("attempt", r.Iteration).
			Time("next_attempt", r.NextRetry).
			Msgf("failed to connect, retrying")
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %s", id)
	}
	return conn, nil
}

// redact strips credentials from a connection string for use in errors.
func redact(connStr string) string {
	parts := strings.SplitN(connStr, "://", 2)
	if len(parts) < 2 {
		return connStr
	}
	if at := strings.LastIndex(parts[1], "@"); at >= 0 {
		return parts[0] + "://" + parts[1][at+1:]
	}
	return connStr
}
