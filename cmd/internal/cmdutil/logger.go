package cmdutil

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type loggerConfig struct {
	level  string
	format string
}

var loggerConfigInst = loggerConfig{
	level:  zerolog.InfoLevel.String(),
	format: "console",
}

func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.level,
		"level",
		loggerConfigInst.level,
		"what level to log at - maps to zerolog.Level",
	)
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.format,
		"log-format",
		loggerConfigInst.format,
		"log output format (console or json)",
	)
}

// Logger builds the command logger. Logs go to stderr so that reports
// written to stdout stay clean.
func Logger() (zerolog.Logger, error) {
	return newLogger(os.Stderr, loggerConfigInst)
}

func newLogger(w io.Writer, cfg loggerConfig) (zerolog.Logger, error) {
	var logger zerolog.Logger
	switch cfg.format {
	case "console":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w})
	case "json":
		logger = zerolog.New(w)
	default:
		return zerolog.Nop(), errors.Newf("unknown log format %q", cfg.format)
	}
	logger = logger.With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(cfg.level)
	if err != nil {
		return logger, err
	}
	return logger.Level(lvl), nil
}
