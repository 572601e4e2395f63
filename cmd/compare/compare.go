package compare

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tmcheck/tmcheck/cmd/internal/cmdutil"
	"github.com/tmcheck/tmcheck/extract"
	"github.com/tmcheck/tmcheck/reconcile"
	"github.com/tmcheck/tmcheck/reconcile/cellcmp"
	"github.com/tmcheck/tmcheck/reconcile/inconsistency"
	"github.com/tmcheck/tmcheck/reconcile/report"
)

type outputConfig struct {
	format           string
	output           string
	notificationFile string
}

func Command() *cobra.Command {
	var (
		sourceCfg cmdutil.SourceConfig
		targetCfg cmdutil.SourceConfig
		outCfg    = outputConfig{format: "text"}
		cfg       = reconcile.Config{
			MaxDiffsPerRow: cellcmp.DefaultMaxDiffsPerRow,
			SampleSize:     report.DefaultSampleSize,
		}
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a table across two systems.",
		Long: `Compare reads a table from a source and a target, joins their rows on a primary key
and reports rows only present on one side, mismatching cell values and column match rates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmdutil.LoadConfig(cmd); err != nil {
				return err
			}
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			ctx := context.Background()
			stopMetrics := cmdutil.RunMetricsServer(logger)
			defer func() { _ = stopMetrics(ctx) }()

			reporter := inconsistency.CombinedReporter{}
			reporter.Reporters = append(reporter.Reporters, &inconsistency.LogReporter{Logger: logger})
			defer reporter.Close()

			left, closeLeft, err := cmdutil.OpenSource(ctx, logger, "source", sourceCfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeLeft(ctx) }()
			right, closeRight, err := cmdutil.OpenSource(ctx, logger, "target", targetCfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeRight(ctx) }()

			reporter.Report(inconsistency.StatusReport{Info: "fetching datasets"})
			leftDS, rightDS, err := extract.FetchPair(ctx, logger, left, right)
			if err != nil {
				cmdutil.RecordComparison(0, err)
				return err
			}

			cfg.Left = left.Info()
			cfg.Right = right.Info()
			res, err := reconcile.Reconcile(
				leftDS,
				rightDS,
				cfg,
				reconcile.WithLogger(logger),
				reconcile.WithReporter(reporter),
			)
			cmdutil.RecordComparison(res.Report.Summary.MatchPercentage, err)
			if err != nil {
				return errors.Wrapf(err, "error reconciling")
			}
			if err := writeResult(res, outCfg); err != nil {
				return err
			}
			reporter.Report(inconsistency.StatusReport{Info: "reconciliation complete"})
			logResult(logger, res)
			return nil
		},
	}

	cmdutil.RegisterSourceFlags(cmd, "source", &sourceCfg)
	cmdutil.RegisterSourceFlags(cmd, "target", &targetCfg)
	cmd.PersistentFlags().StringSliceVar(
		&cfg.JoinKey,
		"primary-key",
		nil,
		"columns joining source and target rows (1 to 4, comma separated)",
	)
	cmd.PersistentFlags().Float64Var(
		&cfg.Epsilon,
		"epsilon",
		0,
		"largest absolute difference at which two numbers are still equal",
	)
	cmd.PersistentFlags().IntVar(
		&cfg.MaxDiffsPerRow,
		"max-diffs-per-row",
		cfg.MaxDiffsPerRow,
		"maximum number of differing cells kept per mismatched row",
	)
	cmd.PersistentFlags().IntVar(
		&cfg.SampleSize,
		"sample-size",
		cfg.SampleSize,
		"maximum number of rows shown in each report sample",
	)
	cmd.PersistentFlags().StringVar(
		&outCfg.format,
		"format",
		outCfg.format,
		"report format (text or json)",
	)
	cmd.PersistentFlags().StringVar(
		&outCfg.output,
		"output",
		"",
		"file to write the report to (defaults to stdout)",
	)
	cmd.PersistentFlags().StringVar(
		&outCfg.notificationFile,
		"notification-file",
		"",
		"if set, file to write the notification payload to as JSON",
	)
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	cmdutil.RegisterRetryFlags(cmd)
	cmdutil.RegisterConfigFlags(cmd)
	return cmd
}

func writeResult(res reconcile.Result, cfg outputConfig) (retErr error) {
	var w io.Writer = os.Stdout
	if cfg.output != "" {
		f, err := os.Create(cfg.output)
		if err != nil {
			return errors.Wrapf(err, "error creating %s", cfg.output)
		}
		defer func() {
			retErr = errors.CombineErrors(retErr, errors.Wrapf(f.Close(), "error closing %s", cfg.output))
		}()
		w = f
	}
	if err := WriteReport(w, res, cfg.format); err != nil {
		return err
	}
	if cfg.notificationFile != "" {
		if err := writeJSONFile(cfg.notificationFile, res.Notification()); err != nil {
			return err
		}
	}
	return nil
}

// WriteReport renders res in the given format.
func WriteReport(w io.Writer, res reconcile.Result, format string) error {
	switch format {
	case "text":
		return res.Report.WriteText(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return errors.Newf("unknown format %q: expected text or json", format)
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, append(b, '\n'), 0o644), "error writing %s", path)
}

func logResult(logger zerolog.Logger, res reconcile.Result) {
	s := res.Report.Summary
	logger.Info().
		Str("run_id", res.RunID.String()).
		Int("matched", s.MatchedRows).
		Int("mismatched", s.MismatchedRows).
		Int("only_left", s.OnlyLeftRows).
		Int("only_right", s.OnlyRightRows).
		Float64("match_percentage", s.MatchPercentage).
		Msgf("comparison finished")
}
