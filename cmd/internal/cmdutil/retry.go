package cmdutil

import (
	"github.com/spf13/cobra"
	"github.com/tmcheck/tmcheck/retry"
)

var connectRetrySettings = retry.DefaultSettings()

func RegisterRetryFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().IntVar(
		&connectRetrySettings.MaxRetries,
		"connect-retries-max-iterations",
		connectRetrySettings.MaxRetries,
		"maximum number of times to retry connecting to a database",
	)
	cmd.PersistentFlags().DurationVar(
		&connectRetrySettings.InitialBackoff,
		"connect-retry-initial-backoff",
		connectRetrySettings.InitialBackoff,
		"amount of time to initially back off for before retrying a connection",
	)
	cmd.PersistentFlags().DurationVar(
		&connectRetrySettings.MaxBackoff,
		"connect-retry-max-backoff",
		connectRetrySettings.MaxBackoff,
		"maximum amount of time to back off for between connection attempts",
	)
	cmd.PersistentFlags().IntVar(
		&connectRetrySettings.Multiplier,
		"connect-retry-multiplier",
		connectRetrySettings.Multiplier,
		"multiplier applied to the backoff after each failed connection attempt",
	)
}

func RetrySettings() retry.Settings {
	return connectRetrySettings
}
