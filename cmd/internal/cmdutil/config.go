package cmdutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that set flags, e.g.
// TMCHECK_SOURCE_TABLE sets --source-table.
const EnvPrefix = "TMCHECK"

type configConfig struct {
	configFile string
	envFile    string
}

var configCfg = configConfig{
	envFile: ".env",
}

func RegisterConfigFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&configCfg.configFile,
		"config",
		configCfg.configFile,
		"YAML/JSON/TOML file holding flag values keyed by flag name",
	)
	cmd.PersistentFlags().StringVar(
		&configCfg.envFile,
		"env-file",
		configCfg.envFile,
		"dotenv file loaded into the environment if it exists",
	)
}

// LoadConfig fills every flag of cmd not set on the command line from, in
// order of precedence, TMCHECK_* environment variables (including those
// from the dotenv file) and the config file.
func LoadConfig(cmd *cobra.Command) error {
	return loadConfig(cmd.Flags(), configCfg)
}

func loadConfig(flags *pflag.FlagSet, cfg configConfig) error {
	if cfg.envFile != "" {
		if _, err := os.Stat(cfg.envFile); err == nil {
			// Variables already in the environment win over the file.
			if err := godotenv.Load(cfg.envFile); err != nil {
				return errors.Wrapf(err, "error loading %s", cfg.envFile)
			}
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if cfg.configFile != "" {
		v.SetConfigFile(cfg.configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "error reading config file %s", cfg.configFile)
		}
	}

	var retErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "config" || f.Name == "env-file" || !v.IsSet(f.Name) {
			return
		}
		if err := flags.Set(f.Name, configValue(v.Get(f.Name))); err != nil {
			retErr = errors.CombineErrors(retErr, errors.Wrapf(err, "invalid value for %s", f.Name))
		}
	})
	return retErr
}

func configValue(val any) string {
	if vals, ok := val.([]any); ok {
		parts := make([]string, len(vals))
		for i, p := range vals {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(val)
}
