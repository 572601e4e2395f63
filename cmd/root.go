package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tmcheck/tmcheck/cmd/compare"
)

var rootCmd = &cobra.Command{
	Use:   "tmcheck",
	Short: "Table migration reconciliation",
	Long: `tmcheck compares a table copied between two systems, such as a warehouse extract
and its migrated copy, and reports which rows and values differ.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(compare.Command())
}
