// FluxProbe - schema-driven network protocol fuzzer
// Generates valid frames from a protocol description, corrupts a share of
// them and sends them to a TCP or UDP target.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:   "fluxprobe",
		Short: "FluxProbe - schema-driven network protocol fuzzer",
		Long: `FluxProbe builds protocol frames from a declarative schema, mutates
a configurable share of them and sends them to a TCP or UDP target.

Select a built-in profile with --protocol or a schema file with --schema.
Run "fluxprobe profiles" to list the built-in profiles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuzz(cmd, opts)
		},
	}
	opts.bind(rootCmd)

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "FluxProbe version %s\n", version)
			},
		},
		newProfilesCmd(),
		newMutatorsCmd(),
		newValidateCmd(),
		newGenerateCmd(),
	)
	return rootCmd
}
