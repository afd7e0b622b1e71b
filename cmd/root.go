// Package cmd wires plexdrive's command-line interface: a persistent
// config-directory flag and verbosity flag shared by the init and mount
// subcommands.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/plexdrive/plexdrive/internal/logger"
)

var (
	configDir string
	verbosity int
)

var rootCmd = &cobra.Command{
	Use:   "plexdrive",
	Short: "Mount a remote object store as a read-only FUSE filesystem",
	Long: `plexdrive mounts a remote, content-addressed object store locally as a
read-only FUSE filesystem, serving reads through a layered chunk cache
fed by a background change-feed watcher.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbosity(verbosity)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	defaultConfigDir := filepath.Join(home, ".config", "plexdrive")

	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", defaultConfigDir, "config directory")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "log verbosity (default error, -v warning, -vv info, -vvv debug, -vvvv trace)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(mountCmd)
}

// Execute runs the root command, exiting non-zero on any fatal error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
