package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Every subcommand reports through log.
func NewRootCmd(log *logrus.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mothman",
		Short: "Index a directory of Debian packages into a flat APT repository",
		Long: `Mothman scans a directory for .deb packages and writes the Packages
index and Release manifest of a flat repository, ready to be served as a
static website.

Cydia/Sileo repository templates (repo.me, Reposi3) are supported: package
depictions are generated and linked from the index.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			} else {
				log.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewBuildCmd(log))
	rootCmd.AddCommand(NewInitCmd(log))

	return rootCmd
}
