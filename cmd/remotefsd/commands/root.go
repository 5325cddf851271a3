// Package commands implements the remotefsd CLI: start, stop, status.
package commands

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "remotefsd",
	Short:         "remotefsd serves the remote filesystem's HTTP API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command; called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/remotefs/config.yaml)")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// ConfigFile returns the --config flag's value.
func ConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the remotefsd version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println(Version)
		return nil
	},
}
