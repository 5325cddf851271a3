// Package commands implements the remotefs-mount CLI: mount, unmount,
// status.
package commands

import (
	"github.com/spf13/cobra"
)

var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "remotefs-mount",
	Short:         "remotefs-mount mounts a remote filesystem server over FUSE",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command; called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/remotefs/client.yaml)")
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(unmountCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// ConfigFile returns the --config flag's value.
func ConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the remotefs-mount version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println(Version)
		return nil
	},
}
