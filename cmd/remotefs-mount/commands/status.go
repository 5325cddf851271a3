package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/pkg/clientconfig"
	"github.com/marmos91/remotefs/pkg/lifecycle"
)

var statusPidFile string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remotefs-mount's status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "path to PID file (default: $XDG_STATE_HOME/remotefs/remotefs-mount.pid)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	pidPath, err := resolveMountPidFile(statusPidFile)
	if err != nil {
		return err
	}

	pid, running, err := lifecycle.ReadPID(pidPath)
	if err != nil || !running {
		fmt.Println("remotefs-mount is not running")
		return nil
	}

	fmt.Printf("remotefs-mount is running (PID %d)\n", pid)
	if cfg, err := clientconfig.Load(ConfigFile()); err == nil {
		fmt.Printf("  mounted at: %s\n  server: %s\n", cfg.MountPoint, cfg.ServerURL)
	}
	return nil
}
