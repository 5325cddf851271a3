package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/pkg/clientconfig"
	"github.com/marmos91/remotefs/pkg/lifecycle"
)

var (
	unmountPidFile string
	unmountForce   bool
)

var unmountCmd = &cobra.Command{
	Use:   "unmount",
	Short: "Unmount and stop a running remotefs-mount",
	RunE:  runUnmount,
}

func init() {
	unmountCmd.Flags().StringVar(&unmountPidFile, "pid-file", "", "path to PID file (default: $XDG_STATE_HOME/remotefs/remotefs-mount.pid)")
	unmountCmd.Flags().BoolVarP(&unmountForce, "force", "f", false, "send SIGKILL instead of SIGTERM")
}

func runUnmount(cmd *cobra.Command, args []string) error {
	pidPath, err := resolveMountPidFile(unmountPidFile)
	if err != nil {
		return err
	}

	if err := lifecycle.Stop(pidPath, unmountForce); err != nil {
		return err
	}

	cfg, err := clientconfig.Load(ConfigFile())
	if err == nil && cfg.MountPoint != "" {
		lifecycle.Unmount(cfg.MountPoint)
	}

	fmt.Println("remotefs-mount stopped")
	return nil
}

func resolveMountPidFile(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	stateDir, err := lifecycle.DefaultStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "remotefs-mount.pid"), nil
}
