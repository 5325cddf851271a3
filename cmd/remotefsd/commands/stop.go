package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/pkg/lifecycle"
)

var (
	stopPidFile string
	stopForce   bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running remotefsd",
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "path to PID file (default: $XDG_STATE_HOME/remotefs/remotefsd.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "send SIGKILL instead of SIGTERM")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath, err := resolvePidFile(stopPidFile)
	if err != nil {
		return err
	}

	if err := lifecycle.Stop(pidPath, stopForce); err != nil {
		return err
	}

	if stopForce {
		fmt.Println("remotefsd terminated")
	} else {
		fmt.Println("shutdown signal sent; remotefsd will stop gracefully")
	}
	return nil
}

func resolvePidFile(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	stateDir, err := lifecycle.DefaultStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "remotefsd.pid"), nil
}
