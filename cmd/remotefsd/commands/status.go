package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/pkg/config"
	"github.com/marmos91/remotefs/pkg/lifecycle"
)

var statusPidFile string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remotefsd's status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "path to PID file (default: $XDG_STATE_HOME/remotefs/remotefsd.pid)")
}

type healthResponse struct {
	Status string `json:"status"`
}

// healthURL turns the server's configured listen address into a local
// health-check URL. A bare ":8080"-style address has no host part, so the
// probe targets localhost.
func healthURL(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://" + listenAddr + "/health"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/health"
}

func runStatus(cmd *cobra.Command, args []string) error {
	pidPath, err := resolvePidFile(statusPidFile)
	if err != nil {
		return err
	}

	pid, running, err := lifecycle.ReadPID(pidPath)
	if err != nil {
		fmt.Println("remotefsd is not running (no PID file)")
		return nil
	}
	if !running {
		fmt.Printf("remotefsd is not running (stale PID file for PID %d)\n", pid)
		return nil
	}

	fmt.Printf("remotefsd is running (PID %d)\n", pid)

	cfg, err := config.Load(ConfigFile())
	if err != nil {
		fmt.Println("cannot load config for health check:", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(healthURL(cfg.Server.ListenAddr))
	if err != nil {
		fmt.Println("health check failed:", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fmt.Println("health endpoint returned an unreadable response")
		return nil
	}
	fmt.Println("health:", health.Status)
	return nil
}
