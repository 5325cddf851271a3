package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/api"
	"github.com/marmos91/remotefs/pkg/catalog"
	"github.com/marmos91/remotefs/pkg/config"
	"github.com/marmos91/remotefs/pkg/credential"
	"github.com/marmos91/remotefs/pkg/dbstore"
	"github.com/marmos91/remotefs/pkg/lifecycle"
	"github.com/marmos91/remotefs/pkg/permission"
	"github.com/marmos91/remotefs/pkg/session"
	"github.com/marmos91/remotefs/pkg/token"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the remote filesystem server",
	Long: `Start the remote filesystem server.

By default the server daemonizes (backgrounds itself). Use --foreground to
run it attached to the current terminal, e.g. under a process supervisor.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "run in the foreground instead of daemonizing")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "path to PID file (default: $XDG_STATE_HOME/remotefs/remotefsd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "path to daemon log file (default: $XDG_STATE_HOME/remotefs/remotefsd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.Load(ConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	if pidFile != "" {
		cleanup, err := lifecycle.WritePIDFile(pidFile)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	handler, err := buildServer(cfg)
	if err != nil {
		return err
	}

	server := &http.Server{Addr: cfg.Server.ListenAddr, Handler: handler}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	logger.Info("remotefsd listening", "addr", cfg.Server.ListenAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-sigChan:
		logger.Info("shutdown signal received, draining connections")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildServer wires the server together: database, credential store, token
// service, metadata catalog, permission gate, session manager, router.
func buildServer(cfg *config.Config) (http.Handler, error) {
	db, err := dbstore.Open(cfg.Database, &credential.User{}, &catalog.Row{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	users, err := credential.New(db)
	if err != nil {
		return nil, fmt.Errorf("init credential store: %w", err)
	}

	tokens, err := token.New(cfg.Token.Secret, cfg.Token.Expiry)
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	cat, err := catalog.New(db)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	gate := permission.New(cat)

	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	sessions := session.New(cfg.Server.DataDir, cat, gate)

	if err := ensureAdmin(users, cfg.Admin); err != nil {
		return nil, fmt.Errorf("ensure admin user: %w", err)
	}

	return api.NewRouter(users, tokens, sessions), nil
}

// ensureAdmin registers the configured admin account at startup when the
// credential store has no user with that name. Other users already being
// registered does not prevent it.
func ensureAdmin(users *credential.Store, cfg config.AdminConfig) error {
	if cfg.Username == "" {
		return nil
	}
	if _, err := users.Find(cfg.Username); err == nil {
		return nil
	}

	password := cfg.Password
	if password == "" {
		password = cfg.Username
		logger.Warn("no admin.password configured; bootstrapping with a default password", "username", cfg.Username)
	}

	if _, err := users.Register(cfg.Username, password); err != nil {
		return err
	}
	logger.Info("bootstrap admin user created", "username", cfg.Username)
	return nil
}

func startDaemon() error {
	stateDir, err := lifecycle.DefaultStateDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = filepath.Join(stateDir, "remotefsd.pid")
	}
	logPath := logFile
	if logPath == "" {
		logPath = filepath.Join(stateDir, "remotefsd.log")
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if ConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", ConfigFile())
	}

	pid, err := lifecycle.Daemonize(pidPath, logPath, daemonArgs)
	if err != nil {
		return err
	}

	fmt.Printf("remotefsd started in background (PID %d)\n", pid)
	fmt.Printf("  PID file: %s\n  Log file: %s\n", pidPath, logPath)
	fmt.Println("Use 'remotefsd stop' to stop it, 'remotefsd status' to check on it.")
	return nil
}
