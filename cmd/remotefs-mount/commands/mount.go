package commands

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/internal/cli/prompt"
	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/apiclient"
	"github.com/marmos91/remotefs/pkg/clientconfig"
	"github.com/marmos91/remotefs/pkg/fsmount"
	"github.com/marmos91/remotefs/pkg/lifecycle"
)

var (
	mountForeground bool
	mountPidFile    string
	mountLogFile    string
	mountServerURL  string
	mountPoint      string
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount a remote filesystem server",
	Long: `Mount a remote filesystem server over FUSE.

On first use (no stored token), mount prompts interactively to register or
log in, then caches the resulting token in the client config file so later
runs start without a prompt.`,
	RunE: runMount,
}

func init() {
	mountCmd.Flags().BoolVarP(&mountForeground, "foreground", "f", false, "run in the foreground instead of daemonizing")
	mountCmd.Flags().StringVar(&mountPidFile, "pid-file", "", "path to PID file (default: $XDG_STATE_HOME/remotefs/remotefs-mount.pid)")
	mountCmd.Flags().StringVar(&mountLogFile, "log-file", "", "path to daemon log file (default: $XDG_STATE_HOME/remotefs/remotefs-mount.log)")
	mountCmd.Flags().StringVar(&mountServerURL, "server", "", "remotefsd base URL, e.g. http://localhost:8080")
	mountCmd.Flags().StringVar(&mountPoint, "mount-point", "", "local directory to mount onto")
}

func runMount(cmd *cobra.Command, args []string) error {
	cfg, err := clientconfig.Load(ConfigFile())
	if err != nil {
		return err
	}
	if mountServerURL != "" {
		cfg.ServerURL = mountServerURL
	}
	if mountPoint != "" {
		cfg.MountPoint = mountPoint
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL, err = prompt.InputRequired("Server URL")
		if err != nil {
			return err
		}
	}
	if cfg.MountPoint == "" {
		cfg.MountPoint, err = prompt.InputRequired("Mount point")
		if err != nil {
			return err
		}
	}

	if !mountForeground {
		return daemonizeMount(cfg)
	}

	if err := logger.Init(logger.Config{Level: "INFO", Format: "text", Output: mountLogFile}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	client := apiclient.New(cfg.ServerURL)
	if cfg.Token == "" {
		if err := authenticate(client, cfg); err != nil {
			return err
		}
		if err := clientconfig.Save(cfg, ConfigFile()); err != nil {
			logger.Warn("failed to cache token", logger.Err(err))
		}
	} else {
		client.SetToken(cfg.Token)
	}

	// Clear any stale mount left behind by a previous crashed run before
	// attempting a fresh one.
	lifecycle.Unmount(cfg.MountPoint)

	uid, gid := resolveMountIdentity(cfg.Username)
	fs := fsmount.New(client, uid, gid)

	if mountPidFile != "" {
		cleanup, err := lifecycle.WritePIDFile(mountPidFile)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	mfs, err := fuse.Mount(cfg.MountPoint, fuseutil.NewFileSystemServer(fs), &fuse.MountConfig{})
	if err != nil {
		return fmt.Errorf("mount %s: %w", cfg.MountPoint, err)
	}

	done := make(chan error, 1)
	go func() { done <- mfs.Join(context.Background()) }()

	logger.Info("mounted", logger.KeyPath, cfg.MountPoint, "server", cfg.ServerURL)
	return lifecycle.WaitForShutdown(done, cfg.MountPoint)
}

// resolveMountIdentity maps the authenticated username to a local OS
// account's uid/gid, so files in the mount appear owned by that account.
// When no matching OS user exists the mount falls back to the invoking
// process's own identity.
func resolveMountIdentity(username string) (uid, gid uint32) {
	uid, gid = uint32(os.Getuid()), uint32(os.Getgid())
	if username == "" {
		return uid, gid
	}

	u, err := user.Lookup(username)
	if err != nil {
		logger.Debug("no local OS account for mount user, using process identity",
			logger.Username(username), logger.Err(err))
		return uid, gid
	}
	if parsed, err := strconv.ParseUint(u.Uid, 10, 32); err == nil {
		uid = uint32(parsed)
	}
	if parsed, err := strconv.ParseUint(u.Gid, 10, 32); err == nil {
		gid = uint32(parsed)
	}
	return uid, gid
}

// authenticate prompts for register-or-login when no cached token exists.
func authenticate(client *apiclient.Client, cfg *clientconfig.Config) error {
	username := cfg.Username
	var err error
	if username == "" {
		username, err = prompt.InputRequired("Username")
		if err != nil {
			return err
		}
	}

	action, err := prompt.Input("Log in or register? [login/register]", "login")
	if err != nil {
		return err
	}

	if action == "register" {
		password, err := prompt.PasswordWithConfirmation("Password", "Confirm password")
		if err != nil {
			return err
		}
		if err := client.Register(username, password); err != nil {
			return fmt.Errorf("register: %w", err)
		}
	}

	password, err := prompt.Password("Password")
	if err != nil {
		return err
	}

	resp, err := client.Login(username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	cfg.Username = username
	cfg.Token = resp.Token
	return nil
}

func daemonizeMount(cfg *clientconfig.Config) error {
	stateDir, err := lifecycle.DefaultStateDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	pidPath := mountPidFile
	if pidPath == "" {
		pidPath = filepath.Join(stateDir, "remotefs-mount.pid")
	}
	logPath := mountLogFile
	if logPath == "" {
		logPath = filepath.Join(stateDir, "remotefs-mount.log")
	}

	// Resolve credentials and mount point interactively before
	// daemonizing: the backgrounded process has no terminal to prompt on.
	client := apiclient.New(cfg.ServerURL)
	if cfg.Token == "" {
		if err := authenticate(client, cfg); err != nil {
			return err
		}
	}
	if err := clientconfig.Save(cfg, ConfigFile()); err != nil {
		return fmt.Errorf("save client config: %w", err)
	}

	daemonArgs := []string{"mount", "--foreground", "--pid-file", pidPath, "--log-file", logPath,
		"--server", cfg.ServerURL, "--mount-point", cfg.MountPoint}
	if ConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", ConfigFile())
	}

	pid, err := lifecycle.Daemonize(pidPath, logPath, daemonArgs)
	if err != nil {
		return err
	}

	fmt.Printf("remotefs-mount started in background (PID %d)\n", pid)
	fmt.Printf("  Mounted at: %s\n  PID file: %s\n  Log file: %s\n", cfg.MountPoint, pidPath, logPath)
	fmt.Println("Use 'remotefs-mount unmount' to unmount it.")
	return nil
}
