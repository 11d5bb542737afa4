package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/config"
	"github.com/loomworks/loom/internal/lockfile"
	"github.com/loomworks/loom/internal/logging"
	"github.com/loomworks/loom/internal/service"
	"github.com/loomworks/loom/internal/storage/sqlite"
	"github.com/loomworks/loom/internal/telemetry"
	"github.com/loomworks/loom/internal/ui"
)

const version = "0.1.0"

var (
	jsonOutput  bool
	noColorFlag bool
	noPagerFlag bool
	dbOverride  string

	rootCtx    context.Context
	rootCancel context.CancelFunc

	loomDir   string
	cfg       *config.Config
	log       *slog.Logger
	logCloser io.Closer
	store     *sqlite.SQLiteStorage
	svc       *service.Service
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Manage a hierarchical work-item graph with undoable history",
	Long: `loom tracks work items in a tree with typed dependency links.
Every mutation is recorded and can be undone and redone. Nothing is ever
physically deleted; removal deactivates rows so history stays replayable.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if noColorFlag || os.Getenv("NO_COLOR") != "" {
			ui.DisableColor()
		}
		if skipsWorkspace(cmd) {
			return nil
		}
		return openWorkspace(cmd.Context())
	},
}

// skipsWorkspace reports whether the command runs without an existing
// workspace.
func skipsWorkspace(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "init", "help", "completion", "version", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	return cmd.Parent() != nil && cmd.Parent().Name() == "completion"
}

func openWorkspace(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	loomDir, err = config.FindWorkspace(cwd)
	if err != nil {
		return fmt.Errorf("not inside a loom workspace (run 'loom init' first): %w", err)
	}

	// Direct read before viper so a malformed config still reports plainly.
	if local := config.LoadLocal(loomDir); local.NoColor {
		ui.DisableColor()
	}

	cfg, err = config.Load(loomDir)
	if err != nil {
		return err
	}
	if cfg.NoColor {
		ui.DisableColor()
	}

	log, logCloser = logging.New(logging.Options{
		File:       cfg.LogFile,
		Level:      cfg.LogLevel,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	if err := telemetry.Init(ctx, "loom", version); err != nil {
		log.Warn("telemetry init failed", "error", err)
	}

	dbPath := cfg.DatabasePath(loomDir)
	if dbOverride != "" {
		dbPath = dbOverride
	}
	store, err = sqlite.New(ctx, dbPath, sqlite.WithLogger(log))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	svc = service.New(store, service.WithLogger(log))
	return nil
}

func closeWorkspace() {
	if store != nil {
		if err := store.Close(); err != nil {
			log.Warn("closing store", "error", err)
		}
	}
	telemetry.Shutdown(context.Background())
	if logCloser != nil {
		_ = logCloser.Close()
	}
}

// withWorkspaceLock serializes mutating commands across processes.
func withWorkspaceLock(ctx context.Context, fn func() error) error {
	lock, err := lockfile.Acquire(ctx, config.LockPath(loomDir), cfg.LockTimeout)
	if err != nil {
		return fmt.Errorf("acquiring workspace lock: %w", err)
	}
	defer func() { _ = lock.Release() }()
	return fn()
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	err := rootCmd.ExecuteContext(rootCtx)
	closeWorkspace()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable terminal styling")
	rootCmd.PersistentFlags().BoolVar(&noPagerFlag, "no-pager", false, "never pipe output through a pager")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "path to the database (overrides workspace config)")
}
