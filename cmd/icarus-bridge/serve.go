package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/icarus-mcp/icarus-bridge/internal/config"
	"github.com/icarus-mcp/icarus-bridge/internal/configwatch"
	"github.com/icarus-mcp/icarus-bridge/internal/logging"
	"github.com/icarus-mcp/icarus-bridge/internal/tracing"
	"github.com/icarus-mcp/icarus-bridge/pkg/canistersdk"
	"github.com/spf13/cobra"
)

var configPath string

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "icarus-bridge.yaml", "path to the bridge config file")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge, speaking MCP JSON-RPC on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	shutdownTracing, err := tracing.Setup(ctx)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	output := io.Writer(os.Stderr)
	if cfg.Logging.File != "" {
		output = logging.RotatingFileWriter(cfg.Logging.File)
	}
	logger := logging.NewStructuredLogger(logging.Config{
		Level:     logging.ParseLevel(cfg.Logging.Level),
		Format:    logging.LogFormat(cfg.Logging.Format),
		Output:    output,
		Component: "icarus-bridge",
	})

	// There's no log-streaming channel a caller can tail mid-run (stdout
	// is reserved for JSON-RPC), so the last 500 entries are kept in memory
	// and their WARN/ERROR entries are dumped if the bridge fails to start
	// or Serve exits with an error — the only way to recover what led up
	// to it.
	buffer := logging.NewLogBuffer(500)
	logger = slog.New(logging.NewBufferHandler(buffer, logger.Handler()))

	b, err := canistersdk.New(cfg, logger)
	if err != nil {
		dumpRecentWarnings(buffer)
		return fmt.Errorf("starting bridge: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("bridge connected", "canister_id", cfg.CanisterID, "ic_url", cfg.ICUrl)

	// The bridge's type-state Server supports exactly one Connect, so a
	// config change can't be hot-swapped in place; instead we shut down
	// and rely on the process supervisor (systemd, the CLI collaborator's
	// own daemon manager) to restart us against the new config, the same
	// restart-on-change posture the teacher's pkg/reload drives for its
	// own workload reconciliation.
	watcher := configwatch.NewWatcher(configPath, func() error {
		logger.Warn("config file changed, exiting for supervisor restart")
		cancel()
		return b.Server.Shutdown(context.Background())
	})
	watcher.SetLogger(logger)
	watcher.SetValidator(func(path string) error {
		_, err := config.Load(path)
		return err
	})
	go func() {
		if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = b.Server.Shutdown(context.Background())
	}()

	if err := b.Server.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		dumpRecentWarnings(buffer)
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

// dumpRecentWarnings writes the buffer's WARN/ERROR entries to stderr
// directly (not through the structured logger, which is what just failed
// to explain itself) so an operator staring at a crashed process has
// something to go on beyond the final error line.
func dumpRecentWarnings(buffer *logging.LogBuffer) {
	warnings := buffer.Warnings()
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "--- recent warnings before failure ---")
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "%s [%s] %s\n", w.Timestamp, w.Level, w.Message)
	}
}
