package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brianly1003/foldersentinel/internal/app"
	"github.com/brianly1003/foldersentinel/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	port        int
	noServer    bool
	noAutoStart bool
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start watching the configured roots",
	Long: `Start foldersentinel. Persisted watch roots are loaded and, when
roots.auto_start is set, monitoring begins immediately.

The REST API and the WebSocket stream at /ws are served on the configured
port unless --no-server is given.

Example:
  foldersentinel start
  foldersentinel start --port 9000
  foldersentinel start --no-auto-start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVar(&port, "port", 0, "API server port (default: 8780)")
	startCmd.Flags().BoolVar(&noServer, "no-server", false, "do not serve the REST API and WebSocket stream")
	startCmd.Flags().BoolVar(&noAutoStart, "no-auto-start", false, "load roots but leave monitoring stopped")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if port != 0 {
		cfg.Server.Port = port
	}
	if noServer {
		cfg.Server.Enabled = false
	}
	if noAutoStart {
		cfg.Roots.AutoStart = false
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging(cfg)

	log.Info().
		Str("version", version).
		Str("roots_file", cfg.Roots.File).
		Bool("server", cfg.Server.Enabled).
		Int("port", cfg.Server.Port).
		Msg("starting foldersentinel")

	application, err := app.New(cfg, version, newServerLogger(cfg))
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("foldersentinel stopped")
	return nil
}
