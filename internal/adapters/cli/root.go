// Package cli is the dataroom command line: local ingestion and question
// answering without the HTTP API.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/dataroom-assistant/internal/bootstrap"
	"github.com/kirillkom/dataroom-assistant/internal/config"
	"github.com/kirillkom/dataroom-assistant/internal/observability/logging"
)

var version = "dev"

var logLevel string

// Swapped in tests.
var (
	loadConfig = config.Load
	newApp     = bootstrap.NewLocal
)

var rootCmd = &cobra.Command{
	Use:   "dataroom",
	Short: "Ask questions about data-room documents",
	Long: `dataroom ingests PDF, DOCX and TXT documents from a renewable-energy
data room and answers questions about them with page-level citations.

Configuration comes from the environment (or a .env file), the same
variables the API server reads.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level := logLevel
		if level == "" {
			level = os.Getenv("LOG_LEVEL")
		}
		slog.SetDefault(logging.NewTextLogger(cmd.ErrOrStderr(), level))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")
}

// Execute runs the root command.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.ExecuteContext(ctx)
}

// openApp loads config and wires an in-process app with one fresh session
// holding files.
func openApp(cmd *cobra.Command, files []string) (*bootstrap.App, string, error) {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	app, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return nil, "", err
	}
	sess := app.Sessions.Create()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			app.Close()
			return nil, "", err
		}
		info, err := app.Ingest.IngestInto(cmd.Context(), sess, path, data)
		if err != nil {
			app.Close()
			return nil, "", err
		}
		slog.Debug("cli_document_loaded", "filename", info.Filename, "chunks", info.ChunkCount)
	}
	return app, sess.ID(), nil
}
