package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/script-agent/internal/config"
	"github.com/jonathan/script-agent/internal/db"
	"github.com/jonathan/script-agent/internal/extraction"
	"github.com/jonathan/script-agent/internal/logging"
	"github.com/jonathan/script-agent/internal/pipeline"
	"github.com/jonathan/script-agent/internal/prompts"
)

// app holds what every subcommand shares once the root command has run.
type app struct {
	configPath string
	logLevel   string

	cfg       *config.Config
	logger    *zap.Logger
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "script_agent",
		Short: "Screenplay candidate entity extraction",
		Long: `script_agent extracts candidate entities (people, scenes, props) from normalized
screenplays using a configurable model provider, and serves the results over a REST API.

Configuration is read from --config (YAML), SCRIPT_AGENT_* environment variables and defaults.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(
		newServeCmd(a),
		newExtractCmd(a),
		newImportCmd(a),
		newShowRunCmd(a),
		newMigrateCmd(a),
		newPromptsCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
		if err := cfg.Log.Validate(); err != nil {
			return err
		}
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.logCloser = closer
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// openDB connects to the configured database.
func (a *app) openDB(ctx context.Context) (*db.DB, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or SCRIPT_AGENT_DATABASE_URL is required")
	}
	database, err := db.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

// promptLoader returns a loader for the configured prompt directory.
func (a *app) promptLoader() *prompts.Loader {
	return prompts.NewLoader(a.cfg.Prompt.Dir)
}

// newCoordinator wires the extraction pipeline to store.
func (a *app) newCoordinator(store pipeline.Store, loader *prompts.Loader, opts ...pipeline.Option) *pipeline.Coordinator {
	extractionCfg := a.cfg.ExtractionConfig()
	extractionCfg.Logger = a.logger

	factory := func(ctx context.Context, name string) (extraction.Provider, error) {
		return extraction.New(ctx, name, extractionCfg)
	}

	opts = append([]pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithPromptName(a.cfg.Prompt.Name),
	}, opts...)
	return pipeline.NewCoordinator(store, loader, factory, opts...)
}
