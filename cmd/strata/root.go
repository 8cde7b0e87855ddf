package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"strata/internal/config"
	"strata/internal/layers"
	"strata/internal/logging"
	"strata/internal/resolve"
	"strata/internal/version"
)

var (
	workspaceFlag string
	jsonFlag      bool
	logLevelFlag  string
	limitFlag     int
	fileFlag      string
	lineFlag      int
	colFlag       int
)

// Set by withOrchestrator for commands that need more than the
// orchestrator facade (watch, status).
var (
	loadedCfg *config.Config
	appLogger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "strata - layered symbol resolution",
	Long: `strata resolves symbol definitions, references and renames across a
code workspace by cascading heterogeneous resolution layers - fast text
search, structural analysis, conceptual lookup, learned patterns and
propagation - into one ranked, deduplicated, cached answer.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("strata version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", ".", "workspace root directory")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "emit the raw response envelope as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().IntVar(&limitFlag, "limit", 0, "maximum results (0 uses the configured default)")
	rootCmd.PersistentFlags().StringVar(&fileFlag, "file", "", "scope to a file (also the position's file)")
	rootCmd.PersistentFlags().IntVar(&lineFlag, "line", -1, "0-based line of the position")
	rootCmd.PersistentFlags().IntVar(&colFlag, "col", -1, "0-based character of the position")
}

// withOrchestrator loads config, builds and initializes the
// orchestrator, runs fn, and disposes.
func withOrchestrator(fn func(ctx context.Context, o *resolve.Orchestrator) error) error {
	root, err := filepath.Abs(workspaceFlag)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger := logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(level),
	})
	loadedCfg = cfg
	appLogger = logger

	ctx := context.Background()
	orch := resolve.New(cfg, logger)
	if err := orch.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer func() {
		if disposeErr := orch.Dispose(); disposeErr != nil {
			logger.Warn("dispose failed", map[string]interface{}{"error": disposeErr.Error()})
		}
	}()

	if err := fn(ctx, orch); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

// buildRequest assembles a request from the positional identifier and
// the shared flags.
func buildRequest(identifier string) resolve.Request {
	req := resolve.Request{
		Identifier: identifier,
		URI:        fileFlag,
		MaxResults: limitFlag,
	}
	if lineFlag >= 0 && colFlag >= 0 {
		req.Position = layers.Position{Line: lineFlag, Character: colFlag}
	}
	return req
}
