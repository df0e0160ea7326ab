package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pfrederiksen/kids-events/internal/config"
	"github.com/pfrederiksen/kids-events/internal/logger"
	"github.com/pfrederiksen/kids-events/internal/pipeline"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// DefaultConfigPath is read when --config is not given. A missing file is fine.
const DefaultConfigPath = "kids-events.yml"

var (
	flagConfig  string
	flagFormat  string
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kids-events",
		Short: "Build the upcoming children's events page from the Sendai open-data CSV",
		Long: `Downloads the Sendai city events CSV, replaces the local events table with
its rows and regenerates a static HTML page listing upcoming events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runAll,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", DefaultConfigPath, "Path to the YAML config file")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Summary format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newBuildCmd())

	return cmd
}

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Rebuild the page from the stored events without downloading",
		Args:  cobra.NoArgs,
		RunE:  runBuild,
	}
}

// runAll fetches, imports and builds
func runAll(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	runner, err := newRunner(cmd)
	if err != nil {
		return err
	}

	report, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	result := &OutputResult{
		RunID:          report.RunID,
		FinishedAt:     time.Now().UTC(),
		Encoding:       report.Encoding,
		Bytes:          report.Bytes,
		Read:           report.Import.Read,
		Imported:       report.Import.Imported,
		SkippedNoTitle: report.Import.SkippedNoTitle,
	}
	result.setSite(report.Site)

	if err := WriteOutput(cmd.OutOrStdout(), result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// runBuild regenerates the site from the store only
func runBuild(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	runner, err := newRunner(cmd)
	if err != nil {
		return err
	}

	res, err := runner.BuildOnly(cmd.Context())
	if err != nil {
		return err
	}

	result := &OutputResult{
		RunID:      runner.ID(),
		FinishedAt: time.Now().UTC(),
		BuildOnly:  true,
	}
	result.setSite(res)

	if err := WriteOutput(cmd.OutOrStdout(), result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(s))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

func newRunner(cmd *cobra.Command) (*pipeline.Runner, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if flagVerbose {
		level = logger.LevelDebug
	}
	log := logger.New(level, cmd.ErrOrStderr())

	log.Debug("Loaded config", logger.Fields{
		"config": flagConfig,
		"source": cfg.Source.URL,
		"driver": cfg.Store.Driver,
		"output": cfg.Site.OutputDir,
	})

	return pipeline.New(cfg, log), nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
