// Package cmd provides the CLI commands for manualrag.
package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docstack/manualrag/internal/config"
	"github.com/docstack/manualrag/internal/embed"
	"github.com/docstack/manualrag/internal/logging"
	"github.com/docstack/manualrag/internal/profiling"
	"github.com/docstack/manualrag/internal/rerank"
	"github.com/docstack/manualrag/internal/search"
	"github.com/docstack/manualrag/internal/store"
	"github.com/docstack/manualrag/internal/telemetry"
	"github.com/docstack/manualrag/pkg/version"
)

var (
	configPath string
	dataDir    string
	debugMode  bool

	profileCPU string
	profileMem string

	loggingCleanup func()
	cpuCleanup     func()
	profiler       = profiling.New()
)

// NewRootCmd creates the root command for the manualrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manualrag",
		Short: "Hybrid retrieval over technical manuals",
		Long: `manualrag answers natural-language questions against indexed ERP
manual chunks using hybrid retrieval: a dense vector channel and a
lexical full-text channel, fused, cross-encoder reranked, and
diversified by manual section.

Run 'manualrag init' to write a starter configuration, 'manualrag
ingest' to index chunk files, and 'manualrag search' to query.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("manualrag version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ./manualrag.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Index directory (overrides config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write heap profile to file on exit")

	cmd.PersistentPreRunE = startRun
	cmd.PersistentPostRunE = stopRun

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads the configuration and applies CLI flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func startRun(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return err
		}
	}

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxFiles:      cfg.Logging.MaxFiles,
		WriteToStderr: cfg.Logging.WriteToStderr,
	}
	if logCfg.FilePath == "" && cfg.DataDir != "" {
		logCfg.FilePath = filepath.Join(cfg.DataDir, "logs", "manualrag.log")
		// File logging is the observability surface; stderr stays for errors.
		logCfg.WriteToStderr = false
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	return nil
}

func stopRun(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return err
		}
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// openEngine wires the full retrieval stack from configuration. The returned
// cleanup closes the engine, both channels, and the embedder, in that order.
func openEngine(cfg config.Config) (*search.Engine, func(), error) {
	embedder, err := embed.New(embed.Config{
		Provider:   cfg.Embedding.Provider,
		Host:       cfg.Embedding.Host,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
		Timeout:    cfg.Embedding.Timeout,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, nil, err
	}

	channels, err := store.Open(embedder, store.Options{
		DataDir:        cfg.DataDir,
		LexicalBackend: cfg.Lexical.Backend,
		HNSW: store.HNSWOptions{
			M:              cfg.Dense.M,
			EfConstruction: cfg.Dense.EfConstruction,
			EfSearch:       cfg.Dense.EfSearch,
			Dimensions:     cfg.Embedding.Dimensions,
		},
	})
	if err != nil {
		_ = embedder.Close()
		return nil, nil, err
	}

	var scorer rerank.Scorer
	if cfg.Reranker.Enabled {
		scorer = rerank.NewHTTPScorer(rerank.Config{
			Endpoint:     cfg.Reranker.Endpoint,
			Model:        cfg.Reranker.Model,
			Timeout:      cfg.Reranker.Timeout,
			MaxFailures:  cfg.Reranker.MaxFailures,
			ResetTimeout: cfg.Reranker.ResetTimeout,
		})
	}

	engine, err := search.NewEngine(search.EngineOptions{
		Config:  cfg.Retrieval,
		Dense:   channels.Dense,
		Lexical: channels.Lexical,
		Scorer:  scorer,
		Logger:  slog.Default(),
		Metrics: telemetry.NewCollector(),
	})
	if err != nil {
		_ = channels.Close()
		_ = embedder.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = engine.Close()
		_ = channels.Close()
		_ = embedder.Close()
	}
	return engine, cleanup, nil
}
