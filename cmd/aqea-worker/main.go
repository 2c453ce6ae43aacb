package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/allocator"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/config"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/converter"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/extractor"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/log"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/metrics"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/store"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/worker"
)

const (
	exitOK              = 0
	exitFatalConfig     = 1
	exitStoreInitFailed = 3
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFatalConfig)
	}
}

var rootCmd = &cobra.Command{
	Use:     "aqea-worker",
	Short:   "AQEA distributed lexical extractor - worker",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(workerStartCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var workerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a worker and begin claiming work units from the master",
	RunE:  runWorkerStart,
}

func init() {
	workerStartCmd.Flags().String("manager", "", "Master base URL, e.g. http://localhost:8080 (overrides config)")
	workerStartCmd.Flags().String("worker-id", "", "Worker ID (overrides config, defaults to hostname)")
	workerStartCmd.Flags().String("data-dir", "", "Data directory for the local allocator/entry store (overrides config)")
	workerStartCmd.Flags().String("config", "", "Config directory to search for config.yaml")
}

func runWorkerStart(cmd *cobra.Command, args []string) error {
	configDir, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWorker(configDir)
	if err != nil {
		return err
	}
	applyWorkerOverrides(cmd, cfg)

	logger := log.WithWorkerID(cfg.WorkerID)
	metrics.SetVersion(version)

	alloc, err := allocator.Open(cfg.DataDir + "/allocator.db")
	if err != nil {
		logger.Error().Err(err).Msg("failed to open allocator")
		os.Exit(exitStoreInitFailed)
	}
	defer alloc.Close()

	entries, err := store.OpenBoltEntryStore(cfg.DataDir + "/entries.db")
	if err != nil {
		logger.Error().Err(err).Msg("failed to open entry store")
		os.Exit(exitStoreInitFailed)
	}
	defer entries.Close()

	fallback, err := store.NewFallbackWriter(cfg.FallbackDir)
	if err != nil {
		logger.Error().Err(err).Msg("failed to prepare fallback directory")
		os.Exit(exitStoreInitFailed)
	}

	extr, err := extractor.New(cfg.Source, extractor.Config{
		BaseURL:               cfg.MasterURL,
		Language:              cfg.Language,
		RequestDelay:          cfg.RequestDelay,
		MaxConcurrentRequests: cfg.MaxConcurrentRequests,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to build source extractor")
		os.Exit(exitFatalConfig)
	}
	defer extr.Close()

	conv := converter.New(alloc, cfg.Source)
	client := worker.NewMasterClient(cfg.MasterURL, cfg.WorkerID)

	w := worker.New(worker.Config{
		WorkerID:          cfg.WorkerID,
		MasterURL:         cfg.MasterURL,
		BatchSize:         cfg.BatchSize,
		FlushInterval:     cfg.FlushInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
		FallbackDir:       cfg.FallbackDir,
	}, client, extr, conv, entries, fallback, logger)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutting down")
		cancel()
	}()

	logger.Info().Str("manager", cfg.MasterURL).Msg("worker starting")
	if err := w.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("worker exited with error")
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

func applyWorkerOverrides(cmd *cobra.Command, cfg *config.WorkerConfig) {
	if v, _ := cmd.Flags().GetString("manager"); v != "" {
		cfg.MasterURL = v
	}
	if v, _ := cmd.Flags().GetString("worker-id"); v != "" {
		cfg.WorkerID = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
}
