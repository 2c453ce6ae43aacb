package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/config"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/errs"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/log"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/master"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/metrics"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/store"
)

// Exit codes per SPEC_FULL §6.1.
const (
	exitOK              = 0
	exitFatalConfig     = 1
	exitUnsupportedLang = 2
	exitStoreInitFailed = 3
	exitInterrupted     = 130
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFatalConfig)
	}
}

var rootCmd = &cobra.Command{
	Use:     "aqea-master",
	Short:   "AQEA distributed lexical extractor - master coordinator",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(masterStartCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var masterStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the master coordinator and generate a work plan for one language",
	RunE:  runMasterStart,
}

func init() {
	masterStartCmd.Flags().String("bind-addr", "", "HTTP API bind address (overrides config)")
	masterStartCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	masterStartCmd.Flags().String("language", "", "ISO 639-3 language code to extract (overrides config)")
	masterStartCmd.Flags().String("source", "", "Source extractor name, e.g. wiktionary (overrides config)")
	masterStartCmd.Flags().String("config", "", "Config directory to search for config.yaml")
}

func runMasterStart(cmd *cobra.Command, args []string) error {
	configDir, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMaster(configDir)
	if err != nil {
		return err
	}
	applyMasterOverrides(cmd, cfg)

	logger := log.WithComponent("master")
	metrics.SetVersion(version)

	if _, ok := aqea.LanguageByte(cfg.Language); !ok {
		logger.Error().Str("language", cfg.Language).Msg("unsupported language")
		os.Exit(exitUnsupportedLang)
	}

	coord, err := store.OpenBuntCoordinationStore(cfg.DataDir + "/coordination.db")
	if err != nil {
		logger.Error().Err(err).Msg("failed to open coordination store")
		os.Exit(exitStoreInitFailed)
	}
	defer coord.Close()

	entries, err := store.OpenBoltEntryStore(cfg.DataDir + "/entries.db")
	if err != nil {
		logger.Error().Err(err).Msg("failed to open entry store")
		os.Exit(exitStoreInitFailed)
	}
	defer entries.Close()

	metrics.RegisterComponent("store", true, "ready")
	metrics.RegisterComponent("coordination_store", true, "ready")

	m := master.New(master.Config{
		BindAddr:         cfg.BindAddr,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
		SweepInterval:    cfg.SweepInterval,
	}, coord, entries)

	if _, err := m.GeneratePlan(defaultPlan(cfg)); err != nil {
		if e, ok := errs.As(err); ok && e.Kind == errs.KindConfig {
			logger.Error().Err(err).Msg("fatal config error generating plan")
			os.Exit(exitFatalConfig)
		}
		logger.Warn().Err(err).Msg("failed to generate plan, continuing with existing units")
	}

	collector := metrics.NewCollector(coord)
	collector.Start()
	defer collector.Stop()

	m.StartSweepLoop()
	defer m.Stop()

	srv := master.NewServer(m)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.BindAddr); err != nil {
			errCh <- err
		}
	}()
	logger.Info().Str("addr", cfg.BindAddr).Msg("master listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("HTTP server error")
		return err
	}

	time.Sleep(100 * time.Millisecond)
	logger.Info().Msg("shutdown complete")
	return nil
}

func applyMasterOverrides(cmd *cobra.Command, cfg *config.MasterConfig) {
	if v, _ := cmd.Flags().GetString("bind-addr"); v != "" {
		cfg.BindAddr = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("language"); v != "" {
		cfg.Language = v
	}
	if v, _ := cmd.Flags().GetString("source"); v != "" {
		cfg.Source = v
	}
}

// defaultPlan is the plan the master partitions at startup: the alphabet for
// the configured language and source, split into three weighted ranges
// (a-f 0.3, g-m 0.3, n-z 0.4).
func defaultPlan(cfg *config.MasterConfig) aqea.LanguagePlan {
	return aqea.LanguagePlan{
		LanguageCode:     cfg.Language,
		Source:           cfg.Source,
		EstimatedEntries: 100000,
		AlphabetRanges: []aqea.AlphabetRange{
			{StartPrefix: "a", EndPrefix: "f", Weight: 0.3},
			{StartPrefix: "g", EndPrefix: "m", Weight: 0.3},
			{StartPrefix: "n", EndPrefix: "z", Weight: 0.4},
		},
	}
}
