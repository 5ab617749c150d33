package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/corpintel/edgargraph/internal/config"
	"github.com/corpintel/edgargraph/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "edgargraph",
	Short: "EdgarGraph - SEC filing ingestion into a corporate knowledge graph",
	Long: `EdgarGraph extracts beneficial ownership, officer, subsidiary, and
insider trading facts from SEC EDGAR filings and loads them into a
Neo4j knowledge graph, routing low-confidence extractions to a human
review queue.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
		config.ResolveAPIKeys(cfg)

		if err := logging.Initialize(logging.DefaultConfig(verbose || cfg.Debug)); err != nil {
			logger.WithError(err).Warn("Failed to initialize structured logging")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .edgargraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`EdgarGraph {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(statusCmd)
}
