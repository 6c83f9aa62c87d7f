package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tender-intel/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tender-intel",
	Short: "Indian government tender scrape and enrichment pipeline",
	Long:  "Scrapes the eprocure.gov.in tender listing, derives sector, value, state, and contract type per tender via OpenRouter, and publishes the result as a CSV artifact.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
