package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/tender-intel/internal/pipeline"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run the scrape-and-enrich pipeline once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, _, err := buildPipeline(cfg)
		if err != nil {
			return err
		}

		result, err := p.Run(ctx)
		if err != nil {
			return err
		}

		printResult(result)
		return nil
	},
}

func printResult(r *pipeline.Result) {
	fmt.Printf("records:  %d\n", r.Records)
	fmt.Printf("enriched: %d\n", r.Enriched)
	if r.SkippedRows > 0 {
		fmt.Printf("skipped:  %d\n", r.SkippedRows)
	}
	if r.Records > 0 {
		fmt.Printf("artifact: %s\n", r.Artifact)
	}
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
