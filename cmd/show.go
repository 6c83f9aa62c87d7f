package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sells-group/tender-intel/internal/sink"
)

var showLimit int

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current tender artifact as a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		csvSink := sink.NewCSVSink(cfg.Sink.Path)
		records, err := csvSink.Read()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no artifact yet; run `tender-intel scrape` first")
			return nil
		}

		if showLimit > 0 && len(records) > showLimit {
			records = records[:showLimit]
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Title", "Ref No.", "Ministry", "Closing", "Sector", "Value (INR)", "State", "Type"})
		for _, rec := range records {
			t.AppendRow(table.Row{
				rec.Title,
				rec.ReferenceNumber,
				rec.Ministry,
				rec.ClosingDate,
				strPtr(rec.Sector),
				floatPtr(rec.EstimatedValueINR),
				strPtr(rec.LocationState),
				strPtr(rec.ContractType),
			})
		}
		t.SetStyle(table.StyleLight)
		t.Render()

		return nil
	},
}

func strPtr[T ~string](v *T) string {
	if v == nil {
		return ""
	}
	return string(*v)
}

func floatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.0f", *v)
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "show at most this many rows (0 = all)")
	rootCmd.AddCommand(showCmd)
}
