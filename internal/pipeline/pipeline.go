// Package pipeline orchestrates one scrape-and-enrich run.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tender-intel/internal/config"
	"github.com/sells-group/tender-intel/internal/enrich"
	"github.com/sells-group/tender-intel/internal/eprocure"
	"github.com/sells-group/tender-intel/internal/model"
	"github.com/sells-group/tender-intel/internal/sink"
)

// Result summarizes a completed run. Row- and call-scoped failures only
// reach the log; callers get counts here plus a single fatal error when a
// run aborts.
type Result struct {
	Records     int    `json:"records"`
	Enriched    int    `json:"enriched"`
	SkippedRows int    `json:"skipped_rows"`
	Artifact    string `json:"artifact"`
}

// Pipeline runs the bootstrap → fetch → extract → enrich → persist pass.
// Strictly sequential; one Pipeline value serves one run at a time.
type Pipeline struct {
	cfg      *config.Config
	enricher *enrich.Enricher
	sink     *sink.CSVSink
}

// New creates a Pipeline with its dependencies.
func New(cfg *config.Config, enricher *enrich.Enricher, csvSink *sink.CSVSink) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		enricher: enricher,
		sink:     csvSink,
	}
}

// Run executes a single pass and persists the result. The scrape session
// is created here and discarded with the run; cookies and form tokens are
// never reused.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := zap.L()
	log.Info("pipeline: starting run")

	client, err := eprocure.NewClient(p.cfg.Scrape)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create scrape session")
	}

	form, err := client.Bootstrap(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: bootstrap session")
	}

	doc, err := client.FetchListing(ctx, form)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch listing")
	}

	table, err := eprocure.FindListingTable(doc)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: locate tender table")
	}

	rows := eprocure.QualifyingRows(table, p.cfg.Scrape.MinColumns)
	log.Info("pipeline: extracted qualifying rows", zap.Int("rows", len(rows)))

	result := &Result{Artifact: p.sink.Path()}
	var records []model.TenderRecord

	for _, row := range rows {
		// Only successfully parsed rows count toward the cap.
		if len(records) >= p.cfg.Scrape.MaxRows {
			break
		}

		rec, err := eprocure.ParseRow(row, p.cfg.Scrape.Columns)
		if err != nil {
			log.Warn("pipeline: skipping unparseable row", zap.Error(err))
			result.SkippedRows++
			continue
		}

		log.Info("pipeline: processing tender", zap.String("title", rec.Title))

		enrichment, err := p.enricher.Enrich(ctx, rec)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: enrichment")
		}
		if enrichment != nil {
			rec.Merge(*enrichment)
			result.Enriched++
		}

		records = append(records, rec)
	}
	result.Records = len(records)

	if len(records) == 0 {
		log.Warn("pipeline: no tenders extracted, keeping prior artifact")
		return result, nil
	}

	if err := p.sink.Write(records); err != nil {
		return nil, eris.Wrap(err, "pipeline: persist records")
	}

	log.Info("pipeline: run complete",
		zap.Int("records", result.Records),
		zap.Int("enriched", result.Enriched),
		zap.Int("skipped_rows", result.SkippedRows),
		zap.String("artifact", p.sink.Path()),
	)
	return result, nil
}
