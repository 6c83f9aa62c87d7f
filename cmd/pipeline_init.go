package main

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tender-intel/internal/config"
	"github.com/sells-group/tender-intel/internal/enrich"
	"github.com/sells-group/tender-intel/internal/pipeline"
	"github.com/sells-group/tender-intel/internal/sink"
	"github.com/sells-group/tender-intel/pkg/openrouter"
)

// buildPipeline wires the run-once pipeline from resolved configuration.
// The credential check happens here so a misconfigured process fails
// before any upstream traffic.
func buildPipeline(c *config.Config) (*pipeline.Pipeline, *sink.CSVSink, error) {
	if c.OpenRouter.Key == "" {
		return nil, nil, eris.New("openrouter.key is not set (TENDER_OPENROUTER_KEY)")
	}

	client := openrouter.NewClient(c.OpenRouter.Key,
		openrouter.WithBaseURL(c.OpenRouter.BaseURL),
		openrouter.WithModel(c.OpenRouter.Model),
	)

	enricher := enrich.New(client,
		c.Enrich.RequestsPerSec,
		time.Duration(c.Enrich.CooldownSecs)*time.Second,
	)

	csvSink := sink.NewCSVSink(c.Sink.Path)

	return pipeline.New(c, enricher, csvSink), csvSink, nil
}
