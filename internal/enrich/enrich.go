// Package enrich derives structured tender fields from free text via the
// OpenRouter completion service.
//
// This package owns all interaction with the unreliable external service:
// transport failures, rate limiting, and malformed completions are
// absorbed here and surface only as an unenriched record, never as a run
// failure.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/tender-intel/internal/model"
	"github.com/sells-group/tender-intel/pkg/openrouter"
)

// ErrBadPayload marks a completion whose content did not validate against
// the four-key enrichment schema.
var ErrBadPayload = eris.New("enrich: completion payload failed schema validation")

const promptTemplate = `Extract structured data from the following tender description.
Return ONLY a valid JSON object with these keys:
- sector: One of [Transport, Water, Health, Education, IT/Digital, Energy, Building, Other]
- estimated_value_inr: Number (or null if not found)
- location_state: Indian state name or "All India"
- contract_type: One of [Works, Goods, Services, null]

Tender Text:
%s`

// Enricher calls the completion service once per record, gated by an
// injected token-bucket governor so the swap to another pacing policy
// never touches call logic.
type Enricher struct {
	client   openrouter.Client
	limiter  *rate.Limiter
	cooldown time.Duration
}

// New creates an Enricher. requestsPerSec feeds a token bucket with burst
// 1 so calls stay strictly paced; cooldown is the extra pause applied when
// the service reports a rate limit.
func New(client openrouter.Client, requestsPerSec float64, cooldown time.Duration) *Enricher {
	return &Enricher{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		cooldown: cooldown,
	}
}

// Enrich asks the completion service for the four derived fields of a
// record. It returns either a complete validated Enrichment or nil; the
// only error it propagates is context cancellation. The record is skipped
// (nil) on rate limiting rather than retried, since no compensating
// re-scrape exists within a run.
func (e *Enricher) Enrich(ctx context.Context, rec model.TenderRecord) (*model.Enrichment, error) {
	log := zap.L().With(zap.String("title", rec.Title))

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "enrich: rate governor wait")
	}

	// Only the title and organisation are shared with the external
	// service; closing date and reference number never leave the process.
	text := fmt.Sprintf("Title: %s. Ministry/Organisation: %s.", rec.Title, rec.Ministry)

	resp, err := e.client.ChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Messages: []openrouter.Message{
			{Role: "user", Content: fmt.Sprintf(promptTemplate, text)},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "enrich: completion call")
		}
		if eris.Is(err, openrouter.ErrRateLimited) {
			log.Warn("enrich: rate limit hit, cooling down and skipping record",
				zap.Duration("cooldown", e.cooldown))
			e.pause(ctx)
			return nil, nil
		}
		log.Error("enrich: completion call failed", zap.Error(err))
		return nil, nil
	}

	if len(resp.Choices) == 0 {
		log.Error("enrich: completion response had no choices")
		return nil, nil
	}

	enrichment, err := Parse(resp.Choices[0].Message.Content)
	if err != nil {
		log.Warn("enrich: discarding unparseable completion", zap.Error(err))
		return nil, nil
	}

	return enrichment, nil
}

func (e *Enricher) pause(ctx context.Context) {
	t := time.NewTimer(e.cooldown)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Parse validates a completion body against the enrichment schema. The
// body may arrive wrapped in a fenced code block; the fence is stripped
// before decoding. All four keys must be present, with enum and type
// violations rejected wholesale so partial structure never leaks into a
// record.
func Parse(content string) (*model.Enrichment, error) {
	content = stripFence(content)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, eris.Wrap(ErrBadPayload, "not a JSON object: "+err.Error())
	}

	for _, key := range []string{"sector", "estimated_value_inr", "location_state", "contract_type"} {
		if _, ok := raw[key]; !ok {
			return nil, eris.Wrap(ErrBadPayload, "missing key "+key)
		}
	}

	var payload model.Enrichment
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, eris.Wrap(ErrBadPayload, "wrong value type: "+err.Error())
	}

	if payload.Sector != nil && !payload.Sector.Valid() {
		return nil, eris.Wrap(ErrBadPayload, "unknown sector "+string(*payload.Sector))
	}
	if payload.ContractType != nil && !payload.ContractType.Valid() {
		return nil, eris.Wrap(ErrBadPayload, "unknown contract type "+string(*payload.ContractType))
	}

	return &payload, nil
}

// stripFence removes a leading/trailing markdown code fence, either
// language-tagged (```json) or bare (```), from a completion body.
func stripFence(content string) string {
	if strings.Contains(content, "```json") {
		after := strings.SplitN(content, "```json", 2)[1]
		return strings.TrimSpace(strings.SplitN(after, "```", 2)[0])
	}
	if strings.Contains(content, "```") {
		parts := strings.Split(content, "```")
		if len(parts) >= 2 {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(content)
}
