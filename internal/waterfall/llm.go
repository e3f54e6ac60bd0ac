package waterfall

import (
	"context"
	"encoding/json"
	"time"

	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/pkg/anthropic"
)

const llmInputTruncateChars = 2000

var enrichSystemPrompt = `You extract structured company facts from a block of web text. ` +
	`Reply with exactly one JSON object and nothing else — no prose, no markdown fences. ` +
	`The object must have exactly these keys, each nullable: ` +
	`"industry", "employees", "revenue_band", "founded_year", "contact_name", "contact_title". ` +
	`"employees" must be one of "1-10", "11-50", "51-200", "201-500", "500+" or null. ` +
	`"revenue_band" must be one of "$0-1M", "$1M-10M", "$10M-50M", "$50M-100M", "$100M+" or null. ` +
	`"founded_year" must be an integer between 1900 and 2030, or null. ` +
	`Never invent a fact that is not supported by the text — use null when unsure.`

// llmEnrichResponse is the strict schema the LLM enrichment contract
// requires: a response that does not decode into this shape is rejected
// outright rather than partially parsed, per the "data-locked" LLM
// response design note.
type llmEnrichResponse struct {
	Industry     *string `json:"industry"`
	Employees    *string `json:"employees"`
	RevenueBand  *string `json:"revenue_band"`
	FoundedYear  *int    `json:"founded_year"`
	ContactName  *string `json:"contact_name"`
	ContactTitle *string `json:"contact_title"`
}

// LLM enriches via a deterministic (low-temperature) request for exactly
// the six nullable fields in the enrichment schema.
type LLM struct {
	client      anthropic.Client
	model       string
	temperature float64
}

// NewLLM creates an LLM strategy. A nil client means the strategy is
// unavailable (no API credential configured); Run reports that as an
// unsuccessful, zero-confidence Result rather than an error, so the
// waterfall simply has nothing left to try.
func NewLLM(client anthropic.Client, model string, temperature float64) *LLM {
	return &LLM{client: client, model: model, temperature: temperature}
}

// Run executes the LLM strategy. Per spec.md §4.2, any returned field is
// accepted unconditionally (confidence = min(0.8, 0.5 + 0.1*fieldCount)),
// but a response that fails to decode into the strict schema is treated as
// no data at all rather than salvaged via partial parsing.
func (l *LLM) Run(ctx context.Context, in Input) *Result {
	start := time.Now()
	if l.client == nil {
		return &Result{Method: model.SourceLLM, Error: "llm: no credential configured", ProcessingTimeMS: time.Since(start).Milliseconds()}
	}

	text := in.aggregateText()
	if len(text) > llmInputTruncateChars {
		text = text[:llmInputTruncateChars]
	}

	temp := l.temperature
	resp, err := l.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       l.model,
		MaxTokens:   512,
		Temperature: &temp,
		System:      []anthropic.SystemBlock{{Text: enrichSystemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: text}},
	})
	if err != nil {
		return &Result{Method: model.SourceLLM, Error: err.Error(), ProcessingTimeMS: time.Since(start).Milliseconds()}
	}
	resp.Usage.LogCost(l.model, "enrich")

	var raw string
	for _, block := range resp.Content {
		if block.Type == "text" {
			raw += block.Text
		}
	}

	var parsed llmEnrichResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return &Result{Method: model.SourceLLM, Error: "llm: response failed schema validation", ProcessingTimeMS: time.Since(start).Milliseconds()}
	}

	fields, count := parsed.toFields()
	if count == 0 {
		return &Result{Method: model.SourceLLM, ProcessingTimeMS: time.Since(start).Milliseconds()}
	}

	confidence := 0.5 + 0.1*float64(count)
	if confidence > 0.8 {
		confidence = 0.8
	}

	return &Result{
		Success:          true,
		Fields:           fields,
		Method:           model.SourceLLM,
		Confidence:       confidence,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
}

func (r llmEnrichResponse) toFields() (Fields, int) {
	var f Fields
	count := 0

	if r.Industry != nil && *r.Industry != "" {
		f.Industry = *r.Industry
		count++
	}
	if r.Employees != nil && model.ValidEmployeeBand(model.EmployeeBand(*r.Employees)) && *r.Employees != "" {
		f.Employees = model.EmployeeBand(*r.Employees)
		count++
	}
	if r.RevenueBand != nil && model.ValidRevenueBand(model.RevenueBand(*r.RevenueBand)) && *r.RevenueBand != "" {
		f.RevenueBand = model.RevenueBand(*r.RevenueBand)
		count++
	}
	if r.FoundedYear != nil && model.ValidFoundedYear(*r.FoundedYear) {
		year := *r.FoundedYear
		f.FoundedYear = &year
		count++
	}
	if r.ContactName != nil && *r.ContactName != "" {
		f.ContactName = *r.ContactName
		count++
	}
	if r.ContactTitle != nil && *r.ContactTitle != "" {
		f.ContactTitle = *r.ContactTitle
		count++
	}

	return f, count
}
