package messenger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/pkg/anthropic"
)

// Method identifies which generation path produced a message.
type Method string

const (
	MethodTemplate Method = "template"
	MethodLLM      Method = "llm"
)

// Result is the outcome of generating an outreach message, matching the
// message_generation log event.
type Result struct {
	Message          string
	Method           Method
	ProcessingTimeMS int64
}

// Messenger generates the lead's outreach message, choosing between the
// LLM path and the data-locked template fallback per spec.md §4.4.
type Messenger struct {
	client      anthropic.Client
	model       string
	temperature float64
	senderOrg   string
}

// New creates a Messenger. A nil client disables the LLM path entirely;
// every lead then falls through to the template path.
func New(client anthropic.Client, modelID string, temperature float64, senderOrg string) *Messenger {
	return &Messenger{client: client, model: modelID, temperature: temperature, senderOrg: senderOrg}
}

// Generate produces an outreach message for lead. The LLM path is tried
// first when a client is configured and the lead carries sufficient
// context; an API error there falls back to the template path, which
// always succeeds. Without a client the template path is used directly.
func (m *Messenger) Generate(ctx context.Context, lead model.Lead, style Style) *Result {
	start := time.Now()

	if m.client != nil && hasSufficientData(lead) {
		msg, err := generateLLM(ctx, m.client, m.model, m.temperature, lead)
		if err == nil {
			return &Result{
				Message:          ApplyStyle(msg, style, m.senderOrg),
				Method:           MethodLLM,
				ProcessingTimeMS: time.Since(start).Milliseconds(),
			}
		}
		zap.L().Warn("messenger: llm generation failed, falling back to template",
			zap.String("website", lead.Website), zap.Error(err))
	}

	msg := renderTemplate(lead.CompanyName, lead.Industry, lead.Website)
	return &Result{
		Message:          ApplyStyle(msg, style, m.senderOrg),
		Method:           MethodTemplate,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
}
