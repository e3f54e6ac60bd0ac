package messenger

import (
	"context"
	"strings"

	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/pkg/anthropic"
)

var generateSystemPrompt = `You write a short, personalized cold outreach email opener for a sales team. ` +
	`Use only the facts given to you about the company — never invent an industry, contact name, employee ` +
	`count, or any other detail that isn't provided. Keep it to 3-5 sentences, end with a one-line signoff ` +
	`from "The LeadPipe Team". Reply with the message body only, no subject line, no markdown.`

// sufficientDataThreshold is the minimum number of known fields (per
// spec.md §4.4) required before the LLM path is attempted at all.
const sufficientDataThreshold = 2

// hasSufficientData reports whether lead carries enough known context to
// justify an LLM call rather than falling straight back to a template.
func hasSufficientData(lead model.Lead) bool {
	count := 0
	if lead.CompanyName != "" {
		count++
	}
	if lead.Industry != "" {
		count++
	}
	if len(lead.AboutText) > 50 {
		count++
	}
	if lead.ContactName != "" {
		count++
	}
	if lead.Employees != "" {
		count++
	}
	return count >= sufficientDataThreshold
}

// generateLLM produces a message via the LLM path. Callers must first
// check hasSufficientData and that client is non-nil; generateLLM itself
// only guards against a nil client for safety.
func generateLLM(ctx context.Context, client anthropic.Client, modelID string, temperature float64, lead model.Lead) (string, error) {
	if client == nil {
		return "", errNoClient
	}

	temp := temperature
	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       modelID,
		MaxTokens:   300,
		Temperature: &temp,
		System:      []anthropic.SystemBlock{{Text: generateSystemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: leadFacts(lead)}},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(modelID, "messenger")

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}

	msg := strings.TrimSpace(out.String())
	return enforceDataLock(msg, lead.CompanyName), nil
}

// leadFacts renders the lead's known fields as a plain fact sheet for the
// LLM prompt, omitting anything empty.
func leadFacts(lead model.Lead) string {
	var b strings.Builder
	writeFact(&b, "company_name", lead.CompanyName)
	writeFact(&b, "industry", lead.Industry)
	writeFact(&b, "employees", string(lead.Employees))
	writeFact(&b, "contact_name", lead.ContactName)
	writeFact(&b, "contact_title", lead.ContactTitle)
	if len(lead.AboutText) > 0 {
		about := lead.AboutText
		if len(about) > 500 {
			about = about[:500]
		}
		writeFact(&b, "about", about)
	}
	return b.String()
}

func writeFact(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// enforceDataLock guarantees the generated message never implies a
// company identity the lead doesn't have: if companyName is known but
// absent from msg, a greeting naming it is prepended.
func enforceDataLock(msg, companyName string) string {
	if companyName == "" {
		return msg
	}
	if strings.Contains(msg, companyName) {
		return msg
	}
	return "Hi " + companyName + " team,\n\n" + msg
}

var errNoClient = &clientError{"messenger: no anthropic client configured"}

type clientError struct{ s string }

func (e *clientError) Error() string { return e.s }
