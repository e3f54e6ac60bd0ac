package messenger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadboost/leadpipe/internal/model"
	"github.com/leadboost/leadpipe/pkg/anthropic"
)

type fakeClient struct {
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func textResponse(s string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: s}}}
}

func TestGenerate_WebsiteOnlyLeadUsesTemplateWithoutInventingFacts(t *testing.T) {
	m := New(nil, "", 0, "")
	lead := model.Lead{Website: "https://acme.io"}

	result := m.Generate(context.Background(), lead, StyleProfessional)

	assert.Equal(t, MethodTemplate, result.Method)
	assert.Contains(t, result.Message, "acme.io")
	assert.NotContains(t, result.Message, "CEO")
}

func TestGenerate_NoClientAlwaysFallsBackToTemplate(t *testing.T) {
	m := New(nil, "model", 0.3, "LeadPipe")
	lead := model.Lead{CompanyName: "Acme Corp", Industry: "Software"}

	result := m.Generate(context.Background(), lead, StyleProfessional)

	assert.Equal(t, MethodTemplate, result.Method)
	assert.Contains(t, result.Message, "Acme Corp")
}

func TestGenerate_InsufficientDataSkipsLLMEvenWithClient(t *testing.T) {
	client := &fakeClient{resp: textResponse("Hi Acme Corp team, ...")}
	m := New(client, "model", 0.3, "")
	lead := model.Lead{CompanyName: "Acme Corp"}

	result := m.Generate(context.Background(), lead, StyleProfessional)

	assert.Equal(t, MethodTemplate, result.Method)
}

func TestGenerate_SufficientDataUsesLLM(t *testing.T) {
	client := &fakeClient{resp: textResponse("Hi Acme Corp team, loved your work in software. Best,\nThe LeadPipe Team")}
	m := New(client, "model", 0.3, "")
	lead := model.Lead{CompanyName: "Acme Corp", Industry: "Software", ContactName: "Jane Doe"}

	result := m.Generate(context.Background(), lead, StyleProfessional)

	assert.Equal(t, MethodLLM, result.Method)
	assert.Contains(t, result.Message, "Acme Corp")
}

func TestGenerate_LLMFailureFallsBackToTemplate(t *testing.T) {
	client := &fakeClient{err: errors.New("upstream unavailable")}
	m := New(client, "model", 0.3, "")
	lead := model.Lead{CompanyName: "Acme Corp", Industry: "Software", ContactName: "Jane Doe"}

	result := m.Generate(context.Background(), lead, StyleProfessional)

	assert.Equal(t, MethodTemplate, result.Method)
	assert.Contains(t, result.Message, "Acme Corp")
}

func TestEnforceDataLock_PrependsGreetingWhenCompanyNameMissingFromOutput(t *testing.T) {
	msg := enforceDataLock("Loved your product, would love to chat. Best,\nThe LeadPipe Team", "Acme Corp")
	assert.Contains(t, msg, "Hi Acme Corp team,")
}

func TestEnforceDataLock_LeavesMessageUnchangedWhenCompanyNameAlreadyPresent(t *testing.T) {
	original := "Hi Acme Corp team, loved your product. Best,\nThe LeadPipe Team"
	assert.Equal(t, original, enforceDataLock(original, "Acme Corp"))
}

func TestHasSufficientData(t *testing.T) {
	assert.False(t, hasSufficientData(model.Lead{CompanyName: "Acme"}))
	assert.True(t, hasSufficientData(model.Lead{CompanyName: "Acme", Industry: "Software"}))
}

func TestRenderTemplate_IndustryTemplateSelection(t *testing.T) {
	msg := renderTemplate("Acme Corp", "Software", "")
	assert.Contains(t, msg, "Acme Corp")
	assert.Contains(t, msg, "software")
}

func TestRenderTemplate_UnrecognizedIndustryFallsBackToGeneric(t *testing.T) {
	msg := renderTemplate("Acme Corp", "Aerospace", "")
	assert.Contains(t, msg, "Acme Corp")
	assert.Contains(t, msg, "Aerospace")
}

func TestApplyStyle_Short(t *testing.T) {
	msg := "line1\nline2\nline3\nline4\nline5\nline6"
	out := ApplyStyle(msg, StyleShort, "")
	assert.Equal(t, "line1\nline2\nline3\nline4", out)
}

func TestApplyStyle_ProfessionalAddsSignoff(t *testing.T) {
	msg := "Hi Acme team,\n\nWelcome.\n\nBest,\nThe LeadPipe Team"
	out := ApplyStyle(msg, StyleProfessional, "Acme Sales")
	assert.Contains(t, out, "Best regards, Acme Sales")
}

func TestMessenger_RequiresNoErrorPath(t *testing.T) {
	m := New(nil, "", 0, "")
	require.NotNil(t, m)
}
