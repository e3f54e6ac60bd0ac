package waterfall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadboost/leadpipe/internal/model"
)

func TestExecutor_HeuristicAcceptedAboveThreshold(t *testing.T) {
	e := NewExecutor(NewHeuristic(), NoopExternalProvider{}, NewLLM(nil, "", 0))

	r := e.Run(t.Context(), Input{
		AboutText: "We are a 120-person SaaS platform founded in 2014.",
	})

	require.NotNil(t, r)
	assert.Equal(t, model.SourceHeuristic, r.Method)
}

func TestExecutor_AllStrategiesEmptyReturnsNil(t *testing.T) {
	e := NewExecutor(NewHeuristic(), NoopExternalProvider{}, NewLLM(nil, "", 0))

	r := e.Run(context.Background(), Input{})

	assert.Nil(t, r)
}

func TestResult_MergeInto_LeavesUnsetFieldsUntouched(t *testing.T) {
	lead := &model.Lead{CompanyName: "Acme"}
	r := &Result{
		Success: true,
		Fields:  Fields{Industry: "Software"},
		Method:  model.SourceHeuristic,
		Confidence: 0.8,
	}

	r.MergeInto(lead)

	assert.Equal(t, "Software", lead.Industry)
	assert.Equal(t, "Acme", lead.CompanyName)
	assert.Equal(t, model.SourceHeuristic, lead.EnrichmentSource)
	assert.Equal(t, 0.8, lead.EnrichmentConfidence)
}

func TestResult_MergeInto_NilResultIsNoop(t *testing.T) {
	lead := &model.Lead{CompanyName: "Acme"}
	var r *Result
	r.MergeInto(lead)
	assert.Equal(t, "Acme", lead.CompanyName)
}
