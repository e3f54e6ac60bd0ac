package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadboost/leadpipe/internal/model"
)

func TestValidate_DefaultCriteriaWeightsSumToOne(t *testing.T) {
	require.NoError(t, Validate(DefaultCriteria()))
}

func TestValidate_RejectsUnknownCriterionName(t *testing.T) {
	bad := []Criterion{{Name: "not_a_real_criterion", Weight: 1.0, MaxScore: 100}}
	assert.Error(t, Validate(bad))
}

func TestValidate_RejectsWeightsOutsideTolerance(t *testing.T) {
	bad := DefaultCriteria()
	bad[0].Weight = 0.80
	assert.Error(t, Validate(bad))
}

func TestScorer_HotLead(t *testing.T) {
	s, err := New(DefaultCriteria())
	require.NoError(t, err)

	lead := model.Lead{
		Industry:             "Software",
		Employees:            model.Employees51To200,
		EmailConfidence:      0.9,
		ScrapeConfidence:     0.9,
		EnrichmentConfidence: 0.9,
		LinkedInURL:          "https://linkedin.com/company/acme",
	}

	result, err := s.Score(lead)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.TotalScore, 80.0)
	assert.Equal(t, model.LabelHot, result.Label)
	assert.Len(t, result.Breakdown, len(DefaultCriteria()))
}

func TestScorer_DisqualifiedWithNoSignal(t *testing.T) {
	s, err := New(DefaultCriteria())
	require.NoError(t, err)

	result, err := s.Score(model.Lead{})
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.TotalScore)
	assert.Equal(t, model.LabelDisqualified, result.Label)
}

func TestScorer_ScoreIsMonotoneInConfidence(t *testing.T) {
	s, err := New(DefaultCriteria())
	require.NoError(t, err)

	low := model.Lead{EmailConfidence: 0.6}
	high := model.Lead{EmailConfidence: 0.9}

	lowResult, err := s.Score(low)
	require.NoError(t, err)
	highResult, err := s.Score(high)
	require.NoError(t, err)

	assert.Less(t, lowResult.TotalScore, highResult.TotalScore)
}

func TestScorer_ScoreNeverExceeds100(t *testing.T) {
	s, err := New(DefaultCriteria())
	require.NoError(t, err)

	lead := model.Lead{
		Industry:             "Software",
		Employees:            model.Employees51To200,
		EmailConfidence:      1.0,
		ScrapeConfidence:     1.0,
		EnrichmentConfidence: 1.0,
		LinkedInURL:          "https://linkedin.com/company/acme",
	}

	result, err := s.Score(lead)
	require.NoError(t, err)
	assert.LessOrEqual(t, result.TotalScore, 100.0)
}

func TestApplyTo_WritesScoreAndLabelOntoLead(t *testing.T) {
	s, err := New(DefaultCriteria())
	require.NoError(t, err)

	lead := &model.Lead{Industry: "Software", Employees: model.Employees51To200}
	require.NoError(t, s.ApplyTo(lead))

	assert.Greater(t, lead.Score, 0.0)
	assert.NotEmpty(t, lead.QualificationLabel)
}
