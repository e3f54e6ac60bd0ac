package waterfall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadboost/leadpipe/internal/model"
)

func TestHeuristic_SaaSCompanyDescription(t *testing.T) {
	h := NewHeuristic()
	in := Input{
		AboutText: "We are a 120-person SaaS platform founded in 2014.",
	}

	r := h.Run(in)

	require.True(t, r.Success)
	assert.Equal(t, "Software", r.Fields.Industry)
	assert.Equal(t, model.Employees51To200, r.Fields.Employees)
	assert.Equal(t, model.Revenue10MTo50M, r.Fields.RevenueBand)
	require.NotNil(t, r.Fields.FoundedYear)
	assert.Equal(t, 2014, *r.Fields.FoundedYear)
	assert.Greater(t, r.Confidence, 0.7)
}

func TestHeuristic_ContactNameAndTitle(t *testing.T) {
	h := NewHeuristic()
	in := Input{AboutText: "Reach out to CEO Jane Doe for a demo of our platform."}

	r := h.Run(in)

	assert.Equal(t, "Jane Doe", r.Fields.ContactName)
	assert.Equal(t, "CEO", r.Fields.ContactTitle)
}

func TestHeuristic_NoSignalYieldsZeroConfidence(t *testing.T) {
	h := NewHeuristic()
	r := h.Run(Input{})

	assert.False(t, r.Success)
	assert.Equal(t, 0.0, r.Confidence)
}

func TestMatchFoundedYear_TwoDigitExpansion(t *testing.T) {
	y, ok := matchFoundedYear("founded '29")
	require.True(t, ok)
	assert.Equal(t, 2029, y)

	y, ok = matchFoundedYear("founded '50")
	require.True(t, ok)
	assert.Equal(t, 1950, y)
}

func TestMatchFoundedYear_RejectsOutOfRange(t *testing.T) {
	_, ok := matchFoundedYear("founded in 1850")
	assert.False(t, ok)

	_, ok = matchFoundedYear("founded in 2099")
	assert.False(t, ok)
}

func TestMatchEmployeeBand_KeywordMatchPrecedesRegex(t *testing.T) {
	band, ok := matchEmployeeBand("we're a scrappy startup building the future")
	require.True(t, ok)
	assert.Equal(t, model.Employees1To10, band)

	band, ok = matchEmployeeBand("an established, mid sized firm with decades of experience")
	require.True(t, ok)
	assert.Equal(t, model.Employees51To200, band)

	// "major" sits in the 201-500 set, which is checked before the 500+
	// set, so it wins over "huge" and "major corporation".
	band, ok = matchEmployeeBand("a huge, major corporation with offices worldwide")
	require.True(t, ok)
	assert.Equal(t, model.Employees201To500, band)
}

func TestMatchEmployeeBand_FallsBackToRegexWithoutKeyword(t *testing.T) {
	band, ok := matchEmployeeBand("we have 30 employees across two offices")
	require.True(t, ok)
	assert.Equal(t, model.Employees11To50, band)
}

func TestBandForCount(t *testing.T) {
	assert.Equal(t, model.Employees1To10, bandForCount(5))
	assert.Equal(t, model.Employees11To50, bandForCount(50))
	assert.Equal(t, model.Employees51To200, bandForCount(120))
	assert.Equal(t, model.Employees201To500, bandForCount(500))
	assert.Equal(t, model.Employees500Plus, bandForCount(5000))
}
