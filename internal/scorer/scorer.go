package scorer

import (
	"github.com/leadboost/leadpipe/internal/model"
)

// Breakdown records one criterion's contribution to the total score.
type Breakdown struct {
	Criterion string
	Points    float64
	MaxScore  float64
}

// Result is the outcome of scoring a single Lead.
type Result struct {
	TotalScore float64
	Label      model.QualificationLabel
	Breakdown  []Breakdown
}

// Scorer computes a 0-100 score and qualification label from a validated
// criteria list.
type Scorer struct {
	criteria []Criterion
}

// New creates a Scorer from criteria, which must pass Validate.
func New(criteria []Criterion) (*Scorer, error) {
	if err := Validate(criteria); err != nil {
		return nil, err
	}
	return &Scorer{criteria: criteria}, nil
}

// Score evaluates every criterion against lead and returns the total
// score (capped at 100) with its qualification label and per-criterion
// breakdown.
func (s *Scorer) Score(lead model.Lead) (*Result, error) {
	breakdown := make([]Breakdown, 0, len(s.criteria))
	var total float64
	for _, c := range s.criteria {
		points, err := c.evaluate(lead)
		if err != nil {
			return nil, err
		}
		total += points
		breakdown = append(breakdown, Breakdown{Criterion: c.Name, Points: points, MaxScore: c.MaxScore})
	}
	if total > 100 {
		total = 100
	}
	return &Result{
		TotalScore: total,
		Label:      model.ClassifyScore(total),
		Breakdown:  breakdown,
	}, nil
}

// ApplyTo scores lead and writes Score/QualificationLabel onto it,
// matching the orchestrator's scoring step (spec.md §4.6 step 4).
func (s *Scorer) ApplyTo(lead *model.Lead) error {
	result, err := s.Score(*lead)
	if err != nil {
		return err
	}
	lead.Score = result.TotalScore
	lead.QualificationLabel = result.Label
	return nil
}
