package waterfall

import (
	"context"

	"go.uber.org/zap"

	"github.com/leadboost/leadpipe/internal/model"
)

// Acceptance thresholds per spec.md §4.2: each strategy's result is
// accepted only if its confidence clears the threshold; the LLM strategy
// alone is accepted unconditionally whenever it returns any data. These
// are the spec defaults; an operator can override them at startup via
// ThresholdConfig/LoadThresholdConfig.
const (
	heuristicAcceptThreshold = 0.7
	externalAcceptThreshold  = 0.6
)

// Executor walks the waterfall's ordered strategy chain — heuristic,
// external API, LLM — and stops at the first strategy whose result clears
// its acceptance threshold.
type Executor struct {
	heuristic  *Heuristic
	external   ExternalProvider
	llm        *LLM
	thresholds ThresholdConfig
}

// NewExecutor creates an Executor with the spec-default thresholds.
// external may be NoopExternalProvider{} and llm may have a nil client;
// both degrade to "no data" rather than an error.
func NewExecutor(heuristic *Heuristic, external ExternalProvider, llm *LLM) *Executor {
	return NewExecutorWithThresholds(heuristic, external, llm, DefaultThresholds())
}

// NewExecutorWithThresholds creates an Executor using thresholds loaded
// from operator configuration (see LoadThresholdConfig) instead of the
// compiled-in spec defaults.
func NewExecutorWithThresholds(heuristic *Heuristic, external ExternalProvider, llm *LLM, thresholds ThresholdConfig) *Executor {
	return &Executor{heuristic: heuristic, external: external, llm: llm, thresholds: thresholds}
}

// Run executes the waterfall for one lead's input, returning the accepted
// strategy's Result, or nil if every strategy yielded nothing — in which
// case the caller writes no enrichment fields and enrichment_confidence
// stays 0.
func (e *Executor) Run(ctx context.Context, in Input) *Result {
	if r := e.heuristic.Run(in); r.Success && r.Confidence > e.thresholds.HeuristicAccept {
		zap.L().Debug("waterfall: heuristic strategy accepted", zap.Float64("confidence", r.Confidence))
		return r
	}

	if e.external != nil {
		if r := runExternal(ctx, e.external, in); r.Success && r.Confidence > e.thresholds.ExternalAccept {
			zap.L().Debug("waterfall: external strategy accepted", zap.Float64("confidence", r.Confidence))
			return r
		}
	}

	if e.llm != nil {
		if r := e.llm.Run(ctx, in); r.Success {
			zap.L().Debug("waterfall: llm strategy accepted", zap.Float64("confidence", r.Confidence))
			return r
		}
	}

	return nil
}

// MergeInto applies a Result's Fields onto a Lead, matching the
// orchestrator's merge step. Empty/nil field values are left untouched on
// the Lead.
func (r *Result) MergeInto(lead *model.Lead) {
	if r == nil || !r.Success {
		return
	}
	if r.Fields.Industry != "" {
		lead.Industry = r.Fields.Industry
	}
	if r.Fields.Employees != "" {
		lead.Employees = r.Fields.Employees
	}
	if r.Fields.RevenueBand != "" {
		lead.RevenueBand = r.Fields.RevenueBand
	}
	if r.Fields.FoundedYear != nil {
		lead.FoundedYear = r.Fields.FoundedYear
	}
	if r.Fields.ContactName != "" {
		lead.ContactName = r.Fields.ContactName
	}
	if r.Fields.ContactTitle != "" {
		lead.ContactTitle = r.Fields.ContactTitle
	}
	lead.EnrichmentConfidence = r.Confidence
	lead.EnrichmentSource = r.Method
}
