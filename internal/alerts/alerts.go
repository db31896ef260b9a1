// Package alerts turns watch-rule results into a final alert decision.
// Rule scores live on different scales (rates, dollars, booleans), so
// aggregation works off the banded outcomes, not the raw scores.
package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tariffshield/harrier/internal/domain"
)

// Outcome contributions to the aggregate score.
const (
	failContribution   = 1.0
	reviewContribution = 0.5
)

// Processor aggregates rule results and produces an alert decision.
type Processor struct {
	// Threshold above which the subject is flagged
	AlertThreshold float64

	// Weight configuration for rule aggregation
	UseWeightedScoring bool
}

// NewProcessor creates a processor with default settings.
func NewProcessor() *Processor {
	return &Processor{
		AlertThreshold:     0.7,
		UseWeightedScoring: true,
	}
}

// DecisionInput contains all data needed for a decision.
type DecisionInput struct {
	TenantID    string
	SubjectID   string
	Kind        string // domain.AlertKindProduct or domain.AlertKindCart
	TraceID     string
	RuleResults []domain.RuleResult
	StartTime   time.Time
}

// Decision is the aggregated outcome for one subject.
type Decision struct {
	Alerted     bool                `json:"alerted"`
	Score       float64             `json:"score"`
	Reasons     []string            `json:"reasons,omitempty"`
	RuleResults []domain.RuleResult `json:"ruleResults"`
	DecisionMs  int64               `json:"decisionMs"`
	TotalMs     int64               `json:"totalMs"`
}

// Process evaluates rule results and produces a final decision.
// A single .fail outcome always alerts; otherwise the weighted
// triggered fraction is compared against the threshold.
func (p *Processor) Process(ctx context.Context, input *DecisionInput) *Decision {
	start := time.Now()

	agg := p.aggregate(input.RuleResults)

	decision := &Decision{
		Alerted:     agg.HasCriticalFailure || agg.AggregateScore >= p.AlertThreshold,
		Score:       agg.AggregateScore,
		Reasons:     Reasons(input.RuleResults),
		RuleResults: input.RuleResults,
	}
	decision.DecisionMs = time.Since(start).Milliseconds()
	if !input.StartTime.IsZero() {
		decision.TotalMs = time.Since(input.StartTime).Milliseconds()
	}
	return decision
}

// ToAlert materializes an alert record for a positive decision.
// Returns nil when the decision did not alert.
func (p *Processor) ToAlert(input *DecisionInput, decision *Decision) *domain.Alert {
	if !decision.Alerted {
		return nil
	}
	return &domain.Alert{
		ID:        uuid.New().String(),
		TenantID:  input.TenantID,
		SubjectID: input.SubjectID,
		Kind:      input.Kind,
		Score:     decision.Score,
		Reasons:   decision.Reasons,
		Timestamp: time.Now().UTC(),
	}
}

// AggregateResult holds the aggregated scoring results.
type AggregateResult struct {
	AggregateScore     float64
	TotalWeight        float64
	RulesTriggered     int
	HasCriticalFailure bool
}

// aggregate computes the weighted triggered fraction from rule results.
func (p *Processor) aggregate(results []domain.RuleResult) *AggregateResult {
	if len(results) == 0 {
		return &AggregateResult{}
	}

	agg := &AggregateResult{}

	for _, r := range results {
		weight := r.Weight
		if weight <= 0 || !p.UseWeightedScoring {
			weight = 1.0
		}

		var contribution float64
		switch r.SubRuleRef {
		case domain.RuleOutcomeFail:
			agg.HasCriticalFailure = true
			agg.RulesTriggered++
			contribution = failContribution
		case domain.RuleOutcomeReview:
			agg.RulesTriggered++
			contribution = reviewContribution
		}

		agg.AggregateScore += contribution * weight
		agg.TotalWeight += weight
	}

	// Normalize score
	if agg.TotalWeight > 0 {
		agg.AggregateScore = agg.AggregateScore / agg.TotalWeight
	}

	return agg
}

// Reasons extracts human-readable reasons from rule results.
func Reasons(results []domain.RuleResult) []string {
	var reasons []string
	for _, r := range results {
		if r.SubRuleRef == domain.RuleOutcomeFail || r.SubRuleRef == domain.RuleOutcomeReview {
			if r.Reason != "" {
				reasons = append(reasons, r.Reason)
			}
		}
	}
	return reasons
}
