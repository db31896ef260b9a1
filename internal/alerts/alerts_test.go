package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/tariffshield/harrier/internal/domain"
)

func TestProcessor(t *testing.T) {
	proc := NewProcessor()
	ctx := context.Background()

	t.Run("AllPass", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "analysis-001",
			Kind:      domain.AlertKindProduct,
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
				{RuleID: "rule-2", SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
				{RuleID: "rule-3", SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
			},
		}

		decision := proc.Process(ctx, input)

		if decision.Alerted {
			t.Error("all-pass results should not alert")
		}
		if decision.Score != 0 {
			t.Errorf("score = %v, want 0", decision.Score)
		}
		if proc.ToAlert(input, decision) != nil {
			t.Error("no alert record expected")
		}
	})

	t.Run("CriticalFailure", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "analysis-002",
			Kind:      domain.AlertKindProduct,
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
				{RuleID: "rule-2", SubRuleRef: domain.RuleOutcomeFail, Weight: 1.0, Reason: "effective rate at or above 40%"},
				{RuleID: "rule-3", SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
			},
		}

		decision := proc.Process(ctx, input)

		if !decision.Alerted {
			t.Error("critical failure must alert regardless of aggregate score")
		}
		if len(decision.Reasons) != 1 {
			t.Errorf("reasons = %v, want the failing rule's reason", decision.Reasons)
		}

		alert := proc.ToAlert(input, decision)
		if alert == nil {
			t.Fatal("expected alert record")
		}
		if alert.SubjectID != "analysis-002" || alert.Kind != domain.AlertKindProduct {
			t.Errorf("alert = %+v", alert)
		}
		if alert.ID == "" {
			t.Error("alert should carry a generated ID")
		}
	})

	t.Run("ReviewsAboveThreshold", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "cart-001",
			Kind:      domain.AlertKindCart,
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				{RuleID: "rule-1", SubRuleRef: domain.RuleOutcomeReview, Weight: 1.0, Reason: "a"},
				{RuleID: "rule-2", SubRuleRef: domain.RuleOutcomeReview, Weight: 1.0, Reason: "b"},
			},
		}

		decision := proc.Process(ctx, input)

		// Two reviews average to 0.5, below the 0.7 threshold.
		if decision.Alerted {
			t.Errorf("reviews alone should stay below threshold, score %v", decision.Score)
		}
		if decision.Score != 0.5 {
			t.Errorf("score = %v, want 0.5", decision.Score)
		}
	})

	t.Run("WeightedReviews", func(t *testing.T) {
		input := &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "cart-002",
			Kind:      domain.AlertKindCart,
			StartTime: time.Now(),
			RuleResults: []domain.RuleResult{
				// Heavy review against a light pass: 0.5*9 / 10 = 0.45
				{RuleID: "rule-1", SubRuleRef: domain.RuleOutcomeReview, Weight: 9.0},
				{RuleID: "rule-2", SubRuleRef: domain.RuleOutcomePass, Weight: 1.0},
			},
		}

		decision := proc.Process(ctx, input)
		if decision.Score != 0.45 {
			t.Errorf("score = %v, want 0.45", decision.Score)
		}
	})

	t.Run("EmptyResults", func(t *testing.T) {
		decision := proc.Process(ctx, &DecisionInput{
			TenantID:  "tenant-001",
			SubjectID: "analysis-003",
			StartTime: time.Now(),
		})
		if decision.Alerted || decision.Score != 0 {
			t.Errorf("empty input should not alert: %+v", decision)
		}
	})
}
