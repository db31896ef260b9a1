package rules

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tariffshield/harrier/internal/domain"
)

func f(v float64) *float64 { return &v }

// BuiltinRules returns the default watch rules loaded when no rule
// file is configured.
func BuiltinRules() []*domain.WatchRuleConfig {
	return []*domain.WatchRuleConfig{
		{
			ID:          "rate-above-40pct",
			Name:        "High effective rate",
			Description: "Total effective rate at or above 40%",
			Version:     "1.0",
			Expression:  "total_rate",
			Bands: []domain.RuleBand{
				{UpperLimit: f(0.40), SubRuleRef: domain.RuleOutcomePass, Reason: "rate below threshold"},
				{LowerLimit: f(0.40), SubRuleRef: domain.RuleOutcomeFail, Reason: "effective rate at or above 40%"},
			},
			Weight:  1.0,
			Enabled: true,
		},
		{
			ID:          "big-ticket-tariff",
			Name:        "Heavy consumer tariff",
			Description: "Consumer pays more than $150 of tariff on one product",
			Version:     "1.0",
			Expression:  "tariff_you_pay",
			Bands: []domain.RuleBand{
				{UpperLimit: f(150), SubRuleRef: domain.RuleOutcomePass, Reason: "consumer tariff under $150"},
				{LowerLimit: f(150), SubRuleRef: domain.RuleOutcomeFail, Reason: "consumer tariff above $150"},
			},
			Weight:  0.8,
			Enabled: true,
		},
		{
			ID:          "low-confidence-big-ticket",
			Name:        "Low-confidence classification on expensive item",
			Description: "Classification was a guess and the price is high",
			Version:     "1.0",
			Expression:  "low_confidence && price > 200.0",
			Bands: []domain.RuleBand{
				{LowerLimit: f(1), SubRuleRef: domain.RuleOutcomeReview, Reason: "guessed classification on big-ticket item"},
			},
			Weight:  0.5,
			Enabled: true,
		},
		{
			ID:          "cart-partial-failure",
			Name:        "Cart items failed analysis",
			Description: "Some cart items could not be analyzed",
			Version:     "1.0",
			Expression:  "failed_items",
			Bands: []domain.RuleBand{
				{UpperLimit: f(1), SubRuleRef: domain.RuleOutcomePass, Reason: "all items analyzed"},
				{LowerLimit: f(1), SubRuleRef: domain.RuleOutcomeReview, Reason: "cart analyzed with failed items"},
			},
			Weight:  0.3,
			Enabled: true,
		},
	}
}

// LoadRulesFile reads watch-rule configurations from a JSON file.
func LoadRulesFile(path string) ([]*domain.WatchRuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var configs []*domain.WatchRuleConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return configs, nil
}
