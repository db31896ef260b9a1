// Package dashboard summarizes a user's recorded tariff exposure and
// projects it against the national household average.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/history"
)

// monthWindow is the lookback for the monthly rollup.
const monthWindow = 30 * 24 * time.Hour

// Service builds dashboard reports from purchase history.
type Service struct {
	history           *history.Service
	nationalAvgAnnual float64
}

// NewService wires the dashboard to purchase history. The national
// average comes from engine configuration.
func NewService(hist *history.Service, nationalAvgAnnual float64) *Service {
	if nationalAvgAnnual <= 0 {
		nationalAvgAnnual = 1300
	}
	return &Service{
		history:           hist,
		nationalAvgAnnual: nationalAvgAnnual,
	}
}

// CategoryShare is one category's slice of the monthly tariff cost.
type CategoryShare struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	TariffYouPay float64 `json:"tariffYouPay"`
	SharePct     float64 `json:"sharePct"`
}

// Report is the dashboard payload for one user.
type Report struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`

	PurchaseCount int     `json:"purchaseCount"`
	TotalSpend    float64 `json:"totalSpend"`

	MonthlyTariff    float64 `json:"monthlyTariff"`
	AnnualProjection float64 `json:"annualProjection"`

	NationalAvgAnnual float64 `json:"nationalAvgAnnual"`
	VsNationalPct     float64 `json:"vsNationalPct"`
	Comparison        string  `json:"comparison"`

	ByCategory []CategoryShare `json:"byCategory"`

	GeneratedAt time.Time `json:"generatedAt"`
}

// Build assembles the report over the last 30 days of purchases.
func (s *Service) Build(ctx context.Context, tenantID, userID string) (*Report, error) {
	stats, err := s.history.GetStats(ctx, tenantID, userID, monthWindow)
	if err != nil {
		return nil, err
	}

	report := &Report{
		TenantID:          tenantID,
		UserID:            userID,
		PurchaseCount:     stats.Count,
		TotalSpend:        stats.TotalSpend,
		MonthlyTariff:     stats.TotalTariffYouPay,
		AnnualProjection:  domain.RoundCents(stats.TotalTariffYouPay * 12),
		NationalAvgAnnual: s.nationalAvgAnnual,
		GeneratedAt:       time.Now().UTC(),
	}
	report.VsNationalPct = report.AnnualProjection / s.nationalAvgAnnual * 100
	report.Comparison = comparison(report.AnnualProjection, s.nationalAvgAnnual)
	report.ByCategory = categoryShares(stats)
	return report, nil
}

func categoryShares(stats *history.Stats) []CategoryShare {
	shares := make([]CategoryShare, 0, len(stats.ByCategory))
	for key, youPay := range stats.ByCategory {
		share := CategoryShare{
			Key:          key,
			Label:        domain.CategoryLabel(key),
			TariffYouPay: domain.RoundCents(youPay),
		}
		if stats.TotalTariffYouPay > 0 {
			share.SharePct = youPay / stats.TotalTariffYouPay * 100
		}
		shares = append(shares, share)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].TariffYouPay != shares[j].TariffYouPay {
			return shares[i].TariffYouPay > shares[j].TariffYouPay
		}
		return shares[i].Key < shares[j].Key
	})
	return shares
}

func comparison(annual, national float64) string {
	if annual <= 0 {
		return "No tariff costs recorded this month."
	}
	pct := annual / national * 100
	switch {
	case pct >= 150:
		return fmt.Sprintf("Your projected $%.0f/yr is well above the $%.0f national household average.", annual, national)
	case pct >= 90:
		return fmt.Sprintf("Your projected $%.0f/yr is close to the $%.0f national household average.", annual, national)
	default:
		return fmt.Sprintf("Your projected $%.0f/yr is below the $%.0f national household average.", annual, national)
	}
}
