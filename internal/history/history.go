// Package history tracks recorded purchases and their tariff burden.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tariffshield/harrier/internal/domain"
)

// Service records purchases and summarizes a user's tariff exposure
// over a time window.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a purchase history service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// Record persists a purchase derived from a finished analysis.
func (s *Service) Record(ctx context.Context, tenantID, userID string, analysis *domain.ProductAnalysis) (*domain.Purchase, error) {
	if tenantID == "" || userID == "" {
		return nil, fmt.Errorf("%w: tenantID and userID are required", domain.ErrInvalidInput)
	}
	if s.repo == nil {
		return nil, fmt.Errorf("no data source available")
	}

	purchase := &domain.Purchase{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		UserID:      userID,
		ProductName: analysis.ProductName,
		Category:    analysis.Classification.Category,
		Country:     analysis.Classification.CountryOfOrigin,
		Price:       analysis.Price,
		Timestamp:   time.Now().UTC(),
	}
	if analysis.Impact != nil {
		purchase.TariffYouPay = analysis.Impact.TariffYouPay
	}
	if err := s.repo.SavePurchase(ctx, tenantID, purchase); err != nil {
		return nil, fmt.Errorf("failed to save purchase: %w", err)
	}
	return purchase, nil
}

// Stats summarizes a user's purchases within a window.
type Stats struct {
	Count             int     `json:"count"`
	TotalSpend        float64 `json:"totalSpend"`
	TotalTariffYouPay float64 `json:"totalTariffYouPay"`

	// ByCategory sums consumer tariff per category.
	ByCategory map[string]float64 `json:"byCategory"`
}

// GetStats returns aggregate purchase stats for a user since the
// window start.
func (s *Service) GetStats(ctx context.Context, tenantID, userID string, window time.Duration) (*Stats, error) {
	if tenantID == "" || userID == "" {
		return nil, fmt.Errorf("%w: tenantID and userID are required", domain.ErrInvalidInput)
	}
	if s.repo == nil {
		return nil, fmt.Errorf("no data source available")
	}

	since := time.Now().Add(-window)
	purchases, err := s.repo.GetPurchasesSince(ctx, tenantID, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchases: %w", err)
	}

	stats := &Stats{ByCategory: make(map[string]float64)}
	for _, p := range purchases {
		stats.Count++
		stats.TotalSpend += p.Price
		stats.TotalTariffYouPay += p.TariffYouPay
		stats.ByCategory[p.Category] += p.TariffYouPay
	}
	stats.TotalSpend = domain.RoundCents(stats.TotalSpend)
	stats.TotalTariffYouPay = domain.RoundCents(stats.TotalTariffYouPay)
	return stats, nil
}

// CountAnalyses bumps and returns the user's analysis counter in the
// window. Backed by the cache; zero when no cache is wired.
func (s *Service) CountAnalyses(ctx context.Context, tenantID, userID string, window time.Duration) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.IncrementCounter(ctx, tenantID, "analyses:"+userID, window)
}
