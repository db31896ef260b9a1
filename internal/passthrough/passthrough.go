// Package passthrough models how much of a tariff reaches the retail
// price the consumer pays.
package passthrough

import (
	"fmt"

	"github.com/tariffshield/harrier/internal/domain"
)

// Model converts a nominal tariff into the consumer-borne share using
// per-category pass-through rates. Stateless and safe for concurrent
// use; rates come from the policy snapshot passed in.
type Model struct{}

// NewModel returns a pass-through model.
func NewModel() *Model {
	return &Model{}
}

// Impact computes the consumer price impact for a tariff result at a
// given retail price. The nominal tariff is assumed to already be
// reflected in the retail price, so the pre-tariff estimate backs the
// consumer share out of it.
func (m *Model) Impact(policy *domain.PolicyTable, tariff *domain.TariffResult, price float64) (*domain.PriceImpact, error) {
	if price < 0 {
		return nil, fmt.Errorf("%w: price %.2f is negative", domain.ErrInvalidInput, price)
	}
	rate := policy.PassthroughFor(tariff.Category)
	nominal := domain.RoundCents(price * tariff.TotalRate)
	youPay := domain.RoundCents(nominal * rate)

	impact := &domain.PriceImpact{
		RetailPrice:             price,
		NominalTariffAmount:     nominal,
		PassthroughRate:         rate,
		TariffYouPay:            youPay,
		EstimatedPreTariffPrice: domain.RoundCents(price - youPay),
		PassthroughNote:         note(tariff.Category, rate),
	}
	if price > 0 {
		impact.TariffShareOfPrice = fmt.Sprintf("%.1f%%", youPay/price*100)
	} else {
		impact.TariffShareOfPrice = "0.0%"
	}
	return impact, nil
}

func note(category string, rate float64) string {
	label := domain.CategoryLabel(category)
	return fmt.Sprintf("Importers pass roughly %.0f%% of %s tariffs through to retail prices.", rate*100, label)
}
