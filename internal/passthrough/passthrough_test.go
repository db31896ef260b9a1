package passthrough

import (
	"errors"
	"testing"

	"github.com/tariffshield/harrier/internal/domain"
)

func TestImpactElectronics(t *testing.T) {
	m := NewModel()
	policy := domain.DefaultPolicyTable()
	tariff := &domain.TariffResult{
		Category:  domain.CategoryElectronics,
		TotalRate: 0.55,
	}

	impact, err := m.Impact(policy, tariff, 500)
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	if impact.NominalTariffAmount != 275 {
		t.Errorf("nominal = %v, want 275", impact.NominalTariffAmount)
	}
	// Electronics pass through 70% of the tariff.
	if impact.TariffYouPay != 192.50 {
		t.Errorf("tariffYouPay = %v, want 192.50", impact.TariffYouPay)
	}
	if impact.EstimatedPreTariffPrice != 307.50 {
		t.Errorf("preTariff = %v, want 307.50", impact.EstimatedPreTariffPrice)
	}
	if impact.TariffShareOfPrice != "38.5%" {
		t.Errorf("share = %q, want 38.5%%", impact.TariffShareOfPrice)
	}
}

func TestImpactUnknownCategoryUsesDefault(t *testing.T) {
	m := NewModel()
	policy := domain.DefaultPolicyTable()
	tariff := &domain.TariffResult{Category: "exotic", TotalRate: 0.10}

	impact, err := m.Impact(policy, tariff, 100)
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	if impact.PassthroughRate != policy.DefaultPassthrough {
		t.Errorf("rate = %v, want default %v", impact.PassthroughRate, policy.DefaultPassthrough)
	}
}

func TestImpactZeroPrice(t *testing.T) {
	m := NewModel()
	policy := domain.DefaultPolicyTable()
	tariff := &domain.TariffResult{Category: domain.CategoryToys, TotalRate: 0.175}

	impact, err := m.Impact(policy, tariff, 0)
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	if impact.TariffYouPay != 0 || impact.TariffShareOfPrice != "0.0%" {
		t.Errorf("zero price should yield zero impact, got %+v", impact)
	}
}

func TestImpactNegativePrice(t *testing.T) {
	m := NewModel()
	policy := domain.DefaultPolicyTable()
	tariff := &domain.TariffResult{Category: domain.CategoryToys, TotalRate: 0.1}

	if _, err := m.Impact(policy, tariff, -5); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
