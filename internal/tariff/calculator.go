// Package tariff computes layered effective tariff rates for a
// classified product.
package tariff

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/htstable"
)

// Calculator stacks regulatory layers on top of the MFN base rate.
// It is a pure function over two read-only snapshots: the HTS table
// and the policy table. Safe for concurrent use.
type Calculator struct {
	tables *htstable.Provider
	policy atomic.Pointer[domain.PolicyTable]
}

// NewCalculator wires a calculator to a table provider and installs
// the policy snapshot.
func NewCalculator(tables *htstable.Provider, policy *domain.PolicyTable) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	c := &Calculator{tables: tables}
	c.policy.Store(policy)
	return c, nil
}

// Policy returns the current policy snapshot.
func (c *Calculator) Policy() *domain.PolicyTable {
	return c.policy.Load()
}

// SetPolicy validates and swaps in a new policy snapshot.
func (c *Calculator) SetPolicy(policy *domain.PolicyTable) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	c.policy.Store(policy)
	return nil
}

// Compute resolves the HTS code and evaluates every layer in order.
// All layers appear in the result, applying or not, so a caller can
// always explain the total.
func (c *Calculator) Compute(htsCode, country string, price float64) (*domain.TariffResult, error) {
	if price < 0 {
		return nil, fmt.Errorf("%w: price %.2f is negative", domain.ErrInvalidInput, price)
	}
	policy := c.policy.Load()
	cc := domain.NormalizeCountry(country)

	entry, found := c.tables.Lookup(htsCode)
	norm := htstable.Normalize(htsCode)
	lowConfidence := !found || htstable.BroadMatch(htsCode, entry)

	var (
		chapter     string
		heading     string
		mfn         float64
		rawRate     string
		special     string
		description string
	)
	if found {
		chapter = entry.Chapter
		mfn = entry.MFNBaseRate
		rawRate = entry.RawRateString
		special = entry.SpecialRateString
		description = entry.Description
		if len(entry.NormCode) >= 4 {
			heading = entry.NormCode[:4]
		}
	} else if len(norm) >= 2 {
		// Unknown code: policy layers still apply off the requested
		// chapter, with a zero MFN base.
		chapter = norm[:2]
		if len(norm) >= 4 {
			heading = norm[:4]
		}
		description = "Unclassified merchandise"
	}

	layers := []domain.TariffLayer{
		c.mfnLayer(mfn, rawRate, found),
		c.section301Layer(policy, cc, chapter, heading),
		c.section232Layer(policy, cc, chapter, heading),
		c.ieepaLayer(policy, cc),
		c.section122Layer(policy, cc),
		c.ftaLayer(policy, cc, mfn, special),
	}

	result := &domain.TariffResult{
		HTSCode:       htsCode,
		Country:       cc,
		CountryName:   domain.CountryName(cc),
		Category:      policy.CategoryForChapter(chapter),
		Description:   description,
		Layers:        layers,
		RawRateString: rawRate,
		LowConfidence: lowConfidence,
	}
	result.CategoryLabel = domain.CategoryLabel(result.Category)
	result.TotalRate = result.AppliedSum()
	result.TotalTariffAmount = domain.RoundCents(price * result.TotalRate)
	return result, nil
}

func (c *Calculator) mfnLayer(mfn float64, rawRate string, found bool) domain.TariffLayer {
	rationale := fmt.Sprintf("MFN base rate %s", rawRate)
	if rawRate == "" {
		rationale = "MFN base rate unavailable, assuming Free"
	}
	if !found {
		rationale = "HTS code not in table, assuming Free base rate"
	}
	return domain.TariffLayer{
		Type:      domain.LayerMFNBase,
		Rate:      mfn,
		Applies:   true,
		Rationale: rationale,
	}
}

// section301Layer checks the 4-digit heading before the 2-digit
// chapter so narrow carve-outs beat chapter-wide rates.
func (c *Calculator) section301Layer(policy *domain.PolicyTable, country, chapter, heading string) domain.TariffLayer {
	layer := domain.TariffLayer{Type: domain.LayerSection301}
	if !contains(policy.Section301Countries, country) {
		layer.Rationale = "Origin not subject to Section 301"
		return layer
	}
	if rate, ok := policy.Section301[heading]; ok {
		layer.Rate = rate
		layer.Applies = true
		layer.Rationale = fmt.Sprintf("Section 301 List rate for heading %s", heading)
		return layer
	}
	if rate, ok := policy.Section301[chapter]; ok {
		layer.Rate = rate
		layer.Applies = true
		layer.Rationale = fmt.Sprintf("Section 301 List rate for chapter %s", chapter)
		return layer
	}
	layer.Rationale = "Product group not covered by Section 301"
	return layer
}

func (c *Calculator) section232Layer(policy *domain.PolicyTable, country, chapter, heading string) domain.TariffLayer {
	layer := domain.TariffLayer{Type: domain.LayerSection232}
	if contains(policy.Section232Chapters, chapter) {
		layer.Rate = policy.Section232Rate
		layer.Applies = true
		layer.Rationale = "Section 232 steel/aluminum duty, all origins"
		return layer
	}
	if contains(policy.Section232Headings, heading) {
		layer.Rate = policy.Section232Rate
		layer.Applies = true
		layer.Rationale = "Section 232 automotive duty, all origins"
		return layer
	}
	layer.Rationale = "Not a Section 232 product group"
	return layer
}

func (c *Calculator) ieepaLayer(policy *domain.PolicyTable, country string) domain.TariffLayer {
	layer := domain.TariffLayer{Type: domain.LayerIEEPAFentanyl}
	if rate, ok := policy.IEEPARates[country]; ok {
		layer.Rate = rate
		layer.Applies = true
		layer.Rationale = fmt.Sprintf("IEEPA emergency duty on %s origin", domain.CountryName(country))
		return layer
	}
	layer.Rationale = "Origin not subject to IEEPA duties"
	return layer
}

func (c *Calculator) section122Layer(policy *domain.PolicyTable, country string) domain.TariffLayer {
	layer := domain.TariffLayer{Type: domain.LayerSection122}
	if contains(policy.Section122Exempt, country) {
		layer.Rationale = "Domestic goods exempt from Section 122"
		return layer
	}
	layer.Rate = policy.Section122Rate
	layer.Applies = true
	layer.Rationale = "Section 122 balance-of-payments surcharge, all imports"
	return layer
}

// ftaLayer offsets the MFN base for preferential-origin goods. The
// offset is a negative contribution so the base layer stays visible.
func (c *Calculator) ftaLayer(policy *domain.PolicyTable, country string, mfn float64, special string) domain.TariffLayer {
	layer := domain.TariffLayer{Type: domain.LayerFTAAdjustment}
	switch {
	case contains(policy.USMCACountries, country):
		layer.Rate = -mfn
		layer.Applies = true
		layer.Rationale = "USMCA originating goods enter duty-free"
	case htstable.SpecialRateFree(special, country):
		layer.Rate = -mfn
		layer.Applies = true
		layer.Rationale = fmt.Sprintf("Special rate program: Free for %s", country)
	case contains(policy.FTAPartners, country):
		layer.Rate = -mfn * policy.FTADiscount
		layer.Applies = true
		layer.Rationale = "FTA partner, reduced base rate (estimated)"
	default:
		layer.Rationale = "No preferential trade program"
	}
	return layer
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
