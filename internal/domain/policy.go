package domain

import (
	"fmt"
)

// PolicyTable holds every policy-derived rate the calculator consults.
// It is configuration, not code: rates change with trade actions, so
// they load at startup and swap atomically on reload.
type PolicyTable struct {
	// Version labels the loaded snapshot, e.g. "2025-07".
	Version string `json:"version"`

	// CategoryChapters maps category identifiers to HTS chapters.
	CategoryChapters map[string][]string `json:"categoryChapters"`

	// Section301 maps HTS prefixes (chapter or heading) to additional
	// duty rates for targeted-origin goods. Longer prefixes win.
	Section301 map[string]float64 `json:"section301"`

	// Section301Countries lists origins subject to Section 301 duties.
	Section301Countries []string `json:"section301Countries"`

	// Section232Chapters lists chapters under national-security duties
	// regardless of origin.
	Section232Chapters []string `json:"section232Chapters"`

	// Section232Headings lists 4-digit headings also covered.
	Section232Headings []string `json:"section232Headings"`

	Section232Rate float64 `json:"section232Rate"`

	// IEEPARates maps origin country to an emergency-powers duty rate.
	IEEPARates map[string]float64 `json:"ieepaRates"`

	// Section122Rate is the balance-of-payments surcharge applied to
	// all origins except those exempted.
	Section122Rate    float64  `json:"section122Rate"`
	Section122Exempt  []string `json:"section122Exempt"`

	// USMCACountries get the MFN base zeroed.
	USMCACountries []string `json:"usmcaCountries"`

	// FTAPartners get the MFN base reduced by FTADiscount.
	FTAPartners []string `json:"ftaPartners"`
	FTADiscount float64  `json:"ftaDiscount"`

	// PassthroughRates maps category to the fraction of a tariff that
	// reaches the retail price. DefaultPassthrough covers unmapped
	// categories.
	PassthroughRates   map[string]float64 `json:"passthroughRates"`
	DefaultPassthrough float64            `json:"defaultPassthrough"`
}

// DefaultPolicyTable returns the built-in policy snapshot.
func DefaultPolicyTable() *PolicyTable {
	return &PolicyTable{
		Version: "2025-07",
		CategoryChapters: map[string][]string{
			CategoryElectronics:   {"84", "85"},
			CategoryFurniture:     {"94"},
			CategoryClothing:      {"61", "62", "63"},
			CategoryAutoParts:     {"87"},
			CategorySteelAluminum: {"72", "73", "76"},
			CategoryToys:          {"95"},
		},
		Section301: map[string]float64{
			"84": 0.25,
			"85": 0.25,
			"94": 0.25,
			"87": 0.25,
			"72": 0.25,
			"73": 0.25,
			"76": 0.25,
			"61": 0.075,
			"62": 0.075,
			"63": 0.075,
			"95": 0.075,
		},
		Section301Countries: []string{"CN"},
		Section232Chapters:  []string{"72", "73", "76"},
		Section232Headings:  []string{"8703", "8704"},
		Section232Rate:      0.25,
		IEEPARates: map[string]float64{
			"CN": 0.20,
		},
		Section122Rate:   0.10,
		Section122Exempt: []string{"US"},
		USMCACountries:   []string{"CA", "MX"},
		FTAPartners: []string{
			"AU", "BH", "CL", "CO", "KR", "MA",
			"OM", "PA", "PE", "SG", "IL", "JO",
		},
		FTADiscount: 0.5,
		PassthroughRates: map[string]float64{
			CategoryElectronics:   0.70,
			CategoryFurniture:     0.75,
			CategoryClothing:      0.85,
			CategoryAutoParts:     0.60,
			CategorySteelAluminum: 0.65,
			CategoryToys:          0.80,
			CategoryOther:         0.72,
		},
		DefaultPassthrough: 0.72,
	}
}

// Validate checks rate ranges before a table is installed.
func (p *PolicyTable) Validate() error {
	check := func(name string, rate float64) error {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%w: %s rate %.3f out of range [0,1]", ErrInvalidPolicy, name, rate)
		}
		return nil
	}
	for prefix, rate := range p.Section301 {
		if err := check("section301."+prefix, rate); err != nil {
			return err
		}
	}
	if err := check("section232", p.Section232Rate); err != nil {
		return err
	}
	for country, rate := range p.IEEPARates {
		if err := check("ieepa."+country, rate); err != nil {
			return err
		}
	}
	if err := check("section122", p.Section122Rate); err != nil {
		return err
	}
	if err := check("ftaDiscount", p.FTADiscount); err != nil {
		return err
	}
	for cat, rate := range p.PassthroughRates {
		if err := check("passthrough."+cat, rate); err != nil {
			return err
		}
	}
	return check("defaultPassthrough", p.DefaultPassthrough)
}

// PassthroughFor returns the pass-through rate for a category.
func (p *PolicyTable) PassthroughFor(category string) float64 {
	if rate, ok := p.PassthroughRates[category]; ok {
		return rate
	}
	return p.DefaultPassthrough
}

// CategoryForChapter resolves an HTS chapter to a category identifier.
func (p *PolicyTable) CategoryForChapter(chapter string) string {
	for cat, chapters := range p.CategoryChapters {
		for _, ch := range chapters {
			if ch == chapter {
				return cat
			}
		}
	}
	return CategoryOther
}
