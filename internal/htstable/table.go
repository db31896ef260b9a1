// Package htstable loads the HTS reference table and resolves codes
// with hierarchical prefix fallback.
package htstable

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tariffshield/harrier/internal/domain"
)

// fallbackLengths are the normalized prefix lengths tried after an
// exact miss, broadest last. A hit at 6 or fewer digits is a broad
// match and should be treated as low confidence by callers.
var fallbackLengths = []int{10, 8, 6, 4}

// BroadMatchLen is the normalized length at or below which a prefix
// match no longer identifies a specific product line.
const BroadMatchLen = 6

// Table is an immutable snapshot of the loaded HTS entries.
// Build one with New and never mutate it afterwards; reloads swap in a
// whole new Table.
type Table struct {
	version string
	byNorm  map[string]*domain.TariffCode

	// sortedNorms supports deterministic prefix scans.
	sortedNorms []string
}

// New builds a Table from parsed entries. Duplicate codes keep the
// first entry with a non-empty rate string.
func New(version string, entries []*domain.TariffCode) *Table {
	byNorm := make(map[string]*domain.TariffCode, len(entries))
	for _, e := range entries {
		if e.NormCode == "" {
			e.NormCode = Normalize(e.Code)
		}
		if e.Chapter == "" && len(e.NormCode) >= 2 {
			e.Chapter = e.NormCode[:2]
		}
		existing, ok := byNorm[e.NormCode]
		if !ok || (existing.RawRateString == "" && e.RawRateString != "") {
			byNorm[e.NormCode] = e
		}
	}
	norms := make([]string, 0, len(byNorm))
	for n := range byNorm {
		norms = append(norms, n)
	}
	sort.Strings(norms)
	return &Table{version: version, byNorm: byNorm, sortedNorms: norms}
}

// Normalize strips dots, spaces and quotes from an HTS code.
func Normalize(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Size returns the number of distinct entries.
func (t *Table) Size() int { return len(t.byNorm) }

// Version identifies the loaded snapshot.
func (t *Table) Version() string { return t.version }

// Lookup resolves a code to an entry. Exact match first, then prefix
// fallback at 10, 8, 6 and 4 normalized digits. Among entries sharing
// a prefix, ones carrying a rate string win.
func (t *Table) Lookup(code string) (*domain.TariffCode, bool) {
	norm := Normalize(code)
	if norm == "" {
		return nil, false
	}
	if e, ok := t.byNorm[norm]; ok {
		return e, true
	}
	for _, l := range fallbackLengths {
		if len(norm) < l {
			continue
		}
		if e, ok := t.scanPrefix(norm[:l]); ok {
			return e, true
		}
	}
	return nil, false
}

// scanPrefix finds the best entry whose normalized code starts with
// prefix. Rated entries beat unrated ones; ties break on code order.
func (t *Table) scanPrefix(prefix string) (*domain.TariffCode, bool) {
	i := sort.SearchStrings(t.sortedNorms, prefix)
	var fallback *domain.TariffCode
	for ; i < len(t.sortedNorms); i++ {
		norm := t.sortedNorms[i]
		if !strings.HasPrefix(norm, prefix) {
			break
		}
		e := t.byNorm[norm]
		if e.RawRateString != "" {
			return e, true
		}
		if fallback == nil {
			fallback = e
		}
	}
	if fallback != nil {
		return fallback, true
	}
	return nil, false
}

// BroadMatch reports whether a resolved entry was reached through a
// broad prefix, given the code originally requested.
func BroadMatch(requested string, entry *domain.TariffCode) bool {
	norm := Normalize(requested)
	if entry == nil {
		return true
	}
	if entry.NormCode == norm {
		return false
	}
	common := 0
	for common < len(norm) && common < len(entry.NormCode) && norm[common] == entry.NormCode[common] {
		common++
	}
	return common <= BroadMatchLen
}

var pctPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// ParseRate converts a General Rate of Duty string to a fraction.
// "Free" and empty parse to zero. Compound rates keep the highest
// percentage component; specific duties (cents/kg) contribute nothing.
func ParseRate(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "free") {
		return 0
	}
	var max float64
	for _, m := range pctPattern.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}
	return max / 100
}

// SpecialRateFree reports whether a Special Rate of Duty string grants
// duty-free entry to the given origin.
func SpecialRateFree(special, country string) bool {
	if special == "" || country == "" {
		return false
	}
	if !strings.Contains(strings.ToLower(special), "free") {
		return false
	}
	return strings.Contains(strings.ToUpper(special), strings.ToUpper(country))
}
