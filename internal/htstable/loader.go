package htstable

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tariffshield/harrier/internal/domain"
)

// Column headers recognized in HTS export CSVs. Matching is
// case-insensitive on substrings because the published files vary.
var (
	colCode        = []string{"hts number", "hts code", "htsno"}
	colDescription = []string{"description"}
	colGeneral     = []string{"general rate", "general"}
	colSpecial     = []string{"special rate", "special"}
)

// LoadFile reads an HTS CSV from disk and builds a Table. The file
// name becomes the snapshot version.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hts table: %w", err)
	}
	defer f.Close()
	return Load(f, path)
}

// Load parses an HTS CSV stream into a Table.
func Load(r io.Reader, version string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read hts header: %w", err)
	}
	idx := headerIndex(header)
	if idx.code < 0 {
		return nil, fmt.Errorf("hts table %s: no code column in header %v", version, header)
	}

	var entries []*domain.TariffCode
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read hts row: %w", err)
		}
		code := field(rec, idx.code)
		norm := Normalize(code)
		if len(norm) < 4 {
			// Chapter notes and blank separator rows.
			continue
		}
		raw := field(rec, idx.general)
		entries = append(entries, &domain.TariffCode{
			Code:              code,
			NormCode:          norm,
			Description:       field(rec, idx.description),
			MFNBaseRate:       ParseRate(raw),
			RawRateString:     raw,
			SpecialRateString: field(rec, idx.special),
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("hts table %s: no entries", version)
	}
	return New(version, entries), nil
}

type columnIndex struct {
	code, description, general, special int
}

func headerIndex(header []string) columnIndex {
	idx := columnIndex{code: -1, description: -1, general: -1, special: -1}
	find := func(names []string) int {
		for i, h := range header {
			lh := strings.ToLower(strings.TrimSpace(h))
			for _, n := range names {
				if strings.Contains(lh, n) {
					return i
				}
			}
		}
		return -1
	}
	idx.code = find(colCode)
	idx.description = find(colDescription)
	idx.general = find(colGeneral)
	idx.special = find(colSpecial)
	return idx
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
