// Package search finds candidate alternative products. The catalog
// searcher serves a built-in cross-origin product set; a live shopping
// API can replace it behind the same interface.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/tariffshield/harrier/internal/domain"
)

// DefaultMaxResults caps a search when the request does not.
const DefaultMaxResults = 10

// CatalogSearcher matches queries against an in-memory catalog.
// Implements domain.Searcher. Safe for concurrent use; the catalog is
// immutable after construction.
type CatalogSearcher struct {
	catalog []domain.CandidateProduct
}

// NewCatalogSearcher returns a searcher over the built-in catalog.
func NewCatalogSearcher() *CatalogSearcher {
	return &CatalogSearcher{catalog: builtinCatalog}
}

// NewCatalogSearcherWith returns a searcher over the given products.
func NewCatalogSearcherWith(products []domain.CandidateProduct) *CatalogSearcher {
	return &CatalogSearcher{catalog: products}
}

// Search returns catalog entries matching the query tokens, most
// token hits first. Results are copies; callers may mutate them.
func (s *CatalogSearcher) Search(ctx context.Context, req *domain.SearchRequest) ([]domain.CandidateProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(req.Query))
	if query == "" {
		return nil, domain.ErrSearchFailed
	}
	tokens := strings.Fields(query)

	type scored struct {
		product domain.CandidateProduct
		hits    int
	}
	var matches []scored
	for _, p := range s.catalog {
		title := strings.ToLower(p.Title)
		hits := 0
		for _, tok := range tokens {
			if strings.Contains(title, tok) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		if req.MaxPrice > 0 && p.Price > req.MaxPrice {
			continue
		}
		matches = append(matches, scored{product: p, hits: hits})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].hits != matches[j].hits {
			return matches[i].hits > matches[j].hits
		}
		return matches[i].product.Price < matches[j].product.Price
	})

	limit := req.MaxResults
	if limit <= 0 || limit > DefaultMaxResults {
		limit = DefaultMaxResults
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]domain.CandidateProduct, len(matches))
	for i, m := range matches {
		out[i] = m.product
	}
	return out, nil
}
