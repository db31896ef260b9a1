package domain

import (
	"context"
)

// Classifier infers the trade identity of a product from its name.
// Implementations must always return a usable Classification, degrading
// to low confidence rather than failing on unknown products.
type Classifier interface {
	Classify(ctx context.Context, productName string) (*Classification, error)
}

// Searcher finds candidate alternative products for a query.
type Searcher interface {
	Search(ctx context.Context, req *SearchRequest) ([]CandidateProduct, error)
}

// TableProvider exposes the current HTS reference table snapshot.
// Lookups on a snapshot stay consistent across a reload.
type TableProvider interface {
	// Lookup resolves an HTS code, falling back to shorter prefixes.
	Lookup(code string) (*TariffCode, bool)

	// Size returns the number of loaded entries.
	Size() int

	// Version identifies the loaded snapshot.
	Version() string
}
