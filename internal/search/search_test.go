package search

import (
	"context"
	"errors"
	"testing"

	"github.com/tariffshield/harrier/internal/domain"
)

func TestSearchMatchesTokens(t *testing.T) {
	s := NewCatalogSearcher()
	got, err := s.Search(context.Background(), &domain.SearchRequest{Query: "smart tv"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected matches for smart tv")
	}
	// Two-token matches outrank single-token matches.
	if got[0].Title != "55 inch 4K Smart TV (Made in Mexico)" && got[0].Title != "55 inch QLED Smart TV" {
		t.Errorf("unexpected top result %q", got[0].Title)
	}
}

func TestSearchMaxPrice(t *testing.T) {
	s := NewCatalogSearcher()
	got, err := s.Search(context.Background(), &domain.SearchRequest{Query: "laptop", MaxPrice: 800})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, p := range got {
		if p.Price > 800 {
			t.Errorf("result %q exceeds price cap: %v", p.Title, p.Price)
		}
	}
}

func TestSearchMaxResults(t *testing.T) {
	s := NewCatalogSearcher()
	got, err := s.Search(context.Background(), &domain.SearchRequest{Query: "made", MaxResults: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) > 2 {
		t.Errorf("got %d results, want at most 2", len(got))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := NewCatalogSearcher()
	if _, err := s.Search(context.Background(), &domain.SearchRequest{Query: " "}); !errors.Is(err, domain.ErrSearchFailed) {
		t.Errorf("err = %v, want ErrSearchFailed", err)
	}
}

func TestSearchCancelledContext(t *testing.T) {
	s := NewCatalogSearcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Search(ctx, &domain.SearchRequest{Query: "tv"}); err == nil {
		t.Error("expected context error")
	}
}

func TestSearchCustomCatalog(t *testing.T) {
	s := NewCatalogSearcherWith([]domain.CandidateProduct{
		{Title: "Widget", Price: 10, Country: "VN"},
	})
	got, err := s.Search(context.Background(), &domain.SearchRequest{Query: "widget"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Country != "VN" {
		t.Errorf("unexpected results %+v", got)
	}
}
