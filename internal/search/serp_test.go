package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tariffshield/harrier/internal/cache"
	"github.com/tariffshield/harrier/internal/domain"
)

func serpServer(t *testing.T, hits *atomic.Int64, results map[string][]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		q := r.URL.Query().Get("q")
		json.NewEncoder(w).Encode(map[string]any{
			"shopping_results": results[q],
		})
	}))
}

func TestSerpSearch(t *testing.T) {
	srv := serpServer(t, nil, map[string][]map[string]any{
		"smart tv": {
			{"title": "Smart TV made in Vietnam", "source": "shopmart", "link": "https://x/1", "extracted_price": 430.0},
			{"title": "Smart TV value bundle", "source": "shopmart", "link": "https://x/2", "extracted_price": 480.0},
			{"title": "Smart TV sponsored listing", "source": "ads"},
		},
	})
	defer srv.Close()

	c := NewSerpClient(srv.URL, "key", nil, 0, 0)
	got, err := c.Search(context.Background(), &domain.SearchRequest{Query: "smart tv"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// The priceless sponsored listing is dropped.
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Country != "VN" {
		t.Errorf("explicit origin country = %q, want VN", got[0].Country)
	}
	// Unlabeled listings default to the dominant import origin.
	if got[1].Country != "CN" {
		t.Errorf("unlabeled country = %q, want CN", got[1].Country)
	}
	if got[0].Price != 430 || got[0].Source != "shopmart" || got[0].Link != "https://x/1" {
		t.Errorf("result fields = %+v", got[0])
	}
}

func TestSerpSearchMaxPrice(t *testing.T) {
	srv := serpServer(t, nil, map[string][]map[string]any{
		"smart tv": {
			{"title": "Budget TV", "extracted_price": 300.0},
			{"title": "Premium TV", "extracted_price": 900.0},
		},
	})
	defer srv.Close()

	c := NewSerpClient(srv.URL, "", nil, 0, 0)
	got, err := c.Search(context.Background(), &domain.SearchRequest{Query: "smart tv", MaxPrice: 500})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Budget TV" {
		t.Errorf("got %+v, want only the budget TV", got)
	}
}

func TestSerpSearchCaching(t *testing.T) {
	var hits atomic.Int64
	srv := serpServer(t, &hits, map[string][]map[string]any{
		"smart tv": {{"title": "Smart TV", "extracted_price": 400.0}},
	})
	defer srv.Close()

	c := NewSerpClient(srv.URL, "", cache.NewLRUCache(0), time.Minute, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.Search(ctx, &domain.SearchRequest{Query: "smart tv"})
		if err != nil {
			t.Fatalf("Search %d failed: %v", i, err)
		}
		if len(got) != 1 {
			t.Fatalf("Search %d returned %d results", i, len(got))
		}
	}
	if hits.Load() != 1 {
		t.Errorf("provider hit %d times, want 1 with caching", hits.Load())
	}
}

func TestSerpSearchQuota(t *testing.T) {
	srv := serpServer(t, nil, map[string][]map[string]any{
		"tv one": {{"title": "TV one", "extracted_price": 100.0}},
		"tv two": {{"title": "TV two", "extracted_price": 100.0}},
	})
	defer srv.Close()

	c := NewSerpClient(srv.URL, "", cache.NewLRUCache(0), time.Minute, 1)
	ctx := context.Background()

	if _, err := c.Search(ctx, &domain.SearchRequest{Query: "tv one"}); err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	_, err := c.Search(ctx, &domain.SearchRequest{Query: "tv two"})
	if !errors.Is(err, domain.ErrSearchFailed) {
		t.Errorf("err = %v, want ErrSearchFailed once the quota is spent", err)
	}

	// Cached queries keep working; they cost no provider call.
	if _, err := c.Search(ctx, &domain.SearchRequest{Query: "tv one"}); err != nil {
		t.Errorf("cached search failed: %v", err)
	}
}

func TestSerpSearchAlternatives(t *testing.T) {
	srv := serpServer(t, nil, map[string][]map[string]any{
		"smart tv made in USA": {
			{"title": "American Smart TV", "extracted_price": 520.0},
		},
		"smart tv made in Mexico": {
			{"title": "Smart TV made in Vietnam", "extracted_price": 430.0},
			{"title": "Smart TV border edition", "extracted_price": 450.0},
		},
		"smart tv made in Canada": {
			{"title": "Northern Smart TV", "extracted_price": 470.0},
		},
	})
	defer srv.Close()

	c := NewSerpClient(srv.URL, "", nil, 0, 0)
	got, err := c.SearchAlternatives(context.Background(), "smart tv", domain.CategoryElectronics, 10)
	if err != nil {
		t.Fatalf("SearchAlternatives failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d results, want 4", len(got))
	}

	// Unlabeled titles inherit the strategy origin; explicit labels win.
	wantCountries := map[string]string{
		"American Smart TV":        "US",
		"Smart TV made in Vietnam": "VN",
		"Smart TV border edition":  "MX",
		"Northern Smart TV":        "CA",
	}
	for _, p := range got {
		if want := wantCountries[p.Title]; p.Country != want {
			t.Errorf("%q country = %q, want %q", p.Title, p.Country, want)
		}
	}
}

func TestSerpSearchAlternativesLimit(t *testing.T) {
	srv := serpServer(t, nil, map[string][]map[string]any{
		"smart tv made in USA": {
			{"title": "TV A", "extracted_price": 100.0},
			{"title": "TV B", "extracted_price": 110.0},
		},
		"smart tv made in Mexico": {
			{"title": "TV C", "extracted_price": 120.0},
		},
	})
	defer srv.Close()

	c := NewSerpClient(srv.URL, "", nil, 0, 0)
	got, err := c.SearchAlternatives(context.Background(), "smart tv", "", 2)
	if err != nil {
		t.Fatalf("SearchAlternatives failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d results, want 2", len(got))
	}
}

func TestSerpSearchProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewSerpClient(srv.URL, "", nil, 0, 0)
	if _, err := c.Search(context.Background(), &domain.SearchRequest{Query: "tv"}); !errors.Is(err, domain.ErrSearchFailed) {
		t.Errorf("err = %v, want ErrSearchFailed", err)
	}
	if _, err := c.SearchAlternatives(context.Background(), "tv", "", 5); !errors.Is(err, domain.ErrSearchFailed) {
		t.Errorf("alternatives err = %v, want ErrSearchFailed", err)
	}
}
