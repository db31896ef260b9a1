package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tariffshield/harrier/internal/classify"
	"github.com/tariffshield/harrier/internal/domain"
)

// serpTimeout bounds a single shopping-search round-trip.
const serpTimeout = 15 * time.Second

// serpCacheTenant namespaces cached search results; shopping results
// are not tenant data.
const serpCacheTenant = "*"

// quotaKey tracks daily request volume against the provider plan.
const quotaKey = "serp:quota"

// alternativeStrategies bias SearchAlternatives queries toward
// lower-tariff origins. Country is stamped on results whose titles
// carry no explicit origin of their own.
var alternativeStrategies = []struct {
	country string
	suffix  string
}{
	{"US", "made in USA"},
	{"MX", "made in Mexico"},
	{"CA", "made in Canada"},
}

// resultsPerStrategy caps how many shopping results each origin
// strategy contributes.
const resultsPerStrategy = 3

// SerpClient queries a shopping-results API. Implements
// domain.Searcher. Results are cached and daily volume is counted so
// a burst of carts cannot burn through the provider quota.
type SerpClient struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	cache      domain.Cache
	cacheTTL   time.Duration
	dailyQuota int64
}

// NewSerpClient wires a shopping-search client. The cache may be nil;
// result caching and quota tracking are then skipped.
func NewSerpClient(baseURL, apiKey string, cache domain.Cache, cacheTTL time.Duration, dailyQuota int64) *SerpClient {
	return &SerpClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: serpTimeout},
		cache:      cache,
		cacheTTL:   cacheTTL,
		dailyQuota: dailyQuota,
	}
}

type serpResponse struct {
	ShoppingResults []serpResult `json:"shopping_results"`
}

type serpResult struct {
	Title          string  `json:"title"`
	Source         string  `json:"source"`
	Link           string  `json:"link"`
	ExtractedPrice float64 `json:"extracted_price"`
}

// Search returns shopping results for the query. Implements
// domain.Searcher.
func (s *SerpClient) Search(ctx context.Context, req *domain.SearchRequest) ([]domain.CandidateProduct, error) {
	if req == nil || req.Query == "" {
		return nil, domain.ErrSearchFailed
	}

	found, err := s.search(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CandidateProduct, 0, len(found))
	for _, p := range found {
		if req.MaxPrice > 0 && p.Price > req.MaxPrice {
			continue
		}
		out = append(out, p)
	}
	limit := req.MaxResults
	if limit <= 0 || limit > DefaultMaxResults {
		limit = DefaultMaxResults
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SearchAlternatives runs one origin-biased query per strategy and
// merges the results, at most n total. Results whose titles name no
// origin inherit the strategy's country.
func (s *SerpClient) SearchAlternatives(ctx context.Context, productName, category string, n int) ([]domain.CandidateProduct, error) {
	if productName == "" {
		return nil, domain.ErrSearchFailed
	}
	if n <= 0 {
		n = DefaultMaxResults
	}

	var merged []domain.CandidateProduct
	var lastErr error
	for _, strategy := range alternativeStrategies {
		if len(merged) >= n {
			break
		}
		query := productName + " " + strategy.suffix
		found, err := s.search(ctx, query)
		if err != nil {
			slog.Warn("alternative search strategy failed", "query", query, "error", err)
			lastErr = err
			continue
		}
		if len(found) > resultsPerStrategy {
			found = found[:resultsPerStrategy]
		}
		for _, p := range found {
			if _, explicit := classify.DetectCountry(strings.ToLower(p.Title)); !explicit {
				p.Country = strategy.country
			}
			merged = append(merged, p)
			if len(merged) >= n {
				break
			}
		}
	}

	if len(merged) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return merged, nil
}

// search resolves one query via the cache, the quota counter and the
// provider, in that order.
func (s *SerpClient) search(ctx context.Context, query string) ([]domain.CandidateProduct, error) {
	cacheKey := "serp:" + query
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, serpCacheTenant, cacheKey); err == nil && raw != nil {
			var cached []domain.CandidateProduct
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	if err := s.checkQuota(ctx); err != nil {
		return nil, err
	}

	found, err := s.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(found); err == nil {
			_ = s.cache.Set(ctx, serpCacheTenant, cacheKey, raw, s.cacheTTL)
		}
	}
	return found, nil
}

func (s *SerpClient) checkQuota(ctx context.Context) error {
	if s.cache == nil || s.dailyQuota <= 0 {
		return nil
	}
	count, err := s.cache.IncrementCounter(ctx, serpCacheTenant, quotaKey, 24*time.Hour)
	if err != nil {
		// A broken counter should not take search down with it.
		slog.Warn("search quota counter failed", "error", err)
		return nil
	}
	if count > s.dailyQuota {
		return fmt.Errorf("%w: daily search quota of %d exhausted", domain.ErrSearchFailed, s.dailyQuota)
	}
	return nil
}

func (s *SerpClient) fetch(ctx context.Context, query string) ([]domain.CandidateProduct, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}
	q := u.Query()
	q.Set("q", query)
	if s.apiKey != "" {
		q.Set("api_key", s.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search provider returned status %d", domain.ErrSearchFailed, resp.StatusCode)
	}

	var out serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}

	found := make([]domain.CandidateProduct, 0, len(out.ShoppingResults))
	for _, r := range out.ShoppingResults {
		if r.Title == "" || r.ExtractedPrice <= 0 {
			continue
		}
		country, _ := classify.DetectCountry(strings.ToLower(r.Title))
		found = append(found, domain.CandidateProduct{
			Title:   r.Title,
			Price:   r.ExtractedPrice,
			Source:  r.Source,
			Link:    r.Link,
			Country: country,
		})
	}
	return found, nil
}
