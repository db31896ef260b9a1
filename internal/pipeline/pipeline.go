// Package pipeline orchestrates the full product analysis flow:
// classification, layered tariff computation, consumer impact,
// alternatives, watch rules and persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tariffshield/harrier/internal/alerts"
	"github.com/tariffshield/harrier/internal/alternatives"
	"github.com/tariffshield/harrier/internal/cart"
	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/passthrough"
	"github.com/tariffshield/harrier/internal/rules"
	"github.com/tariffshield/harrier/internal/tariff"
)

// EngineVersion tags every analysis with the pipeline revision that
// produced it.
const EngineVersion = "1.0.0"

// Deps lists the pipeline's collaborators. Classifier, Calculator and
// Model are required; everything else degrades gracefully when nil.
type Deps struct {
	Classifier domain.Classifier
	Calculator *tariff.Calculator
	Model      *passthrough.Model
	Searcher   domain.Searcher
	Scorer     *alternatives.Scorer
	Carts      *cart.Analyzer
	Rules      *rules.Engine
	Alerts     *alerts.Processor
	Repository domain.Repository
	Cache      domain.Cache
	Bus        domain.EventBus
	Engine     domain.EngineConfig
}

// Service runs analyses end to end.
type Service struct {
	deps Deps
}

// New validates dependencies and builds the pipeline service.
func New(deps Deps) (*Service, error) {
	if deps.Classifier == nil || deps.Calculator == nil || deps.Model == nil {
		return nil, fmt.Errorf("classifier, calculator and passthrough model are required")
	}
	if deps.Engine.MaxAlternatives <= 0 {
		deps.Engine.MaxAlternatives = 5
	}
	return &Service{deps: deps}, nil
}

// Lookup computes the layered tariff for an explicit HTS code and
// origin, plus the consumer price impact at the requested price.
func (s *Service) Lookup(ctx context.Context, tenantID string, req *domain.LookupRequest) (*domain.LookupResponse, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", domain.ErrInvalidInput)
	}
	if req == nil || req.HTSCode == "" {
		return nil, fmt.Errorf("%w: htsCode is required", domain.ErrInvalidInput)
	}
	res, err := s.deps.Calculator.Compute(req.HTSCode, req.Country, req.Price)
	if err != nil {
		return nil, err
	}
	impact, err := s.deps.Model.Impact(s.deps.Calculator.Policy(), res, req.Price)
	if err != nil {
		return nil, err
	}
	return &domain.LookupResponse{Tariff: res, Impact: impact}, nil
}

// Analyze runs the full pipeline for one product.
func (s *Service) Analyze(ctx context.Context, tenantID string, req *domain.AnalyzeRequest) (*domain.ProductAnalysis, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", domain.ErrInvalidInput)
	}
	if req == nil || (req.ProductName == "" && req.HTSCode == "") {
		return nil, fmt.Errorf("%w: productName or htsCode is required", domain.ErrInvalidInput)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price %.2f is negative", domain.ErrInvalidInput, req.Price)
	}

	start := time.Now()
	analysis := &domain.ProductAnalysis{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		ProductName: req.ProductName,
		Price:       req.Price,
		Timestamp:   time.Now().UTC(),
	}

	// Stage 1: classification
	classifyStart := time.Now()
	cl, err := s.classifyProduct(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	analysis.Classification = *cl
	analysis.Metadata.ClassifyMs = time.Since(classifyStart).Milliseconds()

	// Stage 2: layered tariff + consumer impact
	tariffStart := time.Now()
	res, err := s.deps.Calculator.Compute(cl.HTSCode, cl.CountryOfOrigin, req.Price)
	if err != nil {
		return nil, err
	}
	analysis.Tariff = res
	if analysis.Classification.Category == "" {
		analysis.Classification.Category = res.Category
	}

	impact, err := s.deps.Model.Impact(s.deps.Calculator.Policy(), res, req.Price)
	if err != nil {
		return nil, err
	}
	analysis.Impact = impact
	analysis.Metadata.TariffMs = time.Since(tariffStart).Milliseconds()

	// Stage 3: alternatives and verdict
	altStart := time.Now()
	ranked := s.rankAlternatives(ctx, req.ProductName, analysis.Classification.Category, alternatives.Baseline{
		HTSCode:      cl.HTSCode,
		Price:        req.Price,
		TariffRate:   res.TotalRate,
		TariffAmount: res.TotalTariffAmount,
		TariffYouPay: impact.TariffYouPay,
	})
	analysis.Alternatives = ranked
	var best *domain.CandidateProduct
	if len(ranked) > 0 {
		best = &ranked[0]
	}
	analysis.Verdict = alternatives.Verdict(best, alternatives.Baseline{
		HTSCode:      cl.HTSCode,
		Price:        req.Price,
		TariffRate:   res.TotalRate,
		TariffAmount: res.TotalTariffAmount,
	})
	analysis.Headline = alternatives.Headline(impact.TariffYouPay, req.Price)
	analysis.Metadata.AlternativesMs = time.Since(altStart).Milliseconds()

	analysis.Metadata.TotalMs = time.Since(start).Milliseconds()
	analysis.Metadata.EngineVersion = EngineVersion

	s.persistAnalysis(ctx, tenantID, analysis)
	s.evaluateWatch(ctx, tenantID, analysis.ID, domain.AlertKindProduct, &rules.EvaluateInput{
		TenantID:      tenantID,
		SubjectID:     analysis.ID,
		TotalRate:     res.TotalRate,
		TariffCost:    res.TotalTariffAmount,
		TariffYouPay:  impact.TariffYouPay,
		Price:         req.Price,
		Country:       cl.CountryOfOrigin,
		Category:      analysis.Classification.Category,
		HTSCode:       cl.HTSCode,
		LowConfidence: res.LowConfidence || cl.LowConfidence(),
	})
	s.publish(ctx, tenantID, domain.TopicProductAnalyzed, analysis)

	slog.Info("product analyzed",
		"tenant_id", tenantID,
		"analysis_id", analysis.ID,
		"product", req.ProductName,
		"total_rate", res.TotalRate,
		"tariff_you_pay", impact.TariffYouPay,
		"duration_ms", analysis.Metadata.TotalMs,
	)

	return analysis, nil
}

// AnalyzeCart delegates to the cart analyzer, then persists, evaluates
// watch rules over the rollup and publishes the result.
func (s *Service) AnalyzeCart(ctx context.Context, tenantID string, req *domain.CartRequest) (*domain.CartAnalysis, error) {
	if s.deps.Carts == nil {
		return nil, fmt.Errorf("cart analysis is not configured")
	}

	analysis, err := s.deps.Carts.Analyze(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	analysis.Metadata.EngineVersion = EngineVersion

	if s.deps.Repository != nil {
		if err := s.deps.Repository.SaveCartAnalysis(ctx, tenantID, analysis); err != nil {
			slog.Warn("failed to persist cart analysis", "cart_id", analysis.ID, "error", err)
		}
	}

	s.evaluateWatch(ctx, tenantID, analysis.ID, domain.AlertKindCart, &rules.EvaluateInput{
		TenantID:     tenantID,
		SubjectID:    analysis.ID,
		TotalRate:    analysis.Summary.EffectiveRate,
		TariffCost:   analysis.Summary.TotalTariffAmount,
		TariffYouPay: analysis.Summary.TotalTariffYouPay,
		Price:        analysis.Summary.CartTotal,
		CartTotal:    analysis.Summary.CartTotal,
		ItemCount:    analysis.Summary.TotalItems,
		FailedItems:  analysis.Summary.FailedItems,
	})
	s.publish(ctx, tenantID, domain.TopicCartAnalyzed, analysis)

	return analysis, nil
}

// Search proxies to the configured searcher.
func (s *Service) Search(ctx context.Context, req *domain.SearchRequest) ([]domain.CandidateProduct, error) {
	if s.deps.Searcher == nil {
		return nil, domain.ErrSearchFailed
	}
	return s.deps.Searcher.Search(ctx, req)
}

// Alternatives ranks substitutes for a baseline product without running
// the full analysis.
func (s *Service) Alternatives(ctx context.Context, tenantID string, req *domain.AlternativesRequest) ([]domain.CandidateProduct, *domain.SwapVerdict, error) {
	if tenantID == "" {
		return nil, nil, fmt.Errorf("%w: tenantID is required", domain.ErrInvalidInput)
	}
	if req == nil || (req.ProductName == "" && req.HTSCode == "") {
		return nil, nil, fmt.Errorf("%w: productName or htsCode is required", domain.ErrInvalidInput)
	}

	cl, err := s.classifyProduct(ctx, tenantID, &domain.AnalyzeRequest{
		ProductName: req.ProductName,
		Price:       req.Price,
		HTSCode:     req.HTSCode,
		Country:     req.Country,
	})
	if err != nil {
		return nil, nil, err
	}

	res, err := s.deps.Calculator.Compute(cl.HTSCode, cl.CountryOfOrigin, req.Price)
	if err != nil {
		return nil, nil, err
	}

	baseline := alternatives.Baseline{
		HTSCode:      cl.HTSCode,
		Price:        req.Price,
		TariffRate:   res.TotalRate,
		TariffAmount: res.TotalTariffAmount,
	}

	limit := req.MaxResults
	if limit <= 0 || limit > s.deps.Engine.MaxAlternatives {
		limit = s.deps.Engine.MaxAlternatives
	}

	category := cl.Category
	if category == "" {
		category = res.Category
	}
	ranked := s.rankAlternativesLimit(ctx, req.ProductName, category, baseline, limit)
	var best *domain.CandidateProduct
	if len(ranked) > 0 {
		best = &ranked[0]
	}
	return ranked, alternatives.Verdict(best, baseline), nil
}

// classifyProduct resolves a trade identity, honoring request overrides
// and the classification cache.
func (s *Service) classifyProduct(ctx context.Context, tenantID string, req *domain.AnalyzeRequest) (*domain.Classification, error) {
	if req.HTSCode != "" {
		return &domain.Classification{
			HTSCode:         req.HTSCode,
			CountryOfOrigin: domain.NormalizeCountry(req.Country),
			Confidence:      domain.ConfidenceHigh,
		}, nil
	}

	if s.deps.Cache != nil {
		if cached, err := s.deps.Cache.GetClassification(ctx, tenantID, req.ProductName); err == nil && cached != nil {
			return overrideCountry(cached, req.Country), nil
		}
	}

	cl, err := s.deps.Classifier.Classify(ctx, req.ProductName)
	if err != nil {
		return nil, err
	}

	if s.deps.Cache != nil {
		_ = s.deps.Cache.SetClassification(ctx, tenantID, req.ProductName, cl, s.deps.Engine.ClassifyCacheTTL)
	}
	return overrideCountry(cl, req.Country), nil
}

func overrideCountry(cl *domain.Classification, country string) *domain.Classification {
	if country == "" {
		return cl
	}
	out := *cl
	out.CountryOfOrigin = domain.NormalizeCountry(country)
	return &out
}

// alternativeSearcher is implemented by searchers that can run
// origin-biased queries for substitutes instead of a plain search.
type alternativeSearcher interface {
	SearchAlternatives(ctx context.Context, productName, category string, n int) ([]domain.CandidateProduct, error)
}

func (s *Service) rankAlternatives(ctx context.Context, query, category string, baseline alternatives.Baseline) []domain.CandidateProduct {
	return s.rankAlternativesLimit(ctx, query, category, baseline, s.deps.Engine.MaxAlternatives)
}

func (s *Service) rankAlternativesLimit(ctx context.Context, query, category string, baseline alternatives.Baseline, limit int) []domain.CandidateProduct {
	if s.deps.Searcher == nil || s.deps.Scorer == nil || query == "" {
		return nil
	}
	var found []domain.CandidateProduct
	var err error
	if alt, ok := s.deps.Searcher.(alternativeSearcher); ok {
		found, err = alt.SearchAlternatives(ctx, query, category, 0)
	} else {
		found, err = s.deps.Searcher.Search(ctx, &domain.SearchRequest{Query: query})
	}
	if err != nil {
		slog.Warn("alternative search failed", "query", query, "error", err)
		return nil
	}
	ranked, err := s.deps.Scorer.Rank(ctx, baseline, found, limit)
	if err != nil {
		slog.Warn("alternative ranking failed", "query", query, "error", err)
		return nil
	}
	return ranked
}

func (s *Service) persistAnalysis(ctx context.Context, tenantID string, analysis *domain.ProductAnalysis) {
	if s.deps.Repository == nil {
		return
	}
	if err := s.deps.Repository.SaveAnalysis(ctx, tenantID, analysis); err != nil {
		slog.Warn("failed to persist analysis", "analysis_id", analysis.ID, "error", err)
	}
}

// evaluateWatch runs the loaded watch rules over a finished analysis
// and raises an alert when the decision trips. Rule failures never fail
// the analysis.
func (s *Service) evaluateWatch(ctx context.Context, tenantID, subjectID, kind string, input *rules.EvaluateInput) {
	if s.deps.Rules == nil || s.deps.Alerts == nil {
		return
	}

	results, err := s.deps.Rules.EvaluateAll(ctx, input)
	if err != nil {
		slog.Warn("watch rule evaluation failed", "subject_id", subjectID, "error", err)
		return
	}
	if len(results) == 0 {
		return
	}

	decisionInput := &alerts.DecisionInput{
		TenantID:    tenantID,
		SubjectID:   subjectID,
		Kind:        kind,
		RuleResults: results,
		StartTime:   time.Now(),
	}
	decision := s.deps.Alerts.Process(ctx, decisionInput)
	if !decision.Alerted {
		return
	}

	alert := s.deps.Alerts.ToAlert(decisionInput, decision)
	slog.Warn("watch alert raised",
		"tenant_id", tenantID,
		"subject_id", subjectID,
		"kind", kind,
		"score", decision.Score,
		"reasons", decision.Reasons,
	)

	if s.deps.Repository != nil {
		if err := s.deps.Repository.SaveAlert(ctx, tenantID, alert); err != nil {
			slog.Warn("failed to persist alert", "alert_id", alert.ID, "error", err)
		}
	}
	s.publish(ctx, tenantID, domain.TopicAlert, alert)
}

// publish sends an event, best effort.
func (s *Service) publish(ctx context.Context, tenantID, topic string, payload any) {
	if s.deps.Bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "error", err)
		return
	}
	if err := s.deps.Bus.Publish(ctx, tenantID, topic, data); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
}
