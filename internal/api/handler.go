package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tariffshield/harrier/internal/dashboard"
	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/history"
	"github.com/tariffshield/harrier/internal/htstable"
	"github.com/tariffshield/harrier/internal/pipeline"
	"github.com/tariffshield/harrier/internal/repository"
	"github.com/tariffshield/harrier/internal/rules"
	"github.com/tariffshield/harrier/internal/tariff"
)

// GlobalTenantID is used for watch rules that apply to all tenants.
const GlobalTenantID = "*"

// Handler holds dependencies for API handlers.
type Handler struct {
	pipeline  *pipeline.Service
	repo      domain.Repository
	cache     domain.Cache
	engine    *rules.Engine
	tables    *htstable.Provider
	calc      *tariff.Calculator
	dashboard *dashboard.Service
	history   *history.Service
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(svc *pipeline.Service, repo domain.Repository, cache domain.Cache, engine *rules.Engine, tables *htstable.Provider, calc *tariff.Calculator, dash *dashboard.Service, hist *history.Service, version string) *Handler {
	return &Handler{
		pipeline:  svc,
		repo:      repo,
		cache:     cache,
		engine:    engine,
		tables:    tables,
		calc:      calc,
		dashboard: dash,
		history:   hist,
		version:   version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"version":      h.version,
		"tableVersion": h.tables.Version(),
		"tableSize":    h.tables.Size(),
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// Lookup handles POST /lookup: direct layered tariff for an HTS code,
// with the consumer price impact at the given price.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req domain.LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	res, err := h.pipeline.Lookup(ctx, tenantID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Analyze handles POST /analyze: full single-product analysis.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req domain.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	analysis, err := h.pipeline.Analyze(ctx, tenantID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	analysis.Metadata.TraceID = traceID

	// Record the purchase for the acting user, best effort.
	if userID := r.Header.Get(UserIDHeader); userID != "" && h.history != nil {
		if _, err := h.history.Record(ctx, tenantID, userID, analysis); err != nil {
			slog.Warn("failed to record purchase", "user_id", userID, "error", err)
		}
		if _, err := h.history.CountAnalyses(ctx, tenantID, userID, 30*24*time.Hour); err != nil {
			slog.Warn("failed to bump analysis counter", "user_id", userID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, analysis)
}

// Search handles POST /search: raw candidate product search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	results, err := h.pipeline.Search(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// Alternatives handles POST /alternatives: ranked substitutes for a
// baseline product.
func (h *Handler) Alternatives(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req domain.AlternativesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	ranked, verdict, err := h.pipeline.Alternatives(ctx, tenantID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alternatives": ranked,
		"verdict":      verdict,
		"count":        len(ranked),
	})
}

// AnalyzeCart handles POST /cart/analyze.
func (h *Handler) AnalyzeCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req domain.CartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	analysis, err := h.pipeline.AnalyzeCart(ctx, tenantID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	analysis.Metadata.TraceID = traceID
	writeJSON(w, http.StatusOK, analysis)
}

// DashboardRequest is the request body for POST /dashboard.
type DashboardRequest struct {
	UserID string `json:"userId"`
}

// Dashboard handles POST /dashboard: monthly rollup and annual
// projection for one user.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.dashboard == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "dashboard not available",
		})
		return
	}

	var req DashboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.UserID == "" {
		req.UserID = r.Header.Get(UserIDHeader)
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "userId is required",
		})
		return
	}

	report, err := h.dashboard.Build(ctx, tenantID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Categories handles GET /categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	type category struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	categories := make([]category, 0, len(domain.CategoryLabels))
	for id, label := range domain.CategoryLabels {
		categories = append(categories, category{ID: id, Label: label})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })

	writeJSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"count":      len(categories),
	})
}

// Policy handles GET /policy: the active policy snapshot.
func (h *Handler) Policy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.calc.Policy())
}

// ReloadTable handles POST /table/reload: re-reads the HTS reference
// CSV and swaps the snapshot.
func (h *Handler) ReloadTable(w http.ResponseWriter, r *http.Request) {
	if err := h.tables.Reload(); err != nil {
		slog.Error("table reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "table reload failed: " + err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "table reloaded",
		"version": h.tables.Version(),
		"size":    h.tables.Size(),
	})
}

// GetAnalysis handles GET /analyses/{id}.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	analysisID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	analysis, err := h.repo.GetAnalysis(ctx, tenantID, analysisID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "analysis not found",
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// GetCartAnalysis handles GET /carts/{id}.
func (h *Handler) GetCartAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	cartID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	analysis, err := h.repo.GetCartAnalysis(ctx, tenantID, cartID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "cart analysis not found",
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// ListWatchRules returns all watch rules loaded in the engine.
func (h *Handler) ListWatchRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": loaded,
		"count": len(loaded),
	})
}

// GetWatchRule retrieves a watch rule by ID from the loaded engine rules.
func (h *Handler) GetWatchRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "watch rule not found",
	})
}

// CreateWatchRuleRequest is the request body for creating a watch rule.
type CreateWatchRuleRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Expression  string            `json:"expression"`
	Bands       []domain.RuleBand `json:"bands"`
	Weight      float64           `json:"weight"`
	Enabled     bool              `json:"enabled"`
}

// CreateWatchRule creates a new watch rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /watch-rules/reload to hot-reload into the engine.
func (h *Handler) CreateWatchRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateWatchRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	ruleConfig := &domain.WatchRuleConfig{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Bands:       req.Bands,
		Weight:      req.Weight,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression by attempting to load
	if err := h.engine.LoadRule(ruleConfig); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveWatchRule(ctx, GlobalTenantID, ruleConfig); err != nil {
			slog.Error("failed to save watch rule", "id", ruleConfig.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save watch rule",
			})
			return
		}
	}

	slog.Info("watch rule created", "id", ruleConfig.ID, "name", ruleConfig.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":    ruleConfig,
		"message": "Watch rule created. Call POST /watch-rules/reload to apply changes.",
	})
}

// ReloadWatchRules reloads all watch rules from the database into the
// engine. This enables hot-reloading without server restart.
func (h *Handler) ReloadWatchRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListWatchRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list watch rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load watch rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload watch rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload watch rules: " + err.Error(),
		})
		return
	}

	slog.Info("watch rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "watch rules reloaded successfully",
		"count":   len(dbRules),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrClassification),
		errors.Is(err, domain.ErrUnclassifiable),
		errors.Is(err, domain.ErrSearchFailed):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
