// Harrier - Tariff computation and ranking engine.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tariffshield/harrier/internal/alerts"
	"github.com/tariffshield/harrier/internal/alternatives"
	"github.com/tariffshield/harrier/internal/api"
	"github.com/tariffshield/harrier/internal/bus"
	"github.com/tariffshield/harrier/internal/cache"
	"github.com/tariffshield/harrier/internal/cart"
	"github.com/tariffshield/harrier/internal/classify"
	"github.com/tariffshield/harrier/internal/config"
	"github.com/tariffshield/harrier/internal/dashboard"
	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/history"
	"github.com/tariffshield/harrier/internal/htstable"
	"github.com/tariffshield/harrier/internal/passthrough"
	"github.com/tariffshield/harrier/internal/pipeline"
	"github.com/tariffshield/harrier/internal/repository"
	"github.com/tariffshield/harrier/internal/rules"
	"github.com/tariffshield/harrier/internal/search"
	"github.com/tariffshield/harrier/internal/tariff"
	"github.com/tariffshield/harrier/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration first; the logger format depends on it.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize HTS reference table. An empty path loads the embedded
	// sample table.
	tables, err := htstable.NewProvider(cfg.Engine.TablePath)
	if err != nil {
		slog.Error("failed to load hts table", "path", cfg.Engine.TablePath, "error", err)
		os.Exit(1)
	}
	slog.Info("hts table loaded", "version", tables.Version(), "entries", tables.Size())

	// Initialize policy snapshot
	policy := domain.DefaultPolicyTable()
	if cfg.Engine.PolicyPath != "" {
		policy, err = tariff.LoadPolicyFile(cfg.Engine.PolicyPath)
		if err != nil {
			slog.Error("failed to load policy file", "path", cfg.Engine.PolicyPath, "error", err)
			os.Exit(1)
		}
	}
	calc, err := tariff.NewCalculator(tables, policy)
	if err != nil {
		slog.Error("failed to initialize calculator", "error", err)
		os.Exit(1)
	}
	slog.Info("tariff calculator initialized", "policy_version", policy.Version)

	// Initialize Watch Rule Engine
	engine, err := rules.NewEngine(cfg.Engine.MaxWorkers)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := loadWatchRules(ctx, cfg, repo, engine); err != nil {
		slog.Error("failed to load watch rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Core pipeline collaborators. Remote services are optional; the
	// built-in classifier and catalog cover the unconfigured case.
	var classifier domain.Classifier = classify.New()
	if cfg.Engine.ClassifierURL != "" {
		remote := classify.NewRemote(cfg.Engine.ClassifierURL, cfg.Engine.ClassifierAPIKey)
		classifier = classify.NewService(remote, classify.New())
		slog.Info("remote classifier enabled", "url", cfg.Engine.ClassifierURL)
	}
	model := passthrough.NewModel()
	var searcher domain.Searcher = search.NewCatalogSearcher()
	if cfg.Engine.SearchURL != "" {
		searcher = search.NewSerpClient(
			cfg.Engine.SearchURL,
			cfg.Engine.SearchAPIKey,
			cacheImpl,
			cfg.Engine.SearchCacheTTL,
			cfg.Engine.SearchDailyQuota,
		)
		slog.Info("shopping search enabled", "url", cfg.Engine.SearchURL, "daily_quota", cfg.Engine.SearchDailyQuota)
	}
	scorer := alternatives.NewScorer(calc)

	analyzer, err := cart.NewAnalyzer(classifier, calc, model, searcher, scorer, cacheImpl, cfg.Engine, Version)
	if err != nil {
		slog.Error("failed to initialize cart analyzer", "error", err)
		os.Exit(1)
	}

	svc, err := pipeline.New(pipeline.Deps{
		Classifier: classifier,
		Calculator: calc,
		Model:      model,
		Searcher:   searcher,
		Scorer:     scorer,
		Carts:      analyzer,
		Rules:      engine,
		Alerts:     alerts.NewProcessor(),
		Repository: repo,
		Cache:      cacheImpl,
		Bus:        busImpl,
		Engine:     cfg.Engine,
	})
	if err != nil {
		slog.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	slog.Info("analysis pipeline initialized")

	// Purchase history and dashboard
	hist := history.NewService(repo, cacheImpl)
	dash := dashboard.NewService(hist, cfg.Engine.NationalAvgAnnual)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("HARRIER_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, svc)

		var tenantIDs []string
		if envTenants := os.Getenv("HARRIER_TENANTS"); envTenants != "" {
			for _, id := range strings.Split(envTenants, ",") {
				if id = strings.TrimSpace(id); id != "" {
					tenantIDs = append(tenantIDs, id)
				}
			}
		}

		if err := asyncWorker.Start(worker.Config{TenantIDs: tenantIDs}); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, api.ServerDeps{
		Pipeline:  svc,
		Repo:      repo,
		Cache:     cacheImpl,
		Engine:    engine,
		Tables:    tables,
		Calc:      calc,
		Dashboard: dash,
		History:   hist,
		Version:   Version,
	})

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("harrier is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("harrier shutdown complete")
}

func setupLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// GlobalTenantID is used for watch rules that apply to all tenants.
const GlobalTenantID = "*"

// loadWatchRules seeds the engine. Precedence: a rules file when
// configured, otherwise the built-in set; database rules are loaded on
// top and can be managed via POST /watch-rules.
func loadWatchRules(ctx context.Context, cfg *domain.Config, repo domain.Repository, engine *rules.Engine) error {
	seed := rules.BuiltinRules()
	if cfg.Engine.RulesPath != "" {
		fileRules, err := rules.LoadRulesFile(cfg.Engine.RulesPath)
		if err != nil {
			return err
		}
		seed = fileRules
		slog.Info("loaded watch rules from file", "path", cfg.Engine.RulesPath, "count", len(fileRules))
	}
	if err := engine.LoadRules(seed); err != nil {
		return err
	}

	dbRules, err := repo.ListWatchRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list watch rules from database", "error", err)
		return nil
	}
	for _, rule := range dbRules {
		if err := engine.LoadRule(rule); err != nil {
			slog.Warn("skipping invalid stored rule", "id", rule.ID, "error", err)
		}
	}
	if len(dbRules) > 0 {
		slog.Info("loaded watch rules from database", "count", len(dbRules))
	}
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  Harrier - Tariff Computation & Ranking Engine")
	fmt.Println("  Know what you really pay.")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /lookup              - Layered tariff for an HTS code")
	fmt.Println("    POST /analyze             - Full single-product analysis")
	fmt.Println("    POST /search              - Alternative product search")
	fmt.Println("    POST /alternatives        - Ranked substitutes for a product")
	fmt.Println("    POST /cart/analyze        - Analyze a whole cart")
	fmt.Println("    POST /dashboard           - Monthly tariff dashboard")
	fmt.Println("    GET  /categories          - Product categories")
	fmt.Println("    GET  /policy              - Active policy snapshot")
	fmt.Println("    POST /table/reload        - Hot-reload the HTS table")
	fmt.Println("    GET  /analyses/{id}       - Stored analysis by ID")
	fmt.Println("    GET  /carts/{id}          - Stored cart analysis by ID")
	fmt.Println("    GET  /watch-rules         - List watch rules")
	fmt.Println("    POST /watch-rules         - Create a watch rule")
	fmt.Println("    POST /watch-rules/reload  - Hot-reload rules from database")
	fmt.Println("    GET  /health              - Health check")
	fmt.Println()
}
