package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tariffshield/harrier/internal/alerts"
	"github.com/tariffshield/harrier/internal/alternatives"
	"github.com/tariffshield/harrier/internal/bus"
	"github.com/tariffshield/harrier/internal/cache"
	"github.com/tariffshield/harrier/internal/cart"
	"github.com/tariffshield/harrier/internal/classify"
	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/htstable"
	"github.com/tariffshield/harrier/internal/passthrough"
	"github.com/tariffshield/harrier/internal/rules"
	"github.com/tariffshield/harrier/internal/search"
	"github.com/tariffshield/harrier/internal/tariff"
)

func newTestService(t *testing.T) (*Service, *bus.ChannelBus, domain.Cache) {
	t.Helper()

	tables, err := htstable.NewProvider("")
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	calc, err := tariff.NewCalculator(tables, domain.DefaultPolicyTable())
	if err != nil {
		t.Fatalf("NewCalculator failed: %v", err)
	}

	classifier := classify.New()
	model := passthrough.NewModel()
	searcher := search.NewCatalogSearcherWith([]domain.CandidateProduct{
		{Title: "55 inch 4K Smart TV (Mexico assembled)", Price: 450, Country: "MX", Source: "catalog"},
		{Title: "55 inch 4K Smart TV (Vietnam)", Price: 470, Country: "VN", Source: "catalog"},
	})
	scorer := alternatives.NewScorer(calc)

	engine, err := rules.NewEngine(4)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	if err := engine.LoadRules(rules.BuiltinRules()); err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}

	cfg := domain.DefaultConfig().Engine
	lru := cache.NewLRUCache(100)
	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	analyzer, err := cart.NewAnalyzer(classifier, calc, model, searcher, scorer, lru, cfg, EngineVersion)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	svc, err := New(Deps{
		Classifier: classifier,
		Calculator: calc,
		Model:      model,
		Searcher:   searcher,
		Scorer:     scorer,
		Carts:      analyzer,
		Rules:      engine,
		Alerts:     alerts.NewProcessor(),
		Cache:      lru,
		Bus:        eventBus,
		Engine:     cfg,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return svc, eventBus, lru
}

func subscribe(t *testing.T, b *bus.ChannelBus, tenantID, topic string) <-chan *domain.Message {
	t.Helper()
	ch := make(chan *domain.Message, 10)
	_, err := b.Subscribe(context.Background(), tenantID, topic, func(ctx context.Context, msg *domain.Message) error {
		ch <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	return ch
}

func waitMsg(t *testing.T, ch <-chan *domain.Message, what string) *domain.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s", what)
		return nil
	}
}

func TestAnalyze(t *testing.T) {
	svc, eventBus, _ := newTestService(t)
	ctx := context.Background()

	analyzed := subscribe(t, eventBus, "tenant-001", domain.TopicProductAnalyzed)
	alerted := subscribe(t, eventBus, "tenant-001", domain.TopicAlert)

	analysis, err := svc.Analyze(ctx, "tenant-001", &domain.AnalyzeRequest{
		ProductName: "55 inch 4K Smart TV",
		Price:       500,
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.ID == "" || analysis.TenantID != "tenant-001" {
		t.Errorf("identity fields missing: %q %q", analysis.ID, analysis.TenantID)
	}
	if analysis.Classification.HTSCode != "8528.72.64" {
		t.Errorf("HTSCode = %q", analysis.Classification.HTSCode)
	}
	if math.Abs(analysis.Tariff.TotalRate-0.55) > 0.001 {
		t.Errorf("TotalRate = %v, want 0.55", analysis.Tariff.TotalRate)
	}
	if math.Abs(analysis.Impact.TariffYouPay-192.50) > 0.001 {
		t.Errorf("TariffYouPay = %v, want 192.50", analysis.Impact.TariffYouPay)
	}
	if analysis.Metadata.EngineVersion != EngineVersion {
		t.Errorf("EngineVersion = %q", analysis.Metadata.EngineVersion)
	}

	if len(analysis.Alternatives) == 0 {
		t.Fatal("expected alternatives")
	}
	if analysis.Alternatives[0].Country != "MX" {
		t.Errorf("best alternative country = %q, want MX", analysis.Alternatives[0].Country)
	}
	if analysis.Verdict == nil || analysis.Verdict.Tier == domain.VerdictNone {
		t.Errorf("verdict = %+v, want a graded tier", analysis.Verdict)
	}
	if analysis.Headline == "" {
		t.Error("expected a headline")
	}

	// 55% rate and $192.50 consumer tariff trip two fail rules.
	msg := waitMsg(t, analyzed, "product analyzed event")
	if msg.Topic != domain.TopicProductAnalyzed {
		t.Errorf("topic = %q", msg.Topic)
	}
	alertMsg := waitMsg(t, alerted, "alert event")
	if alertMsg.TenantID != "tenant-001" {
		t.Errorf("alert tenant = %q", alertMsg.TenantID)
	}
}

func TestAnalyzeNoAlertForLowRate(t *testing.T) {
	svc, eventBus, _ := newTestService(t)
	ctx := context.Background()

	alerted := subscribe(t, eventBus, "tenant-001", domain.TopicAlert)

	// German brake pads: 12.5% total, small consumer tariff.
	_, err := svc.Analyze(ctx, "tenant-001", &domain.AnalyzeRequest{
		ProductName: "German brake pads",
		Price:       80,
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	select {
	case msg := <-alerted:
		t.Errorf("unexpected alert: %s", string(msg.Payload))
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAnalyzeCachesClassification(t *testing.T) {
	svc, _, lru := newTestService(t)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, "tenant-001", &domain.AnalyzeRequest{
		ProductName: "Cotton sweater",
		Price:       50,
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	cached, err := lru.GetClassification(ctx, "tenant-001", "Cotton sweater")
	if err != nil {
		t.Fatalf("GetClassification failed: %v", err)
	}
	if cached == nil || cached.HTSCode != "6110.20.20" {
		t.Errorf("cached classification = %+v", cached)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		tenantID string
		req      *domain.AnalyzeRequest
	}{
		{"MissingTenant", "", &domain.AnalyzeRequest{ProductName: "TV", Price: 100}},
		{"NilRequest", "tenant-001", nil},
		{"NoNameOrCode", "tenant-001", &domain.AnalyzeRequest{Price: 100}},
		{"NegativePrice", "tenant-001", &domain.AnalyzeRequest{ProductName: "TV", Price: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Analyze(ctx, tc.tenantID, tc.req)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Lookup(ctx, "tenant-001", &domain.LookupRequest{
		HTSCode: "8528.72.64",
		Country: "MX",
		Price:   400,
	})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if res.Tariff == nil {
		t.Fatal("Tariff is nil")
	}
	if math.Abs(res.Tariff.TotalRate-0.10) > 0.001 {
		t.Errorf("TotalRate = %v, want 0.10", res.Tariff.TotalRate)
	}
	if res.Impact == nil {
		t.Fatal("Impact is nil")
	}
	if res.Impact.TariffYouPay <= 0 {
		t.Errorf("TariffYouPay = %v, want > 0", res.Impact.TariffYouPay)
	}

	_, err = svc.Lookup(ctx, "tenant-001", &domain.LookupRequest{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestAlternativesOperation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ranked, verdict, err := svc.Alternatives(ctx, "tenant-001", &domain.AlternativesRequest{
		ProductName: "55 inch 4K Smart TV",
		Price:       500,
	})
	if err != nil {
		t.Fatalf("Alternatives failed: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("got %d alternatives, want 2", len(ranked))
	}
	if ranked[0].Country != "MX" {
		t.Errorf("best country = %q, want MX", ranked[0].Country)
	}
	if verdict == nil || verdict.Tier == domain.VerdictNone {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestAnalyzeCartPublishes(t *testing.T) {
	svc, eventBus, _ := newTestService(t)
	ctx := context.Background()

	done := subscribe(t, eventBus, "tenant-001", domain.TopicCartAnalyzed)

	analysis, err := svc.AnalyzeCart(ctx, "tenant-001", &domain.CartRequest{
		Items: []domain.CartItem{
			{Name: "55 inch 4K Smart TV", Price: 500},
			{Name: "Cotton sweater", Price: 50},
		},
	})
	if err != nil {
		t.Fatalf("AnalyzeCart failed: %v", err)
	}
	if analysis.Summary.AnalyzedItems != 2 {
		t.Errorf("AnalyzedItems = %d, want 2", analysis.Summary.AnalyzedItems)
	}

	msg := waitMsg(t, done, "cart analyzed event")
	if msg.Topic != domain.TopicCartAnalyzed {
		t.Errorf("topic = %q", msg.Topic)
	}
}

// biasedSearcher serves origin-biased results and rejects plain
// queries, proving which path the pipeline took.
type biasedSearcher struct{}

func (biasedSearcher) Search(ctx context.Context, req *domain.SearchRequest) ([]domain.CandidateProduct, error) {
	return nil, domain.ErrSearchFailed
}

func (biasedSearcher) SearchAlternatives(ctx context.Context, productName, category string, n int) ([]domain.CandidateProduct, error) {
	return []domain.CandidateProduct{
		{Title: productName + " made in Mexico", Price: 450, Country: "MX", Source: "serp"},
	}, nil
}

func TestAlternativesPreferBiasedSearch(t *testing.T) {
	tables, err := htstable.NewProvider("")
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	calc, err := tariff.NewCalculator(tables, domain.DefaultPolicyTable())
	if err != nil {
		t.Fatalf("NewCalculator failed: %v", err)
	}

	svc, err := New(Deps{
		Classifier: classify.New(),
		Calculator: calc,
		Model:      passthrough.NewModel(),
		Searcher:   biasedSearcher{},
		Scorer:     alternatives.NewScorer(calc),
		Engine:     domain.DefaultConfig().Engine,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ranked, _, err := svc.Alternatives(context.Background(), "tenant-001", &domain.AlternativesRequest{
		ProductName: "55 inch 4K Smart TV",
		Price:       500,
	})
	if err != nil {
		t.Fatalf("Alternatives failed: %v", err)
	}
	if len(ranked) != 1 || ranked[0].Source != "serp" {
		t.Fatalf("ranked = %+v, want the origin-biased result", ranked)
	}
	if ranked[0].Country != "MX" {
		t.Errorf("country = %q, want MX", ranked[0].Country)
	}
}
