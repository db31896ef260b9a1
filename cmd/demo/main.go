// Demo tool that runs a basket of products through a live Harrier
// server and prints the tariff burden per item and for the whole cart.
//
// Usage:
//   go run cmd/demo/main.go [-url http://localhost:8080] [-csv products.csv]
//
// The CSV format is: name,price,quantity[,country[,htsCode]] with a
// header row. Without -csv a built-in demo basket is used.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/tariffshield/harrier/internal/domain"
)

type itemResult struct {
	item     domain.CartItem
	analysis *domain.ProductAnalysis
	err      error
}

func main() {
	csvPath := flag.String("csv", "", "Path to a product CSV (name,price,quantity[,country[,htsCode]])")
	baseURL := flag.String("url", "http://localhost:8080", "Harrier base URL")
	tenantID := flag.String("tenant", "demo", "Tenant ID for requests")
	workers := flag.Int("workers", 4, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print full layer breakdowns")
	flag.Parse()

	fmt.Println()
	fmt.Println("  Harrier Demo - what do tariffs cost you?")
	fmt.Printf("  Server: %s  Tenant: %s\n", *baseURL, *tenantID)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Harrier not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nStart the server first:")
		fmt.Println("  go run cmd/harrier/main.go")
		os.Exit(1)
	}

	items := demoBasket()
	if *csvPath != "" {
		loaded, err := readProductCSV(*csvPath)
		if err != nil {
			fmt.Printf("ERROR: failed to read CSV: %v\n", err)
			os.Exit(1)
		}
		items = loaded
	}
	fmt.Printf("Analyzing %d products with %d workers...\n\n", len(items), *workers)

	start := time.Now()
	results := analyzeItems(items, *baseURL, *tenantID, *workers)
	printItemResults(results, *verbose)

	cart, err := analyzeCart(items, *baseURL, *tenantID)
	if err != nil {
		fmt.Printf("ERROR: cart analysis failed: %v\n", err)
		os.Exit(1)
	}
	printCartResults(cart)

	fmt.Printf("Done in %v.\n\n", time.Since(start).Round(time.Millisecond))
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func demoBasket() []domain.CartItem {
	return []domain.CartItem{
		{Name: "55 inch 4K Smart TV", Price: 499.99},
		{Name: "Gaming laptop 15 inch", Price: 1099},
		{Name: "Wireless earbuds", Price: 129},
		{Name: "Cotton pullover sweater", Price: 49, Quantity: 2},
		{Name: "3-seat fabric sofa", Price: 649},
		{Name: "Front brake pads", Price: 65, Country: "DE"},
		{Name: "Stainless steel frying pan", Price: 45},
		{Name: "Building blocks set", Price: 35, Quantity: 3},
	}
}

func readProductCSV(path string) ([]domain.CartItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var items []domain.CartItem
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < 2 {
			continue // Skip malformed rows
		}

		price, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		item := domain.CartItem{Name: record[0], Price: price}
		if len(record) > 2 {
			item.Quantity, _ = strconv.Atoi(record[2])
		}
		if len(record) > 3 {
			item.Country = record[3]
		}
		if len(record) > 4 {
			item.HTSCode = record[4]
		}
		items = append(items, item)
	}
	return items, nil
}

func analyzeItems(items []domain.CartItem, baseURL, tenantID string, numWorkers int) []itemResult {
	results := make([]itemResult, len(items))

	work := make(chan int, len(items))
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 15 * time.Second}

			for idx := range work {
				item := items[idx]
				analysis, err := analyzeProduct(client, baseURL, tenantID, item)
				results[idx] = itemResult{item: item, analysis: analysis, err: err}
			}
		}()
	}

	for i := range items {
		work <- i
	}
	close(work)
	wg.Wait()

	return results
}

func analyzeProduct(client *http.Client, baseURL, tenantID string, item domain.CartItem) (*domain.ProductAnalysis, error) {
	req := domain.AnalyzeRequest{
		ProductName: item.Name,
		Price:       item.Price,
		HTSCode:     item.HTSCode,
		Country:     item.Country,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var analysis domain.ProductAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func analyzeCart(items []domain.CartItem, baseURL, tenantID string) (*domain.CartAnalysis, error) {
	body, err := json.Marshal(domain.CartRequest{Items: items})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/cart/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var analysis domain.CartAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func printItemResults(results []itemResult, verbose bool) {
	fmt.Println("PER-PRODUCT BREAKDOWN")
	fmt.Printf("  %-28s %-12s %-8s %8s %10s  %s\n",
		"Product", "HTS", "Origin", "Rate", "You Pay", "Best Swap")

	for _, r := range results {
		if r.err != nil {
			fmt.Printf("  %-28s ERROR: %v\n", truncate(r.item.Name, 28), r.err)
			continue
		}
		a := r.analysis

		swap := "-"
		if a.Verdict != nil && a.Verdict.Tier != domain.VerdictNone {
			swap = fmt.Sprintf("%s (save $%.2f)", a.Verdict.Tier, a.Verdict.BestSavings)
		}
		var youPay float64
		if a.Impact != nil {
			youPay = a.Impact.TariffYouPay
		}
		fmt.Printf("  %-28s %-12s %-8s %7.1f%% %10.2f  %s\n",
			truncate(a.ProductName, 28),
			a.Classification.HTSCode,
			a.Classification.CountryOfOrigin,
			a.Tariff.TotalRate*100,
			youPay,
			swap,
		)

		if verbose {
			for _, layer := range a.Tariff.Layers {
				marker := " "
				if layer.Applies {
					marker = "*"
				}
				fmt.Printf("      %s %-16s %6.1f%%  %s\n", marker, layer.Type, layer.Rate*100, layer.Rationale)
			}
		}
	}
	fmt.Println()
}

func printCartResults(cart *domain.CartAnalysis) {
	s := cart.Summary

	fmt.Println("CART SUMMARY")
	fmt.Printf("  Items analyzed:    %d / %d\n", s.AnalyzedItems, s.TotalItems)
	fmt.Printf("  Cart total:        $%.2f\n", s.CartTotal)
	fmt.Printf("  Tariff you pay:    $%.2f (%.1f%% effective)\n", s.TotalTariffYouPay, s.EffectiveRate*100)
	if s.HighestItem != "" {
		fmt.Printf("  Biggest hit:       %s ($%.2f)\n", s.HighestItem, s.HighestItemCost)
	}
	fmt.Println()

	if len(s.ByCategory) > 0 {
		fmt.Println("  By category:")
		for _, g := range s.ByCategory {
			fmt.Printf("    %-16s $%8.2f  (%d items)\n", g.Label, g.TariffYouPay, g.ItemCount)
		}
		fmt.Println()
	}
	if len(s.ByCountry) > 0 {
		fmt.Println("  By origin:")
		for _, g := range s.ByCountry {
			fmt.Printf("    %-16s $%8.2f  (%d items)\n", g.Label, g.TariffYouPay, g.ItemCount)
		}
		fmt.Println()
	}

	if len(cart.Swaps) > 0 {
		fmt.Println("  Suggested swaps:")
		for _, swap := range cart.Swaps {
			if len(swap.Alternatives) == 0 {
				continue
			}
			fmt.Printf("    %s -> %s: save about $%.2f\n",
				truncate(swap.ItemName, 28), truncate(swap.Alternatives[0].Title, 40), swap.PotentialSaved)
		}
		if s.PotentialSavings > 0 {
			fmt.Printf("    Potential savings across the cart: $%.2f\n", s.PotentialSavings)
		}
		fmt.Println()
	}

	fmt.Printf("  %s\n\n", cart.Headline)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
