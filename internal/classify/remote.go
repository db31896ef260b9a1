package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tariffshield/harrier/internal/domain"
)

// remoteTimeout bounds a single classification round-trip.
const remoteTimeout = 10 * time.Second

// Remote classifies product names against an external HTTP service.
// A structured failure from the service (it answered, but could not
// classify) surfaces as domain.ErrUnclassifiable so callers can fall
// back; transport and server errors wrap domain.ErrClassification.
type Remote struct {
	url    string
	apiKey string
	client *http.Client
}

// NewRemote wires a remote classifier. The URL is the full endpoint;
// the API key is sent as X-API-Key when set.
func NewRemote(url, apiKey string) *Remote {
	return &Remote{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: remoteTimeout},
	}
}

type remoteRequest struct {
	ProductName string `json:"productName"`
}

type remoteResponse struct {
	HTSCode         string `json:"htsCode"`
	CountryOfOrigin string `json:"countryOfOrigin"`
	Category        string `json:"category"`
	Confidence      string `json:"confidence"`
	Error           string `json:"error"`
}

// Classify implements domain.Classifier over the remote service.
func (r *Remote) Classify(ctx context.Context, productName string) (*domain.Classification, error) {
	body, err := json.Marshal(remoteRequest{ProductName: productName})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassification, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassification, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassification, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnclassifiable, productName)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: classifier returned status %d", domain.ErrClassification, resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassification, err)
	}
	if out.Error != "" || out.HTSCode == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnclassifiable, productName)
	}

	cl := &domain.Classification{
		HTSCode:         out.HTSCode,
		CountryOfOrigin: domain.NormalizeCountry(out.CountryOfOrigin),
		Category:        out.Category,
		Confidence:      out.Confidence,
	}
	if cl.Confidence == "" {
		cl.Confidence = domain.ConfidenceMedium
	}
	return cl, nil
}
