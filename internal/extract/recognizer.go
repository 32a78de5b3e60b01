// Package extract turns article text into candidate entity names grouped by
// category.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/newslinker/internal/linker"
)

// Entity is one named-entity mention returned by a recognizer.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Recognizer runs named-entity recognition over text.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

var labelCategories = map[string]linker.Category{
	"PERSON":   linker.Person,
	"FACILITY": linker.Facility,
	"FAC":      linker.Facility,
	"ORG":      linker.Organization,
	"GPE":      linker.Location,
	"EVENT":    linker.Event,
}

// CategoryForLabel maps an NER label onto a catalog category.
func CategoryForLabel(label string) (linker.Category, bool) {
	c, ok := labelCategories[strings.ToUpper(strings.TrimSpace(label))]
	return c, ok
}

// HTTPRecognizer calls an external NER service. The service accepts
// {"text": ...} and answers {"entities": [{"text": ..., "label": ...}]}.
type HTTPRecognizer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRecognizer constructs a recognizer for endpoint.
func NewHTTPRecognizer(endpoint string, timeout time.Duration) (*HTTPRecognizer, error) {
	if endpoint == "" {
		return nil, errors.New("nlp endpoint is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRecognizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type recognizeRequest struct {
	Text string `json:"text"`
}

type recognizeResponse struct {
	Entities []Entity `json:"entities"`
}

// Recognize posts text to the service and returns the entities it found.
func (r *HTTPRecognizer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(recognizeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode nlp request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build nlp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call nlp service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nlp service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var out recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode nlp response: %w", err)
	}
	return out.Entities, nil
}
