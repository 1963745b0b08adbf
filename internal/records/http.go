package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPStore talks to the product record store over its JSON REST API.
type HTTPStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Store = (*HTTPStore)(nil)

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(s *HTTPStore) {
		if timeout > 0 {
			s.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewHTTPStore creates a client for baseURL. apiKey may be empty.
func NewHTTPStore(baseURL, apiKey string, opts ...HTTPOption) (*HTTPStore, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("records base url required")
	}
	store := &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Close is a no-op.
func (s *HTTPStore) Close() error { return nil }

// AssetRef fetches GET {base}/products/{key}.
func (s *HTTPStore) AssetRef(ctx context.Context, productKey string) (AssetRef, error) {
	key := strings.TrimSpace(productKey)
	if key == "" {
		return AssetRef{}, errors.New("product key must not be empty")
	}
	var ref AssetRef
	if err := s.do(ctx, http.MethodGet, "/products/"+url.PathEscape(key), nil, &ref); err != nil {
		if errors.Is(err, ErrNotFound) {
			return AssetRef{}, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return AssetRef{}, err
	}
	if ref.ProductKey == "" {
		ref.ProductKey = key
	}
	return ref, nil
}

// WriteCanonical sends PUT {base}/products/{key}/image.
func (s *HTTPStore) WriteCanonical(ctx context.Context, summary Summary) error {
	if err := summary.validate(); err != nil {
		return err
	}
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	path := "/products/" + url.PathEscape(strings.TrimSpace(summary.ProductKey)) + "/image"
	return s.do(ctx, http.MethodPut, path, body, nil)
}

// Categories fetches GET {base}/categories.
func (s *HTTPStore) Categories(ctx context.Context) ([]Category, error) {
	var payload struct {
		Categories []Category `json:"categories"`
	}
	if err := s.do(ctx, http.MethodGet, "/categories", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Categories, nil
}

func (s *HTTPStore) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return fmt.Errorf("%s %s (latency=%v): %w", method, path, latency, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case rejected(resp.StatusCode):
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned %d: %w: %s",
			method, path, resp.StatusCode, ErrRejected, strings.TrimSpace(string(snippet)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned %d (latency=%v): %s",
			method, path, resp.StatusCode, latency, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// rejected reports client errors that repeat on resend. Timeouts and rate
// limiting are left to the retry loop.
func rejected(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}
