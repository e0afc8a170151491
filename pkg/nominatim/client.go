// Package nominatim provides a reverse-geocoding client for the OpenStreetMap
// Nominatim API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the reverse-geocoding operations.
type Client interface {
	// ReverseGeocode resolves a latitude/longitude pair to a short street
	// address ("123 Main St, San Antonio").
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// reverseResponse is the subset of the Nominatim reverse payload we use.
type reverseResponse struct {
	Address struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
	} `json:"address"`
}

// Option configures the Nominatim client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent overrides the User-Agent header. Nominatim's usage policy
// requires an identifying agent.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithRateLimit overrides the request rate. The public API allows at most
// one request per second; only raise this against a self-hosted instance.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter

	mu    sync.Mutex
	cache map[string]string
}

// NewClient creates a reverse-geocoding client against the public
// Nominatim instance, rate-limited to its one-request-per-second policy.
// Results are cached in memory for the lifetime of the client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   "https://nominatim.openstreetmap.org",
		userAgent: "cps-delivery-cli/1.0",
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		cache:     map[string]string{},
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}

func (c *httpClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	key := cacheKey(lat, lon)

	c.mu.Lock()
	if addr, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return addr, nil
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "nominatim: rate limit wait")
	}

	reqURL := fmt.Sprintf("%s/reverse?format=json&lat=%f&lon=%f", c.baseURL, lat, lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "nominatim: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "nominatim: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "nominatim: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("nominatim: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result reverseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", eris.Wrap(err, "nominatim: unmarshal response")
	}

	addr := formatAddress(result)

	c.mu.Lock()
	c.cache[key] = addr
	c.mu.Unlock()

	return addr, nil
}

// formatAddress assembles "house road, city" from whichever parts the
// response carries, falling back through town and village for the locality.
func formatAddress(r reverseResponse) string {
	a := r.Address

	street := strings.TrimSpace(strings.Join(nonEmpty(a.HouseNumber, a.Road), " "))

	city := a.City
	if city == "" {
		city = a.Town
	}
	if city == "" {
		city = a.Village
	}

	switch {
	case street != "" && city != "":
		return street + ", " + city
	case street != "":
		return street
	case city != "":
		return city
	default:
		return "Address not found"
	}
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
