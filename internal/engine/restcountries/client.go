package restcountries

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rendis/geofind/internal/model"
)

const (
	DefaultBaseURL = "https://restcountries.com"

	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
	jitterFactor   = 0.5
	maxBodyBytes   = 8 << 20
)

// fields trims the payload to what a Country needs.
const fields = "name,capital,region,population,flags,latlng"

// StatusError is a non-200 answer other than 404.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type apiCountry struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Capital    []string `json:"capital"`
	Region     string   `json:"region"`
	Population int64    `json:"population"`
	Flags      struct {
		SVG string `json:"svg"`
		PNG string `json:"png"`
	} `json:"flags"`
	LatLng []float64 `json:"latlng"`
}

// statusBody is the object the API answers with instead of an array when
// nothing matches, sometimes under a 200.
type statusBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type Client struct {
	http    *http.Client
	baseURL string
	backoff time.Duration
	retries int
}

type Option func(*Client)

// WithHTTPClient replaces the fingerprinted HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBackoff sets the base delay between retries.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithRetries sets the number of attempts per lookup.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

func NewClient(baseURL, proxyURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		http: &http.Client{
			Transport: newTransport(proxyURL),
			Timeout:   timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		backoff: baseBackoff,
		retries: maxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchByName looks countries up by (partial) name. It returns
// model.ErrCountryNotFound when the API reports no match.
func (c *Client) SearchByName(ctx context.Context, name string) ([]model.Country, error) {
	reqURL := c.baseURL + "/v3.1/name/" + url.PathEscape(name) + "?fields=" + fields

	var lastErr error
	for attempt := range c.retries {
		body, err := c.doRequest(ctx, reqURL)
		if err == nil {
			return decodeCountries(body)
		}
		lastErr = err

		var se *StatusError
		if !errors.As(err, &se) || !se.Retryable() {
			return nil, err
		}
		if attempt == c.retries-1 {
			break
		}

		backoff := c.backoff * time.Duration(1<<uint(attempt))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		jitter := time.Duration(float64(backoff) * jitterFactor * rand.Float64())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff + jitter):
		}
	}

	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "geofind/0.1 (country lookup)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, model.ErrCountryNotFound
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

func decodeCountries(body []byte) ([]model.Country, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decoding response: empty body")
	}

	if trimmed[0] == '{' {
		var sb statusBody
		if err := json.Unmarshal(trimmed, &sb); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		if sb.Status == http.StatusNotFound {
			return nil, model.ErrCountryNotFound
		}
		return nil, fmt.Errorf("decoding response: unexpected object (status %d: %s)", sb.Status, sb.Message)
	}

	var raw []apiCountry
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	countries := make([]model.Country, 0, len(raw))
	for _, r := range raw {
		countries = append(countries, toModel(r))
	}
	return countries, nil
}

func toModel(r apiCountry) model.Country {
	c := model.Country{
		CommonName:   r.Name.Common,
		OfficialName: r.Name.Official,
		Capital:      strings.Join(r.Capital, ", "),
		Region:       r.Region,
		Population:   r.Population,
		FlagSVG:      r.Flags.SVG,
	}
	if c.Population < 0 {
		c.Population = 0
	}
	if len(r.LatLng) == 2 {
		c.LatLng = [2]float64{r.LatLng[0], r.LatLng[1]}
		c.HasCoords = true
	}
	return c
}
