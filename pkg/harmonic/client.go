// Package harmonic is a client for the Harmonic company enrichment GraphQL
// API.
package harmonic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/merlin/internal/resilience"
)

const defaultEndpoint = "https://api.harmonic.ai/graphql"

var (
	// ErrNoAPIKey is returned when the client was built without a key.
	ErrNoAPIKey = eris.New("harmonic: api key is not set")
	// ErrEmptyDomain is returned for a blank lookup domain.
	ErrEmptyDomain = eris.New("harmonic: domain is empty")
	// ErrGraphQL wraps errors reported in the GraphQL "errors" array.
	ErrGraphQL = eris.New("harmonic: graphql error")
)

// Client enriches companies by website domain.
type Client interface {
	EnrichCompanyByDomain(ctx context.Context, domain string) (*Response, error)
}

// Response is the enrichCompanyByIdentifiers result. Company is kept raw so
// the mapper can walk it untyped and the snapshot can store it verbatim.
type Response struct {
	CompanyFound bool            `json:"companyFound"`
	Company      json.RawMessage `json:"company"`
}

// Found reports whether the vendor returned a company object.
func (r *Response) Found() bool {
	if r == nil || !r.CompanyFound {
		return false
	}
	c := bytes.TrimSpace(r.Company)
	return len(c) > 0 && !bytes.Equal(c, []byte("null"))
}

// Option configures the client.
type Option func(*httpClient)

// WithEndpoint overrides the GraphQL endpoint.
func WithEndpoint(url string) Option {
	return func(c *httpClient) {
		c.endpoint = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit paces requests to rps per second. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithBreaker installs a circuit breaker shared across calls.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *httpClient) {
		c.breaker = b
	}
}

type httpClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
	breaker  *resilience.Breaker
}

// NewClient creates a Harmonic client. Defaults: 30s timeout, 5 req/s,
// three attempts per lookup.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("harmonic", "enrich_company")

	c := &httpClient{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 1),
		retry:   retry,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data struct {
		Enrich *Response `json:"enrichCompanyByIdentifiers"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

func (c *httpClient) EnrichCompanyByDomain(ctx context.Context, domain string) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, ErrEmptyDomain
	}

	body, err := json.Marshal(graphqlRequest{
		Query: enrichCompanyMutation,
		Variables: map[string]any{
			"identifiers": map[string]string{"websiteDomain": domain},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "harmonic: marshal request")
	}

	call := func(ctx context.Context) (*Response, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Response, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "harmonic: rate limit wait")
			}
			return c.post(ctx, body)
		})
	}

	if c.breaker == nil {
		resp, err := call(ctx)
		return resp, wrapDomain(err, domain)
	}

	var resp *Response
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = call(ctx)
		return callErr
	})
	return resp, wrapDomain(err, domain)
}

func wrapDomain(err error, domain string) error {
	if err == nil {
		return nil
	}
	return eris.Wrapf(err, "harmonic: enrich %s", domain)
}

func (c *httpClient) post(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "harmonic: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "harmonic: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "harmonic: read response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := eris.Errorf("harmonic: unexpected status %d: %s", resp.StatusCode, truncate(respBody, 512))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var out graphqlResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "harmonic: unmarshal response")
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, eris.Wrap(ErrGraphQL, strings.Join(msgs, "; "))
	}
	if out.Data.Enrich == nil {
		return &Response{}, nil
	}
	return out.Data.Enrich, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
