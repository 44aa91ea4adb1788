package harmonic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/merlin/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func newTestClient(url string, opts ...Option) Client {
	base := []Option{WithEndpoint(url), WithRateLimit(0, 0), WithRetry(fastRetry())}
	return NewClient("test-key", append(base, opts...)...)
}

func TestEnrichCompanyByDomain(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantFound bool
	}{
		{
			name:      "found",
			status:    http.StatusOK,
			body:      `{"data":{"enrichCompanyByIdentifiers":{"companyFound":true,"company":{"entityUrn":"urn:1"}}}}`,
			wantFound: true,
		},
		{
			name:   "not found",
			status: http.StatusOK,
			body:   `{"data":{"enrichCompanyByIdentifiers":{"companyFound":false,"company":null}}}`,
		},
		{
			name:   "missing data",
			status: http.StatusOK,
			body:   `{"data":{}}`,
		},
		{
			name:    "graphql errors",
			status:  http.StatusOK,
			body:    `{"errors":[{"message":"bad identifiers"},{"message":"second"}]}`,
			wantErr: "bad identifiers; second",
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":"invalid key"}`,
			wantErr: "unexpected status 401",
		},
		{
			name:    "malformed",
			status:  http.StatusOK,
			body:    `{nope`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "test-key", r.Header.Get("apikey"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req graphqlRequest
				raw, _ := io.ReadAll(r.Body)
				assert.NoError(t, json.Unmarshal(raw, &req))
				assert.Contains(t, req.Query, "enrichCompanyByIdentifiers")
				ids, _ := req.Variables["identifiers"].(map[string]any)
				assert.Equal(t, "acme.io", ids["websiteDomain"])

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := newTestClient(srv.URL).EnrichCompanyByDomain(context.Background(), " acme.io ")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantFound, resp.Found())
		})
	}
}

func TestEnrichCompanyByDomain_GraphQLErrorSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"boom"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).EnrichCompanyByDomain(context.Background(), "acme.io")
	assert.True(t, eris.Is(err, ErrGraphQL))
}

func TestEnrichCompanyByDomain_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"enrichCompanyByIdentifiers":{"companyFound":true,"company":{}}}}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).EnrichCompanyByDomain(context.Background(), "acme.io")
	require.NoError(t, err)
	assert.True(t, resp.Found())
	assert.Equal(t, int32(3), calls.Load())
}

func TestEnrichCompanyByDomain_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).EnrichCompanyByDomain(context.Background(), "acme.io")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEnrichCompanyByDomain_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL,
		WithRetry(resilience.RetryConfig{MaxAttempts: 1}),
		WithBreaker(resilience.NewBreaker(2, time.Minute)),
	)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.EnrichCompanyByDomain(ctx, "acme.io")
		require.Error(t, err)
	}
	_, err := client.EnrichCompanyByDomain(ctx, "acme.io")
	assert.True(t, eris.Is(err, resilience.ErrCircuitOpen))
	assert.Equal(t, int32(2), calls.Load())
}

func TestEnrichCompanyByDomain_Validation(t *testing.T) {
	_, err := NewClient("").EnrichCompanyByDomain(context.Background(), "acme.io")
	assert.True(t, eris.Is(err, ErrNoAPIKey))

	_, err = NewClient("key").EnrichCompanyByDomain(context.Background(), "  ")
	assert.True(t, eris.Is(err, ErrEmptyDomain))
}

func TestResponse_Found(t *testing.T) {
	var nilResp *Response
	assert.False(t, nilResp.Found())
	assert.False(t, (&Response{CompanyFound: true}).Found())
	assert.False(t, (&Response{CompanyFound: true, Company: json.RawMessage("null")}).Found())
	assert.False(t, (&Response{CompanyFound: false, Company: json.RawMessage(`{}`)}).Found())
	assert.True(t, (&Response{CompanyFound: true, Company: json.RawMessage(`{}`)}).Found())
}
