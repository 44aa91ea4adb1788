package harmonic

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// PayloadStore persists vendor responses between runs. GetCachedPayload
// returns (nil, nil) on a miss or an expired entry.
type PayloadStore interface {
	GetCachedPayload(ctx context.Context, domain string) ([]byte, error)
	SetCachedPayload(ctx context.Context, domain string, data []byte, ttl time.Duration) error
}

// CachedClient memoizes responses per domain in memory and, optionally, in
// a PayloadStore. Not-found answers are cached too.
type CachedClient struct {
	inner  Client
	cache  *gocache.Cache
	store  PayloadStore
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// CacheOption configures a CachedClient.
type CacheOption func(*CachedClient)

// WithPayloadStore adds a persistent layer behind the in-memory cache.
func WithPayloadStore(s PayloadStore) CacheOption {
	return func(c *CachedClient) {
		c.store = s
	}
}

// NewCachedClient wraps inner with a cache whose entries live for ttl.
func NewCachedClient(inner Client, ttl time.Duration, opts ...CacheOption) *CachedClient {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c := &CachedClient{
		inner: inner,
		cache: gocache.New(ttl, ttl/2),
		ttl:   ttl,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// EnrichCompanyByDomain serves from cache when possible.
func (c *CachedClient) EnrichCompanyByDomain(ctx context.Context, domain string) (*Response, error) {
	key := strings.ToLower(strings.TrimSpace(domain))

	if v, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return copyResponse(v.(*Response)), nil
	}

	if c.store != nil && key != "" {
		if resp := c.loadStored(ctx, key); resp != nil {
			c.hits.Add(1)
			c.cache.SetDefault(key, resp)
			return copyResponse(resp), nil
		}
	}

	c.misses.Add(1)
	resp, err := c.inner.EnrichCompanyByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(key, copyResponse(resp))
	if c.store != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := c.store.SetCachedPayload(ctx, key, data, c.ttl); err != nil {
				zap.L().Warn("harmonic: persist cached payload failed",
					zap.String("domain", key), zap.Error(err))
			}
		}
	}
	return resp, nil
}

func (c *CachedClient) loadStored(ctx context.Context, key string) *Response {
	data, err := c.store.GetCachedPayload(ctx, key)
	if err != nil {
		zap.L().Warn("harmonic: read cached payload failed",
			zap.String("domain", key), zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		zap.L().Warn("harmonic: discard corrupt cached payload",
			zap.String("domain", key), zap.Error(err))
		return nil
	}
	return &resp
}

// Stats returns cache hit and miss counts since construction.
func (c *CachedClient) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func copyResponse(r *Response) *Response {
	out := &Response{CompanyFound: r.CompanyFound}
	if r.Company != nil {
		out.Company = append(json.RawMessage(nil), r.Company...)
	}
	return out
}
