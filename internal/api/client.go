// Package api implements the fetch client for the vendor listing API.
// Requests go through the shared rate limiter and the shared backoff policy;
// HTTP failures are classified into the fetch error taxonomy so the caller
// can tell retryable throttling from permanent rejection.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/xde719/pandaflow/internal/domain"
	"github.com/xde719/pandaflow/internal/logger"
	"github.com/xde719/pandaflow/internal/ratelimit"
	"github.com/xde719/pandaflow/internal/retry"
)

// Browser profiles rotated across requests. The upstream occasionally
// blocks a single profile with 403s; rotating mirrors what a pool of real
// clients looks like.
var userAgentProfiles = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:136.0) Gecko/20100101 Firefox/136.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36 Edg/134.0.0.0",
}

// Config holds fetch client settings.
type Config struct {
	BaseURL        string
	Headers        map[string]string
	PageSize       int
	AttemptTimeout time.Duration
}

// Page is one page of vendor records plus the cursor for the next page.
// An empty NextCursor means the listing is exhausted.
type Page struct {
	Vendors    []domain.VendorRecord
	NextCursor string
	FetchedAt  time.Time
}

// Client fetches paginated vendor listings for a city.
type Client struct {
	clients []*resty.Client
	next    atomic.Uint64
	cfg     Config
	limiter *ratelimit.Limiter
	policy  retry.Policy
}

// NewClient builds a client pool, one resty client per browser profile, all
// sharing the configured headers and per-attempt timeout.
func NewClient(cfg Config, limiter *ratelimit.Limiter, policy retry.Policy) *Client {
	clients := make([]*resty.Client, 0, len(userAgentProfiles))
	for _, ua := range userAgentProfiles {
		rc := resty.New()
		rc.SetHeader("User-Agent", ua)
		rc.SetHeaders(cfg.Headers)
		rc.SetTimeout(cfg.AttemptTimeout)
		clients = append(clients, rc)
	}
	return &Client{
		clients: clients,
		cfg:     cfg,
		limiter: limiter,
		policy:  policy,
	}
}

func (c *Client) nextClient() *resty.Client {
	n := c.next.Add(1)
	return c.clients[int(n-1)%len(c.clients)]
}

type listResponse struct {
	Data struct {
		Items          []domain.VendorRecord `json:"items"`
		NextCursor     string                `json:"next_cursor"`
		ReturnedCount  int                   `json:"returned_count"`
		AvailableCount int                   `json:"available_count"`
	} `json:"data"`
}

// FetchPage fetches one page of vendors for the city, retrying rate-limited
// and transient failures under the backoff policy. Each attempt holds a rate
// limiter permit for exactly the duration of the request, so retries waiting
// out a backoff delay do not occupy a concurrency slot. Returns the page,
// the number of attempts made, and the final error if the budget ran out.
func (c *Client) FetchPage(ctx context.Context, cityID, cursor string) (*Page, int, error) {
	var page *Page

	attempts, err := retry.Do(ctx, c.policy, fetchRetryable, func(ctx context.Context) error {
		permit, err := c.limiter.Acquire(ctx)
		if err != nil {
			return err
		}
		defer permit.Release()

		p, err := c.fetchOnce(ctx, cityID, cursor)
		if err != nil {
			logger.FromContext(ctx).WithFields(logger.Fields{
				"cursor": cursor,
			}).WithError(err).Warn("Vendor page fetch attempt failed")
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, attempts, err
	}
	return page, attempts, nil
}

func (c *Client) fetchOnce(ctx context.Context, cityID, cursor string) (*Page, error) {
	params := map[string]string{
		"city_id": cityID,
		"limit":   strconv.Itoa(c.cfg.PageSize),
	}
	if cursor != "" {
		params["cursor"] = cursor
	}

	resp, err := c.nextClient().R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.cfg.BaseURL + "/vendors")
	if err != nil {
		// Connection resets and attempt timeouts land here.
		return nil, &domain.FetchError{Kind: domain.FetchTransient, Err: err}
	}

	sc := resp.StatusCode()
	switch {
	case sc == 200:
	case sc == 429:
		return nil, &domain.FetchError{Kind: domain.FetchRateLimited, StatusCode: sc, Err: fmt.Errorf("upstream throttled request")}
	case sc >= 500:
		return nil, &domain.FetchError{Kind: domain.FetchTransient, StatusCode: sc, Err: fmt.Errorf("upstream server error")}
	default:
		return nil, &domain.FetchError{Kind: domain.FetchPermanent, StatusCode: sc, Err: fmt.Errorf("upstream rejected request")}
	}

	var lr listResponse
	if err := json.Unmarshal(resp.Body(), &lr); err != nil {
		// The upstream intermittently serves truncated bodies under load.
		return nil, &domain.FetchError{Kind: domain.FetchTransient, Err: fmt.Errorf("malformed response body: %w", err)}
	}

	return &Page{
		Vendors:    lr.Data.Items,
		NextCursor: lr.Data.NextCursor,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func fetchRetryable(err error) bool {
	if ferr, ok := err.(*domain.FetchError); ok {
		return ferr.Retryable()
	}
	return false
}
