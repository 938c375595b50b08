package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"githarvest/internal/interfaces"
	"githarvest/internal/pkg/limiter"
)

const (
	API_BASE        = "https://api.github.com"
	REQUEST_TIMEOUT = 30 * time.Second
	RETRY_COUNT     = 2

	// local request budget, applied before any request leaves the process
	BUDGET_KEY      = "github:budget"
	BUDGET_PER_HOUR = 4500
)

// RateLimitError reports an exhausted GitHub quota and how long to wait
// before the next attempt makes sense.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github rate limit exhausted, retry in %s", e.Wait)
}

type Profile struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicGists int    `json:"public_gists"`
}

type Repository struct {
	Name            string `json:"name"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	Fork            bool   `json:"fork"`
}

type searchResult struct {
	TotalCount int `json:"total_count"`
}

type Client struct {
	http    heimdall.Doer
	token   string
	limiter interfaces.Limiter

	mu        sync.Mutex
	remaining int
	resetAt   time.Time
}

func NewClient(token string, limiter interfaces.Limiter) *Client {
	retrier := heimdall.NewRetrier(heimdall.NewConstantBackoff(time.Second, 100*time.Millisecond))
	return &Client{
		http: httpclient.NewClient(
			httpclient.WithHTTPTimeout(REQUEST_TIMEOUT),
			httpclient.WithRetryCount(RETRY_COUNT),
			httpclient.WithRetrier(retrier),
		),
		token:     token,
		limiter:   limiter,
		remaining: -1,
	}
}

// Backoff returns how long callers should pause before issuing more
// requests, based on the last rate-limit headers seen. Zero means quota
// remains.
func (c *Client) Backoff() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining != 0 {
		return 0
	}
	return waitUntil(c.resetAt, time.Now())
}

func waitUntil(resetAt, now time.Time) time.Duration {
	wait := resetAt.Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

func waitFromReset(resetHeader string, now time.Time) time.Duration {
	epoch, err := strconv.ParseInt(resetHeader, 10, 64)
	if err != nil {
		return time.Minute
	}
	return waitUntil(time.Unix(epoch, 0), now)
}

func (c *Client) observeHeaders(h http.Header) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.remaining = remaining
	c.resetAt = time.Unix(reset, 0)
	c.mu.Unlock()
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	if c.limiter != nil {
		if err := c.limiter.Allow(ctx, BUDGET_KEY, redis_rate.PerHour(BUDGET_PER_HOUR)); err != nil {
			// an exhausted local budget is the same scheduling signal as an
			// exhausted upstream quota
			var budget *limiter.RateLimitedError
			if errors.As(err, &budget) {
				wait := budget.RetryAfter
				if wait <= 0 {
					wait = time.Minute
				}
				return &RateLimitError{Wait: wait}
			}
			return err
		}
	}

	endpoint := API_BASE + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	c.observeHeaders(res.Header)

	if res.StatusCode == http.StatusForbidden || res.StatusCode == http.StatusTooManyRequests {
		if res.Header.Get("X-RateLimit-Remaining") == "0" || res.StatusCode == http.StatusTooManyRequests {
			return &RateLimitError{Wait: waitFromReset(res.Header.Get("X-RateLimit-Reset"), time.Now())}
		}
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("github: GET %s: status %d: %s", path, res.StatusCode, body)
	}

	return json.NewDecoder(res.Body).Decode(target)
}

func (c *Client) Profile(ctx context.Context, login string) (*Profile, error) {
	var profile Profile
	if err := c.get(ctx, "/users/"+url.PathEscape(login), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Repositories pages through every repository owned by the user.
func (c *Client) Repositories(ctx context.Context, login string) ([]Repository, error) {
	var all []Repository
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("type", "owner")
		query.Set("per_page", "100")
		query.Set("page", strconv.Itoa(page))

		var batch []Repository
		if err := c.get(ctx, fmt.Sprintf("/users/%s/repos", url.PathEscape(login)), query, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < 100 {
			return all, nil
		}
	}
}

func (c *Client) search(ctx context.Context, path, q string) (int, error) {
	query := url.Values{}
	query.Set("q", q)
	query.Set("per_page", "1")

	var result searchResult
	if err := c.get(ctx, path, query, &result); err != nil {
		return 0, err
	}
	return result.TotalCount, nil
}

func (c *Client) CommitCount(ctx context.Context, login string) (int, error) {
	return c.search(ctx, "/search/commits", fmt.Sprintf("author:%s", login))
}

func (c *Client) PullRequestCount(ctx context.Context, login string) (int, error) {
	return c.search(ctx, "/search/issues", fmt.Sprintf("author:%s type:pr", login))
}

func (c *Client) IssueCount(ctx context.Context, login string) (int, error) {
	return c.search(ctx, "/search/issues", fmt.Sprintf("author:%s type:issue", login))
}
