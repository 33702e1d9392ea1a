// Package directory is the HTTP adapter for the Citizen Directory, the
// external identity store that supplies names and birth dates.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"civitas/internal/citizen/models"
	"civitas/internal/platform/metrics"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/circuit"
	"civitas/pkg/requestcontext"
)

const (
	defaultTimeout   = 3 * time.Second
	defaultCacheTTL  = 10 * time.Minute
	defaultCacheSize = 10_000
	maxResponseBytes = 64 << 10
	birthDateLayout  = "2006-01-02"
	requestIDHeader  = "X-Request-ID"
)

// Lookup outcomes reported to metrics.
const (
	outcomeHit      = "hit"
	outcomeMiss     = "miss"
	outcomeCache    = "cache"
	outcomeFallback = "fallback"
	outcomeError    = "error"
)

// Client looks citizens up over HTTP. Fresh entries are served from the
// cache. When the directory fails, stale entries are served instead and the
// circuit breaker keeps open-state lookups off the network while it can.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuit.Breaker
	cache   *Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithCache(cache *Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuit.New("citizen-directory")
	}
	if c.cache == nil {
		c.cache = NewCache(defaultCacheTTL, defaultCacheSize)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Lookup returns the directory entry for citizenID. Unknown citizens yield a
// not_found error; an unreachable directory with nothing cached yields
// unavailable, or timeout when ctx expired.
func (c *Client) Lookup(ctx context.Context, citizenID id.CitizenID) (*models.DirectoryEntry, error) {
	cached, fresh, ok := c.cache.Get(citizenID)
	if ok && fresh {
		c.metrics.IncDirectoryLookup(outcomeCache)
		return cached, nil
	}
	if ok && c.breaker.IsOpen() {
		c.metrics.IncDirectoryLookup(outcomeFallback)
		return cached, nil
	}

	entry, err := c.fetch(ctx, citizenID)
	switch {
	case err == nil:
		c.recordSuccess(ctx)
		c.cache.Save(entry)
		c.metrics.IncDirectoryLookup(outcomeHit)
		return entry, nil
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		c.recordSuccess(ctx)
		c.metrics.IncDirectoryLookup(outcomeMiss)
		return nil, err
	}

	_, change := c.breaker.RecordFailure()
	if change.Opened {
		c.logger.WarnContext(ctx, "citizen directory circuit opened", "breaker", c.breaker.Name(), "error", err)
	}
	if ok {
		c.metrics.IncDirectoryLookup(outcomeFallback)
		return cached, nil
	}
	c.metrics.IncDirectoryLookup(outcomeError)
	return nil, err
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "citizen directory circuit closed", "breaker", c.breaker.Name())
	}
}

func (c *Client) fetch(ctx context.Context, citizenID id.CitizenID) (*models.DirectoryEntry, error) {
	endpoint := c.baseURL + "/citizens/" + url.PathEscape(citizenID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build directory request")
	}
	req.Header.Set("Accept", "application/json")
	if rid := requestcontext.RequestID(ctx); rid != "" {
		req.Header.Set(requestIDHeader, rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "citizen directory timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "citizen directory unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read directory response")
	}
	return parseResponse(resp.StatusCode, body, citizenID)
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

type citizenResponse struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	BirthDate string `json:"birthDate"`
}

// parseResponse maps a directory reply to an entry. The birth date may be a
// plain date or an RFC 3339 timestamp; an unparseable date is dropped
// rather than failing the lookup.
func parseResponse(status int, body []byte, citizenID id.CitizenID) (*models.DirectoryEntry, error) {
	switch {
	case status == http.StatusNotFound:
		return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found in directory")
	case status != http.StatusOK:
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "citizen directory returned status %d", status)
	}

	var resp citizenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed directory response")
	}
	if resp.ID != "" && !strings.EqualFold(resp.ID, citizenID.String()) {
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "directory answered for citizen %s", resp.ID)
	}

	entry := &models.DirectoryEntry{CitizenID: citizenID, FullName: strings.TrimSpace(resp.FullName)}
	if resp.BirthDate != "" {
		if t, err := parseBirthDate(resp.BirthDate); err == nil {
			entry.BirthDate = &t
		}
	}
	return entry, nil
}

func parseBirthDate(s string) (time.Time, error) {
	if t, err := time.Parse(birthDateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
