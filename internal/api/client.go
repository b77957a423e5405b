// Package api is the remote gateway to the dashboard backend. It issues
// HTTP requests, normalizes {detail} error bodies into typed failures, and
// tags every request with an ID for correlation in the session log.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"signalboard/internal/domain"
	"signalboard/internal/util"
)

// Client provides typed access to the dashboard backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default 30s HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimiter caps the outbound request rate. A nil limiter disables
// the cap.
func WithRateLimiter(rl *util.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a backend API client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ---------------------------------------------------------------------------
// Symbols and search
// ---------------------------------------------------------------------------

// ListStocks retrieves the full tradable-symbol universe.
func (c *Client) ListStocks(ctx context.Context) ([]domain.Stock, error) {
	var stocks []domain.Stock
	if err := c.get(ctx, "/api/stocks", nil, &stocks); err != nil {
		return nil, fmt.Errorf("listing stocks: %w", err)
	}
	return stocks, nil
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []domain.Stock `json:"results"`
}

// SearchStocks searches the backend by symbol or name.
func (c *Client) SearchStocks(ctx context.Context, query string, limit int) ([]domain.Stock, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	var resp searchResponse
	if err := c.get(ctx, "/api/stocks/search", q, &resp); err != nil {
		return nil, fmt.Errorf("searching stocks: %w", err)
	}
	return resp.Results, nil
}

// ---------------------------------------------------------------------------
// Watchlist
// ---------------------------------------------------------------------------

type watchlistResponse struct {
	Stocks []domain.Stock `json:"stocks"`
}

// GetWatchlist retrieves the server-side watchlist membership.
func (c *Client) GetWatchlist(ctx context.Context) ([]domain.Stock, error) {
	var resp watchlistResponse
	if err := c.get(ctx, "/api/watchlist", nil, &resp); err != nil {
		return nil, fmt.Errorf("getting watchlist: %w", err)
	}
	return resp.Stocks, nil
}

// AddToWatchlist adds a symbol to the server-side watchlist.
func (c *Client) AddToWatchlist(ctx context.Context, symbol string) error {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return ErrEmptySymbol
	}
	body := map[string]string{"symbol": symbol}
	if err := c.do(ctx, http.MethodPost, "/api/watchlist", nil, body, nil); err != nil {
		return fmt.Errorf("adding %s to watchlist: %w", symbol, err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from the server-side watchlist.
func (c *Client) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return ErrEmptySymbol
	}
	if err := c.do(ctx, http.MethodDelete, "/api/watchlist/"+url.PathEscape(symbol), nil, nil, nil); err != nil {
		return fmt.Errorf("removing %s from watchlist: %w", symbol, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Section refreshes
// ---------------------------------------------------------------------------

type signalsResponse struct {
	Signals []domain.Signal `json:"signals"`
}

// GetLiveSignals retrieves live trading signals for the signals section.
func (c *Client) GetLiveSignals(ctx context.Context) ([]domain.Signal, error) {
	var resp signalsResponse
	if err := c.get(ctx, "/api/signals/live", nil, &resp); err != nil {
		return nil, fmt.Errorf("getting live signals: %w", err)
	}
	return resp.Signals, nil
}

type newsResponse struct {
	News []domain.NewsItem `json:"news"`
}

// GetNews retrieves recent news for the news section.
func (c *Client) GetNews(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var resp newsResponse
	if err := c.get(ctx, "/api/news", q, &resp); err != nil {
		return nil, fmt.Errorf("getting news: %w", err)
	}
	return resp.News, nil
}

type recommendationsResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// GetRecommendations retrieves generated picks for the recommendations section.
func (c *Client) GetRecommendations(ctx context.Context) ([]domain.Recommendation, error) {
	var resp recommendationsResponse
	if err := c.get(ctx, "/api/recommendations", nil, &resp); err != nil {
		return nil, fmt.Errorf("getting recommendations: %w", err)
	}
	return resp.Recommendations, nil
}

// GetMarketOverview retrieves index levels and breadth for the market section.
func (c *Client) GetMarketOverview(ctx context.Context) (*domain.MarketOverview, error) {
	var overview domain.MarketOverview
	if err := c.get(ctx, "/api/market/overview", nil, &overview); err != nil {
		return nil, fmt.Errorf("getting market overview: %w", err)
	}
	return &overview, nil
}

// GetDashboardStats retrieves the headline counters for the stats section.
func (c *Client) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	var stats domain.DashboardStats
	if err := c.get(ctx, "/api/dashboard/stats", nil, &stats); err != nil {
		return nil, fmt.Errorf("getting dashboard stats: %w", err)
	}
	return &stats, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// do issues a single request. No retries: failed operations recover on the
// next tick or keystroke.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("backend request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend request",
		"method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp, requestID)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// decodeError converts a non-2xx {detail} body into *Error. A body that is
// not the expected shape still yields a usable status-only error.
func (c *Client) decodeError(resp *http.Response, requestID string) error {
	apiErr := &Error{Status: resp.StatusCode, RequestID: requestID}

	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Detail = body.Detail
	}
	return apiErr
}
