// Package client provides the resilient API-Football HTTP client:
// rate-limit gating, retry with exponential backoff, and classification
// of transient vs. terminal failures.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pitchside/footstats-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footstats_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "footstats_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint, including retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footstats_retries_total",
		Help: "Total retry attempts by endpoint",
	}, []string{"endpoint"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footstats_retry_exhausted_total",
		Help: "Total times the retry budget was exhausted by endpoint",
	}, []string{"endpoint"})
)

// Defaults applied by New when the corresponding Config field is unset.
const (
	// DefaultBaseURL is the native API-Football v3 host.
	DefaultBaseURL = "https://v3.football.api-sports.io"

	// DefaultTimeout bounds a single attempt, not the whole retry loop.
	DefaultTimeout = 10 * time.Second
)

// Upstream endpoint paths.
const (
	endpointStandings     = "/standings"
	endpointFixtures      = "/fixtures"
	endpointFixtureEvents = "/fixtures/events"
	endpointTeams         = "/teams"
	endpointPlayers       = "/players"
	endpointSquads        = "/players/squads"
)

// Config holds the client configuration.
type Config struct {
	// APIKey authenticates requests: sent as x-apisports-key, or as
	// x-rapidapi-key when RapidAPIHost is set. Required.
	APIKey string

	// BaseURL overrides the upstream host, e.g. for the RapidAPI
	// gateway or a test server. Defaults to DefaultBaseURL.
	BaseURL string

	// RapidAPIHost switches authentication to the RapidAPI header pair
	// when non-empty.
	RapidAPIHost string

	// Timeout bounds each attempt. The expired timer aborts the
	// in-flight call and counts as a retryable failure. Defaults to
	// DefaultTimeout.
	Timeout time.Duration

	// Retry configures the backoff loop. The zero value means
	// DefaultRetryConfig().
	Retry RetryConfig

	// Breaker enables the circuit breaker when non-nil.
	Breaker *BreakerConfig

	// HTTPClient overrides the transport. Defaults to a plain
	// http.Client; per-attempt deadlines come from Timeout.
	HTTPClient *http.Client

	// Logger receives client and rate-limit logs. The zero value is
	// silent.
	Logger zerolog.Logger
}

// DefaultConfig returns a configuration with production defaults for
// the given API key.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Retry:   DefaultRetryConfig(),
	}
}

// Client is the resilient API-Football client. It waits out exhausted
// rate limit windows before calling, retries transient failures, and
// feeds the tracker from every response's headers.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	tracker    *ratelimit.Tracker
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

// New validates the configuration and creates a client. Configuration
// problems are terminal: they are reported here and never retried.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative (got %v)", cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Retry.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must not be negative (got %d)", cfg.Retry.MaxRetries)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger.With().Str("component", "client").Logger()

	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		config:     cfg,
		tracker:    ratelimit.NewTracker(cfg.Logger.With().Str("component", "ratelimit").Logger()),
		logger:     logger,
	}
	if cfg.Breaker != nil {
		c.breaker = newBreaker(cfg.Breaker, logger)
	}

	logger.Info().
		Str("base_url", baseURL.String()).
		Bool("breaker", c.breaker != nil).
		Msg("API client created")

	return c, nil
}

// RateLimiter exposes the tracker so callers can inspect the window
// state.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.tracker
}

// Get performs one resilient API call against an endpoint path with the
// given query parameters (nil values are dropped). It waits out an
// exhausted rate limit window first, then runs the request through the
// breaker (when configured) and the retry executor.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]any) (*Envelope, error) {
	logger := c.logger.With().
		Str("request_id", uuid.NewString()).
		Str("endpoint", endpoint).
		Logger()

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	// Wait out an exhausted window before spending any attempt on it.
	if err := c.tracker.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWaitInterrupted, err)
	}

	if c.breaker == nil {
		return c.execute(ctx, endpoint, params, logger)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.execute(ctx, endpoint, params, logger)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.Warn().Msg("Circuit breaker rejected request")
			return nil, NewPermanentError(0, "circuit breaker open", err)
		}
		return nil, err
	}
	return result.(*Envelope), nil
}

// execute runs the retry loop for one call.
func (c *Client) execute(ctx context.Context, endpoint string, params map[string]any, logger zerolog.Logger) (*Envelope, error) {
	reqURL := c.buildURL(endpoint, params)

	attempt := 0
	env, err := WithRetry(ctx, c.config.Retry, func(ctx context.Context) (*Envelope, error) {
		attempt++
		if attempt > 1 {
			retriesTotal.WithLabelValues(endpoint).Inc()
			logger.Debug().Int("attempt", attempt).Msg("Retrying request")
		}
		return c.doAttempt(ctx, reqURL, endpoint, logger)
	})
	if err != nil {
		if isRetryable(err) {
			retryExhaustedTotal.WithLabelValues(endpoint).Inc()
			logger.Warn().Err(err).Int("attempts", attempt).Msg("Retry attempts exhausted")
		}
		return nil, err
	}

	logger.Debug().Int("attempts", attempt).Int("results", env.Results).Msg("Request succeeded")
	return env, nil
}

// doAttempt issues a single HTTP attempt and classifies its outcome.
func (c *Client) doAttempt(ctx context.Context, reqURL, endpoint string, logger zerolog.Logger) (*Envelope, error) {
	attemptCtx := ctx
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, NewPermanentError(0, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport failures are worth another attempt.
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		logger.Warn().Err(err).Msg("Request failed")
		return nil, NewRetryableError(0, "request failed", err)
	}
	defer resp.Body.Close()

	// The tracker learns from every response, success or failure.
	c.tracker.UpdateFromHeaders(resp.Header)
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := classify(resp.StatusCode)
		logger.Warn().
			Int("status", resp.StatusCode).
			Bool("retryable", apiErr.Retryable).
			Msg("Request returned error status")
		return nil, apiErr
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		// A garbled 2xx body usually means truncation en route.
		return nil, NewRetryableError(resp.StatusCode, "decode response", err)
	}

	if len(env.Errors) > 0 {
		logger.Warn().Str("errors", env.Errors.String()).Msg("API rejected the request")
		return nil, NewPermanentError(resp.StatusCode, env.Errors.String(), ErrAppErrors)
	}

	return &env, nil
}

// setAuth applies the native key header, or the RapidAPI pair when a
// gateway host is configured.
func (c *Client) setAuth(req *http.Request) {
	if c.config.RapidAPIHost != "" {
		req.Header.Set("x-rapidapi-key", c.config.APIKey)
		req.Header.Set("x-rapidapi-host", c.config.RapidAPIHost)
		return
	}
	req.Header.Set("x-apisports-key", c.config.APIKey)
}

// buildURL joins the endpoint path onto the base URL and encodes the
// query parameters, dropping nil values.
func (c *Client) buildURL(endpoint string, params map[string]any) string {
	u := *c.baseURL
	u.Path = path.Join(u.Path, endpoint)

	query := u.Query()
	for key, value := range params {
		if value == nil {
			continue
		}
		query.Set(key, fmt.Sprintf("%v", value))
	}
	u.RawQuery = query.Encode()

	return u.String()
}

// GetStandings returns the league table for the given filters.
func (c *Client) GetStandings(ctx context.Context, p StandingsParams) (*Envelope, error) {
	return c.Get(ctx, endpointStandings, p.Params())
}

// GetFixtures returns fixtures matching the given filters.
func (c *Client) GetFixtures(ctx context.Context, p FixturesParams) (*Envelope, error) {
	return c.Get(ctx, endpointFixtures, p.Params())
}

// GetLiveFixtures returns fixtures currently being played.
func (c *Client) GetLiveFixtures(ctx context.Context, p LiveFixturesParams) (*Envelope, error) {
	return c.Get(ctx, endpointFixtures, p.Params())
}

// GetTeams returns team profiles matching the given filters.
func (c *Client) GetTeams(ctx context.Context, p TeamsParams) (*Envelope, error) {
	return c.Get(ctx, endpointTeams, p.Params())
}

// SearchTeams searches teams by name fragment.
func (c *Client) SearchTeams(ctx context.Context, query string) (*Envelope, error) {
	return c.Get(ctx, endpointTeams, map[string]any{"search": query})
}

// GetPlayers returns player statistics matching the given filters.
func (c *Client) GetPlayers(ctx context.Context, p PlayersParams) (*Envelope, error) {
	return c.Get(ctx, endpointPlayers, p.Params())
}

// SearchPlayers searches players by name fragment. The upstream
// requires a team (or league) scope for searches; pass team 0 to let
// the API report the missing scope.
func (c *Client) SearchPlayers(ctx context.Context, query string, team int) (*Envelope, error) {
	params := map[string]any{"search": query}
	if team != 0 {
		params["team"] = team
	}
	return c.Get(ctx, endpointPlayers, params)
}

// GetSquad returns the current squad of a team.
func (c *Client) GetSquad(ctx context.Context, teamID int) (*Envelope, error) {
	return c.Get(ctx, endpointSquads, map[string]any{"team": teamID})
}

// GetMatchEvents returns the event timeline of a fixture.
func (c *Client) GetMatchEvents(ctx context.Context, fixtureID int) (*Envelope, error) {
	return c.Get(ctx, endpointFixtureEvents, map[string]any{"fixture": fixtureID})
}
