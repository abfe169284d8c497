// Command footstats-proxy exposes the cached API-Football client over
// HTTP for local development and dashboards: cached data endpoints,
// cache administration, health, and Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pitchside/footstats-client/internal/config"
	"github.com/pitchside/footstats-client/pkg/client"
	"github.com/pitchside/footstats-client/pkg/fetch"
	"github.com/pitchside/footstats-client/pkg/logging"
)

// staleAfter flags the rate limit snapshot in /health when no upstream
// response has refreshed it for this long.
const staleAfter = 15 * time.Minute

var configPath = flag.String("config", "", "path to a footstats.yaml config file")

func main() {
	flag.Parse()

	// A missing .env is fine; deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logging.New("info")
		fallback.Fatal().Err(err).Msg("Configuration invalid")
	}

	logger := logging.New(cfg.Log.Level)

	apiClient, err := client.New(cfg.ClientConfig(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("Client creation failed")
	}

	fetcher := fetch.New(fetch.Options{
		Client:          apiClient,
		Policies:        cfg.Policies(),
		CleanupInterval: cfg.Cache.CleanupInterval,
		Logger:          logger,
	})
	defer fetcher.Close()

	srv := newServer(apiClient, fetcher, logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("Proxy listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Forced shutdown")
	}

	logger.Info().Msg("Proxy stopped")
}

// server holds the proxy's router and its dependencies.
type server struct {
	router    *chi.Mux
	client    *client.Client
	fetcher   *fetch.Fetcher
	logger    zerolog.Logger
	startedAt time.Time
}

func newServer(apiClient *client.Client, fetcher *fetch.Fetcher, logger zerolog.Logger) *server {
	s := &server{
		router:    chi.NewRouter(),
		client:    apiClient,
		fetcher:   fetcher,
		logger:    logging.NewComponent(logger, "proxy"),
		startedAt: time.Now(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/standings", s.handleStandings)
		r.Get("/fixtures", s.handleFixtures)
		r.Get("/fixtures/live", s.handleLiveFixtures)
		r.Get("/fixtures/{id}/events", s.handleMatchEvents)
		r.Get("/teams", s.handleTeams)
		r.Get("/teams/search", s.handleTeamSearch)
		r.Get("/teams/{id}/squad", s.handleSquad)
		r.Get("/players", s.handlePlayers)
		r.Get("/players/search", s.handlePlayerSearch)
	})

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/cache/stats", s.handleCacheStats)
	s.router.Delete("/cache/entries", s.handleCacheInvalidate)
	s.router.Handle("/metrics", promhttp.Handler())

	return s
}

// logRequests logs one line per request with its chi request ID.
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *server) handleStandings(w http.ResponseWriter, r *http.Request) {
	params := client.StandingsParams{
		League: intQuery(r, "league"),
		Season: intQuery(r, "season"),
		Team:   intQuery(r, "team"),
	}
	env, err := s.fetcher.Standings(r.Context(), params)
	s.writeEnvelope(w, env, err)
}

func (s *server) handleFixtures(w http.ResponseWriter, r *http.Request) {
	params := client.FixturesParams{
		ID:       intQuery(r, "id"),
		League:   intQuery(r, "league"),
		Season:   intQuery(r, "season"),
		Team:     intQuery(r, "team"),
		Last:     intQuery(r, "last"),
		Next:     intQuery(r, "next"),
		Date:     r.URL.Query().Get("date"),
		From:     r.URL.Query().Get("from"),
		To:       r.URL.Query().Get("to"),
		Round:    r.URL.Query().Get("round"),
		Status:   r.URL.Query().Get("status"),
		Timezone: r.URL.Query().Get("timezone"),
	}
	env, err := s.fetcher.Fixtures(r.Context(), params)
	s.writeEnvelope(w, env, err)
}

func (s *server) handleLiveFixtures(w http.ResponseWriter, r *http.Request) {
	leagues, err := parseLeagues(r.URL.Query().Get("leagues"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "leagues must be dash-separated league ids")
		return
	}

	env, err := s.fetcher.LiveFixtures(r.Context(), client.LiveFixturesParams{
		Leagues:  leagues,
		Timezone: r.URL.Query().Get("timezone"),
	})
	s.writeEnvelope(w, env, err)
}

func (s *server) handleMatchEvents(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "fixture id must be a positive integer")
		return
	}

	env, err := s.fetcher.MatchEvents(r.Context(), id)
	s.writeEnvelope(w, env, err)
}

func (s *server) handleTeams(w http.ResponseWriter, r *http.Request) {
	params := client.TeamsParams{
		ID:      intQuery(r, "id"),
		League:  intQuery(r, "league"),
		Season:  intQuery(r, "season"),
		Venue:   intQuery(r, "venue"),
		Name:    r.URL.Query().Get("name"),
		Country: r.URL.Query().Get("country"),
		Code:    r.URL.Query().Get("code"),
	}
	env, err := s.fetcher.Teams(r.Context(), params)
	s.writeEnvelope(w, env, err)
}

func (s *server) handleTeamSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	env, err := s.fetcher.SearchTeams(r.Context(), query)
	s.writeEnvelope(w, env, err)
}

func (s *server) handleSquad(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "team id must be a positive integer")
		return
	}

	env, err := s.fetcher.Squad(r.Context(), id)
	s.writeEnvelope(w, env, err)
}

func (s *server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	params := client.PlayersParams{
		ID:     intQuery(r, "id"),
		Team:   intQuery(r, "team"),
		League: intQuery(r, "league"),
		Season: intQuery(r, "season"),
		Page:   intQuery(r, "page"),
	}
	env, err := s.fetcher.Players(r.Context(), params)
	s.writeEnvelope(w, env, err)
}

func (s *server) handlePlayerSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	env, err := s.fetcher.SearchPlayers(r.Context(), query, intQuery(r, "team"))
	s.writeEnvelope(w, env, err)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.client.RateLimiter().State()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
		"ratelimit": map[string]any{
			"state":   state,
			"stale":   state.IsStale(staleAfter),
			"waiting": s.client.RateLimiter().ShouldWaitForReset(),
		},
	})
}

func (s *server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.fetcher.Stats())
}

func (s *server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		s.writeError(w, http.StatusBadRequest, "pattern parameter is required")
		return
	}

	removed := s.fetcher.Invalidate(pattern)
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// writeEnvelope re-encodes an upstream envelope, or maps the error.
func (s *server) writeEnvelope(w http.ResponseWriter, env *client.Envelope, err error) {
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, env)
}

// writeUpstreamError maps client errors onto proxy status codes: quota
// exhaustion becomes 503 with a Retry-After, application errors become
// 400, upstream HTTP failures keep their status, anything else is 502.
func (s *server) writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, client.ErrWaitInterrupted) {
		wait := s.client.RateLimiter().WaitTime()
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		s.writeError(w, http.StatusServiceUnavailable, "upstream quota exhausted")
		return
	}
	if errors.Is(err, client.ErrAppErrors) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 600 {
		s.writeError(w, apiErr.StatusCode, apiErr.Message)
		return
	}
	s.writeError(w, http.StatusBadGateway, err.Error())
}

func (s *server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// intQuery reads an integer query parameter; absent or malformed values
// mean "unset" and drop out of the upstream call.
func intQuery(r *http.Request, name string) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

// parseLeagues splits a dash-separated league id list, e.g. "39-140".
func parseLeagues(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, "-")
	leagues := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid league id %q", part)
		}
		leagues = append(leagues, n)
	}
	return leagues, nil
}
