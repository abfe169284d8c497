// Package fetch provides a read-through caching layer over the
// API-Football client. Each response is cached under the policy
// governing its data type, and concurrent misses on one key collapse
// to a single upstream call.
package fetch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pitchside/footstats-client/pkg/cache"
	"github.com/pitchside/footstats-client/pkg/client"
)

// LoadFunc produces an envelope on a cache miss.
type LoadFunc func(ctx context.Context) (*client.Envelope, error)

// Options configures a Fetcher.
type Options struct {
	// Client serves the verb helpers (Standings, Fixtures, ...). Fetch
	// with an explicit LoadFunc works without one.
	Client *client.Client

	// Policies tunes named policies (matched by Name) for TTL and size.
	// Policies not named here keep their cache.Policies() defaults.
	Policies []cache.Policy

	// CleanupInterval is passed through to each per-policy cache. Zero
	// means the cache default; a negative value disables the sweeps.
	CleanupInterval time.Duration

	// Logger receives fetch and cache events. The zero value is silent.
	Logger zerolog.Logger
}

// Fetcher answers queries from per-policy caches, falling back to one
// deduplicated upstream call per key.
type Fetcher struct {
	client   *client.Client
	policies map[string]cache.Policy
	caches   map[string]*cache.Cache[*client.Envelope]
	group    singleflight.Group
	logger   zerolog.Logger
}

// New creates a fetcher with one cache per named policy, each sized and
// aged according to its (possibly tuned) policy.
func New(opts Options) *Fetcher {
	policies := cache.Policies()
	if len(opts.Policies) > 0 {
		byName := make(map[string]cache.Policy, len(opts.Policies))
		for _, p := range opts.Policies {
			byName[p.Name] = p
		}
		for i, p := range policies {
			if tuned, ok := byName[p.Name]; ok {
				policies[i] = tuned
			}
		}
	}

	f := &Fetcher{
		client:   opts.Client,
		policies: make(map[string]cache.Policy, len(policies)),
		caches:   make(map[string]*cache.Cache[*client.Envelope], len(policies)),
		logger:   opts.Logger.With().Str("component", "fetch").Logger(),
	}
	for _, p := range policies {
		f.policies[p.Name] = p
		f.caches[p.Name] = cache.New[*client.Envelope](cache.Options{
			Name:            p.Name,
			MaxEntries:      p.MaxEntries,
			DefaultTTL:      p.TTL,
			CleanupInterval: opts.CleanupInterval,
			Logger:          opts.Logger,
		})
	}
	return f
}

// Fetch resolves the policy for dataType and season, answers from the
// policy's cache when it can, and otherwise runs load through the
// in-flight group so concurrent misses on the same key produce exactly
// one upstream call. The loaded envelope is stored under the policy
// TTL. Errors are returned to every waiter and never cached.
func (f *Fetcher) Fetch(ctx context.Context, dataType string, season int, params map[string]any, load LoadFunc) (*client.Envelope, error) {
	// Resolution picks the policy class; the fetcher's own copy carries
	// any TTL or size tuning applied at construction.
	policy := f.policies[cache.ResolvePolicy(dataType, season).Name]
	key := cache.GenerateKey(dataType, params)
	store := f.caches[policy.Name]

	if env, ok := store.Get(key); ok {
		f.logger.Debug().
			Str("key", key).
			Str("policy", policy.Name).
			Msg("Cache hit")
		return env, nil
	}

	v, err, shared := f.group.Do(key, func() (any, error) {
		// A racing caller may have stored the value while we queued.
		if env, ok := store.Get(key); ok {
			return env, nil
		}

		env, err := load(ctx)
		if err != nil {
			return nil, err
		}

		store.Set(key, env, policy.TTL)
		f.logger.Debug().
			Str("key", key).
			Str("policy", policy.Name).
			Dur("ttl", policy.TTL).
			Int("results", env.Results).
			Msg("Cache filled")
		return env, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		f.logger.Debug().Str("key", key).Msg("Joined in-flight request")
	}
	return v.(*client.Envelope), nil
}

// Invalidate deletes every cached entry whose key matches the glob
// pattern (e.g. "fixtures:*") across all policy caches and returns the
// number removed.
func (f *Fetcher) Invalidate(pattern string) int {
	removed := 0
	for _, store := range f.caches {
		for _, key := range store.FindKeys(pattern) {
			if store.Delete(key) {
				removed++
			}
		}
	}

	if removed > 0 {
		f.logger.Info().
			Str("pattern", pattern).
			Int("removed", removed).
			Msg("Cache entries invalidated")
	}
	return removed
}

// Stats returns a snapshot of every policy cache, keyed by policy name.
func (f *Fetcher) Stats() map[string]cache.Stats {
	stats := make(map[string]cache.Stats, len(f.caches))
	for name, store := range f.caches {
		stats[name] = store.Stats()
	}
	return stats
}

// Close stops the background sweeps of all policy caches.
func (f *Fetcher) Close() error {
	for _, store := range f.caches {
		store.Close()
	}
	return nil
}

// Standings returns the league table, cached per season volatility.
func (f *Fetcher) Standings(ctx context.Context, p client.StandingsParams) (*client.Envelope, error) {
	return f.Fetch(ctx, cache.TypeStandings, p.Season, p.Params(), func(ctx context.Context) (*client.Envelope, error) {
		return f.client.GetStandings(ctx, p)
	})
}

// Fixtures returns fixtures matching the filters, cached per season
// volatility.
func (f *Fetcher) Fixtures(ctx context.Context, p client.FixturesParams) (*client.Envelope, error) {
	return f.Fetch(ctx, cache.TypeFixtures, p.Season, p.Params(), func(ctx context.Context) (*client.Envelope, error) {
		return f.client.GetFixtures(ctx, p)
	})
}

// LiveFixtures returns in-play fixtures under the short live policy.
func (f *Fetcher) LiveFixtures(ctx context.Context, p client.LiveFixturesParams) (*client.Envelope, error) {
	return f.Fetch(ctx, cache.TypeLiveFixtures, 0, p.Params(), func(ctx context.Context) (*client.Envelope, error) {
		return f.client.GetLiveFixtures(ctx, p)
	})
}

// Teams returns team profiles, cached under the profiles policy.
func (f *Fetcher) Teams(ctx context.Context, p client.TeamsParams) (*client.Envelope, error) {
	return f.Fetch(ctx, cache.TypeTeams, p.Season, p.Params(), func(ctx context.Context) (*client.Envelope, error) {
		return f.client.GetTeams(ctx, p)
	})
}

// SearchTeams searches teams by name fragment, cached under the search
// policy.
func (f *Fetcher) SearchTeams(ctx context.Context, query string) (*client.Envelope, error) {
	params := map[string]any{"search": query}
	return f.Fetch(ctx, cache.TypeSearchTeams, 0, params, func(ctx context.Context) (*client.Envelope, error) {
		return f.client.SearchTeams(ctx, query)
	})
}

// Players returns player statistics, cached per season volatility.
func (f *Fetcher) Players(ctx context.Context, p client.PlayersParams) (*client.Envelope, error) {
	return f.Fetch(ctx, cache.TypePlayers, p.Season, p.Params(), func(ctx context.Context) (*client.Envelope, error) {
		return f.client.GetPlayers(ctx, p)
	})
}

// SearchPlayers searches players by name fragment within a team scope,
// cached under the search policy.
func (f *Fetcher) SearchPlayers(ctx context.Context, query string, team int) (*client.Envelope, error) {
	params := map[string]any{"search": query}
	if team != 0 {
		params["team"] = team
	}
	return f.Fetch(ctx, cache.TypeSearchPlayers, 0, params, func(ctx context.Context) (*client.Envelope, error) {
		return f.client.SearchPlayers(ctx, query, team)
	})
}

// Squad returns a team's current roster.
func (f *Fetcher) Squad(ctx context.Context, teamID int) (*client.Envelope, error) {
	params := map[string]any{"team": teamID}
	return f.Fetch(ctx, cache.TypeSquad, 0, params, func(ctx context.Context) (*client.Envelope, error) {
		return f.client.GetSquad(ctx, teamID)
	})
}

// MatchEvents returns a fixture's event timeline.
func (f *Fetcher) MatchEvents(ctx context.Context, fixtureID int) (*client.Envelope, error) {
	params := map[string]any{"fixture": fixtureID}
	return f.Fetch(ctx, cache.TypeMatchEvents, 0, params, func(ctx context.Context) (*client.Envelope, error) {
		return f.client.GetMatchEvents(ctx, fixtureID)
	})
}
