package fetch

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pitchside/footstats-client/internal/testutil"
	"github.com/pitchside/footstats-client/pkg/cache"
	"github.com/pitchside/footstats-client/pkg/client"
)

// newTestFetcher wires a fetcher and its client to a mock upstream.
func newTestFetcher(t *testing.T) (*Fetcher, *testutil.MockAPI) {
	t.Helper()

	mock := testutil.NewMockAPI()

	c, err := client.New(client.Config{
		APIKey:  "test-key",
		BaseURL: mock.URL(),
		Timeout: 2 * time.Second,
		Retry: client.RetryConfig{
			MaxRetries:        0,
			BaseDelay:         time.Millisecond,
			MaxDelay:          5 * time.Millisecond,
			BackoffMultiplier: 2.0,
		},
	})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}

	f := New(Options{Client: c, CleanupInterval: -1})
	t.Cleanup(func() {
		f.Close()
		mock.Close()
	})
	return f, mock
}

func TestFetcher_CacheHit(t *testing.T) {
	f, mock := newTestFetcher(t)
	mock.SetResponse("/standings", testutil.NewEnvelopeResponse("standings", 1, `[{"league":{"id":39,"name":"Premier League"}}]`))

	params := client.StandingsParams{League: 39, Season: time.Now().Year()}

	first, err := f.Standings(context.Background(), params)
	if err != nil {
		t.Fatalf("Standings() error = %v", err)
	}
	if got := mock.PathCount("/standings"); got != 1 {
		t.Fatalf("upstream hit %d times, want 1", got)
	}

	second, err := f.Standings(context.Background(), params)
	if err != nil {
		t.Fatalf("Standings() error = %v", err)
	}
	if got := mock.PathCount("/standings"); got != 1 {
		t.Errorf("upstream hit %d times after cached call, want 1", got)
	}
	if first != second {
		t.Error("cached call returned a different envelope")
	}
}

func TestFetcher_DistinctParamsMissSeparately(t *testing.T) {
	f, mock := newTestFetcher(t)
	season := time.Now().Year()

	if _, err := f.Standings(context.Background(), client.StandingsParams{League: 39, Season: season}); err != nil {
		t.Fatalf("Standings(39) error = %v", err)
	}
	if _, err := f.Standings(context.Background(), client.StandingsParams{League: 140, Season: season}); err != nil {
		t.Fatalf("Standings(140) error = %v", err)
	}

	if got := mock.PathCount("/standings"); got != 2 {
		t.Errorf("upstream hit %d times, want 2 (different keys)", got)
	}
}

func TestFetcher_ConcurrentMissesCollapse(t *testing.T) {
	f, mock := newTestFetcher(t)

	resp := testutil.NewEnvelopeResponse("standings", 1, "")
	resp.Delay = 50 * time.Millisecond
	mock.SetResponse("/standings", resp)

	params := client.StandingsParams{League: 39, Season: time.Now().Year()}

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := f.Standings(context.Background(), params)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent Standings() error = %v", err)
	}

	if got := mock.PathCount("/standings"); got != 1 {
		t.Errorf("upstream hit %d times, want 1 (in-flight calls shared)", got)
	}
}

func TestFetcher_ErrorsNotCached(t *testing.T) {
	f, mock := newTestFetcher(t)

	var calls atomic.Int32
	mock.SetHandler("/standings", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testutil.EnvelopeBody("standings", 1, "")))
	})

	params := client.StandingsParams{League: 39, Season: time.Now().Year()}

	if _, err := f.Standings(context.Background(), params); err == nil {
		t.Fatal("Standings() error = nil, want upstream failure")
	}

	// The failure was not stored: the next call reaches upstream and
	// succeeds, and only then does the cache answer.
	if _, err := f.Standings(context.Background(), params); err != nil {
		t.Fatalf("Standings() after failure error = %v", err)
	}
	if _, err := f.Standings(context.Background(), params); err != nil {
		t.Fatalf("Standings() cached error = %v", err)
	}
	if got := mock.PathCount("/standings"); got != 2 {
		t.Errorf("upstream hit %d times, want 2", got)
	}
}

func TestFetcher_PolicyBuckets(t *testing.T) {
	f, _ := newTestFetcher(t)
	ctx := context.Background()

	// One call per policy class. Season 2000 is always in the past.
	if _, err := f.Standings(ctx, client.StandingsParams{League: 39, Season: 2000}); err != nil {
		t.Fatalf("Standings() error = %v", err)
	}
	if _, err := f.LiveFixtures(ctx, client.LiveFixturesParams{}); err != nil {
		t.Fatalf("LiveFixtures() error = %v", err)
	}
	if _, err := f.SearchTeams(ctx, "chelsea"); err != nil {
		t.Fatalf("SearchTeams() error = %v", err)
	}
	if _, err := f.Teams(ctx, client.TeamsParams{ID: 33}); err != nil {
		t.Fatalf("Teams() error = %v", err)
	}
	if _, err := f.Squad(ctx, 33); err != nil {
		t.Fatalf("Squad() error = %v", err)
	}

	stats := f.Stats()
	for _, want := range []struct {
		policy string
		size   int
	}{
		{"historical", 1},
		{"live", 1},
		{"search", 1},
		{"profiles", 1},
		{"current", 1}, // squads carry no season tag
	} {
		if got := stats[want.policy].Size; got != want.size {
			t.Errorf("Stats()[%q].Size = %d, want %d", want.policy, got, want.size)
		}
	}
}

func TestFetcher_Invalidate(t *testing.T) {
	f, mock := newTestFetcher(t)
	ctx := context.Background()

	if _, err := f.Standings(ctx, client.StandingsParams{League: 39, Season: 2000}); err != nil {
		t.Fatalf("Standings(39) error = %v", err)
	}
	if _, err := f.Standings(ctx, client.StandingsParams{League: 140, Season: 2000}); err != nil {
		t.Fatalf("Standings(140) error = %v", err)
	}
	if _, err := f.Fixtures(ctx, client.FixturesParams{League: 39, Season: 2000}); err != nil {
		t.Fatalf("Fixtures() error = %v", err)
	}

	if got := f.Invalidate("standings:*"); got != 2 {
		t.Errorf("Invalidate(standings:*) = %d, want 2", got)
	}

	// Standings must be refetched, fixtures are still cached.
	if _, err := f.Standings(ctx, client.StandingsParams{League: 39, Season: 2000}); err != nil {
		t.Fatalf("Standings() after invalidate error = %v", err)
	}
	if got := mock.PathCount("/standings"); got != 3 {
		t.Errorf("standings upstream hits = %d, want 3", got)
	}

	if _, err := f.Fixtures(ctx, client.FixturesParams{League: 39, Season: 2000}); err != nil {
		t.Fatalf("Fixtures() after invalidate error = %v", err)
	}
	if got := mock.PathCount("/fixtures"); got != 1 {
		t.Errorf("fixtures upstream hits = %d, want 1", got)
	}
}

func TestFetcher_InvalidateNoMatches(t *testing.T) {
	f, _ := newTestFetcher(t)

	if got := f.Invalidate("players:*"); got != 0 {
		t.Errorf("Invalidate() on empty caches = %d, want 0", got)
	}
}

func TestFetcher_FetchWithCustomLoad(t *testing.T) {
	f, _ := newTestFetcher(t)

	var loads atomic.Int32
	load := func(ctx context.Context) (*client.Envelope, error) {
		loads.Add(1)
		return &client.Envelope{Get: "custom", Results: 7}, nil
	}

	params := map[string]any{"league": 39}
	for i := 0; i < 3; i++ {
		env, err := f.Fetch(context.Background(), cache.TypeFixtures, 0, params, load)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if env.Results != 7 {
			t.Errorf("Results = %d, want 7", env.Results)
		}
	}

	if got := loads.Load(); got != 1 {
		t.Errorf("load called %d times, want 1", got)
	}
}

func TestFetcher_VerbsCached(t *testing.T) {
	tests := []struct {
		name string
		call func(f *Fetcher) (*client.Envelope, error)
		path string
	}{
		{
			name: "fixtures",
			call: func(f *Fetcher) (*client.Envelope, error) {
				return f.Fixtures(context.Background(), client.FixturesParams{League: 39, Season: 2000})
			},
			path: "/fixtures",
		},
		{
			name: "live fixtures",
			call: func(f *Fetcher) (*client.Envelope, error) {
				return f.LiveFixtures(context.Background(), client.LiveFixturesParams{Leagues: []int{39}})
			},
			path: "/fixtures",
		},
		{
			name: "teams",
			call: func(f *Fetcher) (*client.Envelope, error) {
				return f.Teams(context.Background(), client.TeamsParams{ID: 33})
			},
			path: "/teams",
		},
		{
			name: "players",
			call: func(f *Fetcher) (*client.Envelope, error) {
				return f.Players(context.Background(), client.PlayersParams{Team: 85, Season: 2000})
			},
			path: "/players",
		},
		{
			name: "player search",
			call: func(f *Fetcher) (*client.Envelope, error) {
				return f.SearchPlayers(context.Background(), "mbappe", 85)
			},
			path: "/players",
		},
		{
			name: "squad",
			call: func(f *Fetcher) (*client.Envelope, error) {
				return f.Squad(context.Background(), 85)
			},
			path: "/players/squads",
		},
		{
			name: "match events",
			call: func(f *Fetcher) (*client.Envelope, error) {
				return f.MatchEvents(context.Background(), 1035045)
			},
			path: "/fixtures/events",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, mock := newTestFetcher(t)

			for i := 0; i < 2; i++ {
				if _, err := tt.call(f); err != nil {
					t.Fatalf("call %d error = %v", i+1, err)
				}
			}
			if got := mock.PathCount(tt.path); got != 1 {
				t.Errorf("upstream hit %d times, want 1", got)
			}
		})
	}
}

func TestFetcher_PolicyTuning(t *testing.T) {
	f := New(Options{
		Policies:        []cache.Policy{{Name: "live", TTL: time.Hour, MaxEntries: 2}},
		CleanupInterval: -1,
	})
	defer f.Close()

	stats := f.Stats()
	if got := stats["live"].MaxSize; got != 2 {
		t.Errorf("tuned live cache MaxSize = %d, want 2", got)
	}
	if got := stats["current"].MaxSize; got != cache.PolicyCurrent.MaxEntries {
		t.Errorf("untuned current cache MaxSize = %d, want %d", got, cache.PolicyCurrent.MaxEntries)
	}
}

func TestFetcher_StatsCoversAllPolicies(t *testing.T) {
	f, _ := newTestFetcher(t)

	stats := f.Stats()
	if len(stats) != len(cache.Policies()) {
		t.Fatalf("Stats() has %d entries, want %d", len(stats), len(cache.Policies()))
	}
	for _, p := range cache.Policies() {
		s, ok := stats[p.Name]
		if !ok {
			t.Errorf("Stats() missing policy %q", p.Name)
			continue
		}
		if s.MaxSize != p.MaxEntries {
			t.Errorf("Stats()[%q].MaxSize = %d, want %d", p.Name, s.MaxSize, p.MaxEntries)
		}
	}
}

func TestFetcher_CloseKeepsCachesUsable(t *testing.T) {
	f, _ := newTestFetcher(t)

	if _, err := f.Standings(context.Background(), client.StandingsParams{League: 39, Season: 2000}); err != nil {
		t.Fatalf("Standings() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Closed fetchers still answer from cache.
	if _, err := f.Standings(context.Background(), client.StandingsParams{League: 39, Season: 2000}); err != nil {
		t.Fatalf("Standings() after Close error = %v", err)
	}
}
