package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Data-type tags used as cache key prefixes. The vocabulary is part of the
// external contract: pattern-based invalidation relies on the "<tag>:" prefix.
const (
	TypeStandings     = "standings"
	TypeFixtures      = "fixtures"
	TypeLiveFixtures  = "live_fixtures"
	TypeTeams         = "teams"
	TypeSearchTeams   = "search_teams"
	TypePlayers       = "players"
	TypeSearchPlayers = "search_players"
	TypeSquad         = "squad"
	TypeMatchEvents   = "match_events"
	TypeFixtureEvents = "fixture_events"
)

// keyDigestLen is the number of hex characters kept from the parameter
// digest. Collisions at this key-space size are acceptable for a cache;
// this is not a security boundary.
const keyDigestLen = 16

// GenerateKey builds a deterministic cache key from a data-type tag and a
// parameter map. Format: "<dataType>:<16 lowercase hex chars>".
//
// Parameters with nil values are dropped before hashing, so omitting a field
// and passing it as nil produce the same key. The surviving parameters are
// serialized as canonical JSON (lexicographic key order) and hashed together
// with the tag using SHA-256.
func GenerateKey(dataType string, params map[string]any) string {
	filtered := make(map[string]any, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		filtered[k] = v
	}

	// encoding/json sorts map keys, which gives us the canonical form.
	payload, err := json.Marshal(filtered)
	if err != nil {
		payload = []byte("{}")
	}

	sum := sha256.Sum256(append([]byte(dataType), payload...))
	digest := hex.EncodeToString(sum[:])[:keyDigestLen]

	var b strings.Builder
	b.Grow(len(dataType) + 1 + keyDigestLen)
	b.WriteString(dataType)
	b.WriteByte(':')
	b.WriteString(digest)
	return b.String()
}

// SortedParamKeys returns the non-nil parameter names in the order they are
// hashed, useful for logging which fields shaped a key.
func SortedParamKeys(params map[string]any) []string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StandingsKey returns the cache key for a league standings query.
func StandingsKey(params map[string]any) string {
	return GenerateKey(TypeStandings, params)
}

// FixturesKey returns the cache key for a fixtures query.
func FixturesKey(params map[string]any) string {
	return GenerateKey(TypeFixtures, params)
}

// LiveFixturesKey returns the cache key for a live fixtures query.
func LiveFixturesKey(params map[string]any) string {
	return GenerateKey(TypeLiveFixtures, params)
}

// TeamsKey returns the cache key for a team lookup.
func TeamsKey(params map[string]any) string {
	return GenerateKey(TypeTeams, params)
}

// SearchTeamsKey returns the cache key for a team name search.
func SearchTeamsKey(params map[string]any) string {
	return GenerateKey(TypeSearchTeams, params)
}

// PlayersKey returns the cache key for a player statistics query.
func PlayersKey(params map[string]any) string {
	return GenerateKey(TypePlayers, params)
}

// SearchPlayersKey returns the cache key for a player name search.
func SearchPlayersKey(params map[string]any) string {
	return GenerateKey(TypeSearchPlayers, params)
}

// SquadKey returns the cache key for a squad listing.
func SquadKey(params map[string]any) string {
	return GenerateKey(TypeSquad, params)
}

// MatchEventsKey returns the cache key for a match events query.
func MatchEventsKey(params map[string]any) string {
	return GenerateKey(TypeMatchEvents, params)
}

// FixtureEventsKey returns the cache key for a single fixture's event feed.
func FixtureEventsKey(params map[string]any) string {
	return GenerateKey(TypeFixtureEvents, params)
}
