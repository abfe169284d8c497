package cache

import (
	"time"
)

// Policy describes how long responses of one data type stay fresh and how
// many of them a cache should hold. Policies are immutable values; resolve
// one per query with ResolvePolicy.
type Policy struct {
	// Name labels the policy in logs, metrics, and cache names.
	Name string

	// TTL is the freshness window for entries stored under this policy.
	TTL time.Duration

	// MaxEntries bounds a cache sized for this policy.
	MaxEntries int

	// StaleWhileRevalidate marks data that callers may keep serving past
	// nominal freshness while a refresh is in flight. The cache itself does
	// not act on it.
	StaleWhileRevalidate bool
}

// The five named policies, tuned per data volatility: finished seasons barely
// change, live match data changes every few seconds.
var (
	// PolicyHistorical covers completed past seasons.
	PolicyHistorical = Policy{Name: "historical", TTL: 24 * time.Hour, MaxEntries: 500, StaleWhileRevalidate: true}

	// PolicyCurrent covers the running season.
	PolicyCurrent = Policy{Name: "current", TTL: 5 * time.Minute, MaxEntries: 200}

	// PolicyLive covers in-play match data.
	PolicyLive = Policy{Name: "live", TTL: 30 * time.Second, MaxEntries: 50}

	// PolicyProfiles covers team and player profiles.
	PolicyProfiles = Policy{Name: "profiles", TTL: time.Hour, MaxEntries: 300, StaleWhileRevalidate: true}

	// PolicySearch covers name search results.
	PolicySearch = Policy{Name: "search", TTL: 10 * time.Minute, MaxEntries: 100}
)

// Policies lists every named policy, in freshness order. Useful for building
// one cache instance per policy class.
func Policies() []Policy {
	return []Policy{PolicyLive, PolicyCurrent, PolicySearch, PolicyProfiles, PolicyHistorical}
}

// ResolvePolicy maps a data-type tag and an optional season (<= 0 means
// absent) to the policy governing it. A season strictly before the current
// calendar year selects the long-lived historical policy where one applies;
// unrecognized tags fall back to the short current policy.
func ResolvePolicy(dataType string, season int) Policy {
	return resolvePolicyAt(dataType, season, time.Now().Year())
}

func resolvePolicyAt(dataType string, season, currentYear int) Policy {
	historical := season > 0 && season < currentYear

	switch dataType {
	case TypeStandings, TypeFixtures, TypeMatchEvents:
		if historical {
			return PolicyHistorical
		}
		return PolicyCurrent
	case TypeLiveFixtures:
		return PolicyLive
	case TypeTeams, TypePlayers:
		if historical {
			return PolicyHistorical
		}
		return PolicyProfiles
	case TypeSearchTeams, TypeSearchPlayers:
		return PolicySearch
	default:
		return PolicyCurrent
	}
}
