package client

import (
	"strconv"
	"strings"
)

// Parameter structs mirror the upstream query surface. Zero-valued
// fields are left out of the query entirely, which keeps cache keys
// identical whether a field is omitted or unset.

// StandingsParams selects a league table.
type StandingsParams struct {
	League int
	Season int
	Team   int
}

// Params returns the query parameters with unset fields dropped.
func (p StandingsParams) Params() map[string]any {
	m := map[string]any{}
	putInt(m, "league", p.League)
	putInt(m, "season", p.Season)
	putInt(m, "team", p.Team)
	return m
}

// FixturesParams filters the fixtures listing.
type FixturesParams struct {
	ID       int
	League   int
	Season   int
	Team     int
	Last     int
	Next     int
	Date     string // YYYY-MM-DD
	From     string // YYYY-MM-DD
	To       string // YYYY-MM-DD
	Round    string
	Status   string
	Timezone string
}

// Params returns the query parameters with unset fields dropped.
func (p FixturesParams) Params() map[string]any {
	m := map[string]any{}
	putInt(m, "id", p.ID)
	putInt(m, "league", p.League)
	putInt(m, "season", p.Season)
	putInt(m, "team", p.Team)
	putInt(m, "last", p.Last)
	putInt(m, "next", p.Next)
	putString(m, "date", p.Date)
	putString(m, "from", p.From)
	putString(m, "to", p.To)
	putString(m, "round", p.Round)
	putString(m, "status", p.Status)
	putString(m, "timezone", p.Timezone)
	return m
}

// LiveFixturesParams narrows the live feed to specific leagues; empty
// means all live matches.
type LiveFixturesParams struct {
	Leagues  []int
	Timezone string
}

// Params returns the query parameters. The upstream expects
// live=all or a dash-joined league id list like live=39-140.
func (p LiveFixturesParams) Params() map[string]any {
	live := "all"
	if len(p.Leagues) > 0 {
		ids := make([]string, len(p.Leagues))
		for i, id := range p.Leagues {
			ids[i] = strconv.Itoa(id)
		}
		live = strings.Join(ids, "-")
	}

	m := map[string]any{"live": live}
	putString(m, "timezone", p.Timezone)
	return m
}

// TeamsParams filters the teams listing.
type TeamsParams struct {
	ID      int
	League  int
	Season  int
	Venue   int
	Name    string
	Country string
	Code    string
}

// Params returns the query parameters with unset fields dropped.
func (p TeamsParams) Params() map[string]any {
	m := map[string]any{}
	putInt(m, "id", p.ID)
	putInt(m, "league", p.League)
	putInt(m, "season", p.Season)
	putInt(m, "venue", p.Venue)
	putString(m, "name", p.Name)
	putString(m, "country", p.Country)
	putString(m, "code", p.Code)
	return m
}

// PlayersParams filters the players listing. The upstream requires at
// least a league, team, or id.
type PlayersParams struct {
	ID     int
	Team   int
	League int
	Season int
	Page   int
}

// Params returns the query parameters with unset fields dropped.
func (p PlayersParams) Params() map[string]any {
	m := map[string]any{}
	putInt(m, "id", p.ID)
	putInt(m, "team", p.Team)
	putInt(m, "league", p.League)
	putInt(m, "season", p.Season)
	putInt(m, "page", p.Page)
	return m
}

func putInt(m map[string]any, key string, v int) {
	if v != 0 {
		m[key] = v
	}
}

func putString(m map[string]any, key string, v string) {
	if v != "" {
		m[key] = v
	}
}
