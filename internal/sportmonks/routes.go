package sportmonks

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Kind is a logical SportMonks query.
type Kind string

const (
	KindFixtures       Kind = "fixtures"
	KindLivescores     Kind = "livescores"
	KindStandings      Kind = "standings"
	KindHeadToHead     Kind = "head_to_head"
	KindTeams          Kind = "teams"
	KindTeamStatistics Kind = "team_statistics"
	KindTeamSearch     Kind = "team_search"
	KindLeagues        Kind = "leagues"
	KindPredictions    Kind = "predictions"
	KindOdds           Kind = "odds"
)

const defaultCacheTTL = 10 * time.Minute

// variant is one concrete path for a kind. The first variant whose required
// params are all present wins.
type variant struct {
	path     string
	required []string
	derived  []string
}

type route struct {
	variants []variant
	ttl      time.Duration
}

var routes = map[Kind]route{
	KindFixtures: {
		variants: []variant{
			{path: "/fixtures/date/{date}", required: []string{"date"}},
			{path: "/fixtures/between/{from}/{to}/{teamId}", required: []string{"teamId"}, derived: []string{"from", "to"}},
			{path: "/fixtures/leagues/{leagueId}", required: []string{"leagueId"}},
			{path: "/fixtures"},
		},
		ttl: 5 * time.Minute,
	},
	KindLivescores: {
		variants: []variant{{path: "/livescores/inplay"}},
		ttl:      30 * time.Second,
	},
	KindStandings: {
		variants: []variant{{path: "/standings/seasons/{seasonId}", required: []string{"seasonId"}}},
		ttl:      time.Hour,
	},
	KindHeadToHead: {
		variants: []variant{{path: "/fixtures/head-to-head/{team1Id}/{team2Id}", required: []string{"team1Id", "team2Id"}}},
		ttl:      24 * time.Hour,
	},
	KindTeams: {
		variants: []variant{{path: "/teams/{teamId}", required: []string{"teamId"}}},
		ttl:      24 * time.Hour,
	},
	KindTeamStatistics: {
		variants: []variant{{path: "/teams/{teamId}/statistics", required: []string{"teamId"}}},
		ttl:      24 * time.Hour,
	},
	KindTeamSearch: {
		variants: []variant{{path: "/teams/search/{name}", required: []string{"name"}}},
		ttl:      24 * time.Hour,
	},
	KindLeagues: {
		variants: []variant{
			{path: "/leagues/{leagueId}", required: []string{"leagueId"}},
			{path: "/leagues"},
		},
		ttl: 24 * time.Hour,
	},
	KindPredictions: {
		variants: []variant{{path: "/predictions/probabilities/fixtures/{fixtureId}", required: []string{"fixtureId"}}},
		ttl:      defaultCacheTTL,
	},
	KindOdds: {
		variants: []variant{{path: "/odds/fixtures/{fixtureId}", required: []string{"fixtureId"}}},
		ttl:      5 * time.Minute,
	},
}

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// validateRoutes checks that every template only references declared params
// and that every required param is used by its template.
func validateRoutes(table map[Kind]route) error {
	for kind, r := range table {
		if len(r.variants) == 0 {
			return fmt.Errorf("sportmonks: route %s has no variants", kind)
		}
		if r.ttl <= 0 {
			return fmt.Errorf("sportmonks: route %s has no cache ttl", kind)
		}
		for _, v := range r.variants {
			declared := make(map[string]bool, len(v.required)+len(v.derived))
			for _, p := range v.required {
				declared[p] = true
			}
			for _, p := range v.derived {
				declared[p] = true
			}
			used := make(map[string]bool)
			for _, m := range placeholderRe.FindAllStringSubmatch(v.path, -1) {
				if !declared[m[1]] {
					return fmt.Errorf("sportmonks: route %s template %q uses undeclared param %q", kind, v.path, m[1])
				}
				used[m[1]] = true
			}
			for p := range declared {
				if !used[p] {
					return fmt.Errorf("sportmonks: route %s template %q does not use param %q", kind, v.path, p)
				}
			}
		}
	}
	return nil
}

// CacheTTL is the upstream cache hint for kind.
func CacheTTL(kind Kind) time.Duration {
	if r, ok := routes[kind]; ok {
		return r.ttl
	}
	return defaultCacheTTL
}

func resolvePath(kind Kind, params map[string]string) (string, error) {
	r, ok := routes[kind]
	if !ok {
		return "", fmt.Errorf("sportmonks: unknown endpoint %q", kind)
	}
	for _, v := range r.variants {
		if !hasAll(params, v.required) {
			continue
		}
		missing := ""
		path := placeholderRe.ReplaceAllStringFunc(v.path, func(m string) string {
			name := m[1 : len(m)-1]
			val, ok := params[name]
			if !ok || val == "" {
				missing = name
				return m
			}
			return url.PathEscape(val)
		})
		if missing != "" {
			return "", fmt.Errorf("sportmonks: %s missing %q", kind, missing)
		}
		return path, nil
	}
	return "", fmt.Errorf("sportmonks: %s requires one of %s", kind, describeRequired(r))
}

func hasAll(params map[string]string, keys []string) bool {
	for _, k := range keys {
		if params[k] == "" {
			return false
		}
	}
	return true
}

func describeRequired(r route) string {
	parts := make([]string, 0, len(r.variants))
	for _, v := range r.variants {
		parts = append(parts, "["+strings.Join(v.required, ",")+"]")
	}
	return strings.Join(parts, " or ")
}
