package tools

import (
	"context"

	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/sportmonks"
)

type fixturesArgs struct {
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	TeamID   int64  `json:"teamId" validate:"omitempty,gt=0"`
	LeagueID int64  `json:"leagueId" validate:"omitempty,gt=0"`
	Live     bool   `json:"live"`
}

type seasonArgs struct {
	SeasonID int64 `json:"seasonId" validate:"required,gt=0"`
}

type headToHeadArgs struct {
	Team1ID int64 `json:"team1Id" validate:"required,gt=0"`
	Team2ID int64 `json:"team2Id" validate:"required,gt=0"`
}

type teamStatsArgs struct {
	TeamID      int64 `json:"teamId" validate:"required,gt=0"`
	IncludeForm *bool `json:"includeForm"`
}

type matchArgs struct {
	MatchID int64 `json:"matchId" validate:"required,gt=0"`
}

type searchTeamArgs struct {
	TeamName string `json:"teamName" validate:"required,min=1,max=100"`
}

type leagueArgs struct {
	LeagueID int64 `json:"leagueId" validate:"required,gt=0"`
}

type noArgs struct{}

func fetched(resp *sportmonks.Response, err error, fallback string) Envelope {
	if err != nil {
		return failWith(err, fallback)
	}
	return OK(resp.Data, resp.Meta)
}

// Football returns the SportMonks backed tools. With no token configured
// every tool fails with the configuration error.
func Football(c *sportmonks.Client) []Tool {
	return []Tool{
		Typed("get_fixtures",
			"Get football fixtures/matches by date, team, or league. Use this to find upcoming or past matches.",
			[]ai.Param{
				{Name: "date", Type: "string", Description: "Date in YYYY-MM-DD format"},
				{Name: "teamId", Type: "integer", Description: "Team ID to filter fixtures"},
				{Name: "leagueId", Type: "integer", Description: "League ID to filter fixtures"},
				{Name: "live", Type: "boolean", Description: "Get only live matches"},
			},
			func(ctx context.Context, _ Env, a fixturesArgs) Envelope {
				kind := sportmonks.KindFixtures
				if a.Live {
					kind = sportmonks.KindLivescores
				}
				resp, err := c.Fetch(ctx, sportmonks.Query{
					Kind:     kind,
					Date:     a.Date,
					TeamID:   a.TeamID,
					LeagueID: a.LeagueID,
					Include:  []string{"participants", "scores", "state", "league", "odds"},
				})
				return fetched(resp, err, "Failed to fetch fixtures")
			}),

		Typed("get_today_matches",
			"Get all football matches happening today with odds and predictions",
			nil,
			func(ctx context.Context, _ Env, _ noArgs) Envelope {
				resp, err := c.TodayFixtures(ctx)
				return fetched(resp, err, "Failed to fetch today's matches")
			}),

		Typed("get_live_matches",
			"Get all currently live football matches with real-time scores and events",
			nil,
			func(ctx context.Context, _ Env, _ noArgs) Envelope {
				resp, err := c.LiveMatches(ctx)
				return fetched(resp, err, "Failed to fetch live matches")
			}),

		Typed("get_standings",
			"Get league standings/table for a specific season",
			[]ai.Param{{Name: "seasonId", Type: "integer", Description: "Season ID for standings", Required: true}},
			func(ctx context.Context, _ Env, a seasonArgs) Envelope {
				resp, err := c.Fetch(ctx, sportmonks.Query{
					Kind:     sportmonks.KindStandings,
					SeasonID: a.SeasonID,
					Include:  []string{"participant", "details"},
				})
				return fetched(resp, err, "Failed to fetch standings")
			}),

		Typed("get_head_to_head",
			"Get head-to-head record and historical matches between two teams",
			[]ai.Param{
				{Name: "team1Id", Type: "integer", Description: "First team ID", Required: true},
				{Name: "team2Id", Type: "integer", Description: "Second team ID", Required: true},
			},
			func(ctx context.Context, _ Env, a headToHeadArgs) Envelope {
				resp, err := c.Fetch(ctx, sportmonks.Query{
					Kind:    sportmonks.KindHeadToHead,
					Team1ID: a.Team1ID,
					Team2ID: a.Team2ID,
					Include: []string{"participants", "scores", "league", "state"},
					Limit:   20,
				})
				return fetched(resp, err, "Failed to fetch head-to-head data")
			}),

		Typed("get_team_stats",
			"Get comprehensive team statistics, form, and information",
			[]ai.Param{
				{Name: "teamId", Type: "integer", Description: "Team ID", Required: true},
				{Name: "includeForm", Type: "boolean", Description: "Include recent match results"},
			},
			func(ctx context.Context, _ Env, a teamStatsArgs) Envelope {
				team, err := c.Fetch(ctx, sportmonks.Query{
					Kind:    sportmonks.KindTeams,
					TeamID:  a.TeamID,
					Include: []string{"statistics", "country", "coach", "venue"},
				})
				if err != nil {
					return failWith(err, "Failed to fetch team statistics")
				}
				data := map[string]any{"team": team.Data, "recentForm": nil}
				if a.IncludeForm == nil || *a.IncludeForm {
					form, err := c.TeamForm(ctx, a.TeamID, 10)
					if err != nil {
						return failWith(err, "Failed to fetch team statistics")
					}
					data["recentForm"] = form.Data
				}
				return OK(data, team.Meta)
			}),

		Typed("get_match_predictions",
			"Get AI-powered match predictions and probabilities for a specific fixture",
			[]ai.Param{{Name: "matchId", Type: "integer", Description: "Match/Fixture ID", Required: true}},
			func(ctx context.Context, _ Env, a matchArgs) Envelope {
				resp, err := c.MatchPredictions(ctx, a.MatchID)
				return fetched(resp, err, "Failed to fetch match predictions")
			}),

		Typed("get_match_odds",
			"Get betting odds from multiple bookmakers for a specific match",
			[]ai.Param{{Name: "matchId", Type: "integer", Description: "Match/Fixture ID", Required: true}},
			func(ctx context.Context, _ Env, a matchArgs) Envelope {
				resp, err := c.MatchOdds(ctx, a.MatchID)
				return fetched(resp, err, "Failed to fetch match odds")
			}),

		Typed("search_team",
			"Search for a team by name to get its ID",
			[]ai.Param{{Name: "teamName", Type: "string", Description: "Team name to search for", Required: true}},
			func(ctx context.Context, _ Env, a searchTeamArgs) Envelope {
				resp, err := c.Fetch(ctx, sportmonks.Query{
					Kind:    sportmonks.KindTeamSearch,
					Name:    a.TeamName,
					Include: []string{"country", "venue"},
				})
				return fetched(resp, err, "Failed to search for team")
			}),

		Typed("get_league_info",
			"Get information about a specific league including current season",
			[]ai.Param{{Name: "leagueId", Type: "integer", Description: "League ID", Required: true}},
			func(ctx context.Context, _ Env, a leagueArgs) Envelope {
				resp, err := c.Fetch(ctx, sportmonks.Query{
					Kind:     sportmonks.KindLeagues,
					LeagueID: a.LeagueID,
					Include:  []string{"country", "currentSeason"},
				})
				return fetched(resp, err, "Failed to fetch league information")
			}),
	}
}
