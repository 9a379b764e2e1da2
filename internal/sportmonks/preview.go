package sportmonks

import (
	"encoding/json"
	"fmt"
)

// TeamPreview is one side of a fixture preview.
type TeamPreview struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Logo string `json:"logo,omitempty"`
}

type LeaguePreview struct {
	Name string `json:"name,omitempty"`
	Logo string `json:"logo,omitempty"`
}

// FixturePreview is the compact shape the match preview cards render.
type FixturePreview struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	StartingAt string        `json:"startingAt"`
	State      string        `json:"state"`
	HomeTeam   TeamPreview   `json:"homeTeam"`
	AwayTeam   TeamPreview   `json:"awayTeam"`
	League     LeaguePreview `json:"league"`
	HasOdds    bool          `json:"hasOdds"`
}

type rawFixture struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	StartingAt string `json:"starting_at"`
	HasOdds    bool   `json:"has_odds"`
	State      *struct {
		Name string `json:"name"`
	} `json:"state"`
	League *struct {
		Name      string `json:"name"`
		ImagePath string `json:"image_path"`
	} `json:"league"`
	Participants []struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		ImagePath string `json:"image_path"`
		Meta      struct {
			Location string `json:"location"`
		} `json:"meta"`
	} `json:"participants"`
}

// FormatFixtures shapes a fixtures response into previews.
func FormatFixtures(resp *Response) ([]FixturePreview, error) {
	if resp == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return []FixturePreview{}, nil
	}
	var raw []rawFixture
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		return nil, fmt.Errorf("sportmonks: decode fixtures: %w", err)
	}

	out := make([]FixturePreview, 0, len(raw))
	for _, f := range raw {
		p := FixturePreview{
			ID:         f.ID,
			Name:       f.Name,
			StartingAt: f.StartingAt,
			State:      "Not Started",
			HasOdds:    f.HasOdds,
		}
		if f.State != nil && f.State.Name != "" {
			p.State = f.State.Name
		}
		if f.League != nil {
			p.League = LeaguePreview{Name: f.League.Name, Logo: f.League.ImagePath}
		}
		for _, part := range f.Participants {
			t := TeamPreview{ID: part.ID, Name: part.Name, Logo: part.ImagePath}
			switch part.Meta.Location {
			case "home":
				p.HomeTeam = t
			case "away":
				p.AwayTeam = t
			}
		}
		out = append(out, p)
	}
	return out, nil
}
