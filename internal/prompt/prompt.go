// Package prompt assembles system instructions. Everything here is pure.
package prompt

import (
	"fmt"
	"strings"
)

type Mode string

const (
	ModeFootball Mode = "football"
	ModeRegular  Mode = "regular"
)

// reasoningModel never gets the artifacts block; it cannot call tools.
const reasoningModel = "chat-model-reasoning"

// Hints describe where a request came from. Empty values are rendered as-is.
type Hints struct {
	Latitude  string
	Longitude string
	City      string
	Country   string
}

func (h Hints) block() string {
	return fmt.Sprintf("About the origin of user's request:\n- lat: %s\n- lon: %s\n- city: %s\n- country: %s\n",
		h.Latitude, h.Longitude, h.City, h.Country)
}

// System builds the system prompt for one turn.
func System(model string, hints Hints, mode Mode) string {
	base := Football
	if mode == ModeRegular {
		base = Regular
	}
	parts := []string{base, hints.block()}
	if model != reasoningModel {
		parts = append(parts, Artifacts)
	}
	return strings.Join(parts, "\n\n")
}

// Document kinds handled by UpdateDocument.
const (
	KindText  = "text"
	KindCode  = "code"
	KindSheet = "sheet"
)

func UpdateDocument(current, kind string) string {
	switch kind {
	case KindText:
		return "Improve the following contents of the document based on the given prompt.\n\n" + current + "\n"
	case KindCode:
		return "Improve the following code snippet based on the given prompt.\n\n" + current + "\n"
	case KindSheet:
		return "Improve the following spreadsheet based on the given prompt.\n\n" + current + "\n"
	}
	return ""
}

type QuickAction struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// QuickActions are the canned prompts shown on an empty chat.
var QuickActions = []QuickAction{
	{"Upcoming Matches", "Show me today's and tomorrow's football fixtures with pre-match analysis and betting opportunities"},
	{"Today's Fixtures", "Give me all today's football matches with detailed pre-match analysis and betting recommendations"},
	{"Premier League", "Get Premier League standings and analyze upcoming fixtures with betting insights"},
	{"Value Bets", "Find the best value betting opportunities in today's and this week's football matches"},
	{"Team Comparison", "I want to compare two teams - ask me which teams and provide detailed head-to-head analysis and betting insights"},
	{"Weekend Fixtures", "Show me this weekend's key football matches with comprehensive pre-match analysis"},
	{"Underdog Picks", "Identify potential underdog opportunities in upcoming matches with strong value"},
	{"Form Analysis", "Analyze team form and recent performance for today's matches with betting recommendations"},
}
