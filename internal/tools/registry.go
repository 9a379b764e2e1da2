package tools

import (
	"fmt"
	"sync"

	"github.com/suPer8Hu/matchday-ai/internal/ai"
)

// AllowList is the set of tools offered on every chat turn, in order.
var AllowList = []string{
	"get_today_matches",
	"get_fixtures",
	"get_live_matches",
	"get_team_stats",
	"get_head_to_head",
	"get_standings",
	"get_match_odds",
	"get_match_predictions",
	"search_team",
	"get_league_info",
	"createDocument",
	"updateDocument",
	"requestSuggestions",
}

type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.Name == "" || t.Execute == nil {
		return fmt.Errorf("tools: invalid tool %q", t.Name)
	}
	if _, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("tools: %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// MustRegister is for wiring at startup.
func (r *Registry) MustRegister(ts ...Tool) {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Active returns the registered tools named in allow, in allow order.
// Registered tools missing from allow are never returned.
func (r *Registry) Active(allow []string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(allow))
	seen := make(map[string]bool, len(allow))
	for _, name := range allow {
		if seen[name] {
			continue
		}
		seen[name] = true
		if t, ok := r.tools[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

func Defs(ts []Tool) []ai.ToolDef {
	out := make([]ai.ToolDef, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Def())
	}
	return out
}
