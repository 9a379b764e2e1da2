package sportmonks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://api.sportmonks.com/v3/football"

	largeResponseBytes = 50000
)

// ErrNoToken is returned by every call when no access token is configured.
var ErrNoToken = errors.New("SPORTMONKS_API_TOKEN is not configured. Please add it to your environment variables.")

// Cache stores raw upstream bodies for the endpoint's cache hint.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Query is a logical request. Zero values are treated as absent.
type Query struct {
	Kind      Kind
	Date      string
	TeamID    int64
	LeagueID  int64
	SeasonID  int64
	FixtureID int64
	Team1ID   int64
	Team2ID   int64
	Name      string
	Include   []string
	Limit     int
}

// Response keeps the upstream payload mostly opaque.
type Response struct {
	Data         json.RawMessage `json:"data"`
	Meta         json.RawMessage `json:"meta,omitempty"`
	Pagination   json.RawMessage `json:"pagination,omitempty"`
	Subscription json.RawMessage `json:"subscription,omitempty"`
	RateLimit    json.RawMessage `json:"rate_limit,omitempty"`
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Cache   Cache

	now func() time.Time
}

// New validates the route table and returns a client. An empty token is
// allowed; calls then fail with ErrNoToken.
func New(baseURL, token string, cache Cache) (*Client, error) {
	if err := validateRoutes(routes); err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   strings.TrimSpace(token),
		HTTP:    &http.Client{Timeout: 20 * time.Second},
		Cache:   cache,
		now:     time.Now,
	}, nil
}

func (c *Client) Configured() bool { return c != nil && c.Token != "" }

func (q Query) params(now time.Time) map[string]string {
	p := make(map[string]string)
	set := func(k string, v int64) {
		if v != 0 {
			p[k] = strconv.FormatInt(v, 10)
		}
	}
	if q.Date != "" {
		p["date"] = q.Date
	}
	set("teamId", q.TeamID)
	set("leagueId", q.LeagueID)
	set("seasonId", q.SeasonID)
	set("fixtureId", q.FixtureID)
	set("team1Id", q.Team1ID)
	set("team2Id", q.Team2ID)
	if q.Name != "" {
		p["name"] = q.Name
	}
	if q.TeamID != 0 {
		p["from"] = now.UTC().Format("2006-01-02")
		p["to"] = now.UTC().Add(30 * 24 * time.Hour).Format("2006-01-02")
	}
	return p
}

// BuildURL returns the upstream URL for q including the access token.
func (c *Client) BuildURL(q Query) (*url.URL, error) {
	path, err := resolvePath(q.Kind, q.params(c.now()))
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	v := url.Values{}
	v.Set("api_token", c.Token)
	if len(q.Include) > 0 {
		v.Set("include", strings.Join(q.Include, ";"))
	}
	if q.Limit > 0 {
		v.Set("per_page", strconv.Itoa(q.Limit))
	}
	u.RawQuery = v.Encode()
	return u, nil
}

func redact(u *url.URL) string {
	cp := *u
	q := cp.Query()
	if q.Has("api_token") {
		q.Set("api_token", "HIDDEN")
	}
	cp.RawQuery = q.Encode()
	return cp.String()
}

func cacheKey(u *url.URL) string {
	cp := *u
	q := cp.Query()
	q.Del("api_token")
	cp.RawQuery = q.Encode()
	return "sportmonks:" + cp.Path + "?" + cp.RawQuery
}

// Fetch performs one GET. No retries.
func (c *Client) Fetch(ctx context.Context, q Query) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNoToken
	}
	u, err := c.BuildURL(q)
	if err != nil {
		return nil, err
	}
	ttl := CacheTTL(q.Kind)
	key := cacheKey(u)

	if c.Cache != nil {
		if body, ok, err := c.Cache.Get(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("sportmonks cache read failed")
		} else if ok {
			return decode(body)
		}
	}

	log.Debug().Str("url", redact(u)).Str("kind", string(q.Kind)).Msg("fetching sportmonks")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "max-age="+strconv.Itoa(int(ttl.Seconds())))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sportmonks: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("sportmonks: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, body)
		log.Error().Int("status", resp.StatusCode).Str("kind", string(q.Kind)).Msg(apiErr.Error())
		return nil, apiErr
	}

	if len(body) > largeResponseBytes {
		log.Warn().Int("kb", len(body)/1024).Str("kind", string(q.Kind)).Msg("large sportmonks response, may cause context issues")
	}

	out, err := decode(body)
	if err != nil {
		return nil, err
	}

	if c.Cache != nil {
		if err := c.Cache.Set(ctx, key, body, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("sportmonks cache write failed")
		}
	}
	return out, nil
}

func decode(body []byte) (*Response, error) {
	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("sportmonks: decode response: %w", err)
	}
	return &out, nil
}

func (c *Client) today() string { return c.now().UTC().Format("2006-01-02") }

func (c *Client) TodayFixtures(ctx context.Context) (*Response, error) {
	return c.Fetch(ctx, Query{
		Kind:    KindFixtures,
		Date:    c.today(),
		Include: []string{"participants", "scores", "state", "league", "odds"},
	})
}

func (c *Client) LiveMatches(ctx context.Context) (*Response, error) {
	return c.Fetch(ctx, Query{
		Kind:    KindLivescores,
		Include: []string{"participants", "scores", "state", "league", "events"},
	})
}

func (c *Client) TeamForm(ctx context.Context, teamID int64, limit int) (*Response, error) {
	if limit <= 0 {
		limit = 10
	}
	return c.Fetch(ctx, Query{
		Kind:    KindFixtures,
		TeamID:  teamID,
		Limit:   limit,
		Include: []string{"participants", "scores", "state"},
	})
}

func (c *Client) MatchPredictions(ctx context.Context, fixtureID int64) (*Response, error) {
	return c.Fetch(ctx, Query{Kind: KindPredictions, FixtureID: fixtureID})
}

func (c *Client) MatchOdds(ctx context.Context, fixtureID int64) (*Response, error) {
	return c.Fetch(ctx, Query{
		Kind:      KindOdds,
		FixtureID: fixtureID,
		Include:   []string{"bookmaker", "market"},
	})
}
