package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/suPer8Hu/matchday-ai/internal/ai"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

type weatherArgs struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Weather is registered but not on AllowList.
func Weather(baseURL string, client *http.Client) Tool {
	if baseURL == "" {
		baseURL = openMeteoURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return Typed("getWeather",
		"Get the current weather at a location",
		[]ai.Param{
			{Name: "latitude", Type: "number", Required: true},
			{Name: "longitude", Type: "number", Required: true},
		},
		func(ctx context.Context, _ Env, a weatherArgs) Envelope {
			q := url.Values{}
			q.Set("latitude", strconv.FormatFloat(a.Latitude, 'f', -1, 64))
			q.Set("longitude", strconv.FormatFloat(a.Longitude, 'f', -1, 64))
			q.Set("current", "temperature_2m")
			q.Set("hourly", "temperature_2m")
			q.Set("daily", "sunrise,sunset")
			q.Set("timezone", "auto")

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
			if err != nil {
				return failWith(err, "Failed to fetch weather")
			}
			resp, err := client.Do(req)
			if err != nil {
				return failWith(err, "Failed to fetch weather")
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return Fail(fmt.Sprintf("Weather API error: %d", resp.StatusCode))
			}
			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return failWith(err, "Failed to fetch weather")
			}
			return OK(json.RawMessage(body), nil)
		})
}
