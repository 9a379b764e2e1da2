package sportmonks

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// APIError is a non-2xx upstream answer.
type APIError struct {
	Status   int
	Upstream string
}

func (e *APIError) Error() string {
	switch e.Status {
	case http.StatusUnauthorized:
		return "Invalid SportMonks API token. Please check your SPORTMONKS_API_TOKEN."
	case http.StatusForbidden:
		return "SportMonks API access denied. Your API plan may not include this endpoint."
	case http.StatusTooManyRequests:
		return "SportMonks API rate limit exceeded. Please try again later."
	}
	return fmt.Sprintf("SportMonks API error: %d - %s", e.Status, e.Upstream)
}

const maxUpstreamRunes = 512

func newAPIError(status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	var decoded struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &decoded) == nil && decoded.Message != "" {
		msg = decoded.Message
	}
	if utf8.RuneCountInString(msg) > maxUpstreamRunes {
		msg = string([]rune(msg)[:maxUpstreamRunes])
	}
	return &APIError{Status: status, Upstream: msg}
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }
func IsForbidden(err error) bool    { return statusOf(err) == http.StatusForbidden }
func IsRateLimited(err error) bool  { return statusOf(err) == http.StatusTooManyRequests }
