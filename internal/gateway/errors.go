package gateway

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/aiguard/console/internal/apierror"
	"github.com/aiguard/console/internal/config"
)

// normalize converts a non-2xx response into the uniform error object.
// The backend envelope {"error": {...}} is used as-is when present;
// otherwise the error is synthesized from the status code.
func normalize(status int, body []byte) *apierror.Error {
	env := gjson.GetBytes(body, "error")
	if env.IsObject() && env.Get("message").Exists() {
		e := &apierror.Error{
			Type:       env.Get("type").String(),
			Message:    env.Get("message").String(),
			StatusCode: int(env.Get("statusCode").Int()),
			Timestamp:  parseTimestamp(env.Get("timestamp").String()),
		}
		if e.Type == "" {
			e.Type = apierror.TypeUnknown
		}
		if e.StatusCode == 0 {
			e.StatusCode = status
		}
		for _, s := range env.Get("suggestions").Array() {
			e.Suggestions = append(e.Suggestions, s.String())
		}
		return e
	}

	return apierror.FromTransport(fmt.Errorf("request failed with status code %d%s", status, bodySnippet(body)), status)
}

func parseTimestamp(s string) time.Time {
	if s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func bodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > config.MaxErrorBodyLogLen {
		body = body[:config.MaxErrorBodyLogLen]
	}
	return ": " + string(body)
}
