package worker

import (
	"strings"

	"github.com/ohmynofan/router-checkin-bot/internal/config"
)

// ParseCookies turns the configured cookie payload into a name/value map.
// Object payloads are used as-is (blank names dropped); string payloads are
// split on ";" and each segment on its first "=".
func ParseCookies(c config.Cookies) map[string]string {
	if c.Values != nil {
		out := make(map[string]string, len(c.Values))
		for name, value := range c.Values {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			out[name] = strings.TrimSpace(value)
		}
		return out
	}
	return parseCookieString(c.Raw)
}

func parseCookieString(raw string) map[string]string {
	out := make(map[string]string)
	for _, segment := range strings.Split(raw, ";") {
		name, value, found := strings.Cut(segment, "=")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = strings.TrimSpace(value)
	}
	return out
}

// MergeCookies layers user cookies over WAF cookies; on a name collision the
// user value wins.
func MergeCookies(waf, user map[string]string) map[string]string {
	merged := make(map[string]string, len(waf)+len(user))
	for name, value := range waf {
		merged[name] = value
	}
	for name, value := range user {
		merged[name] = value
	}
	return merged
}
