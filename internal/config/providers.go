package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const bypassWAFCookies = "waf_cookies"

type Provider struct {
	Name               string `json:"name" yaml:"name"`
	Domain             string `json:"domain" yaml:"domain"`
	LoginPath          string `json:"login_path" yaml:"login_path"`
	UserInfoPath       string `json:"user_info_path" yaml:"user_info_path"`
	SignInPath         string `json:"sign_in_path" yaml:"sign_in_path"`
	APIUserKey         string `json:"api_user_key" yaml:"api_user_key"`
	NeedsWAFCookies    bool   `json:"needs_waf_cookies" yaml:"needs_waf_cookies"`
	NeedsManualCheckIn bool   `json:"needs_manual_check_in" yaml:"needs_manual_check_in"`
}

var AnyRouter = Provider{
	Name:               "anyrouter",
	Domain:             "https://anyrouter.top",
	LoginPath:          "/login",
	UserInfoPath:       "/api/user/self",
	SignInPath:         "/api/user/sign_in",
	APIUserKey:         "new-api-user",
	NeedsWAFCookies:    true,
	NeedsManualCheckIn: true,
}

var AgentRouter = Provider{
	Name:               "agentrouter",
	Domain:             "https://agentrouter.org",
	LoginPath:          "/login",
	UserInfoPath:       "/api/user/self",
	SignInPath:         "",
	APIUserKey:         "new-api-user",
	NeedsWAFCookies:    false,
	NeedsManualCheckIn: false,
}

func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		AnyRouter.Name:   AnyRouter,
		AgentRouter.Name: AgentRouter,
	}
}

func (p Provider) LoginURL() string    { return p.url(p.LoginPath) }
func (p Provider) UserInfoURL() string { return p.url(p.UserInfoPath) }
func (p Provider) SignInURL() string   { return p.url(p.SignInPath) }

func (p Provider) url(path string) string {
	base := strings.TrimRight(strings.TrimSpace(p.Domain), "/")
	path = strings.TrimSpace(path)
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func (p Provider) Validate() error {
	if strings.TrimSpace(p.Domain) == "" {
		return fmt.Errorf("provider %q: domain is required", p.Name)
	}
	if strings.TrimSpace(p.UserInfoPath) == "" {
		return fmt.Errorf("provider %q: user_info_path is required", p.Name)
	}
	if strings.TrimSpace(p.APIUserKey) == "" {
		return fmt.Errorf("provider %q: api_user_key is required", p.Name)
	}
	if p.NeedsManualCheckIn && strings.TrimSpace(p.SignInPath) == "" {
		return fmt.Errorf("provider %q: sign_in_path is required for manual check-in", p.Name)
	}
	if p.NeedsWAFCookies && strings.TrimSpace(p.LoginPath) == "" {
		return fmt.Errorf("provider %q: login_path is required to acquire waf cookies", p.Name)
	}
	return nil
}

// providerEntry is the override shape read from PROVIDERS / PROVIDERS_FILE.
// Absent fields keep the value of the built-in provider with the same id.
type providerEntry struct {
	Domain             *string `json:"domain" yaml:"domain"`
	LoginPath          *string `json:"login_path" yaml:"login_path"`
	UserInfoPath       *string `json:"user_info_path" yaml:"user_info_path"`
	SignInPath         *string `json:"sign_in_path" yaml:"sign_in_path"`
	APIUserKey         *string `json:"api_user_key" yaml:"api_user_key"`
	NeedsWAFCookies    *bool   `json:"needs_waf_cookies" yaml:"needs_waf_cookies"`
	BypassMethod       *string `json:"bypass_method" yaml:"bypass_method"`
	NeedsManualCheckIn *bool   `json:"needs_manual_check_in" yaml:"needs_manual_check_in"`
}

func (e providerEntry) apply(p Provider) Provider {
	if e.Domain != nil {
		p.Domain = strings.TrimSpace(*e.Domain)
	}
	if e.LoginPath != nil {
		p.LoginPath = strings.TrimSpace(*e.LoginPath)
	}
	if e.UserInfoPath != nil {
		p.UserInfoPath = strings.TrimSpace(*e.UserInfoPath)
	}
	if e.SignInPath != nil {
		p.SignInPath = strings.TrimSpace(*e.SignInPath)
		p.NeedsManualCheckIn = p.SignInPath != ""
	}
	if e.APIUserKey != nil {
		p.APIUserKey = strings.TrimSpace(*e.APIUserKey)
	}
	if e.BypassMethod != nil {
		p.NeedsWAFCookies = strings.EqualFold(strings.TrimSpace(*e.BypassMethod), bypassWAFCookies)
	}
	if e.NeedsWAFCookies != nil {
		p.NeedsWAFCookies = *e.NeedsWAFCookies
	}
	if e.NeedsManualCheckIn != nil {
		p.NeedsManualCheckIn = *e.NeedsManualCheckIn
	}
	return p
}

// LoadProviders builds the registry: built-ins, then the YAML file, then the
// JSON string. Later sources override earlier ones field by field.
func LoadProviders(yamlPath, rawJSON string) (map[string]Provider, error) {
	providers := DefaultProviders()

	if strings.TrimSpace(yamlPath) != "" {
		b, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read providers file: %w", err)
		}
		var entries map[string]providerEntry
		if err := yaml.Unmarshal(b, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse providers file: %w", err)
		}
		mergeProviders(providers, entries)
	}

	if strings.TrimSpace(rawJSON) != "" {
		var entries map[string]providerEntry
		if err := json.Unmarshal([]byte(rawJSON), &entries); err != nil {
			return nil, fmt.Errorf("failed to parse PROVIDERS: %w", err)
		}
		mergeProviders(providers, entries)
	}

	ids := make([]string, 0, len(providers))
	for id := range providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := providers[id].Validate(); err != nil {
			return nil, err
		}
	}
	return providers, nil
}

func mergeProviders(dst map[string]Provider, entries map[string]providerEntry) {
	for rawID, entry := range entries {
		id := strings.TrimSpace(rawID)
		if id == "" {
			continue
		}
		base, ok := dst[id]
		if !ok {
			base = Provider{
				Name:         id,
				LoginPath:    "/login",
				UserInfoPath: "/api/user/self",
				APIUserKey:   "new-api-user",
			}
		}
		dst[id] = entry.apply(base)
	}
}
