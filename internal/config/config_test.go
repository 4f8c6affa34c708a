package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccounts_CookieShapes(t *testing.T) {
	raw := `[
		{"name":"main","provider":"anyrouter","cookies":"session=abc; foo=bar","api_user":"1001"},
		{"provider":"agentrouter","cookies":{"session":"xyz"},"api_user":"2002"},
		{"cookies":null,"api_user":"3003"}
	]`

	accounts, err := ParseAccounts([]byte(raw))
	require.NoError(t, err)
	require.Len(t, accounts, 3)

	assert.Equal(t, "session=abc; foo=bar", accounts[0].Cookies.Raw)
	assert.Nil(t, accounts[0].Cookies.Values)
	assert.Equal(t, map[string]string{"session": "xyz"}, accounts[1].Cookies.Values)
	assert.Empty(t, accounts[2].Cookies.Raw)
	assert.Nil(t, accounts[2].Cookies.Values)

	assert.Equal(t, "main", accounts[0].DisplayName(0))
	assert.Equal(t, "Account 2", accounts[1].DisplayName(1))
	assert.Equal(t, "anyrouter", accounts[2].ProviderID())
	assert.Equal(t, "agentrouter", accounts[1].ProviderID())
}

func TestParseAccounts_Errors(t *testing.T) {
	_, err := ParseAccounts([]byte(`[]`))
	assert.ErrorContains(t, err, "account list is empty")

	_, err = ParseAccounts([]byte(`[{"cookies":"a=b"}]`))
	assert.ErrorContains(t, err, "empty api_user at index 0")

	_, err = ParseAccounts([]byte(`[{"cookies":42,"api_user":"1"}]`))
	assert.ErrorContains(t, err, "cookies must be a string or an object")

	_, err = ParseAccounts([]byte(`not json`))
	assert.ErrorContains(t, err, "failed to unmarshal accounts")
}

func TestLoadAccounts_PrefersEnvOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"cookies":"a=b","api_user":"file"}]`), 0o600))

	cfg := Config{AccountsPath: path}
	accounts, err := cfg.LoadAccounts()
	require.NoError(t, err)
	assert.Equal(t, "file", accounts[0].APIUser)

	cfg.AccountsJSON = `[{"cookies":"a=b","api_user":"env"}]`
	accounts, err = cfg.LoadAccounts()
	require.NoError(t, err)
	assert.Equal(t, "env", accounts[0].APIUser)
}

func TestLoadProviders_Defaults(t *testing.T) {
	providers, err := LoadProviders("", "")
	require.NoError(t, err)

	anyRouter := providers["anyrouter"]
	assert.True(t, anyRouter.NeedsWAFCookies)
	assert.True(t, anyRouter.NeedsManualCheckIn)
	assert.Equal(t, "https://anyrouter.top/login", anyRouter.LoginURL())
	assert.Equal(t, "https://anyrouter.top/api/user/sign_in", anyRouter.SignInURL())

	agent := providers["agentrouter"]
	assert.False(t, agent.NeedsWAFCookies)
	assert.False(t, agent.NeedsManualCheckIn)
	assert.Equal(t, "https://agentrouter.org/api/user/self", agent.UserInfoURL())
}

func TestLoadProviders_JSONOverridesAndAdds(t *testing.T) {
	raw := `{
		"anyrouter": {"domain": "https://mirror.example/", "bypass_method": "none"},
		"custom": {"domain": "https://custom.example", "sign_in_path": "/api/checkin", "bypass_method": "waf_cookies"}
	}`

	providers, err := LoadProviders("", raw)
	require.NoError(t, err)

	anyRouter := providers["anyrouter"]
	assert.Equal(t, "https://mirror.example/api/user/self", anyRouter.UserInfoURL())
	assert.False(t, anyRouter.NeedsWAFCookies)
	assert.True(t, anyRouter.NeedsManualCheckIn)

	custom := providers["custom"]
	assert.Equal(t, "custom", custom.Name)
	assert.True(t, custom.NeedsWAFCookies)
	assert.True(t, custom.NeedsManualCheckIn)
	assert.Equal(t, "new-api-user", custom.APIUserKey)
	assert.Equal(t, "https://custom.example/login", custom.LoginURL())
}

func TestLoadProviders_YAMLThenJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.yaml")
	yamlDoc := `
agentrouter:
  sign_in_path: /api/user/sign_in
  needs_waf_cookies: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	providers, err := LoadProviders(path, `{"agentrouter":{"needs_manual_check_in":false}}`)
	require.NoError(t, err)

	agent := providers["agentrouter"]
	assert.True(t, agent.NeedsWAFCookies)
	assert.Equal(t, "/api/user/sign_in", agent.SignInPath)
	assert.False(t, agent.NeedsManualCheckIn)
}

func TestLoadProviders_Invalid(t *testing.T) {
	_, err := LoadProviders("", `{"broken": {"domain": ""}}`)
	assert.ErrorContains(t, err, `provider "broken": domain is required`)

	_, err = LoadProviders("", `{"anyrouter": {"sign_in_path": "", "needs_manual_check_in": true}}`)
	assert.ErrorContains(t, err, "sign_in_path is required")

	_, err = LoadProviders("", `{`)
	assert.ErrorContains(t, err, "failed to parse PROVIDERS")

	_, err = LoadProviders(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.ErrorContains(t, err, "failed to read providers file")
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ANYROUTER_ACCOUNTS", `[{"cookies":"a=b","api_user":"1"}]`)
	t.Setenv("DINGDING_WEBHOOK", " https://hooks.example/robot ")
	t.Setenv("HTTP_TIMEOUT", "12")
	t.Setenv("WAF_SETTLE_DELAY", "1500ms")
	t.Setenv("BROWSER_HEADLESS", "true")
	t.Setenv("PROVIDERS", "")
	t.Setenv("PROVIDERS_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://hooks.example/robot", cfg.WebhookURL)
	assert.Equal(t, 12*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.WAFSettleDelay)
	assert.Equal(t, 5*time.Second, cfg.WAFReadyTimeout)
	assert.Equal(t, 30*time.Second, cfg.WAFNavTimeout)
	assert.True(t, cfg.BrowserHeadless)
	assert.Equal(t, "balance_hash.txt", cfg.DigestPath)

	p, ok := cfg.Provider(" anyrouter ")
	require.True(t, ok)
	assert.Equal(t, "anyrouter", p.Name)
	_, ok = cfg.Provider("unknown")
	assert.False(t, ok)
}

func TestParseDurationWithDefault(t *testing.T) {
	assert.Equal(t, 30*time.Second, parseDurationWithDefault("", 30*time.Second))
	assert.Equal(t, 2*time.Second, parseDurationWithDefault("2s", 30*time.Second))
	assert.Equal(t, 7*time.Second, parseDurationWithDefault("7", 30*time.Second))
	assert.Equal(t, 30*time.Second, parseDurationWithDefault("-3", 30*time.Second))
	assert.Equal(t, 30*time.Second, parseDurationWithDefault("soon", 30*time.Second))
}
