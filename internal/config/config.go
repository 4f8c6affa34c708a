package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AccountsJSON    string
	AccountsPath    string
	ProvidersJSON   string
	ProvidersFile   string
	WebhookURL      string
	WebhookSecret   string
	NotifyTitle     string
	DigestPath      string
	CheckInDBPath   string
	LogPath         string
	Proxy           string
	HTTPTimeout     time.Duration
	WebhookTimeout  time.Duration
	BrowserHeadless bool
	BrowserBin      string
	WAFNavTimeout   time.Duration
	WAFReadyTimeout time.Duration
	WAFSettleDelay  time.Duration

	Providers map[string]Provider
}

const (
	defaultAccountsPath  = "configs/accounts.json"
	defaultDigestPath    = "balance_hash.txt"
	defaultCheckInDBPath = "data/checkin.db"
	defaultLogPath       = "logs/app.log"
	defaultNotifyTitle   = "AnyRouter / AgentRouter check-in report"

	defaultHTTPTimeout     = 30 * time.Second
	defaultWebhookTimeout  = 10 * time.Second
	defaultWAFNavTimeout   = 30 * time.Second
	defaultWAFReadyTimeout = 5 * time.Second
	defaultWAFSettleDelay  = 3 * time.Second
)

func Load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := Config{
		AccountsJSON:    strings.TrimSpace(os.Getenv("ANYROUTER_ACCOUNTS")),
		AccountsPath:    envString("ACCOUNTS_PATH", defaultAccountsPath),
		ProvidersJSON:   strings.TrimSpace(os.Getenv("PROVIDERS")),
		ProvidersFile:   strings.TrimSpace(os.Getenv("PROVIDERS_FILE")),
		WebhookURL:      strings.TrimSpace(os.Getenv("DINGDING_WEBHOOK")),
		WebhookSecret:   strings.TrimSpace(os.Getenv("DINGDING_SECRET")),
		NotifyTitle:     envString("NOTIFY_TITLE", defaultNotifyTitle),
		DigestPath:      envString("BALANCE_HASH_FILE", defaultDigestPath),
		CheckInDBPath:   envString("CHECKIN_DB_PATH", defaultCheckInDBPath),
		LogPath:         envString("LOG_PATH", defaultLogPath),
		Proxy:           strings.TrimSpace(os.Getenv("PROXY")),
		HTTPTimeout:     parseDurationWithDefault(os.Getenv("HTTP_TIMEOUT"), defaultHTTPTimeout),
		WebhookTimeout:  defaultWebhookTimeout,
		BrowserHeadless: parseBoolWithDefault(os.Getenv("BROWSER_HEADLESS"), false),
		BrowserBin:      strings.TrimSpace(os.Getenv("BROWSER_BIN")),
		WAFNavTimeout:   parseDurationWithDefault(os.Getenv("WAF_NAV_TIMEOUT"), defaultWAFNavTimeout),
		WAFReadyTimeout: parseDurationWithDefault(os.Getenv("WAF_READY_TIMEOUT"), defaultWAFReadyTimeout),
		WAFSettleDelay:  parseDurationWithDefault(os.Getenv("WAF_SETTLE_DELAY"), defaultWAFSettleDelay),
	}

	providers, err := LoadProviders(cfg.ProvidersFile, cfg.ProvidersJSON)
	if err != nil {
		return cfg, err
	}
	cfg.Providers = providers

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AccountsJSON) == "" && strings.TrimSpace(c.AccountsPath) == "" {
		return errors.New("account list required (provide ANYROUTER_ACCOUNTS or ACCOUNTS_PATH)")
	}
	if len(c.Providers) == 0 {
		return errors.New("provider registry is empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid HTTP_TIMEOUT: %s", c.HTTPTimeout)
	}
	return nil
}

func (c Config) Provider(id string) (Provider, bool) {
	p, ok := c.Providers[strings.TrimSpace(id)]
	return p, ok
}

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

// parseDurationWithDefault accepts Go durations ("5s") or plain seconds ("5").
func parseDurationWithDefault(value string, defaultVal time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	if v, err := strconv.Atoi(value); err == nil && v >= 0 {
		return time.Duration(v) * time.Second
	}
	return defaultVal
}

func parseBoolWithDefault(value string, defaultVal bool) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultVal
	}
	if v, err := strconv.ParseBool(value); err == nil {
		return v
	}
	return defaultVal
}
