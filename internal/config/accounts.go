package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

const defaultProviderID = "anyrouter"

type Account struct {
	Name     string  `json:"name"`
	Provider string  `json:"provider"`
	Cookies  Cookies `json:"cookies" log:"-"`
	APIUser  string  `json:"api_user" log:"secret"`
}

// Cookies holds the user-supplied cookie payload, either a raw
// "k=v; k2=v2" string or a ready name/value mapping.
type Cookies struct {
	Raw    string
	Values map[string]string
}

func (c *Cookies) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Cookies{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*c = Cookies{Raw: raw}
		return nil
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("cookies must be a string or an object of strings: %w", err)
	}
	*c = Cookies{Values: values}
	return nil
}

func (a Account) DisplayName(idx int) string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Account %d", idx+1)
}

func (a Account) ProviderID() string {
	if id := strings.TrimSpace(a.Provider); id != "" {
		return id
	}
	return defaultProviderID
}

// LoadAccounts reads ANYROUTER_ACCOUNTS when set, else the accounts file.
func (c Config) LoadAccounts() ([]Account, error) {
	var b []byte
	if strings.TrimSpace(c.AccountsJSON) != "" {
		b = []byte(c.AccountsJSON)
	} else {
		var err error
		b, err = os.ReadFile(c.AccountsPath)
		if err != nil {
			return nil, err
		}
	}
	return ParseAccounts(b)
}

func ParseAccounts(b []byte) ([]Account, error) {
	var accounts []Account
	if err := json.Unmarshal(b, &accounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, errors.New("invalid account input: account list is empty")
	}
	for idx, acc := range accounts {
		if strings.TrimSpace(acc.APIUser) == "" {
			return nil, fmt.Errorf("invalid account input: empty api_user at index %d", idx)
		}
	}
	return accounts, nil
}
