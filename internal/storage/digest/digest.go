package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

const digestLen = 16

// Compute hashes the name-to-quota mapping. Keys are sorted by the JSON
// encoder, so equal mappings always give the same digest. An empty mapping
// hashes as {}.
func Compute(balances map[string]decimal.Decimal) string {
	canonical := make(map[string]json.Number, len(balances))
	for name, quota := range balances {
		canonical[name] = json.Number(quota.String())
	}
	payload, err := json.Marshal(canonical)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:digestLen]
}

// FileStore keeps the last digest in a single text file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns "" when the file does not exist yet.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read digest file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) Save(value string) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create digest directory: %w", err)
		}
	}
	if err := os.WriteFile(s.Path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to write digest file: %w", err)
	}
	return nil
}
