package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestClassLogger_WritesStructuredLines(t *testing.T) {
	session := &model.Session{AccIdx: 1, Name: "main", RunID: "run-42"}

	// no-op before Init
	NewNamed("Worker", session).JustLog("dropped")

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, Init(path))
	t.Cleanup(func() { _ = Close() })

	NewNamed("Worker", session).JustLog("fetching balance")
	NewNamed("App", nil).Warn("no webhook configured")
	NewLogger(&struct{ Name string }{}, nil).LogObject("payload", map[string]int{"a": 1})

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	first := gjson.Parse(lines[0])
	assert.Equal(t, "fetching balance", first.Get("message").String())
	assert.Equal(t, "main", first.Get("account").String())
	assert.Equal(t, int64(2), first.Get("account_idx").Int())
	assert.Equal(t, "run-42", first.Get("run_id").String())
	assert.Equal(t, "debug", first.Get("level").String())
	assert.True(t, first.Get("func").Exists())

	second := gjson.Parse(lines[1])
	assert.Equal(t, "warn", second.Get("level").String())
	assert.Equal(t, "App", second.Get("class").String())

	third := gjson.Parse(lines[2])
	assert.Contains(t, third.Get("message").String(), `"a": 1`)
	assert.NotContains(t, string(data), "dropped")
}

func TestShortenForDisplay(t *testing.T) {
	short := "balance fetched"
	assert.Equal(t, short, shortenForDisplay(short))

	long := strings.Repeat("x", 200)
	got := shortenForDisplay(long)
	assert.Len(t, []rune(got), 140)
	assert.True(t, strings.HasSuffix(got, "…"))
}
