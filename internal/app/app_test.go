package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ohmynofan/router-checkin-bot/internal/adapters/waf"
	"github.com/ohmynofan/router-checkin-bot/internal/config"
	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/ohmynofan/router-checkin-bot/internal/storage/digest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSolver struct{ calls int }

func (s *failingSolver) Solve(context.Context, string, string) (map[string]string, error) {
	s.calls++
	return nil, &waf.MissingCookiesError{Missing: []string{"acw_sc__v2"}}
}

type recordingNotifier struct {
	enabled bool
	err     error
	sent    []string
}

func (n *recordingNotifier) Enabled() bool { return n.enabled }

func (n *recordingNotifier) Send(_ context.Context, content string) error {
	n.sent = append(n.sent, content)
	return n.err
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/user/self" {
			_, _ = io.WriteString(w, `{"success":true,"data":{"quota":12345678,"used_quota":1000000}}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, upstream string) config.Config {
	t.Helper()
	return config.Config{
		AccountsJSON: `[
			{"name":"main","provider":"waf","cookies":"session=a","api_user":"1"},
			{"provider":"open","cookies":{"session":"b"},"api_user":"2"}
		]`,
		NotifyTitle: "Check-in report",
		HTTPTimeout: 2 * time.Second,
		Providers: map[string]config.Provider{
			"waf": {
				Name: "waf", Domain: upstream, LoginPath: "/login", UserInfoPath: "/api/user/self",
				SignInPath: "/api/user/sign_in", APIUserKey: "new-api-user",
				NeedsWAFCookies: true, NeedsManualCheckIn: true,
			},
			"open": {
				Name: "open", Domain: upstream, LoginPath: "/login", UserInfoPath: "/api/user/self",
				APIUserKey: "new-api-user",
			},
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
}

func TestRun_OneWAFFailureOneSuccess(t *testing.T) {
	upstream := newUpstream(t)
	solver := &failingSolver{}
	notifier := &recordingNotifier{enabled: true}
	store := digest.NewFileStore(filepath.Join(t.TempDir(), "balance_hash.txt"))

	summary, err := New(newTestConfig(t, upstream.URL), Options{
		Solver:   solver,
		Notifier: notifier,
		Digests:  store,
		Now:      fixedNow,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, solver.calls)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, summary.Fail)
	assert.Equal(t, 2, summary.Total)
	assert.True(t, summary.Succeeded())
	assert.False(t, summary.AllSucceeded())
	assert.NotEmpty(t, summary.RunID)

	require.Len(t, summary.Rows, 1)
	assert.Equal(t, "Account 2", summary.Rows[0].Name)
	assert.True(t, decimal.RequireFromString("24.69").Equal(summary.Rows[0].Balance))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "Account 2: balance $24.69, used $2.00")
	assert.NotContains(t, notifier.sent[0], "main")
	assert.Contains(t, notifier.sent[0], "Success: 1/2")
	assert.Contains(t, notifier.sent[0], "Some accounts failed")

	want := digest.Compute(map[string]decimal.Decimal{"Account 2": decimal.RequireFromString("24.69")})
	assert.Equal(t, want, summary.Digest)
	assert.Empty(t, summary.PreviousDigest)
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, saved)
}

func TestRun_SendsEvenWhenDigestUnchanged(t *testing.T) {
	upstream := newUpstream(t)
	notifier := &recordingNotifier{enabled: true}
	store := digest.NewFileStore(filepath.Join(t.TempDir(), "balance_hash.txt"))
	app := New(newTestConfig(t, upstream.URL), Options{Solver: &failingSolver{}, Notifier: notifier, Digests: store, Now: fixedNow})

	first, err := app.Run(context.Background())
	require.NoError(t, err)
	second, err := app.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, second.DigestChanged())
	assert.Equal(t, first.Digest, second.PreviousDigest)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Len(t, notifier.sent, 2)
}

func TestRun_NotifierFailureKeepsResult(t *testing.T) {
	upstream := newUpstream(t)
	notifier := &recordingNotifier{enabled: true, err: errors.New("connection refused")}

	summary, err := New(newTestConfig(t, upstream.URL), Options{Solver: &failingSolver{}, Notifier: notifier}).Run(context.Background())

	require.NoError(t, err)
	assert.True(t, summary.Succeeded())
	assert.Len(t, notifier.sent, 1)
}

func TestRun_DisabledNotifierIsSkipped(t *testing.T) {
	upstream := newUpstream(t)
	notifier := &recordingNotifier{enabled: false}

	_, err := New(newTestConfig(t, upstream.URL), Options{Solver: &failingSolver{}, Notifier: notifier}).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, notifier.sent)
}

func TestRun_AllFailedOverwritesDigest(t *testing.T) {
	cfg := newTestConfig(t, "http://127.0.0.1:1")
	cfg.AccountsJSON = `[{"provider":"waf","cookies":"a=b","api_user":"1"}]`
	store := digest.NewFileStore(filepath.Join(t.TempDir(), "balance_hash.txt"))
	require.NoError(t, store.Save("abf28624ceec7949"))

	summary, err := New(cfg, Options{Solver: &failingSolver{}, Digests: store}).Run(context.Background())

	require.NoError(t, err)
	assert.False(t, summary.Succeeded())
	assert.Equal(t, 1, summary.Fail)
	assert.Empty(t, summary.Rows)
	assert.Equal(t, "abf28624ceec7949", summary.PreviousDigest)

	empty := digest.Compute(nil)
	assert.Equal(t, empty, summary.Digest)
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, empty, saved)
}

func TestRun_Interrupted(t *testing.T) {
	upstream := newUpstream(t)
	notifier := &recordingNotifier{enabled: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(newTestConfig(t, upstream.URL), Options{Solver: &failingSolver{}, Notifier: notifier}).Run(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Success)
	assert.Empty(t, notifier.sent)
}

func TestRun_InvalidAccounts(t *testing.T) {
	cfg := newTestConfig(t, "http://127.0.0.1:1")
	cfg.AccountsJSON = `[]`

	_, err := New(cfg, Options{}).Run(context.Background())

	assert.ErrorIs(t, err, model.ErrConfigurationInvalid)
}
