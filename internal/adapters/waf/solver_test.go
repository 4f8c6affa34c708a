package waf

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func TestCollectWAFCookies_AllPresent(t *testing.T) {
	cookies := []*proto.NetworkCookie{
		{Name: "acw_tc", Value: "tc", Domain: "anyrouter.top"},
		{Name: "session", Value: "ignored"},
		{Name: "cdn_sec_tc", Value: "sec"},
		nil,
		{Name: "acw_sc__v2", Value: "v2"},
	}

	found, missing := collectWAFCookies(cookies)

	assert.Empty(t, missing)
	assert.Equal(t, map[string]string{"acw_tc": "tc", "cdn_sec_tc": "sec", "acw_sc__v2": "v2"}, found)
}

func TestCollectWAFCookies_ReportsMissing(t *testing.T) {
	found, missing := collectWAFCookies([]*proto.NetworkCookie{{Name: "acw_tc", Value: "tc"}})

	assert.Equal(t, map[string]string{"acw_tc": "tc"}, found)
	assert.Equal(t, []string{"acw_sc__v2", "cdn_sec_tc"}, missing)

	_, missing = collectWAFCookies(nil)
	assert.Len(t, missing, 3)
}

func TestCollectWAFCookies_EmptyValueIsMissing(t *testing.T) {
	found, missing := collectWAFCookies([]*proto.NetworkCookie{
		{Name: "acw_tc", Value: ""},
		{Name: "cdn_sec_tc", Value: "x"},
		{Name: "acw_sc__v2", Value: "y"},
	})

	assert.Equal(t, []string{"acw_tc"}, missing)
	assert.NotContains(t, found, "acw_tc")
}

func TestLoadError(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, loadError(ctx, nil))
	assert.NoError(t, loadError(ctx, fmt.Errorf("navigate: %w", context.DeadlineExceeded)))

	boom := errors.New("net::ERR_NAME_NOT_RESOLVED")
	assert.ErrorIs(t, loadError(ctx, boom), boom)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, loadError(cancelled, context.DeadlineExceeded), context.Canceled)
}

func TestMissingCookiesError(t *testing.T) {
	var err error = &MissingCookiesError{Missing: []string{"acw_sc__v2"}}
	wrapped := fmt.Errorf("account main: %w", err)

	assert.ErrorIs(t, wrapped, model.ErrWAFAcquisitionFailed)
	assert.True(t, IsMissingCookies(wrapped))
	assert.False(t, IsMissingCookies(errors.New("boom")))
	assert.Equal(t, "missing WAF cookies: acw_sc__v2", err.Error())
}

func TestNewSolver_Defaults(t *testing.T) {
	s := NewSolver(Options{})
	assert.Equal(t, 30*time.Second, s.opts.NavTimeout)
	assert.Equal(t, 5*time.Second, s.opts.ReadyTimeout)
	assert.Equal(t, 3*time.Second, s.opts.SettleDelay)

	s = NewSolver(Options{ReadyTimeout: time.Second, SettleDelay: 500 * time.Millisecond})
	assert.Equal(t, time.Second, s.opts.ReadyTimeout)
	assert.Equal(t, 500*time.Millisecond, s.opts.SettleDelay)
}
