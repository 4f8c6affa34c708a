package waf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/logger"
)

// CookieNames are the cookies the provider's WAF sets once the JS challenge
// has run in a real browser.
var CookieNames = []string{"acw_tc", "cdn_sec_tc", "acw_sc__v2"}

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"
	viewportWidth  = 1920
	viewportHeight = 1080
)

type MissingCookiesError struct {
	Missing []string
}

func (e *MissingCookiesError) Error() string {
	return fmt.Sprintf("missing WAF cookies: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingCookiesError) Unwrap() error {
	return model.ErrWAFAcquisitionFailed
}

type Options struct {
	Headless     bool
	Bin          string
	Proxy        string
	NavTimeout   time.Duration
	ReadyTimeout time.Duration
	SettleDelay  time.Duration
}

// Solver drives a throwaway Chromium profile to the provider login page and
// harvests the WAF cookies. One Solve call owns one browser; calls must not
// overlap.
type Solver struct {
	opts Options
	log  *logger.ClassLogger
}

func NewSolver(opts Options) *Solver {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 5 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 3 * time.Second
	}
	s := &Solver{opts: opts}
	s.log = logger.NewNamed("WAFSolver", nil)
	return s
}

func (s *Solver) Solve(ctx context.Context, label, loginURL string) (map[string]string, error) {
	profileDir, err := os.MkdirTemp("", "waf-profile-*")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create browser profile: %w", model.ErrWAFAcquisitionFailed, err)
	}
	defer os.RemoveAll(profileDir)

	s.log.JustLog(fmt.Sprintf("[%s] starting browser for %s (profile %s)", label, loginURL, profileDir))

	l := launcher.New().
		Context(ctx).
		Headless(s.opts.Headless).
		Leakless(true).
		UserDataDir(profileDir).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("no-default-browser-check")
	if s.opts.Bin != "" {
		l = l.Bin(s.opts.Bin)
	}
	if s.opts.Proxy != "" {
		l = l.Proxy(s.opts.Proxy)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to launch browser: %w", model.ErrWAFAcquisitionFailed, err)
	}
	defer l.Cleanup()
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: failed to connect to browser: %w", model.ErrWAFAcquisitionFailed, err)
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open stealth page: %w", model.ErrWAFAcquisitionFailed, err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
		return nil, fmt.Errorf("%w: failed to set user agent: %w", model.ErrWAFAcquisitionFailed, err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("%w: failed to set viewport: %w", model.ErrWAFAcquisitionFailed, err)
	}

	nav := page.Timeout(s.opts.NavTimeout)
	defer nav.CancelTimeout()
	if err := loadError(ctx, nav.Navigate(loginURL)); err != nil {
		return nil, fmt.Errorf("%w: failed to open login page: %w", model.ErrWAFAcquisitionFailed, err)
	}
	if err := loadError(ctx, nav.WaitLoad()); err != nil {
		s.log.JustLog(fmt.Sprintf("[%s] load event not observed: %v", label, err))
	}

	if err := s.waitReady(ctx, page); err != nil {
		return nil, err
	}

	all, err := browser.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read cookies: %w", model.ErrWAFAcquisitionFailed, err)
	}

	found, missing := collectWAFCookies(all)
	if len(missing) > 0 {
		s.log.JustLog(fmt.Sprintf("[%s] WAF cookies missing: %s", label, strings.Join(missing, ", ")))
		return nil, &MissingCookiesError{Missing: missing}
	}

	s.log.JustLog(fmt.Sprintf("[%s] collected %d WAF cookies", label, len(found)))
	return found, nil
}

// loadError drops a navigation deadline so the readiness step still runs.
// Cancellation of ctx itself is returned as is.
func loadError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// waitReady waits for document.readyState to become "complete". When that
// does not happen within ReadyTimeout it settles for a fixed delay instead.
func (s *Solver) waitReady(ctx context.Context, page *rod.Page) error {
	err := page.Timeout(s.opts.ReadyTimeout).Wait(rod.Eval(`() => document.readyState === "complete"`))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.opts.SettleDelay):
		return nil
	}
}

func collectWAFCookies(cookies []*proto.NetworkCookie) (map[string]string, []string) {
	wanted := make(map[string]bool, len(CookieNames))
	for _, name := range CookieNames {
		wanted[name] = true
	}

	found := make(map[string]string, len(CookieNames))
	for _, c := range cookies {
		if c == nil || !wanted[c.Name] || c.Value == "" {
			continue
		}
		found[c.Name] = c.Value
	}

	var missing []string
	for _, name := range CookieNames {
		if _, ok := found[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return found, missing
}

// IsMissingCookies reports whether err came from an incomplete harvest.
func IsMissingCookies(err error) bool {
	var missingErr *MissingCookiesError
	return errors.As(err, &missingErr)
}
