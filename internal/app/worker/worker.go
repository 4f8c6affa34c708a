package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	adhttp "github.com/ohmynofan/router-checkin-bot/internal/adapters/http"
	"github.com/ohmynofan/router-checkin-bot/internal/adapters/waf"
	"github.com/ohmynofan/router-checkin-bot/internal/config"
	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/logger"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/ui"
	"github.com/ohmynofan/router-checkin-bot/internal/storage/checkinlog"
)

const (
	statusWaiting    = "WAITING"
	statusInProgress = "IN PROGRESS"
	statusSkipped    = "SKIPPED"
	statusDone       = "DONE"
	statusFailed     = "FAILED"
	statusIncomplete = "INCOMPLETE"
	statusAutomatic  = "AUTOMATIC"
)

type WAFSolver interface {
	Solve(ctx context.Context, label, loginURL string) (map[string]string, error)
}

type History interface {
	Record(entry checkinlog.Entry) error
	DailyStatus(account, provider string, day time.Time) (checkinlog.Entry, bool, error)
}

// Deps are shared by every account in a run. History may be nil.
type Deps struct {
	Config  config.Config
	Solver  WAFSolver
	History History
	Now     func() time.Time
}

type Worker struct {
	account config.Account
	deps    Deps
	session *model.Session
	log     *logger.ClassLogger
}

func New(account config.Account, index int, runID string, deps Deps) *Worker {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	session := &model.Session{
		AccIdx:        index,
		Name:          account.DisplayName(index),
		Provider:      account.ProviderID(),
		RunID:         runID,
		WAFStatus:     statusWaiting,
		BalanceStatus: statusWaiting,
		CheckInStatus: statusWaiting,
	}
	return &Worker{
		account: account,
		deps:    deps,
		session: session,
		log:     logger.NewNamed(fmt.Sprintf("Operation - %s", session.Name), session),
	}
}

func (w *Worker) Session() *model.Session {
	return w.session
}

// Run processes the account once. It never panics and never returns an
// error: every failure ends up in the outcome's Reason.
func (w *Worker) Run(ctx context.Context) (outcome model.CheckInOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = model.CheckInOutcome{OK: false, Reason: fmt.Sprintf("check-in aborted: %v", r)}
			w.log.JustLog(fmt.Sprintf("recovered panic: %v", r))
		}
		w.finish(outcome)
	}()

	return w.run(ctx)
}

func (w *Worker) run(ctx context.Context) model.CheckInOutcome {
	if err := ctx.Err(); err != nil {
		return w.fail(fmt.Errorf("interrupted: %w", err))
	}

	prov, ok := w.deps.Config.Provider(w.account.ProviderID())
	if !ok {
		return w.fail(fmt.Errorf("%w: provider %q not found", model.ErrConfigurationInvalid, w.account.ProviderID()))
	}
	w.log.Log(fmt.Sprintf("Starting check-in on %s", prov.Name))
	w.log.LogObject("provider", prov)
	w.log.LogObject("account", w.account)

	cookies, err := w.assembleCookies(ctx, prov)
	if err != nil {
		return w.fail(err)
	}

	apiClient, err := adhttp.NewAPIClient(adhttp.ClientOptions{
		BaseURL: prov.Domain,
		Cookies: cookies,
		Proxy:   w.deps.Config.Proxy,
		Timeout: w.deps.Config.HTTPTimeout,
	}, w.session)
	if err != nil {
		return w.fail(fmt.Errorf("%w: %w", model.ErrConfigurationInvalid, err))
	}
	defer apiClient.Close()
	w.log.JustLog(fmt.Sprintf("session assembled with %d cookies", apiClient.CookieCount()))

	executor := NewExecutor(apiClient, prov, w.account, w.log)

	w.session.BalanceStatus = statusInProgress
	w.log.Log("Fetching balance")
	balance := executor.FetchBalance(ctx)
	if balance.Success {
		w.session.BalanceStatus = statusDone
		w.session.Balance = balance.Display
		w.log.Log(balance.Display)
	} else {
		w.session.BalanceStatus = statusFailed
		w.log.Warn(fmt.Sprintf("Unable to get balance: %s", balance.Error))
	}

	if !prov.NeedsManualCheckIn {
		w.session.CheckInStatus = statusAutomatic
		w.log.Log("Check-in completed automatically")
		return model.CheckInOutcome{OK: true, Balance: &balance, Reason: "check-in completed automatically"}
	}

	w.noteEarlierCheckIn()

	w.session.CheckInStatus = statusInProgress
	w.log.Log("Executing check-in")
	result := executor.CheckIn(ctx)
	if !result.OK {
		w.session.CheckInStatus = statusFailed
		w.log.Warn(fmt.Sprintf("Check-in failed: %s", result.Message))
		return model.CheckInOutcome{OK: false, Balance: &balance, Reason: "check-in failed: " + result.Message}
	}

	w.session.CheckInStatus = statusDone
	w.log.Log(fmt.Sprintf("Check-in successful: %s", result.Message))
	return model.CheckInOutcome{OK: true, Balance: &balance, Reason: result.Message}
}

// assembleCookies builds the session cookie set. WAF cookies go in first
// when the provider needs them; no request is made without all of them.
func (w *Worker) assembleCookies(ctx context.Context, prov config.Provider) (map[string]string, error) {
	userCookies := ParseCookies(w.account.Cookies)
	if len(userCookies) == 0 {
		return nil, fmt.Errorf("%w: invalid cookies configuration", model.ErrConfigurationInvalid)
	}

	if !prov.NeedsWAFCookies {
		w.session.WAFStatus = statusSkipped
		return userCookies, nil
	}

	wafCookies, err := w.acquireWAF(ctx, prov)
	if err != nil {
		return nil, err
	}
	return MergeCookies(wafCookies, userCookies), nil
}

func (w *Worker) acquireWAF(ctx context.Context, prov config.Provider) (map[string]string, error) {
	if w.deps.Solver == nil {
		w.session.WAFStatus = statusFailed
		return nil, fmt.Errorf("%w: no browser available", model.ErrWAFAcquisitionFailed)
	}

	w.session.WAFStatus = statusInProgress
	w.log.Log(fmt.Sprintf("Acquiring WAF cookies from %s", prov.LoginURL()))
	wafCookies, err := w.deps.Solver.Solve(ctx, w.session.Name, prov.LoginURL())
	if err != nil {
		w.session.WAFStatus = statusFailed
		if waf.IsMissingCookies(err) {
			w.session.WAFStatus = statusIncomplete
		}
		if !errors.Is(err, model.ErrWAFAcquisitionFailed) {
			err = fmt.Errorf("%w: %w", model.ErrWAFAcquisitionFailed, err)
		}
		return nil, fmt.Errorf("unable to get WAF cookies: %w", err)
	}

	w.session.WAFStatus = statusDone
	w.log.JustLog(fmt.Sprintf("acquired %d WAF cookies", len(wafCookies)))
	return wafCookies, nil
}

// noteEarlierCheckIn only logs; a same-day repeat still runs the check-in.
func (w *Worker) noteEarlierCheckIn() {
	if w.deps.History == nil {
		return
	}
	entry, found, err := w.deps.History.DailyStatus(w.session.Name, w.account.ProviderID(), w.deps.Now())
	if err != nil {
		w.log.JustLog(fmt.Sprintf("check-in history unavailable: %v", err))
		return
	}
	if found && entry.CheckedIn {
		w.log.Log(fmt.Sprintf("Already checked in today (run %s), checking in again", entry.RunID))
	}
}

func (w *Worker) fail(err error) model.CheckInOutcome {
	reason := err.Error()
	w.log.Warn(reason)
	return model.CheckInOutcome{OK: false, Reason: reason}
}

func (w *Worker) finish(outcome model.CheckInOutcome) {
	w.session.LastResult = outcome.Reason
	w.record(outcome)

	if outcome.OK {
		ui.SetSpinnerSuccess(*w.session, defaultReason(outcome.Reason, "Account processing complete"))
	} else {
		ui.SetSpinnerError(*w.session, defaultReason(outcome.Reason, "Account processing failed"))
	}
}

func (w *Worker) record(outcome model.CheckInOutcome) {
	if w.deps.History == nil {
		return
	}
	entry := checkinlog.Entry{
		Account:   w.session.Name,
		Provider:  w.account.ProviderID(),
		Day:       w.deps.Now(),
		RunID:     w.session.RunID,
		CheckedIn: outcome.OK,
		Message:   outcome.Reason,
		UpdatedAt: w.deps.Now(),
	}
	if balance, ok := outcome.UsableBalance(); ok {
		entry.Balance = balance.Quota.StringFixed(2)
		entry.Used = balance.UsedQuota.StringFixed(2)
	}
	if err := w.deps.History.Record(entry); err != nil {
		w.log.JustLog(fmt.Sprintf("failed to record check-in history: %v", err))
	}
}

func defaultReason(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}
