package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ohmynofan/router-checkin-bot/internal/app/worker"
	"github.com/ohmynofan/router-checkin-bot/internal/config"
	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/logger"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/ui"
	"github.com/ohmynofan/router-checkin-bot/internal/storage/digest"
	"github.com/shopspring/decimal"
)

type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, content string) error
}

type DigestStore interface {
	Load() (string, error)
	Save(value string) error
}

// Options holds the collaborators of a run. Notifier, Digests and History
// are optional.
type Options struct {
	Solver   worker.WAFSolver
	Notifier Notifier
	Digests  DigestStore
	History  worker.History
	Now      func() time.Time
}

type App struct {
	cfg  config.Config
	opts Options
	log  *logger.ClassLogger
}

func New(cfg config.Config, opts Options) *App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	app := &App{cfg: cfg, opts: opts}
	app.log = logger.NewLogger(app, nil)
	return app
}

// Run checks in every configured account, one after another, then reports
// the balances. The returned error is only set for configuration problems
// or an interrupted run; per-account failures are counted in the summary.
func (app *App) Run(ctx context.Context) (model.RunSummary, error) {
	accounts, err := app.cfg.LoadAccounts()
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("%w: %w", model.ErrConfigurationInvalid, err)
	}

	runID := uuid.NewString()
	app.log.JustLog(fmt.Sprintf("run %s started with %d accounts", runID, len(accounts)))
	app.log.Log(fmt.Sprintf("Processing %d accounts", len(accounts)))

	summary, balances := app.processAccounts(ctx, accounts, runID)
	if err := ctx.Err(); err != nil {
		app.log.Warn("Run interrupted, skipping notification")
		return summary, fmt.Errorf("run interrupted: %w", err)
	}

	summary.Digest = digest.Compute(balances)
	summary.PreviousDigest = app.loadDigest()
	if summary.DigestChanged() {
		app.log.JustLog(fmt.Sprintf("balance digest changed: %q -> %q", summary.PreviousDigest, summary.Digest))
	} else {
		app.log.JustLog(fmt.Sprintf("balance digest unchanged: %q", summary.Digest))
	}

	ui.RenderSummary(summary)

	report := FormatReport(summary, app.cfg.NotifyTitle, app.opts.Now())
	app.log.JustLog("notification content:\n" + report)
	app.notify(ctx, report)

	app.saveDigest(summary.Digest)

	app.log.JustLog(fmt.Sprintf("run %s finished: %d/%d succeeded", runID, summary.Success, summary.Total))
	return summary, nil
}

func (app *App) processAccounts(ctx context.Context, accounts []config.Account, runID string) (model.RunSummary, map[string]decimal.Decimal) {
	summary := model.RunSummary{RunID: runID, Total: len(accounts)}
	balances := make(map[string]decimal.Decimal)

	deps := worker.Deps{
		Config:  app.cfg,
		Solver:  app.opts.Solver,
		History: app.opts.History,
		Now:     app.opts.Now,
	}

	for idx, account := range accounts {
		if ctx.Err() != nil {
			summary.Fail = summary.Total - summary.Success
			return summary, balances
		}

		w := worker.New(account, idx, runID, deps)
		outcome := w.Run(ctx)
		if outcome.OK {
			summary.Success++
		}

		if balance, ok := outcome.UsableBalance(); ok {
			name := w.Session().Name
			summary.Rows = append(summary.Rows, model.SummaryRow{
				Name:    name,
				Balance: balance.Quota,
				Used:    balance.UsedQuota,
			})
			balances[name] = balance.Quota
		}
	}

	summary.Fail = summary.Total - summary.Success
	return summary, balances
}

func (app *App) loadDigest() string {
	if app.opts.Digests == nil {
		return ""
	}
	prev, err := app.opts.Digests.Load()
	if err != nil {
		app.log.JustLog(fmt.Sprintf("failed to load previous digest: %v", err))
		return ""
	}
	return prev
}

func (app *App) saveDigest(value string) {
	if app.opts.Digests == nil {
		return
	}
	if err := app.opts.Digests.Save(value); err != nil {
		app.log.Warn(fmt.Sprintf("Failed to save balance digest: %v", err))
	}
}

func (app *App) notify(ctx context.Context, report string) {
	if app.opts.Notifier == nil || !app.opts.Notifier.Enabled() {
		app.log.Log("Webhook not configured, skipping notification")
		return
	}
	if err := app.opts.Notifier.Send(ctx, report); err != nil {
		if !errors.Is(err, model.ErrTransportUnavailable) {
			err = fmt.Errorf("%w: %w", model.ErrTransportUnavailable, err)
		}
		app.log.Warn(fmt.Sprintf("Notification failed: %v", err))
		return
	}
	app.log.Log("Notification sent")
}
