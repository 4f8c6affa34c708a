package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ohmynofan/router-checkin-bot/internal/adapters/notify"
	"github.com/ohmynofan/router-checkin-bot/internal/adapters/waf"
	"github.com/ohmynofan/router-checkin-bot/internal/app"
	"github.com/ohmynofan/router-checkin-bot/internal/config"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/logger"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/ui"
	"github.com/ohmynofan/router-checkin-bot/internal/storage/checkinlog"
	"github.com/ohmynofan/router-checkin-bot/internal/storage/digest"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FAILED] %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "[FAILED] %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.LogPath); err != nil {
		fmt.Fprintf(os.Stderr, "[WARNING] file logging disabled: %v\n", err)
	}
	defer logger.Close()

	ui.StartUISystem()
	defer ui.StopUISystem()

	log := logger.NewNamed("Main", nil)
	log.Log("AnyRouter / AgentRouter multi-account check-in started")

	opts := app.Options{
		Solver: waf.NewSolver(waf.Options{
			Headless:     cfg.BrowserHeadless,
			Bin:          cfg.BrowserBin,
			Proxy:        cfg.Proxy,
			NavTimeout:   cfg.WAFNavTimeout,
			ReadyTimeout: cfg.WAFReadyTimeout,
			SettleDelay:  cfg.WAFSettleDelay,
		}),
		Notifier: notify.NewDingTalk(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookTimeout),
		Digests:  digest.NewFileStore(cfg.DigestPath),
	}

	store, err := checkinlog.NewStore(cfg.CheckInDBPath)
	if err != nil {
		log.Warn(fmt.Sprintf("Check-in history disabled: %v", err))
	} else {
		defer store.Close()
		opts.History = store
	}

	summary, err := app.New(cfg, opts).Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Interrupted by user")
		} else {
			log.Warn(fmt.Sprintf("Run failed: %v", err))
		}
		return 1
	}

	if !summary.Succeeded() {
		return 1
	}
	return 0
}
