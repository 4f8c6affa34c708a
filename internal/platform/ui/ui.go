package ui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

var (
	multi       *pterm.MultiPrinter
	spinners    = make(map[int]*pterm.SpinnerPrinter)
	mu          sync.Mutex
	started     bool
	interactive bool
)

// StartUISystem enables console output. Spinners are only used when stdout
// is a terminal; otherwise every status update becomes a plain line.
func StartUISystem() {
	mu.Lock()
	defer mu.Unlock()
	if started {
		return
	}
	started = true
	interactive = term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive {
		pterm.DisableStyling()
		return
	}
	m, err := pterm.DefaultMultiPrinter.Start()
	if err != nil {
		interactive = false
		return
	}
	multi = m
}

func StopUISystem() {
	mu.Lock()
	defer mu.Unlock()
	if !started {
		return
	}
	if multi != nil {
		multi.Stop()
		multi = nil
	}
	spinners = make(map[int]*pterm.SpinnerPrinter)
	started = false
}

func UpdateStatus(session model.Session, status string) {
	mu.Lock()
	defer mu.Unlock()
	updateStatusLocked(session, status)
}

func updateStatusLocked(session model.Session, status string) {
	if !started {
		return
	}
	if !interactive {
		fmt.Fprintf(os.Stdout, "[%s] %s\n", accountLabel(session), status)
		return
	}

	content := renderCard(session, status)
	if spinner, ok := spinners[session.AccIdx]; ok {
		spinner.UpdateText(content)
		return
	}
	spinner, err := pterm.DefaultSpinner.
		WithWriter(multi.NewWriter()).
		WithRemoveWhenDone(false).
		Start(content)
	if err == nil {
		spinners[session.AccIdx] = spinner
	}
}

func SetSpinnerSuccess(session model.Session, finalMessage string) {
	finish(session, finalMessage, true)
}

func SetSpinnerError(session model.Session, finalMessage string) {
	finish(session, finalMessage, false)
}

func finish(session model.Session, finalMessage string, ok bool) {
	mu.Lock()
	defer mu.Unlock()
	if !started {
		return
	}
	if !interactive {
		mark := "OK"
		if !ok {
			mark = "FAIL"
		}
		fmt.Fprintf(os.Stdout, "[%s] %s: %s\n", accountLabel(session), mark, finalMessage)
		return
	}

	updateStatusLocked(session, finalMessage)
	spinner, exists := spinners[session.AccIdx]
	if !exists {
		return
	}
	text := renderCard(session, finalMessage)
	if ok {
		spinner.Success(text)
	} else {
		spinner.Fail(text)
	}
	delete(spinners, session.AccIdx)
}

func Println(msg string) {
	mu.Lock()
	defer mu.Unlock()
	if !started {
		return
	}
	pterm.Info.Println(msg)
}

func Warn(msg string) {
	mu.Lock()
	defer mu.Unlock()
	if !started {
		return
	}
	pterm.Warning.Println(msg)
}

// RenderSummary prints the final per-account table.
func RenderSummary(summary model.RunSummary) {
	mu.Lock()
	defer mu.Unlock()
	if !started {
		return
	}

	data := pterm.TableData{{"Account", "Balance", "Used"}}
	for _, row := range summary.Rows {
		data = append(data, []string{row.Name, "$" + row.Balance.StringFixed(2), "$" + row.Used.StringFixed(2)})
	}
	if len(summary.Rows) > 0 {
		_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
	}

	line := fmt.Sprintf("Success: %d/%d, failed: %d", summary.Success, summary.Total, summary.Fail)
	switch {
	case summary.AllSucceeded():
		pterm.Success.Println(line)
	case summary.Succeeded():
		pterm.Warning.Println(line)
	default:
		pterm.Error.Println(line)
	}
}

func renderCard(session model.Session, status string) string {
	return fmt.Sprintf(`
=============== %s ================
Provider  : %s
WAF       : %s
Balance   : %s
Check-in  : %s

Status    : %s
===========================================`,
		accountLabel(session),
		defaultString(session.Provider, "-"),
		defaultString(session.WAFStatus, "-"),
		defaultString(session.Balance, defaultString(session.BalanceStatus, "WAITING")),
		defaultString(session.CheckInStatus, "-"),
		status)
}

func accountLabel(session model.Session) string {
	return defaultString(session.Name, fmt.Sprintf("Account %d", session.AccIdx+1))
}

func defaultString(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
