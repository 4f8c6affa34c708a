package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// FormatReport renders the notification text for a finished run.
func FormatReport(summary model.RunSummary, title string, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📢 %s\n", title)
	fmt.Fprintf(&b, "🕒 Run time: %s\n", now.Format(reportTimeLayout))
	b.WriteString("\n💰 [Account balances]\n")
	if len(summary.Rows) == 0 {
		b.WriteString("🔹 No balance information available\n")
	}
	for _, row := range summary.Rows {
		fmt.Fprintf(&b, "🔹 %s: balance $%s, used $%s\n", row.Name, row.Balance.StringFixed(2), row.Used.StringFixed(2))
	}

	b.WriteString("\n📊 [Results]\n")
	fmt.Fprintf(&b, "✅ Success: %d/%d\n", summary.Success, summary.Total)
	fmt.Fprintf(&b, "❌ Failed: %d/%d\n", summary.Fail, summary.Total)
	if summary.AllSucceeded() {
		b.WriteString("🎉 All accounts checked in successfully!")
	} else {
		b.WriteString("⚠️ Some accounts failed to check in, please check the logs.")
	}

	return b.String()
}
