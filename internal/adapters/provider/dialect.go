package provider

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/ohmynofan/router-checkin-bot/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	maxErrorLen        = 50
	balanceUnavailable = "current balance unavailable"
	unknownCheckInMsg  = "Unknown error"
)

// QuotaUnit is the number of raw quota units per currency unit.
var QuotaUnit = decimal.NewFromInt(500000)

// dialect recognizes one user-info response shape. match reports whether the
// document belongs to the dialect; parse is only called after a match.
type dialect struct {
	name  string
	match func(doc gjson.Result) bool
	parse func(doc gjson.Result) model.BalanceInfo
}

// dialects are tried in order; the first match wins.
var dialects = []dialect{
	{name: "data-envelope", match: matchDataEnvelope, parse: parseDataEnvelope},
	{name: "status-credit", match: matchStatusCredit, parse: parseStatusCredit},
}

// ParseUserInfo normalizes a user-info response into a BalanceInfo.
func ParseUserInfo(status int, body []byte) model.BalanceInfo {
	if status != http.StatusOK {
		return failure(fmt.Sprintf("failed to get user info: HTTP %d", status))
	}
	if !gjson.ValidBytes(body) {
		return failure("invalid user info response: " + strings.TrimSpace(string(body)))
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return failure("unexpected user info payload: " + doc.Raw)
	}
	for _, d := range dialects {
		if d.match(doc) {
			return d.parse(doc)
		}
	}
	return failure(fmt.Sprintf("%s: %s", model.ErrResponseUnrecognized, doc.Raw))
}

// Dialect name for diagnostics; empty when nothing matches.
func DetectDialect(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	doc := gjson.ParseBytes(body)
	for _, d := range dialects {
		if d.match(doc) {
			return d.name
		}
	}
	return ""
}

func matchDataEnvelope(doc gjson.Result) bool {
	return truthy(doc.Get("success"))
}

// An absent data member reads as zero; a present one must be an object.
func parseDataEnvelope(doc gjson.Result) model.BalanceInfo {
	if data := doc.Get("data"); data.Exists() && !data.IsObject() {
		return failure("unexpected user info data: " + data.Raw)
	}
	quota := ScaleQuota(doc.Get("data.quota"))
	used := ScaleQuota(doc.Get("data.used_quota"))
	return model.BalanceInfo{
		Success:   true,
		Quota:     quota,
		UsedQuota: used,
		Display:   formatBalance(quota, used),
	}
}

func matchStatusCredit(doc gjson.Result) bool {
	status := doc.Get("status")
	if status.Type == gjson.String {
		switch status.Str {
		case "ok", "success":
			return true
		}
	}
	code := doc.Get("code")
	return code.Type == gjson.Number && code.Num == 0
}

// A zero credit and usage pair is indistinguishable from absent fields in
// this dialect, so it is reported as unavailable.
func parseStatusCredit(doc gjson.Result) model.BalanceInfo {
	quota := ScaleQuota(doc.Get("credit"))
	used := ScaleQuota(doc.Get("usage"))
	display := balanceUnavailable
	if !quota.IsZero() || !used.IsZero() {
		display = formatBalance(quota, used)
	}
	return model.BalanceInfo{
		Success:   true,
		Quota:     quota,
		UsedQuota: used,
		Display:   display,
	}
}

// ScaleQuota converts a raw quota field to currency units rounded to cents.
// Missing or non-numeric fields count as zero.
func ScaleQuota(r gjson.Result) decimal.Decimal {
	var raw decimal.Decimal
	switch r.Type {
	case gjson.Number:
		d, err := decimal.NewFromString(r.Raw)
		if err != nil {
			d = decimal.NewFromFloat(r.Num)
		}
		raw = d
	case gjson.String:
		d, err := decimal.NewFromString(strings.TrimSpace(r.Str))
		if err != nil {
			return decimal.Zero
		}
		raw = d
	default:
		return decimal.Zero
	}
	return raw.Div(QuotaUnit).Round(2)
}

func formatBalance(quota, used decimal.Decimal) string {
	return fmt.Sprintf("current balance: $%s, used: $%s", quota.StringFixed(2), used.StringFixed(2))
}

func failure(reason string) model.BalanceInfo {
	return model.FailedBalance(utils.Truncate(reason, maxErrorLen))
}

// truthy follows loose JSON truthiness: true, non-zero numbers, non-empty
// strings, and non-empty containers.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		return r.Raw != "{}" && r.Raw != "[]"
	default:
		return false
	}
}
