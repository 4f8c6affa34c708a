package provider

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

type CheckInResult struct {
	OK      bool
	Message string
}

// ParseCheckInResult classifies a check-in response. Only bodies that fail to
// decode as JSON fall back to a case-insensitive search for "success".
func ParseCheckInResult(status int, body []byte) CheckInResult {
	if status != http.StatusOK {
		return CheckInResult{OK: false, Message: fmt.Sprintf("HTTP %d", status)}
	}

	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		if !doc.IsObject() {
			return CheckInResult{OK: false, Message: unknownCheckInMsg}
		}
		return classifyCheckInObject(doc)
	}

	if bytes.Contains(bytes.ToLower(body), []byte("success")) {
		return CheckInResult{OK: true, Message: "check-in succeeded"}
	}
	return CheckInResult{OK: false, Message: "invalid response format"}
}

func classifyCheckInObject(doc gjson.Result) CheckInResult {
	ret := doc.Get("ret")
	code := doc.Get("code")
	if (ret.Type == gjson.Number && ret.Num == 1) || ret.Type == gjson.True ||
		(code.Type == gjson.Number && code.Num == 0) ||
		truthy(doc.Get("success")) {
		msg := doc.Get("msg").String()
		if msg == "" {
			msg = "check-in succeeded"
		}
		return CheckInResult{OK: true, Message: msg}
	}

	msg := doc.Get("msg")
	if !msg.Exists() || msg.String() == "" {
		return CheckInResult{OK: false, Message: unknownCheckInMsg}
	}
	return CheckInResult{OK: false, Message: msg.String()}
}
