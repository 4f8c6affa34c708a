package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/logger"
	"github.com/ohmynofan/router-checkin-bot/pkg/utils"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type signParams struct {
	Timestamp int64  `url:"timestamp"`
	Sign      string `url:"sign"`
}

// DingTalk posts text messages to a DingTalk-style robot webhook.
type DingTalk struct {
	webhook string
	secret  string
	client  *resty.Client
	now     func() time.Time
	log     *logger.ClassLogger
}

func NewDingTalk(webhook, secret string, timeout time.Duration) *DingTalk {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &DingTalk{
		webhook: strings.TrimSpace(webhook),
		secret:  strings.TrimSpace(secret),
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		now: time.Now,
	}
	d.log = logger.NewLogger(d, nil)
	return d
}

func (d *DingTalk) Enabled() bool {
	return d.webhook != ""
}

// Send delivers content as a text message. Any failure wraps
// model.ErrTransportUnavailable.
func (d *DingTalk) Send(ctx context.Context, content string) error {
	if !d.Enabled() {
		return fmt.Errorf("%w: webhook not configured", model.ErrTransportUnavailable)
	}

	payload, err := sjson.Set(`{"msgtype":"text"}`, "text.content", content)
	if err != nil {
		return fmt.Errorf("%w: failed to build payload: %w", model.ErrTransportUnavailable, err)
	}

	target, err := d.targetURL()
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransportUnavailable, err)
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(target)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransportUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", model.ErrTransportUnavailable, resp.StatusCode())
	}

	if code := gjson.GetBytes(resp.Body(), "errcode"); code.Exists() && code.Int() != 0 {
		d.log.JustLog(fmt.Sprintf("webhook accepted with errcode %d: %s", code.Int(), gjson.GetBytes(resp.Body(), "errmsg").String()))
	}
	return nil
}

func (d *DingTalk) targetURL() (string, error) {
	if d.secret == "" {
		return d.webhook, nil
	}
	ts := d.now().UnixMilli()
	query, err := utils.EncodeURLParams(signParams{Timestamp: ts, Sign: Sign(d.secret, ts)})
	if err != nil {
		return "", err
	}
	sep := "?"
	if strings.Contains(d.webhook, "?") {
		sep = "&"
	}
	return d.webhook + sep + query, nil
}

// Sign computes the robot signature for a millisecond timestamp.
func Sign(secret string, timestampMs int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d\n%s", timestampMs, secret)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
