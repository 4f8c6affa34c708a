package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ohmynofan/router-checkin-bot/internal/domain/model"
	"github.com/ohmynofan/router-checkin-bot/internal/platform/logger"
	"github.com/ohmynofan/router-checkin-bot/pkg/utils"
	"golang.org/x/net/http2"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s", e.StatusCode, e.Status)
}

type FetchOptions struct {
	Method            string
	Body              interface{}
	RawBody           []byte
	AdditionalHeaders map[string]string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type ClientOptions struct {
	BaseURL   string
	Cookies   map[string]string
	Proxy     string
	Timeout   time.Duration
	UserAgent string
}

// APIClient talks to a single provider on behalf of a single account.
type APIClient struct {
	BaseURL    *url.URL
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Log        *logger.ClassLogger

	jar       *sessionJar
	transport *http.Transport
}

func NewAPIClient(opts ClientOptions, session *model.Session) (*APIClient, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to enable http2: %w", err)
	}

	jar := newSessionJar()
	jar.Seed(base, opts.Cookies)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	apiClient := &APIClient{
		BaseURL:   base,
		UserAgent: userAgent,
		Timeout:   timeout,
		HTTPClient: &http.Client{
			Transport:     transport,
			Jar:           jar,
			CheckRedirect: keepRedirect,
		},
		jar:       jar,
		transport: transport,
	}
	apiClient.Log = logger.NewLogger(apiClient, session)

	return apiClient, nil
}

// keepRedirect hands 3xx answers back to the caller unfollowed.
func keepRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// Close drops the session cookies and any pooled connections.
func (c *APIClient) Close() {
	c.jar.Clear()
	c.transport.CloseIdleConnections()
}

func (c *APIClient) CookieCount() int {
	return c.jar.Len()
}

func (c *APIClient) _generateHeaders() map[string]string {
	origin := c.BaseURL.Scheme + "://" + c.BaseURL.Host
	return map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
		"User-Agent":      c.UserAgent,
		"Cache-Control":   "no-store",
		"Pragma":          "no-cache",
		"Origin":          origin,
		"Referer":         origin + "/",
		"Sec-Fetch-Dest":  "empty",
		"Sec-Fetch-Mode":  "cors",
		"Sec-Fetch-Site":  "same-origin",
	}
}

// Fetch sends a request to endpoint, which may be absolute or relative to
// BaseURL. Non-2xx answers come back as *HTTPError carrying the body.
func (c *APIClient) Fetch(ctx context.Context, endpoint string, opts *FetchOptions) (*Response, error) {
	if opts == nil {
		opts = &FetchOptions{}
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	if opts.RawBody != nil && opts.Body != nil {
		return nil, fmt.Errorf("cannot specify both Body and RawBody")
	}

	var payload []byte
	if opts.RawBody != nil {
		payload = opts.RawBody
	} else if opts.Body != nil && method != http.MethodGet {
		jsonBody, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = jsonBody
	}
	hasBody := payload != nil

	target, err := c.resolve(endpoint)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var reqBody io.Reader
	if hasBody {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c._generateHeaders() {
		req.Header.Set(key, value)
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range opts.AdditionalHeaders {
		req.Header.Set(key, value)
	}

	if hasBody {
		c.Log.JustLog(fmt.Sprintf("%s %s\nHeaders:\n%s\nBody:\n%s", method, target, c.headerSummary(req), utils.BeautifyJSON(payload)))
	} else {
		c.Log.JustLog(fmt.Sprintf("%s %s\nHeaders:\n%s", method, target, c.headerSummary(req)))
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w: %w", model.ErrNetworkFailure, err)
	}
	defer res.Body.Close()

	resBodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w: %w", model.ErrNetworkFailure, err)
	}

	c.Log.JustLog(fmt.Sprintf("Response %d:\n%s", res.StatusCode, utils.Truncate(utils.BeautifyJSON(resBodyBytes), 2000)))

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: resBodyBytes}, nil
	}

	return nil, &HTTPError{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Body:       resBodyBytes,
	}
}

// StatusAndBody flattens a Fetch result into the status code and body that
// the provider parsers expect. Transport failures return the error.
func StatusAndBody(res *Response, err error) (int, []byte, error) {
	if err == nil {
		return res.StatusCode, res.Body, nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, httpErr.Body, nil
	}
	return 0, nil, err
}

func (c *APIClient) resolve(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	return c.BaseURL.ResolveReference(u).String(), nil
}

// headerSummary renders request headers for the file log with the cookie
// header masked. The jar adds cookies later, so they are read from it here.
func (c *APIClient) headerSummary(req *http.Request) string {
	summary := make(map[string]string, len(req.Header)+1)
	for key, values := range req.Header {
		summary[key] = strings.Join(values, ", ")
	}
	if cookies := c.jar.Cookies(req.URL); len(cookies) > 0 {
		names := make([]string, 0, len(cookies))
		for _, ck := range cookies {
			names = append(names, ck.Name+"="+utils.MaskSecret(ck.Value))
		}
		sort.Strings(names)
		summary["Cookie"] = strings.Join(names, "; ")
	}
	headerJSON, _ := json.MarshalIndent(summary, "", "  ")
	return string(headerJSON)
}
