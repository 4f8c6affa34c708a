package http

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// sessionJar is an in-memory cookie jar scoped to one account. It lives only
// as long as the APIClient that owns it.
type sessionJar struct {
	mu      sync.Mutex
	cookies map[string][]*http.Cookie
}

func newSessionJar() *sessionJar {
	return &sessionJar{cookies: make(map[string][]*http.Cookie)}
}

// Seed stores values as host cookies for u.
func (j *sessionJar) Seed(u *url.URL, values map[string]string) {
	if u == nil || len(values) == 0 {
		return
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	cookies := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		cookies = append(cookies, &http.Cookie{Name: name, Value: values[name], Path: "/"})
	}
	j.SetCookies(u, cookies)
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if u == nil || cookies == nil {
		return
	}

	for _, c := range cookies {
		key := domainKey(c.Domain, u.Host)
		list := j.cookies[key]
		updated := false
		for i, existing := range list {
			if existing.Name == c.Name && existing.Path == normalizePath(c.Path) {
				if shouldDelete(c, time.Now()) {
					list = append(list[:i], list[i+1:]...)
				} else {
					list[i] = cloneCookie(c)
				}
				updated = true
				break
			}
		}
		if !updated && !shouldDelete(c, time.Now()) {
			list = append(list, cloneCookie(c))
		}
		j.cookies[key] = list
	}
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	var result []*http.Cookie
	if u == nil {
		return result
	}

	host := canonicalHost(u.Host)
	reqPath := u.Path
	if reqPath == "" {
		reqPath = "/"
	}
	now := time.Now()

	for domain, list := range j.cookies {
		if !domainMatches(host, domain) {
			continue
		}
		kept := list[:0]
		for _, c := range list {
			if shouldDelete(c, now) {
				continue
			}
			kept = append(kept, c)
			if cookiePathMatch(c.Path, reqPath) {
				result = append(result, &http.Cookie{Name: c.Name, Value: c.Value})
			}
		}
		j.cookies[domain] = kept
	}
	return result
}

func (j *sessionJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, list := range j.cookies {
		n += len(list)
	}
	return n
}

func (j *sessionJar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = make(map[string][]*http.Cookie)
}

func cloneCookie(c *http.Cookie) *http.Cookie {
	clone := *c
	clone.Path = normalizePath(c.Path)
	return &clone
}

func canonicalHost(host string) string {
	host = strings.ToLower(host)
	if h, _, found := strings.Cut(host, ":"); found {
		host = h
	}
	return host
}

func domainKey(cookieDomain, host string) string {
	if cookieDomain != "" {
		return canonicalHost(strings.TrimPrefix(cookieDomain, "."))
	}
	return canonicalHost(host)
}

func domainMatches(host, domain string) bool {
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}

func normalizePath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") {
		return "/"
	}
	return p
}

func cookiePathMatch(cookiePath, reqPath string) bool {
	cookiePath = normalizePath(cookiePath)
	if cookiePath == reqPath || cookiePath == "/" {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

func shouldDelete(c *http.Cookie, now time.Time) bool {
	if c.MaxAge < 0 {
		return true
	}
	return !c.Expires.IsZero() && c.Expires.Before(now)
}
