package worker

import (
	"testing"

	"github.com/ohmynofan/router-checkin-bot/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestParseCookies_String(t *testing.T) {
	got := ParseCookies(config.Cookies{Raw: "acw_tc=abc; foo=bar; broken"})
	assert.Equal(t, map[string]string{"acw_tc": "abc", "foo": "bar"}, got)
}

func TestParseCookies_SplitsOnFirstEquals(t *testing.T) {
	got := ParseCookies(config.Cookies{Raw: " session = a=b==;  =orphan; x="})
	assert.Equal(t, map[string]string{"session": "a=b==", "x": ""}, got)
}

func TestParseCookies_Object(t *testing.T) {
	got := ParseCookies(config.Cookies{Values: map[string]string{"session": " xyz ", " ": "dropped"}})
	assert.Equal(t, map[string]string{"session": "xyz"}, got)
}

func TestParseCookies_Empty(t *testing.T) {
	assert.Empty(t, ParseCookies(config.Cookies{}))
	assert.Empty(t, ParseCookies(config.Cookies{Raw: "no-pairs-here"}))
}

func TestMergeCookies(t *testing.T) {
	waf := map[string]string{"acw_tc": "1", "cdn_sec_tc": "2", "acw_sc__v2": "3"}
	user := map[string]string{"session": "s"}

	merged := MergeCookies(waf, user)
	assert.Len(t, merged, 4)
	assert.Equal(t, "s", merged["session"])
	assert.Equal(t, "3", merged["acw_sc__v2"])

	merged = MergeCookies(waf, map[string]string{"acw_tc": "user"})
	assert.Equal(t, "user", merged["acw_tc"])
	assert.Equal(t, "1", waf["acw_tc"])
}
