package headless

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTabLifecycle(t *testing.T) {
	s := New(DefaultConfig())
	assert.Equal(t, 0, s.TabCount())
	assert.Equal(t, -1, s.ActiveTabIndex())

	idx, err := s.CreateTab("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, s.TabCount())
	assert.Equal(t, 0, s.ActiveTabIndex())

	idx2, err := s.CreateTab("https://example.org")
	require.NoError(t, err)
	assert.Equal(t, 1, idx2)
	assert.Equal(t, 1, s.ActiveTabIndex())

	require.NoError(t, s.SwitchToTab(0))
	url, err := s.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", url)

	require.NoError(t, s.CloseTab(0))
	assert.Equal(t, 1, s.TabCount())
	assert.Equal(t, 0, s.ActiveTabIndex())
	url, err = s.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.org", url)

	require.NoError(t, s.CloseTab(0))
	assert.Equal(t, 0, s.TabCount())
	assert.Equal(t, -1, s.ActiveTabIndex())
}

func TestTabErrors(t *testing.T) {
	s := New(DefaultConfig())

	assert.ErrorIs(t, s.LoadURL("https://example.com"), ErrNoActiveTab)
	_, err := s.CurrentURL()
	assert.ErrorIs(t, err, ErrNoActiveTab)
	assert.ErrorIs(t, s.CloseTab(0), ErrInvalidTab)
	assert.ErrorIs(t, s.SwitchToTab(5), ErrInvalidTab)
}

func TestHistory(t *testing.T) {
	s := New(DefaultConfig())
	_, err := s.CreateTab("https://a.test")
	require.NoError(t, err)
	require.NoError(t, s.LoadURL("https://b.test"))
	require.NoError(t, s.LoadURL("https://c.test"))

	require.NoError(t, s.GoBack())
	url, _ := s.CurrentURL()
	assert.Equal(t, "https://b.test", url)

	require.NoError(t, s.GoBack())
	url, _ = s.CurrentURL()
	assert.Equal(t, "https://a.test", url)

	assert.Error(t, s.GoBack())

	require.NoError(t, s.GoForward())
	url, _ = s.CurrentURL()
	assert.Equal(t, "https://b.test", url)

	// Navigating from the middle of history drops the forward entries.
	require.NoError(t, s.LoadURL("https://d.test"))
	assert.Error(t, s.GoForward())
	require.NoError(t, s.GoBack())
	url, _ = s.CurrentURL()
	assert.Equal(t, "https://b.test", url)
}

func TestSetPageHTML(t *testing.T) {
	s := New(DefaultConfig())
	idx, err := s.CreateTab("https://example.com")
	require.NoError(t, err)

	require.NoError(t, s.SetPageHTML(idx, "<html><head><title>Example Page</title></head><body><p>hi</p></body></html>"))

	html, err := s.PageHTML()
	require.NoError(t, err)
	assert.Contains(t, html, "<p>hi</p>")

	tabs := s.Tabs()
	require.Len(t, tabs, 1)
	assert.Equal(t, "Example Page", tabs[0].Title)
	assert.True(t, tabs[0].Active)
}

func TestExecuteScript(t *testing.T) {
	s := New(DefaultConfig())
	_, err := s.CreateTab("https://example.com")
	require.NoError(t, err)

	tests := []struct {
		name string
		code string
		want string
	}{
		{"arithmetic", "1 + 2", "3"},
		{"string", `"hello".toUpperCase()`, `"HELLO"`},
		{"object", `({a: 1, b: "x"})`, `{"a":1,"b":"x"}`},
		{"undefined", "undefined", "null"},
		{"document url", "document.URL", `"https://example.com"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ExecuteScript(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecuteScriptErrors(t *testing.T) {
	s := New(Config{ScriptTimeout: 100 * time.Millisecond})
	_, err := s.CreateTab("https://example.com")
	require.NoError(t, err)

	_, err = s.ExecuteScript("while(true){}")
	assert.ErrorIs(t, err, ErrScriptTimeout)

	_, err = s.ExecuteScript("nonexistent.call()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script error")

	// Node entry points are stripped from the environment.
	got, err := s.ExecuteScript("typeof require")
	require.NoError(t, err)
	assert.Equal(t, `"undefined"`, got)
}

func TestScreenshot(t *testing.T) {
	s := New(Config{ScreenshotWidth: 8, ScreenshotHeight: 4})
	_, err := s.Screenshot()
	assert.ErrorIs(t, err, ErrNoActiveTab)

	_, err = s.CreateTab("https://example.com")
	require.NoError(t, err)

	encoded, err := s.Screenshot()
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw[1:4]), "PNG"))
}
