// Package headless provides an in-process BrowsingSurface for hosts that
// run without a GUI layer, and for tests.
//
// Navigation and tabs are modeled as plain state; page content is injected
// with SetPageHTML; scripts run in a sandboxed goja VM with an interrupt
// based timeout; screenshots are rendered placeholder PNGs. The surface is
// only ever driven from the reactor thread, matching the contract of the
// real GUI surface.
package headless

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lespaceman/athena-browser-sub000/internal/surface"
)

var (
	// ErrNoActiveTab is returned for page operations with zero tabs open.
	ErrNoActiveTab = errors.New("headless: no active tab")
	// ErrInvalidTab is returned for an out-of-range tab index.
	ErrInvalidTab = errors.New("headless: invalid tab index")
)

// Config tunes the headless surface.
type Config struct {
	// ScriptTimeout bounds ExecuteScript. Defaults to 5s.
	ScriptTimeout time.Duration
	// ScreenshotWidth/Height size the placeholder capture. Default 256x192.
	ScreenshotWidth  int
	ScreenshotHeight int
}

// DefaultConfig returns the default headless configuration.
func DefaultConfig() Config {
	return Config{
		ScriptTimeout:    5 * time.Second,
		ScreenshotWidth:  256,
		ScreenshotHeight: 192,
	}
}

// tab holds per-tab navigation state.
type tab struct {
	url     string
	title   string
	html    string
	history []string
	histPos int
}

// Surface implements surface.Surface in-process.
type Surface struct {
	cfg    Config
	tabs   []*tab
	active int
}

// New creates an empty headless surface.
func New(cfg Config) *Surface {
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = 5 * time.Second
	}
	if cfg.ScreenshotWidth <= 0 {
		cfg.ScreenshotWidth = 256
	}
	if cfg.ScreenshotHeight <= 0 {
		cfg.ScreenshotHeight = 192
	}
	return &Surface{cfg: cfg, active: -1}
}

// TabCount implements surface.Surface.
func (s *Surface) TabCount() int {
	return len(s.tabs)
}

// ActiveTabIndex implements surface.Surface.
func (s *Surface) ActiveTabIndex() int {
	return s.active
}

// Tabs implements surface.Surface.
func (s *Surface) Tabs() []surface.TabInfo {
	infos := make([]surface.TabInfo, len(s.tabs))
	for i, t := range s.tabs {
		infos[i] = surface.TabInfo{
			Index:  i,
			URL:    t.url,
			Title:  t.title,
			Active: i == s.active,
		}
	}
	return infos
}

// CreateTab implements surface.Surface. The new tab becomes active.
func (s *Surface) CreateTab(url string) (int, error) {
	t := &tab{}
	s.tabs = append(s.tabs, t)
	s.active = len(s.tabs) - 1
	if url != "" {
		t.navigate(url)
	}
	return s.active, nil
}

// CloseTab implements surface.Surface.
func (s *Surface) CloseTab(index int) error {
	if index < 0 || index >= len(s.tabs) {
		return fmt.Errorf("%w: %d", ErrInvalidTab, index)
	}
	s.tabs = append(s.tabs[:index], s.tabs[index+1:]...)
	switch {
	case len(s.tabs) == 0:
		s.active = -1
	case s.active >= len(s.tabs):
		s.active = len(s.tabs) - 1
	case index < s.active:
		s.active--
	}
	return nil
}

// SwitchToTab implements surface.Surface.
func (s *Surface) SwitchToTab(index int) error {
	if index < 0 || index >= len(s.tabs) {
		return fmt.Errorf("%w: %d", ErrInvalidTab, index)
	}
	s.active = index
	return nil
}

// LoadURL implements surface.Surface. Navigation happens on the active tab.
func (s *Surface) LoadURL(url string) error {
	t, err := s.activeTab()
	if err != nil {
		return err
	}
	t.navigate(url)
	return nil
}

// CurrentURL implements surface.Surface.
func (s *Surface) CurrentURL() (string, error) {
	t, err := s.activeTab()
	if err != nil {
		return "", err
	}
	return t.url, nil
}

// GoBack implements surface.Surface.
func (s *Surface) GoBack() error {
	t, err := s.activeTab()
	if err != nil {
		return err
	}
	if t.histPos <= 0 {
		return errors.New("headless: no back history")
	}
	t.histPos--
	t.url = t.history[t.histPos]
	return nil
}

// GoForward implements surface.Surface.
func (s *Surface) GoForward() error {
	t, err := s.activeTab()
	if err != nil {
		return err
	}
	if t.histPos >= len(t.history)-1 {
		return errors.New("headless: no forward history")
	}
	t.histPos++
	t.url = t.history[t.histPos]
	return nil
}

// Reload implements surface.Surface. A no-op beyond validation: headless
// pages have no network origin to refetch from.
func (s *Surface) Reload() error {
	_, err := s.activeTab()
	return err
}

// PageHTML implements surface.Surface.
func (s *Surface) PageHTML() (string, error) {
	t, err := s.activeTab()
	if err != nil {
		return "", err
	}
	return t.html, nil
}

// SetPageHTML injects page content into a tab, updating its title from the
// document. Tests and embedding hosts use this in place of real rendering.
func (s *Surface) SetPageHTML(index int, html string) error {
	if index < 0 || index >= len(s.tabs) {
		return fmt.Errorf("%w: %d", ErrInvalidTab, index)
	}
	t := s.tabs[index]
	t.html = html

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			t.title = title
		}
	}
	return nil
}

func (s *Surface) activeTab() (*tab, error) {
	if s.active < 0 || s.active >= len(s.tabs) {
		return nil, ErrNoActiveTab
	}
	return s.tabs[s.active], nil
}

func (t *tab) navigate(url string) {
	// Navigation drops any forward history.
	if len(t.history) > 0 {
		t.history = t.history[:t.histPos+1]
	}
	t.history = append(t.history, url)
	t.histPos = len(t.history) - 1
	t.url = url
	t.html = ""
	t.title = url
}
