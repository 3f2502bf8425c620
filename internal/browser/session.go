// Package browser owns the live Chrome instance and the single mutable survey
// page every other component observes and mutates. Access is strictly
// sequential; the page handle needs no lock beyond the session's own.
package browser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Config holds browser configuration.
type Config struct {
	DebuggerURL         string   `json:"debugger_url"`
	Launch              []string `json:"launch"`
	Headless            bool     `json:"headless"`
	ViewportWidth       int      `json:"viewport_width"`
	ViewportHeight      int      `json:"viewport_height"`
	NavigationTimeoutMs int      `json:"navigation_timeout_ms"`
	SettleTimeoutMs     int      `json:"settle_timeout_ms"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            false,
		ViewportWidth:       1440,
		ViewportHeight:      900,
		NavigationTimeoutMs: 30000,
		SettleTimeoutMs:     8000,
	}
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// SettleTimeout returns the longest page-settle wait.
func (c Config) SettleTimeout() time.Duration {
	if c.SettleTimeoutMs == 0 {
		return 8 * time.Second
	}
	return time.Duration(c.SettleTimeoutMs) * time.Millisecond
}

// Session wraps one browser and one live survey page.
type Session struct {
	cfg        Config
	logger     *zap.Logger
	mu         sync.Mutex
	browser    *rod.Browser
	page       *rod.Page
	controlURL string
}

// NewSession creates an unstarted session.
func NewSession(cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{cfg: cfg, logger: logger}
}

// Start connects to an existing Chrome or launches a new one.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		s.logger.Warn("Stale browser connection detected, reconnecting")
		_ = s.browser.Close()
		s.browser = nil
		s.page = nil
	}

	controlURL := s.cfg.DebuggerURL
	if controlURL == "" && len(s.cfg.Launch) > 0 {
		bin := s.cfg.Launch[0]
		launch := launcher.New().Bin(bin).Headless(s.cfg.Headless)
		for _, rawFlag := range s.cfg.Launch[1:] {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				launch = launch.Set(flags.Flag(name), val)
			} else {
				launch = launch.Set(flags.Flag(name))
			}
		}
		url, err := launch.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	if controlURL == "" {
		url, err := launcher.New().Headless(s.cfg.Headless).Launch()
		if err != nil {
			return fmt.Errorf("no debugger_url and failed to launch: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	s.browser = browser
	s.controlURL = controlURL
	s.logger.Info("Browser connected", zap.Bool("headless", s.cfg.Headless))
	return nil
}

// Open navigates the session's single page to the survey entry URL, creating
// the page on first use.
func (s *Session) Open(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return errors.New("browser not connected")
	}

	if s.page == nil {
		page, err := s.browser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return fmt.Errorf("create page: %w", err)
		}
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             s.cfg.ViewportWidth,
			Height:            s.cfg.ViewportHeight,
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(page); err != nil {
			s.logger.Warn("Failed to set viewport", zap.Error(err))
		}
		s.page = page
	}

	if err := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout()).Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Page returns the live page handle. Nil until Open succeeds.
func (s *Session) Page() *rod.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Screenshot captures the visible viewport.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	page := s.Page()
	if page == nil {
		return nil, errors.New("no page open")
	}
	return page.Context(ctx).Screenshot(false, nil)
}

// Settle waits for the page to stop mutating, trying a short wait first and
// escalating to the configured maximum. A stall converts into a soft failure
// for the caller's fallback chain, never a deadlock.
func (s *Session) Settle(ctx context.Context) error {
	page := s.Page()
	if page == nil {
		return errors.New("no page open")
	}

	short := s.cfg.SettleTimeout() / 4
	if short < 500*time.Millisecond {
		short = 500 * time.Millisecond
	}
	if err := page.Context(ctx).Timeout(short).WaitStable(300 * time.Millisecond); err == nil {
		return nil
	}
	if err := page.Context(ctx).Timeout(s.cfg.SettleTimeout()).WaitStable(300 * time.Millisecond); err != nil {
		return fmt.Errorf("page did not settle: %w", err)
	}
	return nil
}

// Signature fingerprints the current page state. Two equal signatures around
// an advance action mean the page did not move.
func (s *Session) Signature(ctx context.Context) (string, error) {
	page := s.Page()
	if page == nil {
		return "", errors.New("no page open")
	}

	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      `() => location.href + "" + (document.body ? document.body.innerText : "")`,
		ByValue: true,
	})
	if err != nil || res == nil {
		return "", fmt.Errorf("fingerprint page: %w", err)
	}
	sum := sha256.Sum256([]byte(res.Value.String()))
	return hex.EncodeToString(sum[:]), nil
}

// Shutdown closes the page and the browser.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.controlURL = ""
	return err
}
