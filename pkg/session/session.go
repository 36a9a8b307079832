// Package session opens and manages the Appium automation session for one
// device and the booking app.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/webdriver"
)

// ErrSessionCreationFailed means the automation server refused or could not
// create a session.
var ErrSessionCreationFailed = errors.New("automation session creation failed")

// closeTimeout bounds session teardown, which runs after the caller's
// context may already be done.
const closeTimeout = 15 * time.Second

// Manager creates sessions against one automation server
type Manager struct {
	client *webdriver.Client
	appium config.AppiumConfig
	app    config.AppConfig
	logger *zap.Logger
}

// NewManager creates a session manager
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		client: webdriver.NewClient(cfg.Appium.ServerURL, cfg.Appium.RequestTimeout),
		appium: cfg.Appium,
		app:    cfg.App,
		logger: logger,
	}
}

// Client returns the underlying automation server client
func (m *Manager) Client() *webdriver.Client { return m.client }

// Capabilities returns the session capabilities for a device
func (m *Manager) Capabilities(deviceID string) map[string]interface{} {
	return map[string]interface{}{
		"platformName":                      "Android",
		"appium:automationName":             "UiAutomator2",
		"appium:udid":                       deviceID,
		"appium:noReset":                    true,
		"appium:newCommandTimeout":          int(m.appium.NewCommandTimeout / time.Second),
		"appium:appPackage":                 m.app.Package,
		"appium:appActivity":                m.app.Activity,
		"appium:ignoreHiddenApiPolicyError": true,
		"appium:disableWindowAnimation":     true,
		"appium:adbExecTimeout":             m.appium.ADBExecTimeout.Milliseconds(),
	}
}

// Create opens a session on the given device
func (m *Manager) Create(ctx context.Context, deviceID string) (*Session, error) {
	start := time.Now()
	wd, err := m.client.NewSession(ctx, m.Capabilities(deviceID))
	if err != nil {
		return nil, fmt.Errorf("%w on device %s via %s: %w", ErrSessionCreationFailed, deviceID, m.client.BaseURL(), err)
	}

	m.logger.Info("session created",
		zap.String("session_id", wd.ID),
		zap.String("device", deviceID),
		zap.Duration("took", time.Since(start)))

	return &Session{
		wd:       wd,
		appID:    m.app.Package,
		deviceID: deviceID,
		logger:   m.logger.With(zap.String("session_id", wd.ID)),
	}, nil
}

// Session is a live automation session bound to one device and app
type Session struct {
	wd       *webdriver.Session
	appID    string
	deviceID string
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

// ID returns the server-side session id
func (s *Session) ID() string { return s.wd.ID }

// DeviceID returns the device the session drives
func (s *Session) DeviceID() string { return s.deviceID }

// Launch starts the app from a clean process
func (s *Session) Launch(ctx context.Context) error {
	if err := s.restartApp(ctx); err != nil {
		return fmt.Errorf("launch %s: %w", s.appID, err)
	}
	s.logger.Debug("app launched", zap.String("app", s.appID))
	return nil
}

// Relaunch restarts the app to recover a known screen after a failure
func (s *Session) Relaunch(ctx context.Context) error {
	if err := s.restartApp(ctx); err != nil {
		return fmt.Errorf("relaunch %s: %w", s.appID, err)
	}
	s.logger.Info("app relaunched", zap.String("app", s.appID))
	return nil
}

func (s *Session) restartApp(ctx context.Context) error {
	if _, err := s.wd.TerminateApp(ctx, s.appID); err != nil {
		return fmt.Errorf("terminate: %w", err)
	}
	if err := s.wd.ActivateApp(ctx, s.appID); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	return nil
}

// Find locates an element
func (s *Session) Find(ctx context.Context, by webdriver.By) (webdriver.Element, error) {
	return s.wd.FindElement(ctx, by)
}

// Click clicks an element
func (s *Session) Click(ctx context.Context, el webdriver.Element) error {
	return s.wd.Click(ctx, el)
}

// Interactable reports whether an element is displayed and enabled
func (s *Session) Interactable(ctx context.Context, el webdriver.Element) (bool, error) {
	displayed, err := s.wd.Displayed(ctx, el)
	if err != nil || !displayed {
		return false, err
	}
	return s.wd.Enabled(ctx, el)
}

// Rect returns an element's rectangle
func (s *Session) Rect(ctx context.Context, el webdriver.Element) (webdriver.Rect, error) {
	return s.wd.Rect(ctx, el)
}

// PerformActions runs W3C input actions, then releases any pointer still
// held so a failed gesture cannot leave the screen pressed.
func (s *Session) PerformActions(ctx context.Context, seqs ...webdriver.ActionSequence) error {
	err := s.wd.PerformActions(ctx, seqs...)

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if rerr := s.wd.ReleaseActions(releaseCtx); rerr != nil {
		s.logger.Warn("release actions failed", zap.Error(rerr))
	}
	return err
}

// Screenshot captures the screen as PNG
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	return s.wd.Screenshot(ctx)
}

// Close ends the session. It is safe to call more than once and runs even
// when ctx is already cancelled.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	if err := s.wd.Delete(ctx); err != nil {
		if webdriver.HasCode(err, webdriver.CodeInvalidSessionID) {
			s.logger.Info("session already ended on server")
			return nil
		}
		s.logger.Warn("session close failed", zap.Error(err))
		return fmt.Errorf("close session %s: %w", s.wd.ID, err)
	}
	s.logger.Info("session closed")
	return nil
}
