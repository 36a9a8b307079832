// Package webdriver is a small W3C WebDriver client covering the Appium
// endpoints the booking flow needs.
package webdriver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the default Appium server address
	DefaultBaseURL = "http://127.0.0.1:4723"

	// DefaultTimeout is the default HTTP client timeout. Session creation
	// installs helper apps on first use, so it is generous.
	DefaultTimeout = 3 * time.Minute

	// ElementKey is the W3C web element identifier key
	ElementKey = "element-6066-11e4-a52e-4f735466cecf"

	legacyElementKey = "ELEMENT"
)

// Client handles HTTP communication with an Appium server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new WebDriver client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the server address the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope wraps every WebDriver response body
type envelope struct {
	Value     json.RawMessage `json:"value"`
	SessionID string          `json:"sessionId,omitempty"`
}

// doRequest performs a WebDriver call and decodes the "value" member into result
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	} else if method == http.MethodPost {
		bodyReader = strings.NewReader("{}")
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, respBody)
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(env.Value) == 0 || string(env.Value) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Value, result); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

// Status reports whether the server is ready to create sessions
func (c *Client) Status(ctx context.Context) (bool, string, error) {
	var status struct {
		Ready   bool   `json:"ready"`
		Message string `json:"message"`
		Build   struct {
			Version string `json:"version"`
		} `json:"build"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return false, "", err
	}
	return status.Ready, status.Build.Version, nil
}

// NewSession creates a session with the given alwaysMatch capabilities
func (c *Client) NewSession(ctx context.Context, caps map[string]interface{}) (*Session, error) {
	payload := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": caps,
			"firstMatch":  []map[string]interface{}{{}},
		},
	}

	var created struct {
		SessionID    string                 `json:"sessionId"`
		Capabilities map[string]interface{} `json:"capabilities"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/session", payload, &created); err != nil {
		return nil, err
	}
	if created.SessionID == "" {
		return nil, fmt.Errorf("server returned no session id")
	}

	return &Session{
		client:       c,
		ID:           created.SessionID,
		Capabilities: created.Capabilities,
	}, nil
}

// Session is a live WebDriver session
type Session struct {
	client       *Client
	ID           string
	Capabilities map[string]interface{}
}

func (s *Session) path(format string, args ...interface{}) string {
	return "/session/" + s.ID + fmt.Sprintf(format, args...)
}

// Delete ends the session
func (s *Session) Delete(ctx context.Context) error {
	return s.client.doRequest(ctx, http.MethodDelete, "/session/"+s.ID, nil, nil)
}

// FindElement locates a single element
func (s *Session) FindElement(ctx context.Context, by By) (Element, error) {
	var raw map[string]string
	if err := s.client.doRequest(ctx, http.MethodPost, s.path("/element"), by, &raw); err != nil {
		return Element{}, err
	}

	id := raw[ElementKey]
	if id == "" {
		id = raw[legacyElementKey]
	}
	if id == "" {
		return Element{}, fmt.Errorf("find %s: response carried no element id", by)
	}
	return Element{ID: id}, nil
}

// Click clicks an element
func (s *Session) Click(ctx context.Context, el Element) error {
	return s.client.doRequest(ctx, http.MethodPost, s.path("/element/%s/click", el.ID), nil, nil)
}

// Rect returns the element's on-screen rectangle
func (s *Session) Rect(ctx context.Context, el Element) (Rect, error) {
	var r struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := s.client.doRequest(ctx, http.MethodGet, s.path("/element/%s/rect", el.ID), nil, &r); err != nil {
		return Rect{}, err
	}
	return Rect{X: int(r.X), Y: int(r.Y), Width: int(r.Width), Height: int(r.Height)}, nil
}

// Displayed reports whether the element is visible
func (s *Session) Displayed(ctx context.Context, el Element) (bool, error) {
	var v bool
	err := s.client.doRequest(ctx, http.MethodGet, s.path("/element/%s/displayed", el.ID), nil, &v)
	return v, err
}

// Enabled reports whether the element accepts input
func (s *Session) Enabled(ctx context.Context, el Element) (bool, error) {
	var v bool
	err := s.client.doRequest(ctx, http.MethodGet, s.path("/element/%s/enabled", el.ID), nil, &v)
	return v, err
}

// PerformActions runs W3C input action sequences
func (s *Session) PerformActions(ctx context.Context, seqs ...ActionSequence) error {
	payload := map[string]interface{}{"actions": seqs}
	return s.client.doRequest(ctx, http.MethodPost, s.path("/actions"), payload, nil)
}

// ReleaseActions releases any input still held down
func (s *Session) ReleaseActions(ctx context.Context) error {
	return s.client.doRequest(ctx, http.MethodDelete, s.path("/actions"), nil, nil)
}

// Screenshot returns the current screen as PNG bytes
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var encoded string
	if err := s.client.doRequest(ctx, http.MethodGet, s.path("/screenshot"), nil, &encoded); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return data, nil
}

// TerminateApp stops an app by package name. It reports whether the app was
// running.
func (s *Session) TerminateApp(ctx context.Context, appID string) (bool, error) {
	var stopped bool
	err := s.client.doRequest(ctx, http.MethodPost, s.path("/appium/device/terminate_app"),
		map[string]string{"appId": appID}, &stopped)
	return stopped, err
}

// ActivateApp brings an app to the foreground, starting it if needed
func (s *Session) ActivateApp(ctx context.Context, appID string) error {
	return s.client.doRequest(ctx, http.MethodPost, s.path("/appium/device/activate_app"),
		map[string]string{"appId": appID}, nil)
}
