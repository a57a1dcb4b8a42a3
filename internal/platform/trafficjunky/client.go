// Package trafficjunky implements the media-library upload workflow against
// the TrafficJunky advertiser web interface. The platform has no public
// creative API; this package speaks the same HTTP the web interface does,
// with a persisted cookie session standing in for a logged-in browser.
package trafficjunky

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/publicsuffix"

	"github.com/creativeflow/creative-int/internal/config"
	"github.com/creativeflow/creative-int/internal/httpclient"
	"github.com/creativeflow/creative-int/internal/logging"
	"github.com/creativeflow/creative-int/internal/platform"
)

// Client is an authenticated HTTP session against the advertiser interface.
type Client struct {
	http    *retryablehttp.Client
	jar     http.CookieJar
	baseURL *url.URL
	log     *logging.Logger

	sessionFile string
}

// NewClient builds a client for the configured platform endpoint. The cookie
// session is restored from disk when a previous login was saved.
func NewClient(cfg *config.Config, paths *config.Paths, log *logging.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid platform base URL %q: %w", cfg.BaseURL, err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	rc, err := httpclient.NewRetryable(cfg, log)
	if err != nil {
		return nil, err
	}
	rc.HTTPClient.Jar = jar

	c := &Client{
		http:        rc,
		jar:         jar,
		baseURL:     base,
		log:         log,
		sessionFile: paths.SessionFile,
	}
	if err := c.restoreSession(); err != nil {
		log.Debugf("No saved platform session restored: %v", err)
	}
	return c, nil
}

func (c *Client) absURL(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.String() + path
	}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.absURL(path), nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.absURL(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}

// Login authenticates with the platform and persists the resulting session
// cookies. The login form carries a CSRF token that must be replayed.
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := c.get(ctx, "/login")
	if err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	doc, err := parseHTML(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to parse login page: %w", err)
	}

	form := url.Values{
		"username": {username},
		"password": {password},
	}
	if token := findFormToken(doc); token != "" {
		form.Set("_token", token)
	}

	resp, err = c.postForm(ctx, "/login", form)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// A failed login lands back on /login; success redirects into the
	// advertiser dashboard.
	if resp.StatusCode >= 400 || strings.Contains(resp.Request.URL.Path, "login") {
		return fmt.Errorf("login rejected for user %s (status %d)", username, resp.StatusCode)
	}

	if err := c.saveSession(); err != nil {
		c.log.Warnf("Could not persist platform session: %v", err)
	}
	c.log.Info().Str("user", username).Msg("Logged into platform")
	return nil
}

// IsLoggedIn probes the media library to check whether the current session
// cookies are still accepted.
func (c *Client) IsLoggedIn(ctx context.Context) bool {
	resp, err := c.get(ctx, mediaLibraryPath)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return false
	}
	return !strings.Contains(resp.Request.URL.Path, "login")
}

// EnsureAuthenticated reuses the saved session when it is still valid and
// falls back to a credential login otherwise.
func (c *Client) EnsureAuthenticated(ctx context.Context, username, password string) error {
	if c.IsLoggedIn(ctx) {
		c.log.Info().Msg("Reusing saved platform session")
		return nil
	}
	if username == "" || password == "" {
		return platform.ErrNotAuthenticated
	}
	c.log.Info().Msg("Saved session missing or expired, logging in")
	return c.Login(ctx, username, password)
}

// sessionCookie is the on-disk form of one session cookie.
type sessionCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path"`
	Domain  string    `json:"domain"`
	Expires time.Time `json:"expires,omitempty"`
}

func (c *Client) saveSession() error {
	cookies := c.jar.Cookies(c.baseURL)
	stored := make([]sessionCookie, 0, len(cookies))
	for _, ck := range cookies {
		stored = append(stored, sessionCookie{
			Name:   ck.Name,
			Value:  ck.Value,
			Path:   ck.Path,
			Domain: ck.Domain,
		})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionFile), 0o755); err != nil {
		return err
	}
	// Session cookies are credentials; keep the file owner-only.
	return os.WriteFile(c.sessionFile, data, 0o600)
}

func (c *Client) restoreSession() error {
	data, err := os.ReadFile(c.sessionFile)
	if err != nil {
		return err
	}
	var stored []sessionCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("corrupt session file %s: %w", c.sessionFile, err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:    sc.Name,
			Value:   sc.Value,
			Path:    sc.Path,
			Domain:  sc.Domain,
			Expires: sc.Expires,
		})
	}
	c.jar.SetCookies(c.baseURL, cookies)
	c.log.Debugf("Restored %d session cookies from %s", len(cookies), c.sessionFile)
	return nil
}
