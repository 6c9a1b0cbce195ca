// Package qbit provides a qBittorrent Web API v2 client implementing the
// engine's torrent source.
package qbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/Kheopsian/Seederr/internal/logger"
	"github.com/Kheopsian/Seederr/pkg/engine"
)

// Config contains qBittorrent connection settings.
type Config struct {
	// URL is the Web UI base URL, e.g. http://localhost:8080.
	URL string `mapstructure:"url" yaml:"url" validate:"required,url"`

	// Username for Web UI authentication.
	Username string `mapstructure:"username" yaml:"username" validate:"required"`

	// Password for Web UI authentication.
	Password string `mapstructure:"password" yaml:"password" validate:"required"`

	// Timeout bounds every API call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Client is a qBittorrent Web API client. Authentication is cookie-based: the
// session cookie obtained by Login lives in the client's jar, and an expired
// session triggers one transparent re-login per call.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	paths      engine.TierPaths
}

// New creates a qBittorrent client. It does not contact the server; call
// Login to establish the session.
func New(config Config, paths engine.TierPaths) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimRight(config.URL, "/"),
		username: config.Username,
		password: config.Password,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		paths: paths,
	}, nil
}

// Login authenticates against the Web UI and stores the session cookie.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{
		"username": {c.username},
		"password": {c.password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read login response: %w", err)
	}

	// The API answers 200 with body "Fails." on bad credentials.
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "Ok." {
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   "/api/v2/auth/login",
			Message:    strings.TrimSpace(string(body)),
		}
	}

	logger.Debug("qbittorrent session established", "url", c.baseURL)
	return nil
}

// ListPayloads returns a snapshot of all torrents known to the client.
func (c *Client) ListPayloads(ctx context.Context) ([]engine.Payload, error) {
	body, err := c.get(ctx, "/api/v2/torrents/info", nil)
	if err != nil {
		return nil, err
	}

	var infos []torrentInfo
	if err := json.Unmarshal(body, &infos); err != nil {
		return nil, fmt.Errorf("failed to decode torrent list: %w", err)
	}

	return toPayloads(infos, c.paths), nil
}

// SetSaveLocation repoints a torrent's save location. qBittorrent moves or
// re-links the content itself when the files already exist at the new path.
func (c *Client) SetSaveLocation(ctx context.Context, hash, newPath string) error {
	return c.postForm(ctx, "/api/v2/torrents/setLocation", url.Values{
		"hashes":   {hash},
		"location": {newPath},
	})
}

// Pause stops a torrent so its file handles are released.
func (c *Client) Pause(ctx context.Context, hash string) error {
	return c.postForm(ctx, "/api/v2/torrents/pause", url.Values{
		"hashes": {hash},
	})
}

// Resume restarts a torrent.
func (c *Client) Resume(ctx context.Context, hash string) error {
	return c.postForm(ctx, "/api/v2/torrents/resume", url.Values{
		"hashes": {hash},
	})
}

// get performs a GET request, re-authenticating once on a rejected session.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, err := c.doGet(ctx, path, query)
	if err == nil {
		return body, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsAuthError() {
		logger.Debug("qbittorrent session expired, re-authenticating")
		if loginErr := c.Login(ctx); loginErr != nil {
			return nil, loginErr
		}
		return c.doGet(ctx, path, query)
	}
	return nil, err
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

// postForm performs a form POST, re-authenticating once on a rejected
// session. Anything but 200 is a failure; the caller never assumes the
// command took effect without it.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) error {
	err := c.doPostForm(ctx, path, form)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsAuthError() {
		logger.Debug("qbittorrent session expired, re-authenticating")
		if loginErr := c.Login(ctx); loginErr != nil {
			return loginErr
		}
		return c.doPostForm(ctx, path, form)
	}
	return err
}

func (c *Client) doPostForm(ctx context.Context, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return nil
}
