// Package remote implements the HTTP client for the remote wiki's web API.
package remote

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

	"github.com/sirupsen/logrus"
)

var ErrNotConfigured = errors.New("remote API base URL is not configured")

// TransportError means the remote endpoint was unreachable or returned a
// non-success HTTP status. This is an operational configuration problem, not
// a per-user authentication failure.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote API transport error for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("remote API returned status %d for %s", e.StatusCode, e.URL)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the endpoint answered but the body was not valid JSON,
// which usually indicates the base URL does not point at an api.php endpoint.
type ProtocolError struct {
	URL string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("remote API returned invalid JSON for %s: %v", e.URL, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Client is a stateful session against one remote API endpoint. Cookies set
// by the remote server persist across calls on the same Client; the remote
// login flow requires that continuity between the token fetch and the
// credential submission. A Client must not be shared across login attempts.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logrus.FieldLogger
}

// New builds a session client with a fresh cookie jar.
func New(baseURL string, timeout time.Duration, logger logrus.FieldLogger) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse remote API URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Get issues a GET call and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, params, nil, out)
}

// PostForm issues a POST call with a form-encoded body and decodes the JSON
// response into out.
func (c *Client) PostForm(ctx context.Context, params, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, params, form, out)
}

func (c *Client) do(ctx context.Context, method string, params, form url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("format", "json")

	apiURL := c.baseURL
	if strings.Contains(apiURL, "?") {
		apiURL += "&" + params.Encode()
	} else {
		apiURL += "?" + params.Encode()
	}

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("build remote API request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	// The POST body can contain the submitted password; logging it wholesale
	// at debug level is an accepted tradeoff, documented rather than hidden.
	fields := logrus.Fields{"method": method, "url": apiURL}
	if method == http.MethodPost {
		fields["body"] = form.Encode()
	}
	c.logger.WithFields(fields).Debug("remote API request")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{URL: apiURL, Err: err}
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{URL: apiURL, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(logrus.Fields{
			"url":    apiURL,
			"status": resp.StatusCode,
		}).Error("remote API call failed")
		return &TransportError{URL: apiURL, StatusCode: resp.StatusCode}
	}

	if err := json.Unmarshal(content, out); err != nil {
		c.logger.WithFields(logrus.Fields{
			"url":     apiURL,
			"content": truncate(string(content), 500),
		}).Error("unable to parse JSON response from API endpoint")
		return &ProtocolError{URL: apiURL, Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"url":      apiURL,
		"response": truncate(string(content), 2000),
	}).Debug("remote API response")

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
