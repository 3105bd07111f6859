// Package docapi is the HTTP client for the docsync server: read and save the
// shared document, and check credentials.
package docapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderClientSession = "X-Client-Session"
	defaultDocumentID   = "main"
	maxResponseBytes    = 16 << 20
)

type Options struct {
	BaseURL    string
	DocumentID string
	// Timeout bounds each request. Zero means no timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	// SessionID is sent in X-Client-Session. A random one is generated when
	// empty.
	SessionID string
}

type Client struct {
	baseURL    string
	docPath    string
	session    string
	httpClient *http.Client
}

// Document is the server's view of the shared text.
type Document struct {
	Content string
	Version int64
}

func New(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	session := opts.SessionID
	if session == "" {
		session = uuid.NewString()
	}

	docPath := "/api"
	if id := strings.TrimSpace(opts.DocumentID); id != "" && id != defaultDocumentID {
		docPath = "/api/documents/" + url.PathEscape(id)
	}

	return &Client{
		baseURL:    base,
		docPath:    docPath,
		session:    session,
		httpClient: httpClient,
	}, nil
}

func (c *Client) SessionID() string { return c.session }

// Read returns the current content only.
func (c *Client) Read(ctx context.Context) (string, error) {
	doc, err := c.Fetch(ctx)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// Fetch returns content and version. A null content reads as empty; a reply
// without a content field is ErrMalformedResponse.
func (c *Client) Fetch(ctx context.Context) (Document, error) {
	var out struct {
		Content json.RawMessage `json:"content"`
		Version int64           `json:"version"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.docPath, nil, &out); err != nil {
		return Document{}, err
	}
	if len(out.Content) == 0 {
		return Document{}, fmt.Errorf("%w: missing content", ErrMalformedResponse)
	}
	doc := Document{Version: out.Version}
	if string(out.Content) == "null" {
		return doc, nil
	}
	if err := json.Unmarshal(out.Content, &doc.Content); err != nil {
		return Document{}, fmt.Errorf("%w: content: %v", ErrMalformedResponse, err)
	}
	return doc, nil
}

// Replace saves content unconditionally; the last save wins.
func (c *Client) Replace(ctx context.Context, content string) error {
	_, err := c.replace(ctx, content, nil)
	return err
}

// ReplaceIf saves only if the stored version still equals expected.
// ErrVersionConflict is returned otherwise.
func (c *Client) ReplaceIf(ctx context.Context, content string, expected int64) (int64, error) {
	return c.replace(ctx, content, &expected)
}

func (c *Client) replace(ctx context.Context, content string, expected *int64) (int64, error) {
	body := struct {
		Content         string `json:"content"`
		ExpectedVersion *int64 `json:"expected_version,omitempty"`
	}{Content: content, ExpectedVersion: expected}

	var out struct {
		Success bool  `json:"success"`
		Version int64 `json:"version"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.docPath, body, &out); err != nil {
		return 0, err
	}
	if !out.Success {
		return 0, fmt.Errorf("%w: save not acknowledged", ErrMalformedResponse)
	}
	return out.Version, nil
}

// Login returns the accepted username or ErrInvalidCredentials. The server
// answers a rejection with either 401 or 200 {success:false}.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{
		"action":   "login",
		"username": username,
		"password": password,
	}
	var out struct {
		Success bool   `json:"success"`
		User    string `json:"user"`
		Message string `json:"message"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api", body, &out)
	var he *HTTPError
	if errors.As(err, &he) && (he.StatusCode == http.StatusUnauthorized || he.StatusCode == http.StatusUnprocessableEntity) {
		return "", fmt.Errorf("%w: %s", ErrInvalidCredentials, he.Message)
	}
	if err != nil {
		return "", err
	}
	if !out.Success {
		return "", fmt.Errorf("%w: %s", ErrInvalidCredentials, out.Message)
	}
	if out.User == "" {
		return username, nil
	}
	return out.User, nil
}

func (c *Client) doJSON(ctx context.Context, method, requestPath string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderClientSession, c.session)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError(resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func httpError(status int, payload []byte) *HTTPError {
	var errPayload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(payload, &errPayload)
	msg := errPayload.Error
	if msg == "" {
		msg = errPayload.Message
	}
	return &HTTPError{StatusCode: status, Message: msg}
}

func parseBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("docapi: server url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("docapi: parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("docapi: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("docapi: server url has no host")
	}
	path := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api")
	return u.Scheme + "://" + u.Host + path, nil
}
