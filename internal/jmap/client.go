package jmap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// JMAP capability URNs sent with every request.
const (
	capCore = "urn:ietf:params:jmap:core"
	capMail = "urn:ietf:params:jmap:mail"
)

// maxPageCap bounds a page regardless of what the server advertises.
const maxPageCap = 50

// Error types for client operations.
var (
	ErrUnexpectedResponse = errors.New("unexpected method response")
	ErrBlobNotFound       = errors.New("blob not found")
	ErrServerFail         = errors.New("server error")
)

// MethodError is a JMAP method-level error response. It indicates a
// contract violation or rejected request, never a transport hiccup, so
// it is surfaced loudly and not retried.
type MethodError struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (e *MethodError) Error() string {
	if e.Description == "" {
		return "jmap method error: " + e.Type
	}
	return "jmap method error: " + e.Type + ": " + e.Description
}

// HTTPDoer abstracts HTTP client operations for dependency inversion.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Session is the JMAP session resource, fetched once on Connect.
type Session struct {
	APIURL          string                     `json:"apiUrl"`
	DownloadURL     string                     `json:"downloadUrl"`
	UploadURL       string                     `json:"uploadUrl"`
	PrimaryAccounts map[string]string          `json:"primaryAccounts"`
	Capabilities    map[string]json.RawMessage `json:"capabilities"`
}

// Client is a JMAP client bound to one account.
type Client struct {
	sessionURL string
	authHeader string
	httpClient HTTPDoer

	session         *Session
	accountID       string
	maxObjectsInGet int

	maxRetries int
	baseDelay  time.Duration
	sleepFunc  func(time.Duration)
}

// BasicAuth builds an Authorization header value for basic auth.
func BasicAuth(username, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+secret))
}

// BearerAuth builds an Authorization header value for token auth.
func BearerAuth(secret string) string {
	return "Bearer " + secret
}

// NewClient creates a Client. sessionURL is the session resource
// location, e.g. https://api.fastmail.com/.well-known/jmap.
func NewClient(sessionURL, authHeader string, httpClient HTTPDoer) *Client {
	return &Client{
		sessionURL: sessionURL,
		authHeader: authHeader,
		httpClient: httpClient,
		maxRetries: 2,
		baseDelay:  100 * time.Millisecond,
		sleepFunc:  time.Sleep,
	}
}

// Connect fetches the session resource and resolves the mail account.
func (c *Client) Connect(ctx context.Context) error {
	body, err := c.doWithRetry(ctx, http.MethodGet, c.sessionURL, "", nil)
	if err != nil {
		return fmt.Errorf("fetching session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return fmt.Errorf("decoding session: %w", err)
	}

	accountID, ok := session.PrimaryAccounts[capMail]
	if !ok {
		return fmt.Errorf("session has no primary mail account: %w", ErrUnexpectedResponse)
	}

	c.session = &session
	c.accountID = accountID
	c.maxObjectsInGet = maxPageCap
	if raw, ok := session.Capabilities[capCore]; ok {
		var core struct {
			MaxObjectsInGet int `json:"maxObjectsInGet"`
		}
		if err := json.Unmarshal(raw, &core); err == nil && core.MaxObjectsInGet > 0 && core.MaxObjectsInGet < maxPageCap {
			c.maxObjectsInGet = core.MaxObjectsInGet
		}
	}
	return nil
}

// AccountID returns the primary mail account id.
func (c *Client) AccountID() string {
	return c.accountID
}

// MaxObjectsInGet returns the page size usable for Foo/get calls.
func (c *Client) MaxObjectsInGet() int {
	return c.maxObjectsInGet
}

// invocation is one JMAP method call, serialized as [name, args,
// callId].
type invocation struct {
	Name   string
	Args   map[string]any
	CallID string
}

func (i invocation) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{i.Name, i.Args, i.CallID})
}

// methodResponse is one entry of methodResponses.
type methodResponse struct {
	Name   string
	Args   json.RawMessage
	CallID string
}

func (r *methodResponse) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("method response has %d parts: %w", len(parts), ErrUnexpectedResponse)
	}
	if err := json.Unmarshal(parts[0], &r.Name); err != nil {
		return err
	}
	r.Args = parts[1]
	if err := json.Unmarshal(parts[2], &r.CallID); err != nil {
		return err
	}
	return nil
}

// resultRef builds a back-reference to a prior call's result path.
func resultRef(callID, name, path string) map[string]any {
	return map[string]any{
		"resultOf": callID,
		"name":     name,
		"path":     path,
	}
}

// call POSTs a batch of method calls and returns exactly want
// responses. A mismatched count or an error-typed response is a
// protocol-shape violation.
func (c *Client) call(ctx context.Context, calls []invocation, want int) ([]methodResponse, error) {
	if c.session == nil {
		return nil, errors.New("client is not connected")
	}

	reqBody, err := json.Marshal(map[string]any{
		"using":       []string{capCore, capMail},
		"methodCalls": calls,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	body, err := c.doWithRetry(ctx, http.MethodPost, c.session.APIURL, "application/json", reqBody)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		MethodResponses []methodResponse `json:"methodResponses"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	for _, resp := range parsed.MethodResponses {
		if resp.Name == "error" {
			var methodErr MethodError
			if err := json.Unmarshal(resp.Args, &methodErr); err != nil {
				return nil, fmt.Errorf("decoding error response: %w", err)
			}
			return nil, &methodErr
		}
	}
	if len(parsed.MethodResponses) != want {
		return nil, fmt.Errorf("got %d method responses, want %d: %w",
			len(parsed.MethodResponses), want, ErrUnexpectedResponse)
	}
	return parsed.MethodResponses, nil
}

// doWithRetry performs one HTTP exchange, retrying transport errors
// and 5xx responses with exponential backoff.
func (c *Client) doWithRetry(ctx context.Context, method, url, contentType string, body []byte) ([]byte, error) {
	maxAttempts := c.maxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		// Check context before each attempt
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Sleep before retry (not before first attempt)
		if attempt > 0 && c.sleepFunc != nil && c.baseDelay > 0 {
			delay := c.baseDelay * time.Duration(1<<(attempt-1)) // exponential: 1x, 2x, 4x, ...
			c.sleepFunc(delay)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		if c.authHeader != "" {
			req.Header.Set("Authorization", c.authHeader)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrBlobNotFound
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: status %d", ErrServerFail, resp.StatusCode)
			continue
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("request rejected with status %d", resp.StatusCode)
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return data, nil
	}
	return nil, lastErr
}

// expandURLTemplate substitutes JMAP URL template variables.
func expandURLTemplate(template string, vars map[string]string) string {
	out := template
	for key, val := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", val)
	}
	return out
}
