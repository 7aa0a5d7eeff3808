package jmap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// listMailboxCap bounds the single-shot mailbox id listing used by
// restore. Accounts do not have this many mailboxes in practice.
const listMailboxCap = 4096

// createdRecord is one entry of a set/import "created" map.
type createdRecord struct {
	ID string `json:"id"`
}

// QueryMailboxes fetches one page of mailboxes at position along with
// the authoritative total. Mailboxes have no stable chronological
// field, so the query is unfiltered and pagination is by offset.
func (c *Client) QueryMailboxes(ctx context.Context, position, limit int) (int, []Mailbox, error) {
	calls := []invocation{
		{
			Name: "Mailbox/query",
			Args: map[string]any{
				"accountId":      c.accountID,
				"calculateTotal": true,
				"position":       position,
				"limit":          limit,
			},
			CallID: "0",
		},
		{
			Name: "Mailbox/get",
			Args: map[string]any{
				"accountId": c.accountID,
				"#ids":      resultRef("0", "Mailbox/query", "/ids"),
			},
			CallID: "1",
		},
	}

	responses, err := c.call(ctx, calls, 2)
	if err != nil {
		return 0, nil, fmt.Errorf("querying mailboxes at position %d: %w", position, err)
	}

	var queryArgs struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(responses[0].Args, &queryArgs); err != nil {
		return 0, nil, fmt.Errorf("decoding mailbox query: %w", err)
	}

	var getArgs struct {
		List []Mailbox `json:"list"`
	}
	if err := json.Unmarshal(responses[1].Args, &getArgs); err != nil {
		return 0, nil, fmt.Errorf("decoding mailbox list: %w", err)
	}
	return queryArgs.Total, getArgs.List, nil
}

// ListMailboxIDs returns the ids of every mailbox currently on the
// server, in one capped fetch.
func (c *Client) ListMailboxIDs(ctx context.Context) ([]string, error) {
	calls := []invocation{
		{
			Name: "Mailbox/query",
			Args: map[string]any{
				"accountId": c.accountID,
				"limit":     listMailboxCap,
			},
			CallID: "0",
		},
	}

	responses, err := c.call(ctx, calls, 1)
	if err != nil {
		return nil, fmt.Errorf("listing mailbox ids: %w", err)
	}

	var queryArgs struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(responses[0].Args, &queryArgs); err != nil {
		return nil, fmt.Errorf("decoding mailbox ids: %w", err)
	}
	return queryArgs.IDs, nil
}

// emailFilter is the receivedAt watermark filter.
func emailFilter(after time.Time) map[string]any {
	return map[string]any{
		"after": after.UTC().Format(time.RFC3339),
	}
}

// CountEmails returns the number of emails received after the given
// watermark.
func (c *Client) CountEmails(ctx context.Context, after time.Time) (int, error) {
	calls := []invocation{
		{
			Name: "Email/query",
			Args: map[string]any{
				"accountId":      c.accountID,
				"filter":         emailFilter(after),
				"calculateTotal": true,
				"limit":          1,
			},
			CallID: "0",
		},
	}

	responses, err := c.call(ctx, calls, 1)
	if err != nil {
		return 0, fmt.Errorf("counting emails: %w", err)
	}

	var queryArgs struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(responses[0].Args, &queryArgs); err != nil {
		return 0, fmt.Errorf("decoding email count: %w", err)
	}
	return queryArgs.Total, nil
}

// QueryEmails fetches up to limit emails at the given position among
// those received after the watermark, oldest first. Callers page by
// position within one pass while the watermark filter stays fixed, so
// page boundaries never overlap.
func (c *Client) QueryEmails(ctx context.Context, after time.Time, position, limit int) ([]Email, error) {
	calls := []invocation{
		{
			Name: "Email/query",
			Args: map[string]any{
				"accountId": c.accountID,
				"filter":    emailFilter(after),
				"sort": []map[string]any{
					{"property": "receivedAt", "isAscending": true},
				},
				"position": position,
				"limit":    limit,
			},
			CallID: "0",
		},
		{
			Name: "Email/get",
			Args: map[string]any{
				"accountId":  c.accountID,
				"#ids":       resultRef("0", "Email/query", "/ids"),
				"properties": emailProperties,
			},
			CallID: "1",
		},
	}

	responses, err := c.call(ctx, calls, 2)
	if err != nil {
		return nil, fmt.Errorf("querying emails after %s: %w", after.UTC().Format(time.RFC3339), err)
	}

	var getArgs struct {
		List []Email `json:"list"`
	}
	if err := json.Unmarshal(responses[1].Args, &getArgs); err != nil {
		return nil, fmt.Errorf("decoding email list: %w", err)
	}
	return getArgs.List, nil
}

// DownloadBlob fetches the raw bytes of a blob.
func (c *Client) DownloadBlob(ctx context.Context, blobID string) ([]byte, error) {
	if c.session == nil {
		return nil, fmt.Errorf("client is not connected")
	}
	downloadURL := expandURLTemplate(c.session.DownloadURL, map[string]string{
		"accountId": url.PathEscape(c.accountID),
		"blobId":    url.PathEscape(blobID),
		"type":      "application/octet-stream",
		"name":      url.PathEscape(blobID),
	})

	data, err := c.doWithRetry(ctx, http.MethodGet, downloadURL, "", nil)
	if err != nil {
		return nil, fmt.Errorf("downloading blob %s: %w", blobID, err)
	}
	return data, nil
}

// UploadBlob pushes raw message bytes to the server and returns the
// server-assigned blob id.
func (c *Client) UploadBlob(ctx context.Context, data []byte) (string, error) {
	if c.session == nil {
		return "", fmt.Errorf("client is not connected")
	}
	uploadURL := expandURLTemplate(c.session.UploadURL, map[string]string{
		"accountId": url.PathEscape(c.accountID),
	})

	body, err := c.doWithRetry(ctx, http.MethodPost, uploadURL, "message/rfc822", data)
	if err != nil {
		return "", fmt.Errorf("uploading blob: %w", err)
	}

	var uploaded struct {
		BlobID string `json:"blobId"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if uploaded.BlobID == "" {
		return "", fmt.Errorf("upload returned no blob id: %w", ErrUnexpectedResponse)
	}
	return uploaded.BlobID, nil
}

// CreateMailbox creates a mailbox and returns its server-assigned id.
// The ParentID of the argument must already be a valid remote id; the
// caller is responsible for creating parents first.
func (c *Client) CreateMailbox(ctx context.Context, mb Mailbox) (string, error) {
	clientID := uuid.NewString()
	create := map[string]any{
		"name":      mb.Name,
		"sortOrder": mb.SortOrder,
	}
	if mb.ParentID != "" {
		create["parentId"] = mb.ParentID
	}
	if mb.Role != "" {
		create["role"] = mb.Role
	}

	calls := []invocation{
		{
			Name: "Mailbox/set",
			Args: map[string]any{
				"accountId": c.accountID,
				"create":    map[string]any{clientID: create},
			},
			CallID: "0",
		},
	}

	responses, err := c.call(ctx, calls, 1)
	if err != nil {
		return "", fmt.Errorf("creating mailbox %q: %w", mb.Name, err)
	}

	var setArgs struct {
		Created    map[string]createdRecord `json:"created"`
		NotCreated map[string]MethodError   `json:"notCreated"`
	}
	if err := json.Unmarshal(responses[0].Args, &setArgs); err != nil {
		return "", fmt.Errorf("decoding mailbox set: %w", err)
	}
	if setErr, ok := setArgs.NotCreated[clientID]; ok {
		return "", fmt.Errorf("creating mailbox %q: %w", mb.Name, &setErr)
	}
	created, ok := setArgs.Created[clientID]
	if !ok || created.ID == "" {
		return "", fmt.Errorf("mailbox %q not in created set: %w", mb.Name, ErrUnexpectedResponse)
	}
	return created.ID, nil
}

// ImportEmail attaches an already-uploaded blob as an email in the
// given mailboxes. The server assigns a fresh email id.
func (c *Client) ImportEmail(ctx context.Context, blobID string, mailboxIDs map[string]bool, keywords map[string]bool, receivedAt time.Time) (string, error) {
	clientID := uuid.NewString()
	spec := map[string]any{
		"blobId":     blobID,
		"mailboxIds": mailboxIDs,
		"receivedAt": receivedAt.UTC().Format(time.RFC3339),
	}
	if len(keywords) > 0 {
		spec["keywords"] = keywords
	}

	calls := []invocation{
		{
			Name: "Email/import",
			Args: map[string]any{
				"accountId": c.accountID,
				"emails":    map[string]any{clientID: spec},
			},
			CallID: "0",
		},
	}

	responses, err := c.call(ctx, calls, 1)
	if err != nil {
		return "", fmt.Errorf("importing email blob %s: %w", blobID, err)
	}

	var importArgs struct {
		Created    map[string]createdRecord `json:"created"`
		NotCreated map[string]MethodError   `json:"notCreated"`
	}
	if err := json.Unmarshal(responses[0].Args, &importArgs); err != nil {
		return "", fmt.Errorf("decoding email import: %w", err)
	}
	if importErr, ok := importArgs.NotCreated[clientID]; ok {
		return "", fmt.Errorf("importing email blob %s: %w", blobID, &importErr)
	}
	created, ok := importArgs.Created[clientID]
	if !ok || created.ID == "" {
		return "", fmt.Errorf("email blob %s not in created set: %w", blobID, ErrUnexpectedResponse)
	}
	return created.ID, nil
}
