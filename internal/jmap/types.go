// Package jmap provides a narrow JMAP client: paginated collection
// queries, blob transfer, and item creation. It speaks RFC 8620/8621
// directly over HTTP.
package jmap

import "time"

// EmailAddress represents an email address with optional display name.
type EmailAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Mailbox is a JMAP mailbox as fetched from the server and as stored
// in the backup. The id is server-assigned and immutable.
type Mailbox struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ParentID     string `json:"parentId,omitempty"`
	Role         string `json:"role,omitempty"`
	SortOrder    int    `json:"sortOrder,omitempty"`
	TotalEmails  int    `json:"totalEmails,omitempty"`
	UnreadEmails int    `json:"unreadEmails,omitempty"`
	IsSubscribed bool   `json:"isSubscribed,omitempty"`
}

// Email is the metadata subset of a JMAP email that the backup
// persists. The raw message itself lives behind BlobID.
type Email struct {
	ID         string          `json:"id"`
	BlobID     string          `json:"blobId"`
	ThreadID   string          `json:"threadId,omitempty"`
	MailboxIDs map[string]bool `json:"mailboxIds"`
	Keywords   map[string]bool `json:"keywords,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Size       int64           `json:"size,omitempty"`
	Subject    string          `json:"subject,omitempty"`
	From       []EmailAddress  `json:"from,omitempty"`
	To         []EmailAddress  `json:"to,omitempty"`
	CC         []EmailAddress  `json:"cc,omitempty"`
	MessageID  []string        `json:"messageId,omitempty"`
}

// emailProperties is the property set requested on Email/get. It must
// cover everything Email carries; anything omitted here is silently
// absent from the backup.
var emailProperties = []string{
	"id",
	"blobId",
	"threadId",
	"mailboxIds",
	"keywords",
	"receivedAt",
	"size",
	"subject",
	"from",
	"to",
	"cc",
	"messageId",
}
