package searchindex

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/mailbak/mailbak/internal/charset"
	"github.com/mailbak/mailbak/internal/htmlstrip"
	"github.com/mailbak/mailbak/internal/jmap"
)

func init() {
	// Legacy charsets appear constantly in old mail; without a reader
	// go-message refuses to decode those parts.
	message.CharsetReader = charset.Reader
}

// buildDocument maps one email and its raw payload to an index
// document. A nil payload (the blob failed to download) still yields a
// document with an empty body so the metadata stays searchable.
func buildDocument(em jmap.Email, payload []byte) map[string]any {
	doc := map[string]any{
		FieldID:      em.ID,
		FieldBlobID:  em.BlobID,
		FieldSubject: em.Subject,
	}

	addAddresses(doc, FieldFromName, FieldFromEmail, em.From)
	addAddresses(doc, FieldToName, FieldToEmail, em.To)
	addAddresses(doc, FieldCcName, FieldCcEmail, em.CC)

	if len(payload) > 0 {
		doc[FieldBody] = bodyText(payload)
	}
	return doc
}

func addAddresses(doc map[string]any, nameField, emailField string, addrs []jmap.EmailAddress) {
	if len(addrs) == 0 {
		return
	}
	names := make([]string, 0, len(addrs))
	emails := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Name != "" {
			names = append(names, a.Name)
		}
		emails = append(emails, a.Email)
	}
	if len(names) > 0 {
		doc[nameField] = names
	}
	doc[emailField] = emails
}

// bodyText extracts searchable text from a raw RFC 5322 message. Plain
// text parts are preferred; HTML parts are flattened. Parse failures
// degrade to indexing the raw bytes as text rather than dropping the
// body.
func bodyText(payload []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(payload))
	if err != nil {
		return string(payload)
	}
	defer mr.Close()

	var plain, html []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			plain = append(plain, string(body))
		case strings.HasPrefix(contentType, "text/html"):
			html = append(html, htmlstrip.TextFromString(string(body)))
		}
	}

	if len(plain) > 0 {
		return strings.Join(plain, " ")
	}
	return strings.Join(html, " ")
}
