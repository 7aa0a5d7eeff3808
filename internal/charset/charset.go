// Package charset decodes legacy character sets found in stored
// message payloads. Reader plugs into go-message as its charset hook.
package charset

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// Reader wraps input with a decoder for the named charset. It never
// fails: unknown charsets pass through unchanged and invalid UTF-8
// falls back to Latin-1, since a best-effort body beats an unindexed
// one.
func Reader(name string, input io.Reader) (io.Reader, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	switch name {
	case "", "utf-8", "utf8", "ascii", "us-ascii":
		return validatedUTF8(input)
	case "latin1", "latin-1", "iso-8859-1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		// Unknown charset: index the raw bytes rather than nothing.
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// Decode decodes a byte slice with the named charset.
func Decode(name string, data []byte) []byte {
	r, err := Reader(name, bytes.NewReader(data))
	if err != nil {
		return data
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return out
}

// validatedUTF8 reads the input and checks it really is UTF-8; invalid
// content is re-decoded as Latin-1, which cannot fail.
func validatedUTF8(input io.Reader) (io.Reader, error) {
	content, err := io.ReadAll(input)
	if err != nil {
		return nil, err
	}
	if utf8.Valid(content) {
		return bytes.NewReader(content), nil
	}
	return transform.NewReader(bytes.NewReader(content), charmap.ISO8859_1.NewDecoder()), nil
}
