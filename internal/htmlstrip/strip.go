// Package htmlstrip converts HTML message bodies to plain text for
// indexing.
package htmlstrip

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// skipElements are elements whose text content is discarded.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
}

// blockElements are elements that separate words when flattened.
var blockElements = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "li": true, "blockquote": true,
	"pre": true, "table": true, "tr": true, "td": true, "th": true,
	"section": true, "article": true, "header": true, "footer": true,
	"nav": true, "main": true, "aside": true, "figure": true,
	"figcaption": true, "details": true, "summary": true,
}

// Text flattens an HTML stream into space-separated plain text. It
// never fails: tokenization errors terminate the stream and whatever
// was extracted so far is returned.
func Text(r io.Reader) string {
	var (
		b         strings.Builder
		tokenizer = html.NewTokenizer(r)
		skipDepth = 0
		lastSpace = true
	)

	writeSpace := func() {
		if b.Len() > 0 && !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	writeText := func(text []byte) {
		for _, c := range text {
			switch c {
			case ' ', '\t', '\n', '\r', '\f':
				writeSpace()
			default:
				b.WriteByte(c)
				lastSpace = false
			}
		}
	}

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimRight(b.String(), " ")

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skipElements[tag] {
				skipDepth++
				continue
			}
			if tag == "br" || blockElements[tag] {
				writeSpace()
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skipElements[tag] && skipDepth > 0 {
				skipDepth--
				continue
			}
			if blockElements[tag] {
				writeSpace()
			}

		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "br" {
				writeSpace()
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			writeText(tokenizer.Text())
		}
	}
}

// TextFromString flattens an HTML string into plain text.
func TextFromString(s string) string {
	return Text(strings.NewReader(s))
}
