// Package markup renders model output to HTML for the chat client.
package markup

import (
	"bytes"
	"html"
	"log"
	"strings"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

// ToHTML converts markdown text to HTML. Rendering has no failure path
// from the caller's point of view: on a converter error the text is
// escaped and wrapped in a paragraph instead.
func ToHTML(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		log.Printf("[markup] render failed, falling back to escaped text: %v", err)
		return "<p>" + html.EscapeString(text) + "</p>"
	}
	return strings.TrimSpace(buf.String())
}
