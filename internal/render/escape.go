package render

import (
	"html"
	"strings"
)

var markupEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape makes free text safe to embed in paragraph markup.
func Escape(s string) string {
	return markupEscaper.Replace(s)
}

// Markup escapes s and turns newlines into explicit line breaks.
func Markup(s string) string {
	return strings.ReplaceAll(Escape(s), "\n", LineBreak)
}

// LineBreak is the markup for a forced line break.
const LineBreak = "<br/>"

// markupLines splits paragraph markup into the plain text of its lines.
func markupLines(markup string) []string {
	parts := strings.Split(markup, LineBreak)
	for i, p := range parts {
		parts[i] = html.UnescapeString(p)
	}
	return parts
}
