package document

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Sanitize strips all markup from text and escapes any remaining special
// characters. Candidate uploads are untrusted and their text ends up inside
// prompts and rendered pages, so nothing tag-shaped survives this call.
func Sanitize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return html.EscapeString(text)
	}
	doc.Find("script, style, iframe, object").Remove()
	return html.EscapeString(strings.TrimSpace(doc.Text()))
}
