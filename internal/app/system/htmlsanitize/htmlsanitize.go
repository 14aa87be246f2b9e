// internal/app/system/htmlsanitize/htmlsanitize.go
//
// Package htmlsanitize holds the single bluemonday policies used at
// the entry write boundary. Strategy text may carry limited rich
// formatting; every other content field is plain text.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = buildRichPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

func buildRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "s", "sub", "sup", "mark")
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	return p
}

// Sanitize strips unsafe markup while preserving basic formatting,
// tables, and safe links.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return richPolicy.Sanitize(s)
}

// Plain strips all markup, leaving text only.
func Plain(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(plainPolicy.Sanitize(s))
}
