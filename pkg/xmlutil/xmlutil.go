// Package xmlutil escapes user-supplied text before it is embedded in
// XML-delimited prompt templates, so query content cannot break out of its
// enclosing tag.
package xmlutil

import (
	"encoding/xml"
	"strings"
)

// Escape rewrites characters with XML meaning as entities.
func Escape(s string) string {
	var buf strings.Builder
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		// EscapeText only fails on invalid UTF-8; pass such input through.
		return s
	}
	return buf.String()
}
