package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxHTMLBodyBytes = 1 << 20 // 1 MiB

// FirstImage extracts the first image URL from sanitized news HTML, for use
// as the entry's enclosure link. Returns "" when there is none or the
// document does not parse.
func FirstImage(sanitizedHTML string) string {
	if sanitizedHTML == "" {
		return ""
	}
	if len(sanitizedHTML) > maxHTMLBodyBytes {
		sanitizedHTML = sanitizedHTML[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitizedHTML))
	if err != nil {
		return ""
	}

	if node := doc.Find("img").First(); node.Length() > 0 {
		if src, ok := node.Attr("src"); ok {
			return strings.TrimSpace(src)
		}
	}
	return ""
}
