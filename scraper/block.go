package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

// blockSignatures are lower-cased substrings whose presence in the page's
// visible text marks a challenge or block interstitial rather than results.
var blockSignatures = []string{
	"verify you're human",
	"verify that you're human",
	"security check",
	"checkpoint required",
	"temporarily blocked",
	"you have been blocked",
	"suspicious activity",
	"complete the captcha",
	"unusual traffic",
}

// IsBlocked reports whether the rendered HTML is a block/challenge page.
// It walks the document's visible text (title included, script and style
// skipped) and matches against the known signatures.
func IsBlocked(rawHTML string) bool {
	tok := html.NewTokenizer(strings.NewReader(rawHTML))

	skipDepth := 0
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.ToLower(string(tok.Text()))
			for _, sig := range blockSignatures {
				if strings.Contains(text, sig) {
					return true
				}
			}
		}
	}
}
