// Package extract maps a rendered red.cl page into typed records.
//
// Every extractor is a pure function of the DOM snapshot it receives: the same
// document always yields the same records, and incomplete candidates are
// dropped rather than emitted partially.
package extract

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultBaseURL is the origin relative links are resolved against
const DefaultBaseURL = "https://www.red.cl"

// ExcerptLength is the maximum number of characters kept in an excerpt
const ExcerptLength = 100

// Report summarizes one extraction. Found counts candidates, Processed the
// records emitted and Dropped the candidates discarded for missing fields.
type Report struct {
	Found     int
	Processed int
	Dropped   int
}

// cleanText trims s and collapses inner whitespace runs to a single space
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// excerpt truncates text to max characters, appending "..." when cut
func excerpt(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// parseAmount converts a matched price such as "1490" or "1.490" to an int
func parseAmount(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ".", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// nodeText returns the concatenated text content of n and its descendants
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// isElement reports whether n is an element with the given tag
func isElement(n *html.Node, tag atom.Atom) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == tag
}

// findDescendant returns the first descendant of n (depth first) matching pred
func findDescendant(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			return c
		}
		if found := findDescendant(c, pred); found != nil {
			return found
		}
	}
	return nil
}
