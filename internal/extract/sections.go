package extract

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Section is a header together with the sibling elements that follow it up
// to the next header.
type Section struct {
	Header *goquery.Selection
	Body   []*html.Node
}

// Title returns the normalized header text
func (s Section) Title() string {
	return cleanText(s.Header.Text())
}

// Sections splits doc into ordered sections at headerSelector boundaries.
//
// Segmentation runs first and classification later, so a section always ends
// where the next header starts even when that header is nested inside a
// wrapper sibling.
func Sections(doc *goquery.Document, headerSelector string) []Section {
	if doc == nil {
		return nil
	}

	headers := doc.Find(headerSelector)
	isHeader := make(map[*html.Node]bool, headers.Length())
	for _, n := range headers.Nodes {
		isHeader[n] = true
	}

	boundary := func(n *html.Node) bool {
		if isHeader[n] {
			return true
		}
		return findDescendant(n, func(d *html.Node) bool { return isHeader[d] }) != nil
	}

	sections := make([]Section, 0, headers.Length())
	headers.Each(func(_ int, h *goquery.Selection) {
		var body []*html.Node
		for sib := h.Nodes[0].NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type != html.ElementNode {
				continue
			}
			if boundary(sib) {
				break
			}
			body = append(body, sib)
		}
		sections = append(sections, Section{Header: h, Body: body})
	})

	return sections
}

// tableOf returns n when it is a table, otherwise its first nested table
func tableOf(n *html.Node) *html.Node {
	if isElement(n, atom.Table) {
		return n
	}
	return findDescendant(n, func(d *html.Node) bool { return isElement(d, atom.Table) })
}

// isTextBlock reports whether n is a paragraph or div
func isTextBlock(n *html.Node) bool {
	return isElement(n, atom.P) || isElement(n, atom.Div)
}
