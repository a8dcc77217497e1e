package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText is the DOM textContent of a node: every descendant text node
// concatenated in document order, untouched.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// SelectionText is GetText over the first node of a selection, "" when empty.
func SelectionText(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	return GetText(sel.Nodes[0])
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return ' '
	}, s)
}

// NormalizeText is for display only, it collapses the table cell padding
// the timetable site renders around its values.
func NormalizeText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// FindAnchor returns the first <a> under sel whose href attribute is exactly
// href, the same node document.querySelector(`a[href="..."]`) would pick.
func FindAnchor(sel *goquery.Selection, href string) *goquery.Selection {
	return sel.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return a.AttrOr("href", "") == href
	}).First()
}

// Ancestor walks exactly depth parent elements up from the first node of sel.
// ok is false when the walk runs off the top of the document.
func Ancestor(sel *goquery.Selection, depth int) (*goquery.Selection, bool) {
	if sel.Length() == 0 {
		return sel, false
	}
	current := sel.First()
	for i := 0; i < depth; i++ {
		current = current.Parent()
		if current.Length() == 0 {
			return current, false
		}
	}
	return current, true
}
