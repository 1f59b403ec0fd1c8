package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// GetText concatenates every text node under node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, false)
	return buffer.String()
}

// InnerText approximates what a browser renders as the text of node: block
// level elements and <br> start new lines, whitespace inside a line is
// collapsed and empty lines are dropped.
func InnerText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, true)

	var lines []string
	for _, line := range strings.Split(buffer.String(), "\n") {
		line = CollapseSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

var blockElements = map[atom.Atom]bool{
	atom.P:       true,
	atom.Div:     true,
	atom.Li:      true,
	atom.Ul:      true,
	atom.Ol:      true,
	atom.Tr:      true,
	atom.Table:   true,
	atom.Section: true,
	atom.Header:  true,
	atom.Footer:  true,
	atom.H1:      true,
	atom.H2:      true,
	atom.H3:      true,
	atom.H4:      true,
	atom.H5:      true,
	atom.H6:      true,
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer, lineBreaks bool) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		buffer.WriteString(node.Data)
		return
	case html.ElementNode:
		if node.DataAtom == atom.Script || node.DataAtom == atom.Style {
			return
		}
		if lineBreaks && node.DataAtom == atom.Br {
			buffer.WriteByte('\n')
			return
		}
	}

	block := lineBreaks && node.Type == html.ElementNode && blockElements[node.DataAtom]
	if block {
		buffer.WriteByte('\n')
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer, lineBreaks)
		child = child.NextSibling
	}
	if block {
		buffer.WriteByte('\n')
	}
}

// OwnText returns only the text nodes that are direct children of node,
// the equivalent of XPath's text().
func OwnText(node *html.Node) string {
	var buffer bytes.Buffer
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			buffer.WriteString(child.Data)
		}
	}
	return buffer.String()
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// CollapseSpace trims s and replaces runs of whitespace with one space.
func CollapseSpace(s string) string {
	return innerWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Normalize folds compatibility characters (full-width digits, ideographic
// spaces) into their plain forms and drops non-printable runes.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	out := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || c == '\n' {
			out.WriteRune(c)
		}
	}
	return out.String()
}

// FirstLine returns the first non-empty line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
