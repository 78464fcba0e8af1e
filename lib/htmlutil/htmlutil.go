package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

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
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteString("\n")
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText collapses whitespace runs into single spaces and drops non-printable runes.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TableRows parses the outer HTML of a table into the cleaned text of each row's cells.
// Rows without data cells (ex. header rows made of <th>) come out as empty slices so that
// row indices keep lining up with the rendered table.
func TableRows(tableHTML string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return nil, err
	}
	var rows [][]string
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := []string{}
		tr.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
			var text strings.Builder
			for _, n := range td.Nodes {
				text.WriteString(GetText(n))
			}
			cells = append(cells, CleanText(text.String()))
		})
		rows = append(rows, cells)
	})
	return rows, nil
}
