package ingestion

import (
	"regexp"
	"slices"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	// markers the parser leaves behind in text
	reStrayMarkers = regexp.MustCompile("\\*{2,}|\\+\\s|`<|`>")
	reWhitespace   = regexp.MustCompile(`\s+`)
)

// Section is the text found under one heading path of a document.
type Section struct {
	// Path holds the heading labels from the top level down.
	Path []string

	// Paragraphs holds the plain text of each paragraph, list item
	// paragraph and table row in document order.
	Paragraphs []string
}

// SplitMarkdown parses a markdown document into sections.
//
// Headings form a stack: a heading of depth n replaces everything at depth n
// and below. When title is not empty it seeds the stack, so text before the
// first heading belongs to it and top-level headings replace it. Text with
// no heading above it is dropped. Link text is kept, images, code blocks and
// raw HTML are skipped. Sections sharing a path are merged in first-seen
// order.
func SplitMarkdown(source []byte, title string) []Section {
	var (
		sections []Section
		path     []string
		open     = -1
		byPath   = make(map[string]int)
	)
	if title = cleanText(title); title != "" {
		path = []string{title}
	}

	parser := blackfriday.New(blackfriday.WithExtensions(blackfriday.CommonExtensions))
	parser.Parse(source).Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering {
			return blackfriday.GoToNext
		}

		switch node.Type {
		case blackfriday.Heading:
			label := plainText(node)
			if label == "" {
				return blackfriday.SkipChildren
			}
			depth := max(node.HeadingData.Level, 1)
			if len(path) > depth-1 {
				path = path[:depth-1]
			}
			path = append(path, label)
			open = -1
			return blackfriday.SkipChildren

		case blackfriday.Paragraph, blackfriday.TableRow:
			text := plainText(node)
			if text == "" || len(path) == 0 {
				return blackfriday.SkipChildren
			}
			if open < 0 {
				key := strings.Join(path, "\x00")
				idx, found := byPath[key]
				if !found {
					idx = len(sections)
					byPath[key] = idx
					sections = append(sections, Section{Path: slices.Clone(path)})
				}
				open = idx
			}
			sections[open].Paragraphs = append(sections[open].Paragraphs, text)
			return blackfriday.SkipChildren

		case blackfriday.CodeBlock, blackfriday.HTMLBlock, blackfriday.TableHead:
			return blackfriday.SkipChildren
		}
		return blackfriday.GoToNext
	})
	return sections
}

// plainText renders the inline content below node as cleaned plain text.
func plainText(node *blackfriday.Node) string {
	var b strings.Builder
	node.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		switch n.Type {
		case blackfriday.Text, blackfriday.Code:
			if entering {
				b.Write(n.Literal)
			}
		case blackfriday.Softbreak, blackfriday.Hardbreak:
			b.WriteByte(' ')
		case blackfriday.TableCell:
			if !entering {
				b.WriteByte(' ')
			}
		case blackfriday.Image, blackfriday.HTMLSpan:
			return blackfriday.SkipChildren
		}
		return blackfriday.GoToNext
	})
	return cleanText(b.String())
}

func cleanText(text string) string {
	text = reStrayMarkers.ReplaceAllString(text, " ")
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}
