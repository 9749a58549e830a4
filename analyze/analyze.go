// Package analyze computes structural statistics for lightweight-markup
// documents (Markdown family).
//
// Counting is AST-based: the document is parsed once with goldmark (GFM
// tables enabled) and the tree is walked to count headings, links, images,
// fenced code blocks, and tables. Line, word, and TODO-marker counts come
// from a single text pass. Analysis is pure: any input, including the
// empty string, yields a result and never an error.
package analyze

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gtext "github.com/yuin/goldmark/text"
)

// Counts holds the per-document feature counters.
type Counts struct {
	LineCount      int    `json:"line_count"`
	WordCount      int    `json:"word_count"`
	HeadingCount   int    `json:"heading_count"`
	HeadingLevels  [6]int `json:"heading_levels"` // index 0 = level 1
	LinkCount      int    `json:"link_count"`
	InternalLinks  int    `json:"internal_links"`
	ExternalLinks  int    `json:"external_links"`
	ImageCount     int    `json:"image_count"`
	CodeBlockCount int    `json:"code_block_count"`
	TaggedBlocks   int    `json:"tagged_blocks"`
	UntaggedBlocks int    `json:"untagged_blocks"`
	TableCount     int    `json:"table_count"`
	TodoCount      int    `json:"todo_count"`
}

// Add folds o into c field by field. Used when aggregating per-file counts
// into whole-tree totals.
func (c *Counts) Add(o Counts) {
	c.LineCount += o.LineCount
	c.WordCount += o.WordCount
	c.HeadingCount += o.HeadingCount
	for i := range c.HeadingLevels {
		c.HeadingLevels[i] += o.HeadingLevels[i]
	}
	c.LinkCount += o.LinkCount
	c.InternalLinks += o.InternalLinks
	c.ExternalLinks += o.ExternalLinks
	c.ImageCount += o.ImageCount
	c.CodeBlockCount += o.CodeBlockCount
	c.TaggedBlocks += o.TaggedBlocks
	c.UntaggedBlocks += o.UntaggedBlocks
	c.TableCount += o.TableCount
	c.TodoCount += o.TodoCount
}

// Link is one inline link or image reference found in a document.
type Link struct {
	Text     string `json:"text"`
	URL      string `json:"url"`
	External bool   `json:"external"`
	Image    bool   `json:"image,omitempty"`
}

// Result is the full analysis of one document.
type Result struct {
	Title  string `json:"title"`
	Counts Counts `json:"counts"`
	Links  []Link `json:"links,omitempty"`
}

var todoPattern = regexp.MustCompile(`(?i)(TODO|FIXME|XXX)`)

// engine is shared across calls; goldmark parsers are stateless.
var engine = goldmark.New(goldmark.WithExtensions(extension.Table))

// Analyze returns the feature counts for text. Pure: never fails, empty
// input yields all-zero counts.
func Analyze(text string) Counts {
	return Inspect(text).Counts
}

// Inspect returns counts plus the document title (first level-1 heading)
// and the inventory of inline links and images.
func Inspect(text string) *Result {
	res := &Result{}
	if text != "" {
		res.Counts.LineCount = strings.Count(text, "\n") + 1
	}
	res.Counts.WordCount = len(strings.Fields(text))
	res.Counts.TodoCount = len(todoPattern.FindAllStringIndex(text, -1))

	src := []byte(text)
	root := engine.Parser().Parse(gtext.NewReader(src))

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			// Only ATX headings (#, ##, ...) count; setext underline
			// headings are outside the recognized feature set.
			if !isATXHeading(src, v) {
				return ast.WalkContinue, nil
			}
			res.Counts.HeadingCount++
			if v.Level >= 1 && v.Level <= 6 {
				res.Counts.HeadingLevels[v.Level-1]++
			}
			if v.Level == 1 && res.Title == "" {
				res.Title = nodeText(src, v)
			}
		case *ast.Link:
			url := string(v.Destination)
			ext := isExternalURL(url)
			res.Counts.LinkCount++
			if ext {
				res.Counts.ExternalLinks++
			} else {
				res.Counts.InternalLinks++
			}
			res.Links = append(res.Links, Link{
				Text:     nodeText(src, v),
				URL:      url,
				External: ext,
			})
		case *ast.Image:
			url := string(v.Destination)
			res.Counts.ImageCount++
			res.Links = append(res.Links, Link{
				Text:     nodeText(src, v),
				URL:      url,
				External: isExternalURL(url),
				Image:    true,
			})
		case *ast.FencedCodeBlock:
			res.Counts.CodeBlockCount++
			if lang := v.Language(src); len(lang) > 0 {
				res.Counts.TaggedBlocks++
			} else {
				res.Counts.UntaggedBlocks++
			}
		case *east.Table:
			res.Counts.TableCount++
		}
		return ast.WalkContinue, nil
	})

	return res
}

// isExternalURL reports whether url points outside the scanned tree.
// Anchors and relative paths are internal.
func isExternalURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// isATXHeading reports whether the heading's opening line starts with '#'.
// Goldmark emits the same node type for setext headings, so the raw source
// line is checked. Headings without a text line ("#" alone) can only be ATX.
func isATXHeading(src []byte, n *ast.Heading) bool {
	if n.Lines().Len() == 0 {
		return true
	}
	pos := n.Lines().At(0).Start
	i := pos
	for i > 0 && src[i-1] != '\n' {
		i--
	}
	line := bytes.TrimLeft(src[i:pos], " ")
	return bytes.HasPrefix(line, []byte("#"))
}

// nodeText collects the plain text content of a node subtree.
func nodeText(src []byte, n ast.Node) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
