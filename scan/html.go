package scan

import (
	"bytes"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlConverter turns HTML documents into markdown so they flow through the
// same analysis path as native markdown files. Input is sanitized first;
// scripts, styles, and event handlers never reach the converter.
type htmlConverter struct {
	sanitizer *bluemonday.Policy
	conv      *converter.Converter
}

func newHTMLConverter() *htmlConverter {
	return &htmlConverter{
		sanitizer: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// toMarkdown converts an HTML document to markdown and returns the
// markdown text plus the <title> element content, if any.
func (h *htmlConverter) toMarkdown(data []byte) (string, string, error) {
	title := htmlTitle(data)
	clean := h.sanitizer.SanitizeBytes(data)
	md, err := h.conv.ConvertString(string(clean))
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(md), title, nil
}

// htmlTitle extracts the <title> text. The sanitizer strips <head>, so the
// title is pulled from the raw document before sanitization.
func htmlTitle(data []byte) string {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			if n.FirstChild != nil {
				return strings.TrimSpace(n.FirstChild.Data)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(doc)
}
