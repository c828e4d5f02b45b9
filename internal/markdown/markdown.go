// Package markdown renders answer text for display.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Renderer converts a markdown document into display text.
type Renderer interface {
	Render(src string) (string, error)
}

// HTML renders markdown to an HTML fragment.
type HTML struct {
	md goldmark.Markdown
}

// NewHTML returns a GitHub-flavoured renderer that keeps single line breaks
// as <br> and opens external links in a new tab. Raw HTML in the source is
// omitted from the output.
func NewHTML() *HTML {
	return &HTML{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM, &externalLinks{}),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)}
}

// Render implements Renderer.
func (h *HTML) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown: render html: %w", err)
	}
	return buf.String(), nil
}

type externalLinks struct{}

func (e *externalLinks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&externalLinkTransformer{}, 100),
	))
}

type externalLinkTransformer struct{}

func (t *externalLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch link := n.(type) {
		case *ast.Link:
			if isExternal(link.Destination) {
				markNewTab(link)
			}
		case *ast.AutoLink:
			if link.AutoLinkType == ast.AutoLinkURL && isExternal(link.URL(reader.Source())) {
				markNewTab(link)
			}
		}
		return ast.WalkContinue, nil
	})
}

func markNewTab(n ast.Node) {
	n.SetAttributeString("target", []byte("_blank"))
	n.SetAttributeString("rel", []byte("noopener noreferrer"))
}

func isExternal(dest []byte) bool {
	s := strings.ToLower(strings.TrimSpace(string(dest)))
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "//")
}
