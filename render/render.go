// Package render writes a highlighted document as HTML, sanitised HTML or
// Markdown. Marks survive every format: as elements in HTML and as
// ==text== in Markdown.
package render

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
)

// Format is an output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatSafeHTML Format = "safe-html"
	FormatMarkdown Format = "md"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatHTML, FormatSafeHTML, FormatMarkdown:
		return f, nil
	case "":
		return FormatHTML, nil
	case "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("render: unknown format %q", s)
}

// Renderer holds the sanitising policy and the Markdown converter for one
// mark element.
type Renderer struct {
	element string
	policy  *bluemonday.Policy
	md      *converter.Converter
}

var markAttrs = regexp.MustCompile(`^[A-Za-z0-9_ -]*$`)

// New creates a Renderer for marks written as element (default "mark").
func New(element string) *Renderer {
	if element == "" {
		element = "mark"
	}
	policy := bluemonday.UGCPolicy()
	policy.AllowElements(element)
	policy.AllowAttrs("class").Matching(markAttrs).OnElements(element)
	policy.AllowDataAttributes()

	md := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md.Register.RendererFor(element, converter.TagTypeInline, renderMark, converter.PriorityEarly)

	return &Renderer{element: element, policy: policy, md: md}
}

func renderMark(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	if strings.TrimSpace(dom.TextContent(n)) == "" {
		return converter.RenderTryNext
	}
	w.WriteString("==")
	ctx.RenderChildNodes(ctx, w, n)
	w.WriteString("==")
	return converter.RenderSuccess
}

// Write renders doc to w in format f.
func (r *Renderer) Write(w io.Writer, doc *dom.Document, f Format) error {
	var out string
	var err error
	switch f {
	case FormatHTML, "":
		return doc.Render(w)
	case FormatSafeHTML:
		out = r.SafeHTML(doc)
	case FormatMarkdown:
		out, err = r.Markdown(doc)
	default:
		return fmt.Errorf("render: unknown format %q", f)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// SafeHTML returns the body of doc with scripts, handlers and unknown
// attributes removed. Marks keep their classes and data attributes.
func (r *Renderer) SafeHTML(doc *dom.Document) string {
	return r.policy.Sanitize(doc.String())
}

// Markdown converts doc to Markdown.
func (r *Renderer) Markdown(doc *dom.Document) (string, error) {
	domain := ""
	if doc.URL != nil && doc.URL.Host != "" {
		domain = doc.URL.Scheme + "://" + doc.URL.Host
	}
	out, err := r.md.ConvertString(doc.String(), converter.WithDomain(domain))
	if err != nil {
		return "", fmt.Errorf("render: markdown: %w", err)
	}
	return out, nil
}
