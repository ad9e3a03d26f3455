package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jmylchreest/domnode/internal/logger"
	"github.com/jmylchreest/domnode/pkg/dom"
)

// Attributes that annotated markup uses to carry snapshot data.
const (
	attrBackendNodeID = "backend_node_id"
	attrBoundingBox   = "bounding_box_rect"
)

// HTMLOption configures the HTML reader.
type HTMLOption func(*htmlConfig)

type htmlConfig struct {
	rootSelector string
}

// WithRootSelector roots the tree at the first element matching a CSS
// selector. HTML returns ErrNoMatch when nothing matches.
func WithRootSelector(selector string) HTMLOption {
	return func(c *htmlConfig) {
		c.rootSelector = selector
	}
}

// HTML parses markup into a tree.
//
// Full documents are rooted at their html element. Fragments are parsed in
// a body context; a single top-level element becomes the root and anything
// else is wrapped in an html element. Text is trimmed and whitespace-only
// text dropped. backend_node_id becomes integer metadata, bounding_box_rect
// becomes Bounds, and inline style declarations are copied into Styles.
func HTML(markup string, opts ...HTMLOption) (*dom.Node, error) {
	cfg := &htmlConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if strings.TrimSpace(markup) == "" {
		return emptyRoot(), nil
	}

	holder, err := parseMarkup(markup)
	if err != nil {
		return nil, err
	}

	var tops []*html.Node
	if cfg.rootSelector != "" {
		sel := goquery.NewDocumentFromNode(holder).Find(cfg.rootSelector).First()
		if sel.Length() == 0 {
			return nil, fmt.Errorf("%q: %w", cfg.rootSelector, ErrNoMatch)
		}
		tops = append(tops, sel.Get(0))
	} else {
		for c := holder.FirstChild; c != nil; c = c.NextSibling {
			tops = append(tops, c)
		}
	}

	var roots []dom.Child
	for _, h := range tops {
		child, err := convertHTML(h)
		if err != nil {
			return nil, err
		}
		if child != nil {
			roots = append(roots, child)
		}
	}

	root := wrapRoots(roots)
	counts := dom.Count(root)
	logger.Debug("parsed html", "root", root.Tag, "elements", counts.Elements, "texts", counts.Texts)
	return root, nil
}

// parseMarkup returns a document node holding the top-level nodes.
func parseMarkup(markup string) (*html.Node, error) {
	if isDocument(markup) {
		doc, err := html.Parse(strings.NewReader(markup))
		if err != nil {
			return nil, fmt.Errorf("parse html document: %w", err)
		}
		holder := &html.Node{Type: html.DocumentNode}
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				doc.RemoveChild(c)
				holder.AppendChild(c)
				break
			}
		}
		return holder, nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	holder := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		holder.AppendChild(n)
	}
	return holder, nil
}

// isDocument reports whether markup opens an html, head or body tag.
// Tag names inside text, comments, attribute values and script bodies do
// not count.
func isDocument(markup string) bool {
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Html, atom.Head, atom.Body:
				return true
			}
		}
	}
}

// convertHTML maps an html node onto a tree child. Comments, doctypes and
// whitespace-only text yield nil.
func convertHTML(h *html.Node) (dom.Child, error) {
	switch h.Type {
	case html.TextNode:
		if s := strings.TrimSpace(h.Data); s != "" {
			return dom.NewText(s), nil
		}
		return nil, nil
	case html.ElementNode:
		n, err := convertElement(h)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, nil
	}
}

func convertElement(h *html.Node) (*dom.Node, error) {
	n := dom.NewNode(h.Data)
	for _, a := range h.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		switch key {
		case attrBackendNodeID:
			id, err := strconv.Atoi(strings.TrimSpace(a.Val))
			if err != nil {
				return nil, malformed("<%s> %s %q is not an integer", h.Data, attrBackendNodeID, a.Val)
			}
			n.Metadata[attrBackendNodeID] = id
		case attrBoundingBox:
			b, err := parseRect(a.Val)
			if err != nil {
				return nil, fmt.Errorf("<%s>: %w", h.Data, err)
			}
			n.Bounds = b
		case "style":
			n.Attrs[key] = a.Val
			parseStyle(a.Val, n.Styles)
		default:
			n.Attrs[key] = a.Val
		}
	}

	// Some datasets wrap page text in a literal <text> element.
	if h.Data == "text" {
		n.Tag = "span"
		if s := strings.TrimSpace(textContent(h)); s != "" {
			n.Append(dom.NewText(s))
		}
		return n, nil
	}

	for c := h.FirstChild; c != nil; c = c.NextSibling {
		child, err := convertHTML(c)
		if err != nil {
			return nil, err
		}
		if child != nil {
			n.Append(child)
		}
	}
	return n, nil
}

func textContent(h *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(h)
	return sb.String()
}
