package dom

import (
	"io"
	"slices"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLNode converts the subtree rooted at n into an x/net/html tree.
// Attributes are emitted in key order. Computed styles, bounds and metadata
// are not part of the markup.
func (n *Node) HTMLNode() *html.Node {
	h := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		h.Attr = append(h.Attr, html.Attribute{Key: k, Val: n.Attrs[k]})
	}
	for _, c := range n.Children {
		switch c := c.(type) {
		case *Text:
			h.AppendChild(&html.Node{Type: html.TextNode, Data: c.Content})
		case *Node:
			h.AppendChild(c.HTMLNode())
		}
	}
	return h
}

// RenderHTML writes the subtree rooted at n as markup.
func RenderHTML(w io.Writer, n *Node) error {
	return html.Render(w, n.HTMLNode())
}
