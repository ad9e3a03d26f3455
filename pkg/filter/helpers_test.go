package filter

import (
	"encoding/json"
	"testing"

	"github.com/jmylchreest/domnode/pkg/dom"
)

// el builds an element with attributes given as key/value pairs.
func el(tag string, attrs ...string) *dom.Node {
	n := dom.NewNode(tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attrs[attrs[i]] = attrs[i+1]
	}
	return n
}

func withStyles(n *dom.Node, styles ...string) *dom.Node {
	for i := 0; i+1 < len(styles); i += 2 {
		n.Styles[styles[i]] = styles[i+1]
	}
	return n
}

func withBounds(n *dom.Node, x, y, w, h float64) *dom.Node {
	n.Bounds = &dom.BoundingBox{X: x, Y: y, Width: w, Height: h}
	return n
}

func with(n *dom.Node, children ...dom.Child) *dom.Node {
	for _, c := range children {
		n.Append(c)
	}
	return n
}

func text(s string) *dom.Text { return dom.NewText(s) }

func snapshot(t *testing.T, n *dom.Node) string {
	t.Helper()
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return string(data)
}

// childTags lists the tags of element children, "#text" for text children.
func childTags(n *dom.Node) []string {
	var out []string
	for _, c := range n.Children {
		switch c := c.(type) {
		case *dom.Node:
			out = append(out, c.Tag)
		case *dom.Text:
			out = append(out, "#text")
		}
	}
	return out
}

func assertTags(t *testing.T, n *dom.Node, want ...string) {
	t.Helper()
	got := childTags(n)
	if len(got) != len(want) {
		t.Fatalf("expected children %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected children %v, got %v", want, got)
		}
	}
}

// assertParents checks every child in the tree points back at its holder.
func assertParents(t *testing.T, n *dom.Node) {
	t.Helper()
	for _, c := range n.Children {
		if c.Parent() != n {
			t.Fatalf("child of <%s> has wrong parent", n.Tag)
		}
		if child, ok := c.(*dom.Node); ok {
			assertParents(t, child)
		}
	}
}
