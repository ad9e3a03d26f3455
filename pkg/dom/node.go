// Package dom provides the tree model shared by the readers and filters:
// element nodes carrying browser rendering data (computed styles, bounding
// boxes) and text nodes, forming an ordered single-owner tree.
package dom

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// ErrNotChild is returned by Remove when the node is not a direct child.
var ErrNotChild = errors.New("not a child of this node")

// ErrEmptyTree is returned when decoding a JSON null, which is how writers
// encode a tree whose root was removed.
var ErrEmptyTree = errors.New("tree is empty")

// BoundingBox is an element's rendered position and size.
type BoundingBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// HasZeroArea reports whether the box has no width or no height.
func (b BoundingBox) HasZeroArea() bool {
	return b.Width == 0 || b.Height == 0
}

// Child is a member of a node's child list: either *Node or *Text.
// The set of implementations is closed.
type Child interface {
	// Parent returns the element holding this child, or nil when detached.
	Parent() *Node

	setParent(p *Node)
}

// Node is an element with attributes, computed styles, an optional bounding
// box, reader metadata and ordered children.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Styles   map[string]string
	Bounds   *BoundingBox
	Metadata map[string]any // reader-specific, carried verbatim by filters
	Children []Child

	// parent is a back-reference only; ownership runs parent -> child.
	parent *Node
}

// Text is a text node.
type Text struct {
	Content string

	parent *Node
}

// NewNode creates an element with empty attribute, style and metadata maps.
func NewNode(tag string) *Node {
	return &Node{
		Tag:      tag,
		Attrs:    make(map[string]string),
		Styles:   make(map[string]string),
		Metadata: make(map[string]any),
	}
}

// NewText creates a detached text node.
func NewText(content string) *Text {
	return &Text{Content: content}
}

// Parent returns the element holding this node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

func (n *Node) setParent(p *Node) { n.parent = p }

// Parent returns the element holding this text, or nil when detached.
func (t *Text) Parent() *Node { return t.parent }

func (t *Text) setParent(p *Node) { t.parent = p }

// String returns the text content.
func (t *Text) String() string { return t.Content }

// Append adds child to the end of the child list and makes n its parent.
// A child still attached elsewhere is detached from its old parent first.
// It panics if child is n or one of n's ancestors.
func (n *Node) Append(child Child) {
	for p := n; p != nil; p = p.parent {
		if Child(p) == child {
			panic("dom: Append would create a cycle under <" + n.Tag + ">")
		}
	}
	if old := child.Parent(); old != nil {
		_ = old.Remove(child)
	}
	n.Children = append(n.Children, child)
	child.setParent(n)
}

// Remove detaches the first occurrence of child and clears its parent.
func (n *Node) Remove(child Child) error {
	for i, c := range n.Children {
		if c != child {
			continue
		}
		n.Children = append(n.Children[:i:i], n.Children[i+1:]...)
		child.setParent(nil)
		return nil
	}
	return fmt.Errorf("remove from <%s>: %w", n.Tag, ErrNotChild)
}

// Len returns the number of children.
func (n *Node) Len() int { return len(n.Children) }

// Attr returns an attribute value and whether it is present.
func (n *Node) Attr(key string) (string, bool) {
	v, ok := n.Attrs[key]
	return v, ok
}

// Style returns a computed style value, or "" when unset.
func (n *Node) Style(key string) string {
	return n.Styles[key]
}

// Elements returns the element children in order.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if el, ok := c.(*Node); ok {
			out = append(out, el)
		}
	}
	return out
}

// Text concatenates all text below n depth-first, joining sibling
// contributions with sep.
func (n *Node) Text(sep string) string {
	parts := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		switch c := c.(type) {
		case *Text:
			parts = append(parts, c.Content)
		case *Node:
			parts = append(parts, c.Text(sep))
		}
	}
	return strings.Join(parts, sep)
}

// ShallowClone returns a detached copy of n without children. Attribute,
// style and metadata maps are copied; the bounding box is copied by value.
func (n *Node) ShallowClone() *Node {
	c := &Node{
		Tag:      n.Tag,
		Attrs:    copyMap(n.Attrs),
		Styles:   copyMap(n.Styles),
		Metadata: copyMap(n.Metadata),
	}
	if n.Bounds != nil {
		b := *n.Bounds
		c.Bounds = &b
	}
	return c
}

// Clone returns a detached deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	c := n.ShallowClone()
	for _, child := range n.Children {
		switch child := child.(type) {
		case *Text:
			c.Append(NewText(child.Content))
		case *Node:
			c.Append(child.Clone())
		}
	}
	return c
}

func copyMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return make(map[string]V)
	}
	return maps.Clone(m)
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the node just visited.
func Walk(n *Node, fn func(Child) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		switch c := c.(type) {
		case *Text:
			fn(c)
		case *Node:
			Walk(c, fn)
		}
	}
}

// Counts holds the number of nodes of each kind in a tree.
type Counts struct {
	Elements int `json:"elements" yaml:"elements"`
	Texts    int `json:"texts" yaml:"texts"`
}

// Count tallies the elements and text nodes under n, including n.
func Count(n *Node) Counts {
	var c Counts
	Walk(n, func(child Child) bool {
		switch child.(type) {
		case *Node:
			c.Elements++
		case *Text:
			c.Texts++
		}
		return true
	})
	return c
}
