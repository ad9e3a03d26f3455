package filter

import (
	"strings"

	"github.com/jmylchreest/domnode/pkg/dom"
)

// semanticAttributes carry accessibility or interaction meaning.
var semanticAttributes = []string{
	"role",
	"aria-label",
	"aria-labelledby",
	"aria-describedby",
	"aria-checked",
	"aria-selected",
	"aria-expanded",
	"aria-hidden",
	"aria-disabled",
	"type",
	"name",
	"placeholder",
	"value",
	"alt",
	"title",
	"href",
	"disabled",
	"checked",
	"selected",
}

// interactiveTags are kept by Empty even with no attributes or content.
var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
	"label":    true,
}

// DefaultSemanticAttributes returns a copy of the default attribute
// allow-list used by Attributes.
func DefaultSemanticAttributes() []string {
	out := make([]string, len(semanticAttributes))
	copy(out, semanticAttributes)
	return out
}

var defaultAttributes = KeepAttributes(semanticAttributes...)

// Attributes keeps only the default semantic attributes on every element.
// It never removes nodes; styles, bounds and metadata are untouched.
func Attributes(n *dom.Node) *dom.Node {
	return defaultAttributes(n)
}

// KeepAttributes returns an attribute pass that keeps exactly the given
// attribute names. With no names every attribute is dropped.
func KeepAttributes(keep ...string) func(*dom.Node) *dom.Node {
	allowed := make(map[string]bool, len(keep))
	for _, k := range keep {
		allowed[k] = true
	}
	var pass func(*dom.Node) *dom.Node
	pass = func(n *dom.Node) *dom.Node {
		if n == nil {
			return nil
		}
		out := rebuild(n, pass)
		for k := range out.Attrs {
			if !allowed[k] {
				delete(out.Attrs, k)
			}
		}
		return out
	}
	return pass
}

// PresentationalRoles deletes role="none" and role="presentation"
// (case-insensitive). The element and its children are always kept, so list
// and table structure stays intact for descendants.
func PresentationalRoles(n *dom.Node) *dom.Node {
	if n == nil {
		return nil
	}
	out := rebuild(n, PresentationalRoles)
	if role, ok := out.Attrs["role"]; ok {
		switch strings.ToLower(role) {
		case "none", "presentation":
			delete(out.Attrs, "role")
		}
	}
	return out
}

// Empty removes elements left with no attributes and no content once their
// children have been filtered. Whitespace-only text is dropped. Interactive
// controls (a, button, input, select, textarea, label) are always kept.
func Empty(n *dom.Node) *dom.Node {
	if n == nil {
		return nil
	}
	out := n.ShallowClone()
	for _, c := range n.Children {
		switch c := c.(type) {
		case *dom.Text:
			if strings.TrimSpace(c.Content) != "" {
				out.Append(dom.NewText(c.Content))
			}
		case *dom.Node:
			if kept := Empty(c); kept != nil {
				out.Append(kept)
			}
		}
	}
	if len(out.Attrs) == 0 && out.Len() == 0 && !interactiveTags[out.Tag] {
		return nil
	}
	return out
}

// CollapseWrappers replaces an attribute-less element by its only element
// child when it holds no non-whitespace text. Children are collapsed first,
// so nested wrapper chains fold into the innermost element in one call.
func CollapseWrappers(n *dom.Node) *dom.Node {
	if n == nil {
		return nil
	}
	out := rebuild(n, CollapseWrappers)
	if len(out.Attrs) > 0 || hasMeaningfulText(out) {
		return out
	}
	if els := out.Elements(); len(els) == 1 {
		only := els[0]
		_ = out.Remove(only)
		return only
	}
	return out
}

func hasMeaningfulText(n *dom.Node) bool {
	for _, c := range n.Children {
		if t, ok := c.(*dom.Text); ok && strings.TrimSpace(t.Content) != "" {
			return true
		}
	}
	return false
}
