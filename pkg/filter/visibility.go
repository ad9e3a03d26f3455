package filter

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/domnode/pkg/dom"
)

// nonVisibleTags never render anything on the page.
var nonVisibleTags = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"meta":     true,
	"link":     true,
	"title":    true,
	"noscript": true,
}

// NonVisibleTags removes script, style, head, meta, link, title and noscript
// elements together with their contents.
func NonVisibleTags(n *dom.Node) *dom.Node {
	if n == nil || nonVisibleTags[n.Tag] {
		return nil
	}
	return rebuild(n, NonVisibleTags)
}

// CSSHidden removes elements hidden by computed style (display:none,
// visibility:hidden, opacity:0), elements with a hidden attribute, and
// <input type="hidden">.
func CSSHidden(n *dom.Node) *dom.Node {
	if n == nil || isHidden(n) {
		return nil
	}
	return rebuild(n, CSSHidden)
}

func isHidden(n *dom.Node) bool {
	if strings.EqualFold(n.Style("display"), "none") {
		return true
	}
	if strings.EqualFold(n.Style("visibility"), "hidden") {
		return true
	}
	// Unparseable opacity counts as opaque.
	if op, ok := n.Styles["opacity"]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(op), 64); err == nil && v == 0 {
			return true
		}
	}
	if _, ok := n.Attr("hidden"); ok {
		return true
	}
	if n.Tag == "input" {
		if typ, _ := n.Attr("type"); strings.EqualFold(typ, "hidden") {
			return true
		}
	}
	return false
}

// ZeroDimensions removes elements whose bounding box has zero width or
// height. A zero-sized element that still holds an element child after
// filtering is kept, since absolutely positioned popups often sit inside
// zero-sized containers. Elements without bounds are never removed.
func ZeroDimensions(n *dom.Node) *dom.Node {
	if n == nil {
		return nil
	}
	out := rebuild(n, ZeroDimensions)
	if n.Bounds != nil && n.Bounds.HasZeroArea() && len(out.Elements()) == 0 {
		return nil
	}
	return out
}

// Visible applies NonVisibleTags, CSSHidden and ZeroDimensions in order.
func Visible(n *dom.Node) *dom.Node {
	return VisiblePreset().Apply(n)
}
