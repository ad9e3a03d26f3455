// Package parse reads rendered pages into dom trees.
//
// Two formats are supported: HTML markup, optionally annotated with
// backend_node_id and bounding_box_rect attributes, and Chrome DevTools
// DOMSnapshot.captureSnapshot results. Both readers return a single root
// element; an empty input yields a bare html root.
package parse

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jmylchreest/domnode/pkg/dom"
)

var (
	// ErrMalformed is returned when the input is structurally invalid.
	ErrMalformed = errors.New("malformed input")

	// ErrNoMatch is returned when a root selector matches nothing.
	ErrNoMatch = errors.New("no element matches selector")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// emptyRoot is returned for inputs without any element.
func emptyRoot() *dom.Node {
	return dom.NewNode("html")
}

// wrapRoots returns the only top-level element, or an html element holding
// all top-level children.
func wrapRoots(roots []dom.Child) *dom.Node {
	if len(roots) == 1 {
		if n, ok := roots[0].(*dom.Node); ok {
			return n
		}
	}
	root := emptyRoot()
	for _, c := range roots {
		root.Append(c)
	}
	return root
}

// parseStyle splits an inline declaration list on ';' then on the first ':'.
// Keys are lower-cased; declarations without a colon are ignored.
func parseStyle(decl string, into map[string]string) {
	for _, part := range strings.Split(decl, ";") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		into[key] = strings.TrimSpace(value)
	}
}

// newBounds validates a rectangle given as x, y, width, height.
func newBounds(r []float64) (*dom.BoundingBox, error) {
	if len(r) != 4 {
		return nil, malformed("rectangle has %d values, want 4", len(r))
	}
	for _, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, malformed("rectangle value %v is not finite", v)
		}
	}
	return &dom.BoundingBox{X: r[0], Y: r[1], Width: r[2], Height: r[3]}, nil
}

// parseRect reads "x,y,width,height".
func parseRect(s string) (*dom.BoundingBox, error) {
	parts := strings.Split(s, ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, malformed("bounding box %q: %v", s, err)
		}
		vals = append(vals, v)
	}
	return newBounds(vals)
}
