// Package filter provides pure tree-rewriting passes over dom trees and the
// presets that compose them.
//
// Every pass takes a root element and returns a newly built tree, or nil when
// the root and its whole subtree are removed. Inputs are never modified, so
// several passes may read the same tree concurrently.
package filter

import (
	"strings"
	"time"

	"github.com/jmylchreest/domnode/pkg/dom"
)

// Filter rewrites a tree into a new tree.
type Filter interface {
	// Apply returns the rewritten tree, or nil if the root was removed.
	Apply(n *dom.Node) *dom.Node

	// Name returns the filter name for logging/debugging.
	Name() string
}

type funcFilter struct {
	name string
	fn   func(*dom.Node) *dom.Node
}

// New wraps a pass function as a named Filter.
func New(name string, fn func(*dom.Node) *dom.Node) Filter {
	return &funcFilter{name: name, fn: fn}
}

func (f *funcFilter) Apply(n *dom.Node) *dom.Node {
	if n == nil {
		return nil
	}
	return f.fn(n)
}

func (f *funcFilter) Name() string { return f.name }

// Chain applies filters in sequence, stopping at the first that removes the
// root.
type Chain struct {
	name    string
	filters []Filter
}

// NewChain creates a filter applying the given filters in order.
//
// Example:
//
//	chain := filter.NewChain(
//	    filter.VisiblePreset(),
//	    filter.New("collapse_wrappers", filter.CollapseWrappers),
//	)
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// named returns a chain that reports the given name instead of its stages.
func named(name string, filters ...Filter) *Chain {
	return &Chain{name: name, filters: filters}
}

// Apply runs every stage, short-circuiting once a stage yields nil.
func (c *Chain) Apply(n *dom.Node) *dom.Node {
	for _, f := range c.filters {
		if n == nil {
			return nil
		}
		n = f.Apply(n)
	}
	return n
}

// ApplyWithStats runs the chain like Apply and records per-stage metrics.
// Nested chains are reported as a single stage.
func (c *Chain) ApplyWithStats(n *dom.Node) (*dom.Node, *Stats) {
	start := time.Now()
	stats := &Stats{Input: dom.Count(n)}
	stats.Output = stats.Input
	for _, f := range c.filters {
		if n == nil {
			break
		}
		stage := StageStats{Name: f.Name(), Input: stats.Output}
		stageStart := time.Now()
		n = f.Apply(n)
		stage.Duration = time.Since(stageStart)
		stage.Output = dom.Count(n)
		stage.RemovedRoot = n == nil
		stats.Stages = append(stats.Stages, stage)
		stats.Output = stage.Output
	}
	stats.Duration = time.Since(start)
	return n, stats
}

// Name returns the chain name, or the names of its stages.
func (c *Chain) Name() string {
	if c.name != "" {
		return c.name
	}
	names := make([]string, len(c.filters))
	for i, f := range c.filters {
		names[i] = f.Name()
	}
	return "chain(" + strings.Join(names, "->") + ")"
}

// Stages returns the filters of the chain in order.
func (c *Chain) Stages() []Filter {
	out := make([]Filter, len(c.filters))
	copy(out, c.filters)
	return out
}

// rebuild returns a childless copy of n and the rebuilt children produced by
// keep. keep returns nil to drop an element child; text children pass
// through as fresh Text nodes.
func rebuild(n *dom.Node, keep func(*dom.Node) *dom.Node) *dom.Node {
	out := n.ShallowClone()
	for _, c := range n.Children {
		switch c := c.(type) {
		case *dom.Text:
			out.Append(dom.NewText(c.Content))
		case *dom.Node:
			if kept := keep(c); kept != nil {
				out.Append(kept)
			}
		}
	}
	return out
}
