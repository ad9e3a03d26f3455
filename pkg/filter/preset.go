package filter

import (
	"fmt"
	"sort"

	"github.com/jmylchreest/domnode/pkg/dom"
)

// Preset names accepted by ByName.
const (
	PresetVisible  = "visible"
	PresetSemantic = "semantic"
	PresetAll      = "all"
)

// Option configures the semantic preset.
type Option func(*config)

type config struct {
	keep    []string
	keepSet bool
}

// WithKeepAttributes overrides the attribute allow-list of the semantic
// preset. Calling it with no names keeps no attributes at all.
func WithKeepAttributes(attrs ...string) Option {
	return func(c *config) {
		c.keep = attrs
		c.keepSet = true
	}
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VisiblePreset returns the visibility chain:
// NonVisibleTags -> CSSHidden -> ZeroDimensions.
func VisiblePreset() *Chain {
	return named(PresetVisible,
		New("non_visible_tags", NonVisibleTags),
		New("css_hidden", CSSHidden),
		New("zero_dimensions", ZeroDimensions),
	)
}

// SemanticPreset returns the semantic chain:
// Attributes -> PresentationalRoles -> Empty -> CollapseWrappers.
func SemanticPreset(opts ...Option) *Chain {
	c := newConfig(opts)
	attrs := New("attributes", Attributes)
	if c.keepSet {
		attrs = New("attributes", KeepAttributes(c.keep...))
	}
	return named(PresetSemantic,
		attrs,
		New("presentational_roles", PresentationalRoles),
		New("empty", Empty),
		New("collapse_wrappers", CollapseWrappers),
	)
}

// AllPreset returns the visibility chain followed by the semantic chain.
// Semantic filtering only runs when the visibility chain kept the root.
func AllPreset(opts ...Option) *Chain {
	return named(PresetAll, VisiblePreset(), SemanticPreset(opts...))
}

// Semantic applies the semantic preset to n.
func Semantic(n *dom.Node, opts ...Option) *dom.Node {
	return SemanticPreset(opts...).Apply(n)
}

// All applies the visibility preset and then the semantic preset to n.
func All(n *dom.Node, opts ...Option) *dom.Node {
	return AllPreset(opts...).Apply(n)
}

var presets = map[string]func(...Option) *Chain{
	PresetVisible:  func(...Option) *Chain { return VisiblePreset() },
	PresetSemantic: SemanticPreset,
	PresetAll:      AllPreset,
}

// ByName returns the preset chain with the given name.
func ByName(name string, opts ...Option) (*Chain, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	return build(opts...), nil
}

// PresetNames lists the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
