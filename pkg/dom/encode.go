package dom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// record is the serialised form of a tree. Elements carry a tag, text nodes
// carry only text.
type record struct {
	Tag      string            `json:"tag,omitempty" yaml:"tag,omitempty"`
	Text     *string           `json:"text,omitempty" yaml:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Styles   map[string]string `json:"styles,omitempty" yaml:"styles,omitempty"`
	Bounds   *BoundingBox      `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Metadata map[string]any    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Children []record          `json:"children,omitempty" yaml:"children,omitempty"`
}

func toRecord(n *Node) record {
	r := record{
		Tag:      n.Tag,
		Attrs:    n.Attrs,
		Styles:   n.Styles,
		Bounds:   n.Bounds,
		Metadata: n.Metadata,
	}
	if len(n.Children) > 0 {
		r.Children = make([]record, 0, len(n.Children))
	}
	for _, c := range n.Children {
		switch c := c.(type) {
		case *Text:
			content := c.Content
			r.Children = append(r.Children, record{Text: &content})
		case *Node:
			r.Children = append(r.Children, toRecord(c))
		}
	}
	return r
}

// fill populates n from r, attaching freshly built children.
func (r record) fill(n *Node) error {
	if r.Tag == "" {
		return errors.New("element record has no tag")
	}
	n.Tag = r.Tag
	n.Attrs = copyMap(r.Attrs)
	n.Styles = copyMap(r.Styles)
	n.Metadata = normalizeMetadata(r.Metadata)
	n.Bounds = nil
	if r.Bounds != nil {
		b := *r.Bounds
		n.Bounds = &b
	}
	n.Children = nil
	for i, cr := range r.Children {
		if cr.Text != nil {
			if cr.Tag != "" {
				return fmt.Errorf("child %d of <%s>: record has both tag and text", i, r.Tag)
			}
			n.Append(NewText(*cr.Text))
			continue
		}
		child := &Node{}
		if err := cr.fill(child); err != nil {
			return fmt.Errorf("child %d of <%s>: %w", i, r.Tag, err)
		}
		n.Append(child)
	}
	return nil
}

// normalizeMetadata turns json.Number values back into int or float64.
func normalizeMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if num, ok := v.(json.Number); ok {
			if i, err := num.Int64(); err == nil {
				v = int(i)
			} else if f, err := num.Float64(); err == nil {
				v = f
			}
		}
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the subtree rooted at n.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(toRecord(n))
}

// UnmarshalJSON rebuilds n, and a fresh subtree below it, from JSON.
// A JSON null is reported as ErrEmptyTree.
func (n *Node) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return ErrEmptyTree
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var r record
	if err := dec.Decode(&r); err != nil {
		return err
	}
	return r.fill(n)
}

// MarshalYAML implements yaml.Marshaler.
func (n *Node) MarshalYAML() (any, error) {
	return toRecord(n), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var r record
	if err := value.Decode(&r); err != nil {
		return err
	}
	return r.fill(n)
}

// MarshalJSON encodes a detached text node.
func (t *Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{Text: &t.Content})
}
