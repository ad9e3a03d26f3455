package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/domnode/pkg/dom"
)

// JSONWriter writes trees as a JSON document. A single tree is written as
// an object, several as an array, and a removed tree as null.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
	trees  []*dom.Node
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// Write buffers a tree until Flush.
func (w *JSONWriter) Write(n *dom.Node) error {
	w.trees = append(w.trees, n)
	return nil
}

// Flush writes the buffered trees.
func (w *JSONWriter) Flush() error {
	if len(w.trees) == 0 {
		return w.w.Flush()
	}

	var value any = w.trees
	if len(w.trees) == 1 {
		value = w.trees[0]
	}

	var output []byte
	var err error
	if w.pretty {
		output, err = json.MarshalIndent(value, "", w.indent)
	} else {
		output, err = json.Marshal(value)
	}
	if err != nil {
		return err
	}
	w.trees = nil

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter writes one compact JSON tree per line.
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write writes a tree as a JSON line.
func (w *JSONLWriter) Write(n *dom.Node) error {
	output, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
