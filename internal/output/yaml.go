package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/domnode/pkg/dom"
)

// YAMLWriter writes trees as YAML documents, one per tree.
type YAMLWriter struct {
	w     *bufio.Writer
	trees []*dom.Node
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write buffers a tree until Flush.
func (w *YAMLWriter) Write(n *dom.Node) error {
	w.trees = append(w.trees, n)
	return nil
}

// Flush writes the buffered trees.
func (w *YAMLWriter) Flush() error {
	if len(w.trees) == 0 {
		return w.w.Flush()
	}

	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)
	for _, n := range w.trees {
		if err := encoder.Encode(n); err != nil {
			return err
		}
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	w.trees = nil

	return w.w.Flush()
}

// Close flushes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
