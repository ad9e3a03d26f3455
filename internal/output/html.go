package output

import (
	"bufio"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/yosssi/gohtml"

	"github.com/jmylchreest/domnode/pkg/dom"
)

// HTMLWriter writes trees as markup. Removed trees produce no output.
type HTMLWriter struct {
	w      *bufio.Writer
	pretty bool
}

// NewHTMLWriter creates an HTML writer.
func NewHTMLWriter(w io.Writer, pretty bool) *HTMLWriter {
	return &HTMLWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
	}
}

// Write renders a tree followed by a newline.
func (w *HTMLWriter) Write(n *dom.Node) error {
	if n == nil {
		return nil
	}
	markup, err := renderHTML(n)
	if err != nil {
		return err
	}
	if w.pretty {
		markup = gohtml.Format(markup)
	}
	if _, err := w.w.WriteString(markup + "\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *HTMLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *HTMLWriter) Close() error {
	return w.Flush()
}

// MarkdownWriter writes trees converted to Markdown.
type MarkdownWriter struct {
	w *bufio.Writer
}

// NewMarkdownWriter creates a Markdown writer.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		w: bufio.NewWriter(w),
	}
}

// Write converts a tree to Markdown. Removed trees produce no output.
func (w *MarkdownWriter) Write(n *dom.Node) error {
	if n == nil {
		return nil
	}
	markup, err := renderHTML(n)
	if err != nil {
		return err
	}
	markdown, err := md.ConvertString(markup)
	if err != nil {
		return err
	}
	if _, err := w.w.WriteString(strings.TrimSpace(markdown) + "\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *MarkdownWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *MarkdownWriter) Close() error {
	return w.Flush()
}

// TextWriter writes the text content of trees, one tree per line.
type TextWriter struct {
	w *bufio.Writer
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{
		w: bufio.NewWriter(w),
	}
}

// Write writes the space-separated text of a tree.
func (w *TextWriter) Write(n *dom.Node) error {
	if n == nil {
		return nil
	}
	if _, err := w.w.WriteString(n.Text(" ") + "\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *TextWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.Flush()
}

func renderHTML(n *dom.Node) (string, error) {
	var sb strings.Builder
	if err := dom.RenderHTML(&sb, n); err != nil {
		return "", err
	}
	return sb.String(), nil
}
