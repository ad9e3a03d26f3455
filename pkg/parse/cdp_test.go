package parse

import (
	"errors"
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/domsnapshot"

	"github.com/jmylchreest/domnode/pkg/dom"
)

func mustCDPJSON(t *testing.T, data string, opts ...CDPOption) *dom.Node {
	t.Helper()
	root, err := CDPJSON([]byte(data), opts...)
	if err != nil {
		t.Fatalf("CDPJSON error = %v", err)
	}
	return root
}

func TestCDPJSON(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		root := mustCDPJSON(t, `{
			"documents": [{
				"nodes": {
					"nodeType": [1, 3],
					"nodeName": [0, 1],
					"nodeValue": [-1, 2],
					"parentIndex": [-1, 0],
					"attributes": [[], []]
				}
			}],
			"strings": ["div", "#text", "Hello"]
		}`)
		if root.Tag != "div" || root.Len() != 1 {
			t.Fatalf("unexpected root %+v", root)
		}
		if got := childText(t, root, 0); got != "Hello" {
			t.Errorf("expected Hello, got %q", got)
		}
	})

	t.Run("attributes", func(t *testing.T) {
		root := mustCDPJSON(t, `{
			"documents": [{
				"nodes": {
					"nodeType": [1],
					"nodeName": [0],
					"nodeValue": [-1],
					"parentIndex": [-1],
					"attributes": [[1, 2, 3, 4]]
				}
			}],
			"strings": ["button", "class", "btn", "role", "button"]
		}`)
		if root.Tag != "button" || root.Attrs["class"] != "btn" || root.Attrs["role"] != "button" {
			t.Errorf("unexpected <%s> %v", root.Tag, root.Attrs)
		}
	})

	t.Run("layout", func(t *testing.T) {
		root := mustCDPJSON(t, `{
			"documents": [{
				"nodes": {
					"nodeType": [1],
					"nodeName": [0],
					"nodeValue": [-1],
					"parentIndex": [-1],
					"attributes": [[]]
				},
				"layout": {
					"nodeIndex": [0],
					"bounds": [[10, 20, 100, 50]],
					"styles": [[1, 2, 3, 4]]
				}
			}],
			"strings": ["div", "display", "block", "color", "red"]
		}`)
		want := dom.BoundingBox{X: 10, Y: 20, Width: 100, Height: 50}
		if root.Bounds == nil || *root.Bounds != want {
			t.Errorf("expected %+v, got %+v", want, root.Bounds)
		}
		if root.Styles["display"] != "block" || root.Styles["color"] != "red" {
			t.Errorf("unexpected styles %v", root.Styles)
		}
	})

	t.Run("nested", func(t *testing.T) {
		root := mustCDPJSON(t, `{
			"documents": [{
				"nodes": {
					"nodeType": [1, 1, 3],
					"nodeName": [0, 1, 2],
					"nodeValue": [-1, -1, 3],
					"parentIndex": [-1, 0, 1],
					"attributes": [[], [], []]
				}
			}],
			"strings": ["div", "span", "#text", "Hello"]
		}`)
		span := childNode(t, root, 0)
		if root.Tag != "div" || span.Tag != "span" || childText(t, span, 0) != "Hello" {
			t.Errorf("unexpected tree %+v", root)
		}
	})

	t.Run("empty", func(t *testing.T) {
		for _, in := range []string{`{"documents": [], "strings": []}`, `{}`} {
			root := mustCDPJSON(t, in)
			if root.Tag != "html" || root.Len() != 0 {
				t.Errorf("%s: expected bare html root, got %+v", in, root)
			}
		}
	})

	t.Run("metadata", func(t *testing.T) {
		root := mustCDPJSON(t, `{
			"documents": [{
				"nodes": {
					"nodeType": [1],
					"nodeName": [0],
					"nodeValue": [-1],
					"parentIndex": [-1],
					"attributes": [[]]
				}
			}],
			"strings": ["div"]
		}`)
		if root.Metadata[MetaBackendNodeID] != 0 || root.Metadata[MetaCDPIndex] != 0 || root.Metadata[MetaDocumentIndex] != 0 {
			t.Errorf("unexpected metadata %v", root.Metadata)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := CDPJSON([]byte(`{"documents": [`))
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})
}

// stringTable interns strings for hand-built snapshots.
type stringTable struct {
	list []string
}

func (st *stringTable) idx(s string) domsnapshot.StringIndex {
	for i, v := range st.list {
		if v == s {
			return domsnapshot.StringIndex(i)
		}
	}
	st.list = append(st.list, s)
	return domsnapshot.StringIndex(len(st.list) - 1)
}

type tableNode struct {
	typ     int64
	name    string
	value   string
	parent  int64
	attrs   []string
	backend int64
}

func buildDoc(st *stringTable, nodes ...tableNode) *domsnapshot.DocumentSnapshot {
	tree := &domsnapshot.NodeTreeSnapshot{}
	for _, n := range nodes {
		tree.NodeType = append(tree.NodeType, n.typ)
		tree.NodeName = append(tree.NodeName, st.idx(n.name))
		value := domsnapshot.StringIndex(-1)
		if n.typ == nodeText {
			value = st.idx(n.value)
		}
		tree.NodeValue = append(tree.NodeValue, value)
		tree.ParentIndex = append(tree.ParentIndex, n.parent)
		var attrs domsnapshot.ArrayOfStrings
		for _, a := range n.attrs {
			attrs = append(attrs, int64(st.idx(a)))
		}
		tree.Attributes = append(tree.Attributes, attrs)
		tree.BackendNodeID = append(tree.BackendNodeID, cdp.BackendNodeID(n.backend))
	}
	return &domsnapshot.DocumentSnapshot{Nodes: tree}
}

// page returns a document, html, body, iframe document table.
func page(st *stringTable) *domsnapshot.DocumentSnapshot {
	return buildDoc(st,
		tableNode{typ: nodeDocument, name: "#document", parent: -1, backend: 1},
		tableNode{typ: nodeElement, name: "HTML", parent: 0, backend: 2},
		tableNode{typ: nodeElement, name: "BODY", parent: 1, backend: 3},
		tableNode{typ: nodeElement, name: "IFRAME", parent: 2, backend: 4, attrs: []string{"src", "/frame"}},
	)
}

func TestCDP(t *testing.T) {
	t.Run("parents listed after children", func(t *testing.T) {
		st := &stringTable{}
		doc := buildDoc(st,
			tableNode{typ: nodeElement, name: "li", parent: 3},
			tableNode{typ: nodeText, name: "#text", value: "second", parent: 2},
			tableNode{typ: nodeElement, name: "li", parent: 3},
			tableNode{typ: nodeElement, name: "ul", parent: -1},
		)
		root, err := CDP(&domsnapshot.CaptureSnapshotReturns{Documents: []*domsnapshot.DocumentSnapshot{doc}, Strings: st.list})
		if err != nil {
			t.Fatalf("CDP error = %v", err)
		}
		if root.Tag != "ul" || root.Len() != 2 {
			t.Fatalf("unexpected tree %+v", root)
		}
		if childNode(t, root, 0).Metadata[MetaCDPIndex] != 0 || childNode(t, root, 1).Text("") != "second" {
			t.Errorf("expected siblings in table order, got %+v", root.Children)
		}
	})

	t.Run("document nodes are transparent", func(t *testing.T) {
		st := &stringTable{}
		doc := buildDoc(st,
			tableNode{typ: nodeDocument, name: "#document", parent: -1},
			tableNode{typ: 10, name: "html", parent: 0},
			tableNode{typ: nodeElement, name: "HTML", parent: 0, backend: 7},
			tableNode{typ: nodeElement, name: "BODY", parent: 2, backend: 8},
		)
		root, err := CDP(&domsnapshot.CaptureSnapshotReturns{Documents: []*domsnapshot.DocumentSnapshot{doc}, Strings: st.list})
		if err != nil {
			t.Fatalf("CDP error = %v", err)
		}
		if root.Tag != "html" || root.Len() != 1 || childNode(t, root, 0).Tag != "body" {
			t.Fatalf("unexpected tree %+v", root)
		}
		if root.Metadata[MetaBackendNodeID] != 7 || root.Metadata[MetaCDPIndex] != 2 {
			t.Errorf("unexpected metadata %v", root.Metadata)
		}
	})

	t.Run("skips comments and pseudo elements", func(t *testing.T) {
		st := &stringTable{}
		doc := buildDoc(st,
			tableNode{typ: nodeElement, name: "div", parent: -1},
			tableNode{typ: 8, name: "#comment", parent: 0},
			tableNode{typ: nodeElement, name: "::before", parent: 0},
			tableNode{typ: nodeText, name: "#text", value: "generated", parent: 2},
			tableNode{typ: nodeElement, name: "p", parent: 0},
			tableNode{typ: nodeElement, name: "span", parent: 0},
		)
		doc.Nodes.PseudoType = &domsnapshot.RareStringData{
			Index: []int64{5},
			Value: []domsnapshot.StringIndex{st.idx("marker")},
		}
		root, err := CDP(&domsnapshot.CaptureSnapshotReturns{Documents: []*domsnapshot.DocumentSnapshot{doc}, Strings: st.list})
		if err != nil {
			t.Fatalf("CDP error = %v", err)
		}
		if root.Len() != 1 || childNode(t, root, 0).Tag != "p" {
			t.Errorf("expected only p to remain, got %+v", root.Children)
		}
	})

	t.Run("shadow root children attach to host", func(t *testing.T) {
		st := &stringTable{}
		doc := buildDoc(st,
			tableNode{typ: nodeElement, name: "my-widget", parent: -1},
			tableNode{typ: nodeFragment, name: "#document-fragment", parent: 0},
			tableNode{typ: nodeElement, name: "button", parent: 1},
		)
		root, err := CDP(&domsnapshot.CaptureSnapshotReturns{Documents: []*domsnapshot.DocumentSnapshot{doc}, Strings: st.list})
		if err != nil {
			t.Fatalf("CDP error = %v", err)
		}
		if root.Len() != 1 || childNode(t, root, 0).Tag != "button" {
			t.Errorf("expected button under host, got %+v", root.Children)
		}
	})

	t.Run("several top level elements are wrapped", func(t *testing.T) {
		st := &stringTable{}
		doc := buildDoc(st,
			tableNode{typ: nodeFragment, name: "#document-fragment", parent: -1},
			tableNode{typ: nodeElement, name: "p", parent: 0},
			tableNode{typ: nodeElement, name: "p", parent: 0},
		)
		root, err := CDP(&domsnapshot.CaptureSnapshotReturns{Documents: []*domsnapshot.DocumentSnapshot{doc}, Strings: st.list})
		if err != nil {
			t.Fatalf("CDP error = %v", err)
		}
		if root.Tag != "html" || root.Len() != 2 {
			t.Errorf("expected html wrapper, got %+v", root)
		}
	})

	t.Run("computed styles", func(t *testing.T) {
		st := &stringTable{}
		doc := buildDoc(st, tableNode{typ: nodeElement, name: "div", parent: -1})
		doc.Layout = &domsnapshot.LayoutTreeSnapshot{
			NodeIndex: []int64{0},
			Bounds:    []domsnapshot.Rectangle{{0, 0, 0, 0}},
			Styles:    []domsnapshot.ArrayOfStrings{{int64(st.idx("none")), int64(st.idx("visible"))}},
		}
		snap := &domsnapshot.CaptureSnapshotReturns{Documents: []*domsnapshot.DocumentSnapshot{doc}, Strings: st.list}

		root, err := CDP(snap, WithComputedStyles("display", "Visibility"))
		if err != nil {
			t.Fatalf("CDP error = %v", err)
		}
		if root.Styles["display"] != "none" || root.Styles["visibility"] != "visible" {
			t.Errorf("unexpected styles %v", root.Styles)
		}
		if root.Bounds == nil || !root.Bounds.HasZeroArea() {
			t.Errorf("expected zero bounds, got %+v", root.Bounds)
		}

		if _, err := CDP(snap, WithComputedStyles("display")); !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed for mismatched style count, got %v", err)
		}
	})

	t.Run("frames", func(t *testing.T) {
		st := &stringTable{}
		main := page(st)
		main.Nodes.ContentDocumentIndex = &domsnapshot.RareIntegerData{Index: []int64{3}, Value: []int64{1}}
		frame := buildDoc(st,
			tableNode{typ: nodeDocument, name: "#document", parent: -1},
			tableNode{typ: nodeElement, name: "HTML", parent: 0},
			tableNode{typ: nodeElement, name: "BODY", parent: 1},
			tableNode{typ: nodeElement, name: "BUTTON", parent: 2, attrs: []string{"role", "button"}},
		)
		snap := &domsnapshot.CaptureSnapshotReturns{
			Documents: []*domsnapshot.DocumentSnapshot{main, frame},
			Strings:   st.list,
		}

		root, err := CDP(snap)
		if err != nil {
			t.Fatalf("CDP error = %v", err)
		}
		iframe := childNode(t, childNode(t, root, 0), 0)
		if iframe.Tag != "iframe" || iframe.Attrs["src"] != "/frame" || iframe.Len() != 1 {
			t.Fatalf("unexpected iframe %+v", iframe)
		}
		inner := childNode(t, iframe, 0)
		if inner.Tag != "html" || inner.Metadata[MetaDocumentIndex] != 1 {
			t.Errorf("expected frame html from document 1, got <%s> %v", inner.Tag, inner.Metadata)
		}

		root, err = CDP(snap, WithFrames(false))
		if err != nil {
			t.Fatalf("CDP error = %v", err)
		}
		if iframe := childNode(t, childNode(t, root, 0), 0); iframe.Len() != 0 {
			t.Errorf("expected frames disabled, got %+v", iframe.Children)
		}

		root, err = CDP(snap, WithDocument(1))
		if err != nil {
			t.Fatalf("CDP error = %v", err)
		}
		if root.Tag != "html" || root.Metadata[MetaDocumentIndex] != 1 {
			t.Errorf("expected document 1 root, got %v", root.Metadata)
		}
	})

	t.Run("frame cycle", func(t *testing.T) {
		st := &stringTable{}
		main := page(st)
		main.Nodes.ContentDocumentIndex = &domsnapshot.RareIntegerData{Index: []int64{3}, Value: []int64{0}}
		_, err := CDP(&domsnapshot.CaptureSnapshotReturns{Documents: []*domsnapshot.DocumentSnapshot{main}, Strings: st.list})
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})
}

func TestCDPMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"string index out of range", `{"documents": [{"nodes": {"nodeType": [1], "nodeName": [5], "parentIndex": [-1]}}], "strings": ["div"]}`},
		{"parent out of range", `{"documents": [{"nodes": {"nodeType": [1, 1], "nodeName": [0, 0], "parentIndex": [-1, 5]}}], "strings": ["div"]}`},
		{"own parent", `{"documents": [{"nodes": {"nodeType": [1, 1], "nodeName": [0, 0], "parentIndex": [-1, 1]}}], "strings": ["div"]}`},
		{"parent cycle", `{"documents": [{"nodes": {"nodeType": [1, 1, 1], "nodeName": [0, 0, 0], "parentIndex": [-1, 2, 1]}}], "strings": ["div"]}`},
		{"table length mismatch", `{"documents": [{"nodes": {"nodeType": [1, 1], "nodeName": [0], "parentIndex": [-1, 0]}}], "strings": ["div"]}`},
		{"odd attribute list", `{"documents": [{"nodes": {"nodeType": [1], "nodeName": [0], "parentIndex": [-1], "attributes": [[0]]}}], "strings": ["div"]}`},
		{"layout node out of range", `{"documents": [{"nodes": {"nodeType": [1], "nodeName": [0], "parentIndex": [-1]}, "layout": {"nodeIndex": [3], "bounds": [[0, 0, 1, 1]], "styles": [[]]}}], "strings": ["div"]}`},
		{"short rectangle", `{"documents": [{"nodes": {"nodeType": [1], "nodeName": [0], "parentIndex": [-1]}, "layout": {"nodeIndex": [0], "bounds": [[0, 0, 1]], "styles": [[]]}}], "strings": ["div"]}`},
		{"odd style list", `{"documents": [{"nodes": {"nodeType": [1], "nodeName": [0], "parentIndex": [-1]}, "layout": {"nodeIndex": [0], "bounds": [[0, 0, 1, 1]], "styles": [[0]]}}], "strings": ["div"]}`},
		{"frame document out of range", `{"documents": [{"nodes": {"nodeType": [1], "nodeName": [0], "parentIndex": [-1], "contentDocumentIndex": {"index": [0], "value": [4]}}}], "strings": ["iframe"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CDPJSON([]byte(tt.data))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}

	t.Run("document option out of range", func(t *testing.T) {
		_, err := CDPJSON([]byte(`{"documents": [{"nodes": {}}], "strings": []}`), WithDocument(2))
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})
}
