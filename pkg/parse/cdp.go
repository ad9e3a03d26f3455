package parse

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/domsnapshot"
	"github.com/go-json-experiment/json"

	"github.com/jmylchreest/domnode/internal/logger"
	"github.com/jmylchreest/domnode/pkg/dom"
)

// DOM node types used in snapshot tables.
const (
	nodeElement  = 1
	nodeText     = 3
	nodeDocument = 9
	nodeFragment = 11
)

// Metadata keys set by the snapshot reader.
const (
	MetaBackendNodeID = "backend_node_id"
	MetaCDPIndex      = "cdp_index"
	MetaDocumentIndex = "document_index"
)

// CDPOption configures the snapshot reader.
type CDPOption func(*cdpConfig)

type cdpConfig struct {
	computedStyles []string
	frames         bool
	document       int
}

// WithComputedStyles declares the computedStyles list the snapshot was
// captured with. Layout style entries are then read as values in that order
// instead of key/value pairs.
func WithComputedStyles(names ...string) CDPOption {
	return func(c *cdpConfig) {
		c.computedStyles = names
	}
}

// WithFrames controls whether frame documents are attached under their
// owner element. Enabled by default.
func WithFrames(enabled bool) CDPOption {
	return func(c *cdpConfig) {
		c.frames = enabled
	}
}

// WithDocument selects the document used as the tree root. Defaults to 0,
// the top-level document.
func WithDocument(index int) CDPOption {
	return func(c *cdpConfig) {
		c.document = index
	}
}

// CDPJSON decodes a DOMSnapshot.captureSnapshot result and reads it with CDP.
func CDPJSON(data []byte, opts ...CDPOption) (*dom.Node, error) {
	var snap domsnapshot.CaptureSnapshotReturns
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", ErrMalformed, err)
	}
	return CDP(&snap, opts...)
}

// CDP builds a tree from a DOMSnapshot.captureSnapshot result.
//
// Elements and text nodes are kept; document and shadow-root nodes are
// transparent, and every other node kind is dropped with its subtree, as
// are pseudo-elements. Each element records its backend node id, node
// index and document index in Metadata. Layout bounds and styles are
// attached where the layout table covers the node. Nodes may appear in
// any order as long as their parent indices form a tree; siblings keep
// their table order.
func CDP(snap *domsnapshot.CaptureSnapshotReturns, opts ...CDPOption) (*dom.Node, error) {
	cfg := &cdpConfig{frames: true}
	for _, opt := range opts {
		opt(cfg)
	}

	if snap == nil || len(snap.Documents) == 0 {
		return emptyRoot(), nil
	}
	if cfg.document < 0 || cfg.document >= len(snap.Documents) {
		return nil, malformed("document %d out of range (%d documents)", cfg.document, len(snap.Documents))
	}

	r := &snapshotReader{
		cfg:      cfg,
		strings:  snap.Strings,
		docs:     snap.Documents,
		visiting: make(map[int]bool),
	}
	roots, err := r.document(cfg.document)
	if err != nil {
		return nil, err
	}

	root := wrapRoots(roots)
	counts := dom.Count(root)
	logger.Debug("parsed snapshot",
		"documents", len(snap.Documents),
		"root", root.Tag,
		"elements", counts.Elements,
		"texts", counts.Texts,
	)
	return root, nil
}

type snapshotReader struct {
	cfg      *cdpConfig
	strings  []string
	docs     []*domsnapshot.DocumentSnapshot
	visiting map[int]bool
}

func (r *snapshotReader) str(idx domsnapshot.StringIndex) (string, error) {
	if idx < 0 || int(idx) >= len(r.strings) {
		return "", malformed("string index %d out of range (%d strings)", idx, len(r.strings))
	}
	return r.strings[idx], nil
}

// document builds the top-level children of one document.
func (r *snapshotReader) document(di int) ([]dom.Child, error) {
	if r.visiting[di] {
		return nil, malformed("frame cycle through document %d", di)
	}
	r.visiting[di] = true
	defer delete(r.visiting, di)

	doc := r.docs[di]
	if doc == nil || doc.Nodes == nil {
		return nil, nil
	}
	nodes := doc.Nodes
	count := len(nodes.NodeType)
	if len(nodes.ParentIndex) != count || len(nodes.NodeName) != count {
		return nil, malformed("document %d: node tables disagree on length", di)
	}

	layout, err := r.layoutIndex(di, doc.Layout, count)
	if err != nil {
		return nil, err
	}
	pseudo := rareSet(nodes.PseudoType)
	frames, err := r.frameIndex(di, nodes.ContentDocumentIndex)
	if err != nil {
		return nil, err
	}

	var roots []dom.Child
	// owner is the element that receives a node's children; dropped marks
	// nodes whose subtree is skipped.
	owner := make([]*dom.Node, count)
	dropped := make([]bool, count)

	order, err := preOrder(di, nodes.ParentIndex)
	if err != nil {
		return nil, err
	}
	for _, i := range order {
		p := nodes.ParentIndex[i]
		var parent *dom.Node
		if p >= 0 {
			if dropped[p] {
				dropped[i] = true
				continue
			}
			parent = owner[p]
		}
		attach := func(c dom.Child) {
			if parent != nil {
				parent.Append(c)
			} else {
				roots = append(roots, c)
			}
		}

		switch nodes.NodeType[i] {
		case nodeElement:
			name, err := r.str(nodes.NodeName[i])
			if err != nil {
				return nil, err
			}
			if pseudo[int64(i)] || strings.HasPrefix(name, "::") {
				dropped[i] = true
				continue
			}
			n, err := r.element(di, i, name, nodes, doc.Layout, layout)
			if err != nil {
				return nil, err
			}
			attach(n)
			owner[i] = n

			if cd, ok := frames[int64(i)]; ok && r.cfg.frames {
				children, err := r.document(cd)
				if err != nil {
					return nil, err
				}
				for _, c := range children {
					n.Append(c)
				}
			}
		case nodeText:
			value := ""
			if i < len(nodes.NodeValue) && nodes.NodeValue[i] >= 0 {
				if value, err = r.str(nodes.NodeValue[i]); err != nil {
					return nil, err
				}
			}
			attach(dom.NewText(value))
			dropped[i] = true
		case nodeDocument, nodeFragment:
			owner[i] = parent
		default:
			dropped[i] = true
		}
	}
	return roots, nil
}

func (r *snapshotReader) element(di, i int, name string, nodes *domsnapshot.NodeTreeSnapshot,
	lt *domsnapshot.LayoutTreeSnapshot, layout map[int]int) (*dom.Node, error) {
	n := dom.NewNode(strings.ToLower(name))

	if i < len(nodes.Attributes) {
		pairs := nodes.Attributes[i]
		if len(pairs)%2 != 0 {
			return nil, malformed("document %d: node %d has odd attribute list", di, i)
		}
		for j := 0; j < len(pairs); j += 2 {
			key, err := r.str(domsnapshot.StringIndex(pairs[j]))
			if err != nil {
				return nil, err
			}
			value, err := r.str(domsnapshot.StringIndex(pairs[j+1]))
			if err != nil {
				return nil, err
			}
			n.Attrs[key] = value
		}
	}

	backendID := i
	if i < len(nodes.BackendNodeID) {
		backendID = int(nodes.BackendNodeID[i])
	}
	n.Metadata[MetaBackendNodeID] = backendID
	n.Metadata[MetaCDPIndex] = i
	n.Metadata[MetaDocumentIndex] = di

	li, ok := layout[i]
	if !ok {
		return n, nil
	}
	if li < len(lt.Bounds) {
		b, err := newBounds(lt.Bounds[li])
		if err != nil {
			return nil, fmt.Errorf("document %d: node %d: %w", di, i, err)
		}
		n.Bounds = b
	}
	if li < len(lt.Styles) {
		if err := r.styles(lt.Styles[li], n.Styles); err != nil {
			return nil, fmt.Errorf("document %d: node %d: %w", di, i, err)
		}
	}
	return n, nil
}

// styles reads a layout style entry, either as values matching the
// configured computed style names or as key/value pairs.
func (r *snapshotReader) styles(entry domsnapshot.ArrayOfStrings, into map[string]string) error {
	if names := r.cfg.computedStyles; len(names) > 0 {
		if len(entry) != len(names) {
			return malformed("%d style values for %d computed styles", len(entry), len(names))
		}
		for k, idx := range entry {
			value, err := r.str(domsnapshot.StringIndex(idx))
			if err != nil {
				return err
			}
			into[strings.ToLower(names[k])] = value
		}
		return nil
	}

	if len(entry)%2 != 0 {
		return malformed("odd style list")
	}
	for k := 0; k < len(entry); k += 2 {
		key, err := r.str(domsnapshot.StringIndex(entry[k]))
		if err != nil {
			return err
		}
		value, err := r.str(domsnapshot.StringIndex(entry[k+1]))
		if err != nil {
			return err
		}
		into[strings.ToLower(key)] = value
	}
	return nil
}

// preOrder returns node indices so that every parent precedes its
// children, with siblings in table order. Chrome already emits nodes this
// way; other producers only need consistent parent indices. Out of range
// parents and parent cycles are malformed.
func preOrder(di int, parents []int64) ([]int, error) {
	count := len(parents)
	children := make([][]int, count)
	var roots []int
	for i, p := range parents {
		switch {
		case p == -1:
			roots = append(roots, i)
		case p < -1 || p >= int64(count) || p == int64(i):
			return nil, malformed("document %d: node %d has parent index %d", di, i, p)
		default:
			children[p] = append(children[p], i)
		}
	}

	order := make([]int, 0, count)
	stack := make([]int, 0, len(roots))
	for k := len(roots) - 1; k >= 0; k-- {
		stack = append(stack, roots[k])
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, i)
		for k := len(children[i]) - 1; k >= 0; k-- {
			stack = append(stack, children[i][k])
		}
	}
	if len(order) != count {
		return nil, malformed("document %d: %d nodes are not reachable from a root", di, count-len(order))
	}
	return order, nil
}

// layoutIndex maps node indices to their first layout entry.
func (r *snapshotReader) layoutIndex(di int, lt *domsnapshot.LayoutTreeSnapshot, count int) (map[int]int, error) {
	index := make(map[int]int)
	if lt == nil {
		return index, nil
	}
	for li, ni := range lt.NodeIndex {
		if ni < 0 || ni >= int64(count) {
			return nil, malformed("document %d: layout entry %d points at node %d", di, li, ni)
		}
		if _, seen := index[int(ni)]; !seen {
			index[int(ni)] = li
		}
	}
	return index, nil
}

// frameIndex maps frame owner nodes to their content document.
func (r *snapshotReader) frameIndex(di int, rare *domsnapshot.RareIntegerData) (map[int64]int, error) {
	frames := make(map[int64]int)
	if rare == nil {
		return frames, nil
	}
	if len(rare.Index) != len(rare.Value) {
		return nil, malformed("document %d: content document table disagrees on length", di)
	}
	for k, ni := range rare.Index {
		cd := rare.Value[k]
		if cd < 0 || cd >= int64(len(r.docs)) {
			return nil, malformed("document %d: node %d links to document %d", di, ni, cd)
		}
		frames[ni] = int(cd)
	}
	return frames, nil
}

func rareSet(rare *domsnapshot.RareStringData) map[int64]bool {
	set := make(map[int64]bool)
	if rare == nil {
		return set
	}
	for _, ni := range rare.Index {
		set[ni] = true
	}
	return set
}
