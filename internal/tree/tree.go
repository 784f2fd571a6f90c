// Package tree organizes the flat file catalog into a directory hierarchy
// annotated with aggregate sizes. The tree exists only while the planner
// runs; nothing here touches the disk or network.
package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
)

// MalformedPathError reports a catalog path the tree cannot represent:
// escaping segments, absolute paths, or a file name colliding with a
// directory name.
type MalformedPathError struct {
	Path   string
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("malformed path %q: %s", e.Path, e.Reason)
}

// DirectoryNode is one directory in the catalog hierarchy. The parent owns
// its children; there are no back-references, so the structure is strictly
// acyclic.
type DirectoryNode struct {
	// Path is the slash-separated directory path; empty for the root.
	Path string

	// DirectFiles are the records whose parent directory is exactly this
	// node, in catalog order. They form the leaf-group the planner treats as
	// atomic.
	DirectFiles []catalog.FileRecord

	// Children maps child directory name to node.
	Children map[string]*DirectoryNode

	// SubtreeSize is the sum of all file sizes at or below this node.
	// Computed once by Build; read-only afterwards.
	SubtreeSize int64
}

// ChildNames returns the child directory names in lexicographic order.
func (n *DirectoryNode) ChildNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DirectSize returns the total size of the node's leaf-group.
func (n *DirectoryNode) DirectSize() int64 {
	var total int64
	for _, f := range n.DirectFiles {
		total += f.Size
	}
	return total
}

// Build inserts every catalog record into a fresh tree and computes subtree
// sizes bottom-up. It fails on the first malformed path.
func Build(c *catalog.Catalog) (*DirectoryNode, error) {
	root := &DirectoryNode{Children: map[string]*DirectoryNode{}}

	// Directories that already hold files; a later path may not reuse such a
	// name as an intermediate segment and vice versa.
	fileNames := map[string]bool{}

	for _, rec := range c.Records {
		segments, err := splitPath(rec.Path)
		if err != nil {
			return nil, err
		}

		node := root
		prefix := ""
		for _, seg := range segments[:len(segments)-1] {
			if prefix == "" {
				prefix = seg
			} else {
				prefix = prefix + "/" + seg
			}
			if fileNames[prefix] {
				return nil, &MalformedPathError{
					Path:   rec.Path,
					Reason: fmt.Sprintf("directory %q collides with an existing file name", prefix),
				}
			}
			child, ok := node.Children[seg]
			if !ok {
				child = &DirectoryNode{Path: prefix, Children: map[string]*DirectoryNode{}}
				node.Children[seg] = child
			}
			node = child
		}

		if _, ok := node.Children[segments[len(segments)-1]]; ok {
			return nil, &MalformedPathError{
				Path:   rec.Path,
				Reason: "file name collides with an existing directory name",
			}
		}
		fileNames[rec.Path] = true
		node.DirectFiles = append(node.DirectFiles, rec)
	}

	computeSizes(root)
	return root, nil
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, &MalformedPathError{Path: path, Reason: "empty path"}
	}
	if strings.HasPrefix(path, "/") {
		return nil, &MalformedPathError{Path: path, Reason: "absolute path"}
	}
	segments := strings.Split(path, "/")
	for _, seg := range segments {
		switch seg {
		case "":
			return nil, &MalformedPathError{Path: path, Reason: "empty path segment"}
		case ".", "..":
			return nil, &MalformedPathError{Path: path, Reason: "path escapes the archive root"}
		}
	}
	return segments, nil
}

// computeSizes fills SubtreeSize for every node with an iterative post-order
// traversal. Directory depth is user-controlled, so native recursion is
// avoided.
func computeSizes(root *DirectoryNode) {
	type frame struct {
		node     *DirectoryNode
		expanded bool
	}

	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !f.expanded {
			stack = append(stack, frame{node: f.node, expanded: true})
			for _, name := range f.node.ChildNames() {
				stack = append(stack, frame{node: f.node.Children[name]})
			}
			continue
		}

		total := f.node.DirectSize()
		for _, child := range f.node.Children {
			total += child.SubtreeSize
		}
		f.node.SubtreeSize = total
	}
}

// Walk visits every node top-down in deterministic order (node first, then
// children lexicographically), using an explicit stack.
func Walk(root *DirectoryNode, visit func(*DirectoryNode)) {
	stack := []*DirectoryNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(node)

		names := node.ChildNames()
		for i := len(names) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[names[i]])
		}
	}
}
