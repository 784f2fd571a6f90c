// Package planner converts the directory tree into an ordered sequence of
// chunk plans. Planning is purely computational and single-threaded: the
// output order must be deterministic so that reruns over an unchanged
// catalog produce identical dictionaries.
package planner

import (
	"fmt"
	"strings"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
	"github.com/Bioxydyn/project-archiver/internal/tree"
)

// Settings control chunk sizing. MinSize and MaxSize bound the soft
// tolerance band around TargetSize; chunks outside the band are reported,
// not rejected.
type Settings struct {
	TargetSize int64
	MinSize    int64
	MaxSize    int64
}

// Plan is one chunk: an ordered set of catalog records that will be
// materialized into a single archive. Immutable after planning.
type Plan struct {
	// ChunkID is 1-based and sequential.
	ChunkID int

	// Entries are the records assigned to this chunk, in planning order.
	Entries []catalog.FileRecord

	// TotalSize is the sum of entry sizes.
	TotalSize int64

	// Units is the number of atomic units packed into this chunk.
	Units int
}

// Result is the planner output: ordered plans, the derived dictionary, and
// any size-deviation warnings.
type Result struct {
	Plans      []Plan
	Dictionary *Dictionary
	Warnings   []string
}

// unit is one indivisible packing item: either a whole directory subtree or
// a single directory's leaf-group. Individual files are never split, so a
// unit larger than the target still lands in one chunk.
type unit struct {
	dir   string
	whole bool
	files []catalog.FileRecord
	size  int64
}

// PlanChunks walks the tree and packs its atomic units into chunks around
// s.TargetSize. An empty tree is legal and yields zero plans.
func PlanChunks(root *tree.DirectoryNode, s Settings) (*Result, error) {
	if s.TargetSize <= 0 {
		return nil, fmt.Errorf("target chunk size must be positive, got %d", s.TargetSize)
	}
	if s.MaxSize < s.TargetSize {
		s.MaxSize = s.TargetSize
	}

	units := expandUnits(root, s.MaxSize)
	plans := pack(units, s.TargetSize)

	res := &Result{
		Plans:      plans,
		Dictionary: buildDictionary(plans),
	}
	for _, p := range plans {
		if w := sizeWarning(p, s); w != "" {
			res.Warnings = append(res.Warnings, w)
		}
	}
	return res, nil
}

// expandUnits flattens the tree into an ordered unit sequence. Per node,
// top-down: a subtree that fits within limit stays whole; otherwise the
// children are expanded in lexicographic order and the node's own leaf-group
// becomes one further unit after them. Splitting therefore always happens at
// the shallowest depth possible.
func expandUnits(root *tree.DirectoryNode, limit int64) []unit {
	var units []unit

	type frame struct {
		node      *tree.DirectoryNode
		leafGroup bool // emit the node's own leaf-group instead of deciding
	}

	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.leafGroup {
			if len(f.node.DirectFiles) > 0 {
				units = append(units, unit{
					dir:   f.node.Path,
					files: f.node.DirectFiles,
					size:  f.node.DirectSize(),
				})
			}
			continue
		}

		if f.node.SubtreeSize <= limit {
			if files := collectFiles(f.node); len(files) > 0 {
				var size int64
				for _, rec := range files {
					size += rec.Size
				}
				units = append(units, unit{dir: f.node.Path, whole: true, files: files, size: size})
			}
			continue
		}

		// Too big to keep whole: children first, then the leaf-group.
		stack = append(stack, frame{node: f.node, leafGroup: true})
		names := f.node.ChildNames()
		for i := len(names) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[names[i]]})
		}
	}

	return units
}

// collectFiles gathers every record in a subtree, children before the node's
// own leaf-group, matching the expansion order of split nodes.
func collectFiles(root *tree.DirectoryNode) []catalog.FileRecord {
	var files []catalog.FileRecord

	type frame struct {
		node     *tree.DirectoryNode
		expanded bool
	}

	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.expanded {
			files = append(files, f.node.DirectFiles...)
			continue
		}

		stack = append(stack, frame{node: f.node, expanded: true})
		names := f.node.ChildNames()
		for i := len(names) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[names[i]]})
		}
	}

	return files
}

// pack accumulates units into chunks. A chunk closes when adding the next
// unit would push a non-empty chunk past the target; a unit that alone
// exceeds the target becomes a single-unit chunk rather than being split.
func pack(units []unit, target int64) []Plan {
	var plans []Plan
	cur := Plan{ChunkID: 1}

	for _, u := range units {
		if len(cur.Entries) > 0 && cur.TotalSize+u.size > target {
			plans = append(plans, cur)
			cur = Plan{ChunkID: cur.ChunkID + 1}
		}
		cur.Entries = append(cur.Entries, u.files...)
		cur.TotalSize += u.size
		cur.Units++
	}

	if len(cur.Entries) > 0 {
		plans = append(plans, cur)
	}
	return plans
}

// sizeWarning returns a non-empty diagnostic when a chunk falls outside the
// tolerance band. Advisory only: an oversize single-unit chunk cannot be
// reduced, and the warning says so instead of being suppressed.
func sizeWarning(p Plan, s Settings) string {
	human := func(n int64) string { return strings.TrimSpace(catalog.BytesToHuman(n)) }

	switch {
	case p.TotalSize > s.MaxSize && p.Units == 1:
		return fmt.Sprintf("chunk %d is %s, above the tolerance band [%s, %s]: a single atomic unit exceeds the target and cannot be reduced",
			p.ChunkID, human(p.TotalSize), human(s.MinSize), human(s.MaxSize))
	case p.TotalSize > s.MaxSize:
		return fmt.Sprintf("chunk %d is %s, above the tolerance band [%s, %s]",
			p.ChunkID, human(p.TotalSize), human(s.MinSize), human(s.MaxSize))
	case p.TotalSize < s.MinSize:
		return fmt.Sprintf("chunk %d is %s, below the tolerance band [%s, %s]",
			p.ChunkID, human(p.TotalSize), human(s.MinSize), human(s.MaxSize))
	}
	return ""
}
