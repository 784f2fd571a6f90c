package tree

import (
	"errors"
	"sort"
	"testing"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
)

func makeCatalog(files map[string]int64) *catalog.Catalog {
	cat := &catalog.Catalog{Root: "data"}
	// Insert in sorted order like the scanner does.
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		cat.Records = append(cat.Records, catalog.FileRecord{Path: p, Size: files[p]})
	}
	return cat
}

func TestBuildComputesSubtreeSizes(t *testing.T) {
	root, err := Build(makeCatalog(map[string]int64{
		"data/a.txt":       100,
		"data/sub/b.txt":   200,
		"data/sub/c.txt":   50,
		"data/sub/d/e.txt": 25,
	}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if root.SubtreeSize != 375 {
		t.Errorf("root subtree size = %d, want 375", root.SubtreeSize)
	}

	data := root.Children["data"]
	if data == nil {
		t.Fatal("missing data node")
	}
	if data.SubtreeSize != 375 {
		t.Errorf("data subtree size = %d, want 375", data.SubtreeSize)
	}
	if got := data.DirectSize(); got != 100 {
		t.Errorf("data direct size = %d, want 100", got)
	}

	sub := data.Children["sub"]
	if sub == nil {
		t.Fatal("missing sub node")
	}
	if sub.SubtreeSize != 275 {
		t.Errorf("sub subtree size = %d, want 275", sub.SubtreeSize)
	}
	if len(sub.DirectFiles) != 2 {
		t.Errorf("sub direct files = %d, want 2", len(sub.DirectFiles))
	}
	if sub.Children["d"].SubtreeSize != 25 {
		t.Errorf("d subtree size = %d, want 25", sub.Children["d"].SubtreeSize)
	}
}

func TestBuildRejectsMalformedPaths(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"absolute", "/etc/passwd"},
		{"parent segment", "data/../escape.txt"},
		{"dot segment", "data/./file.txt"},
		{"empty segment", "data//file.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &catalog.Catalog{Records: []catalog.FileRecord{{Path: tt.path, Size: 1}}}
			_, err := Build(cat)
			var malformed *MalformedPathError
			if !errors.As(err, &malformed) {
				t.Fatalf("Build(%q) err = %v, want MalformedPathError", tt.path, err)
			}
		})
	}
}

func TestBuildRejectsFileDirectoryCollision(t *testing.T) {
	// A file "data/x" followed by files below a directory "data/x".
	cat := &catalog.Catalog{Records: []catalog.FileRecord{
		{Path: "data/x", Size: 1},
		{Path: "data/x/y.txt", Size: 1},
	}}
	_, err := Build(cat)
	var malformed *MalformedPathError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedPathError", err)
	}

	// And the other way around.
	cat = &catalog.Catalog{Records: []catalog.FileRecord{
		{Path: "data/x/y.txt", Size: 1},
		{Path: "data/x", Size: 1},
	}}
	_, err = Build(cat)
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedPathError", err)
	}
}

func TestChildNamesSorted(t *testing.T) {
	root, err := Build(makeCatalog(map[string]int64{
		"data/zeta/f.txt":  1,
		"data/alpha/f.txt": 1,
		"data/mid/f.txt":   1,
	}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	names := root.Children["data"].ChildNames()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("ChildNames = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ChildNames[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestWalkVisitsAllNodesDeterministically(t *testing.T) {
	root, err := Build(makeCatalog(map[string]int64{
		"data/b/f.txt":   1,
		"data/a/f.txt":   1,
		"data/a/c/f.txt": 1,
	}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var visited []string
	Walk(root, func(n *DirectoryNode) {
		visited = append(visited, n.Path)
	})

	want := []string{"", "data", "data/a", "data/a/c", "data/b"}
	if len(visited) != len(want) {
		t.Fatalf("Walk visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visit[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestEmptyCatalog(t *testing.T) {
	root, err := Build(&catalog.Catalog{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if root.SubtreeSize != 0 || len(root.Children) != 0 || len(root.DirectFiles) != 0 {
		t.Errorf("empty catalog should produce an empty root, got %+v", root)
	}
}
