package planner

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Bioxydyn/project-archiver/internal/catalog"
)

// Dictionary is the canonical file-to-chunk lookup: every cataloged path
// maps to exactly one chunk id. It is what makes partial retrieval possible
// without downloading the whole archive set.
type Dictionary struct {
	plans  []Plan
	chunks map[string]int
}

func buildDictionary(plans []Plan) *Dictionary {
	d := &Dictionary{
		plans:  plans,
		chunks: make(map[string]int),
	}
	for _, p := range plans {
		for _, rec := range p.Entries {
			d.chunks[rec.Path] = p.ChunkID
		}
	}
	return d
}

// ChunkFor returns the chunk id holding path, or 0 if the path is unknown.
func (d *Dictionary) ChunkFor(path string) int {
	return d.chunks[path]
}

// Len returns the number of mapped paths.
func (d *Dictionary) Len() int {
	return len(d.chunks)
}

// WriteText writes the dictionary in the plain-text format: one listing line
// per file, prefixed with its chunk id, grouped by chunk.
func (d *Dictionary) WriteText(w io.Writer) error {
	for _, p := range d.plans {
		prefix := fmt.Sprintf("Chunk %07d: ", p.ChunkID)
		for _, rec := range p.Entries {
			if _, err := io.WriteString(w, catalog.ListingLine(rec, prefix)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n\n\n"); err != nil {
			return err
		}
	}
	return nil
}

type dictEntry struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Chunk int    `json:"chunk"`
}

type dictDocument struct {
	Chunks  int         `json:"chunks"`
	Entries []dictEntry `json:"entries"`
}

// WriteJSON writes the dictionary as a structured document. Entries keep
// planning order, so output is byte-stable across reruns.
func (d *Dictionary) WriteJSON(w io.Writer) error {
	doc := dictDocument{Chunks: len(d.plans), Entries: []dictEntry{}}
	for _, p := range d.plans {
		for _, rec := range p.Entries {
			doc.Entries = append(doc.Entries, dictEntry{Path: rec.Path, Size: rec.Size, Chunk: p.ChunkID})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
