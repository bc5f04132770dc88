// Package graph defines the memory graph snapshot model and its JSON
// serialization.
//
// A snapshot is the engine's upstream contract: an immutable {nodes, links}
// collection periodically refreshed from a remote store. The tree, layout,
// and LOD packages all consume snapshots (or values derived from them) and
// never mutate them.
package graph

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// =============================================================================
// Snapshot Serialization API
// =============================================================================

// MarshalSnapshot converts a snapshot to JSON bytes.
// Nodes and links are sorted for deterministic output, so two snapshots with
// identical content always marshal to identical bytes (and identical hashes).
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSnapshotTo(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot deserializes JSON bytes to a Snapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// WriteSnapshotFile writes a snapshot to a JSON file.
// The file is created with 0644 permissions.
func WriteSnapshotFile(s *Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeSnapshotTo(s, f)
}

// WriteSnapshot writes a snapshot as JSON to an io.Writer.
// Use MarshalSnapshot for in-memory serialization or WriteSnapshotFile for files.
func WriteSnapshot(s *Snapshot, w io.Writer) error {
	return writeSnapshotTo(s, w)
}

// ReadSnapshotFile reads a JSON file and returns the decoded snapshot.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// ReadSnapshot decodes a JSON snapshot from an io.Reader.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// Hash returns the SHA-256 content hash of the snapshot as a hex string.
// The hash is computed over the canonical (sorted) serialization, so it is
// stable across input orderings of the same graph. Used as a cache key.
func Hash(s *Snapshot) (string, error) {
	data, err := MarshalSnapshot(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeSnapshotTo(s *Snapshot, w io.Writer) error {
	out := canonical(s)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// canonical returns a copy of the snapshot with nodes sorted by ID and links
// sorted by (source, target, type). The input is never modified.
func canonical(s *Snapshot) Snapshot {
	out := Snapshot{
		ID:    s.ID,
		Nodes: slices.Clone(s.Nodes),
		Links: slices.Clone(s.Links),
	}
	if out.Nodes == nil {
		out.Nodes = []Node{}
	}
	if out.Links == nil {
		out.Links = []Link{}
	}
	slices.SortFunc(out.Nodes, func(a, b Node) int {
		return strings.Compare(a.ID, b.ID)
	})
	slices.SortFunc(out.Links, func(a, b Link) int {
		if c := strings.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		if c := strings.Compare(a.Target, b.Target); c != 0 {
			return c
		}
		return strings.Compare(a.Type, b.Type)
	})
	return out
}
