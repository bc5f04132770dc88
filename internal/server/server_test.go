package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/memlens/memlens/pkg/cache"
	"github.com/memlens/memlens/pkg/graph"
	"github.com/memlens/memlens/pkg/pipeline"
	"github.com/memlens/memlens/pkg/store"
)

func testServer(t *testing.T, st store.Store) http.Handler {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(cache.NewMemoryCache(), nil, logger)
	t.Cleanup(func() { runner.Close() })
	return New(runner, st, logger).Handler()
}

func starSnapshot(n int) *graph.Snapshot {
	s := &graph.Snapshot{Nodes: []graph.Node{{ID: "root"}}}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("n%02d", i)
		s.Nodes = append(s.Nodes, graph.Node{ID: id})
		s.Links = append(s.Links, graph.Link{Source: "root", Target: id, Weight: 1, OccurrenceCount: 1})
	}
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	h := testServer(t, nil)
	w := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestLayoutInline(t *testing.T) {
	h := testServer(t, nil)

	w := doJSON(t, h, http.MethodPost, "/api/layout", map[string]any{
		"snapshot": starSnapshot(5),
		"options":  pipeline.Options{SelectedID: "n02"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}

	var resp struct {
		SnapshotHash string          `json:"snapshot_hash"`
		Empty        bool            `json:"empty"`
		Layout       json.RawMessage `json:"layout"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Empty {
		t.Error("empty = true for populated snapshot")
	}
	if resp.SnapshotHash == "" {
		t.Error("missing snapshot hash")
	}
	if len(resp.Layout) == 0 || string(resp.Layout) == "null" {
		t.Error("missing layout payload")
	}
}

func TestLayoutEmptySnapshotIsNotAnError(t *testing.T) {
	h := testServer(t, nil)

	w := doJSON(t, h, http.MethodPost, "/api/layout", map[string]any{
		"snapshot": &graph.Snapshot{},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d for empty snapshot, want 200: %s", w.Code, w.Body)
	}
	var resp struct {
		Empty bool `json:"empty"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Empty {
		t.Error("empty = false for empty snapshot")
	}
}

func TestLayoutBadRequests(t *testing.T) {
	h := testServer(t, nil)

	// No snapshot field.
	w := doJSON(t, h, http.MethodPost, "/api/layout", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d for missing snapshot, want 400", w.Code)
	}

	// Malformed body.
	req := httptest.NewRequest(http.MethodPost, "/api/layout", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d for malformed body, want 400", rec.Code)
	}

	// Invalid options.
	w = doJSON(t, h, http.MethodPost, "/api/layout", map[string]any{
		"snapshot": starSnapshot(2),
		"options":  map[string]any{"max_depth": -1},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d for invalid options, want 400", w.Code)
	}
}

func TestSnapshotCRUD(t *testing.T) {
	h := testServer(t, store.NewMemoryStore())

	// Put
	w := doJSON(t, h, http.MethodPut, "/api/snapshots", starSnapshot(4))
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, want 200: %s", w.Code, w.Body)
	}
	var put struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &put); err != nil {
		t.Fatalf("decode put response: %v", err)
	}
	if put.ID == "" {
		t.Fatal("put assigned no ID")
	}

	// Get
	w = doJSON(t, h, http.MethodGet, "/api/snapshots/"+put.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}
	var snap graph.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Nodes) != 5 {
		t.Errorf("len(Nodes) = %d, want 5", len(snap.Nodes))
	}

	// List
	w = doJSON(t, h, http.MethodGet, "/api/snapshots", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
	var list struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.IDs) != 1 || list.IDs[0] != put.ID {
		t.Errorf("ids = %v, want [%s]", list.IDs, put.ID)
	}

	// Layout by ID with query options.
	w = doJSON(t, h, http.MethodGet, "/api/snapshots/"+put.ID+"/layout?selected=n01&labels=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("layout status = %d, want 200: %s", w.Code, w.Body)
	}

	// Delete
	w = doJSON(t, h, http.MethodDelete, "/api/snapshots/"+put.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/api/snapshots/"+put.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestSnapshotNotFound(t *testing.T) {
	h := testServer(t, store.NewMemoryStore())

	w := doJSON(t, h, http.MethodGet, "/api/snapshots/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error.Code != "SNAPSHOT_NOT_FOUND" {
		t.Errorf("error code = %q, want SNAPSHOT_NOT_FOUND", resp.Error.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/api/snapshots/ghost/layout", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("layout status = %d, want 404", w.Code)
	}
}

func TestSnapshotEndpointsWithoutStore(t *testing.T) {
	h := testServer(t, nil)

	w := doJSON(t, h, http.MethodGet, "/api/snapshots", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d without store, want 503", w.Code)
	}
}

func TestOptionsFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/snapshots/x/layout?root=r&selected=s&max_depth=3&max_children=9&labels=true&expanded=a,b", nil)

	opts := optionsFromQuery(req)
	if opts.RootID != "r" || opts.SelectedID != "s" {
		t.Errorf("RootID/SelectedID = %q/%q, want r/s", opts.RootID, opts.SelectedID)
	}
	if opts.MaxDepth != 3 || opts.MaxChildren != 9 {
		t.Errorf("MaxDepth/MaxChildren = %d/%d, want 3/9", opts.MaxDepth, opts.MaxChildren)
	}
	if !opts.ShowLabels {
		t.Error("ShowLabels = false, want true")
	}
	if len(opts.Expanded) != 2 || opts.Expanded[0] != "a" || opts.Expanded[1] != "b" {
		t.Errorf("Expanded = %v, want [a b]", opts.Expanded)
	}
}
