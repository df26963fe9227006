package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flatmap/pkg/config"
	"github.com/matzehuels/flatmap/pkg/observability"
	"github.com/matzehuels/flatmap/pkg/pipeline"
)

const shapes = `{
  "source": "body",
  "root": {"id": "g", "markup": "", "children": [
    {"id": "b", "markup": ".boundary class(organ)", "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"id": "d", "markup": "", "geometry": {"type": "LineString", "coordinates": [[5,0],[5,10]]}},
    {"id": "r", "markup": ".region id(liver)", "geometry": {"type": "Point", "coordinates": [8,5]}}
  ]}
}`

const nerves = `{
  "source": "body",
  "root": {"id": "g", "markup": "", "children": [
    {"id": "a", "markup": ".node id(%s)", "geometry": {"type": "Point", "coordinates": [0,0]}},
    {"id": "b", "markup": ".node id(B)", "geometry": {"type": "Point", "coordinates": [10,0]}},
    {"id": "c", "markup": ".centreline id(c)", "geometry": {"type": "LineString", "coordinates": [[0,0],[10,0]]}}
  ]}
}`

func newServer(t *testing.T) *Server {
	s, _ := newServerWith(t, shapes)
	return s
}

// newServerWith serves a map with one source and returns the directory
// holding its files.
func newServerWith(t *testing.T, body string) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"manifest.toml": "id = \"srv\"\n[[sources]]\nid = \"body\"\nhref = \"body.json\"\n",
		"body.json":     body,
	}
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	m, err := config.Load(filepath.Join(dir, "manifest.toml"))
	if err != nil {
		t.Fatal(err)
	}
	logger := log.NewWithOptions(io.Discard, log.Options{})
	return New(pipeline.NewRunner(nil, nil, logger), pipeline.Options{Manifest: m}, logger), dir
}

type recordingHooks struct {
	observability.NoopHTTPHooks
	mu       sync.Mutex
	statuses []int
	errors   int
}

func (h *recordingHooks) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func (h *recordingHooks) OnError(context.Context, string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors++
}

func TestServerNotLoaded(t *testing.T) {
	ts := httptest.NewServer(newServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/features")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("GET /features = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestServerRoutes(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	s := newServer(t)
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	h := s.Handler()

	tests := []struct {
		method string
		path   string
		status int
		ctype  string
	}{
		{"GET", "/healthz", http.StatusNoContent, ""},
		{"GET", "/", http.StatusOK, "application/json"},
		{"GET", "/features", http.StatusOK, "application/geo+json"},
		{"GET", "/features/liver", http.StatusOK, "application/geo+json"},
		{"GET", "/features/nowhere", http.StatusNotFound, "application/json"},
		{"GET", "/paths", http.StatusOK, "application/geo+json"},
		{"GET", "/diagnostics", http.StatusOK, "application/json"},
		{"POST", "/rebuild", http.StatusOK, "application/json"},
		{"DELETE", "/features", http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.ctype != "" && rec.Header().Get("Content-Type") != tt.ctype {
				t.Errorf("Content-Type = %q, want %q", rec.Header().Get("Content-Type"), tt.ctype)
			}
		})
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.statuses) != len(tests) {
		t.Errorf("OnResponse calls = %d, want %d", len(hooks.statuses), len(tests))
	}
	if hooks.errors != 1 {
		t.Errorf("OnError calls = %d, want 1", hooks.errors)
	}
}

func TestServerFeature(t *testing.T) {
	s := newServer(t)
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("GET", "/features/liver", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var f struct {
		ID         string         `json:"id"`
		Properties map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if f.ID != "liver" || f.Properties["class"] != "organ" {
		t.Errorf("feature = %+v, want liver/organ", f)
	}
}

func TestServerNetworkDrawsLoadedMap(t *testing.T) {
	s, dir := newServerWith(t, fmt.Sprintf(nerves, "A"))
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// Inputs edited on disk are not served until the next rebuild.
	if err := os.WriteFile(filepath.Join(dir, "body.json"), []byte(fmt.Sprintf(nerves, "MOVED")), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/network.svg", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", ct)
	}
	svg := rec.Body.String()
	if !strings.Contains(svg, "<title>A</title>") {
		t.Error("SVG is missing loaded node A")
	}
	if strings.Contains(svg, "MOVED") {
		t.Error("SVG was drawn from the edited inputs")
	}
}
