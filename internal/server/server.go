// Package server serves a built map over HTTP.
//
// The server builds the map once at startup and keeps the encoded documents
// in memory. POST /rebuild re-runs the pipeline and swaps the documents in
// atomically; readers never see a half-built map.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/flatmap/pkg/cache"
	"github.com/matzehuels/flatmap/pkg/errors"
	mapio "github.com/matzehuels/flatmap/pkg/io"
	"github.com/matzehuels/flatmap/pkg/observability"
	"github.com/matzehuels/flatmap/pkg/pipeline"
	"github.com/matzehuels/flatmap/pkg/render/nodelink"
	"github.com/matzehuels/flatmap/pkg/route"
)

// Server serves one map.
type Server struct {
	runner *pipeline.Runner
	opts   pipeline.Options
	logger *log.Logger

	mu       sync.RWMutex
	result   *pipeline.Result
	features map[string]*geojson.Feature

	// rebuild serialises pipeline runs.
	rebuild sync.Mutex
}

// New returns a server for the map described by opts.
func New(runner *pipeline.Runner, opts pipeline.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, opts: opts, logger: logger}
}

// Load builds the map and replaces the served documents.
func (s *Server) Load(ctx context.Context, refresh bool) error {
	s.rebuild.Lock()
	defer s.rebuild.Unlock()

	opts := s.opts
	opts.Refresh = refresh
	res, err := s.runner.Execute(ctx, opts)
	if err != nil {
		return err
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(res.Artifacts[mapio.FileFeatures], &fc); err != nil {
		return fmt.Errorf("index features: %w", err)
	}
	byID := make(map[string]*geojson.Feature, len(fc.Features))
	for _, f := range fc.Features {
		if id, ok := f.ID.(string); ok {
			byID[id] = f
		}
	}

	s.mu.Lock()
	s.result, s.features = res, byID
	s.mu.Unlock()
	s.logger.Info("map loaded", "features", len(byID), "cached", res.CacheInfo.BuildHit)
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/", s.document(mapio.FileIndex, "application/json"))
	r.Get("/features", s.document(mapio.FileFeatures, "application/geo+json"))
	r.Get("/features/{id}", s.feature)
	r.Get("/paths", s.document(mapio.FilePaths, "application/geo+json"))
	r.Get("/diagnostics", s.document(mapio.FileDiagnostics, "application/json"))
	r.Get("/network.svg", s.network)
	r.Post("/rebuild", s.reload)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) current() (*pipeline.Result, map[string]*geojson.Feature) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.features
}

func (s *Server) document(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, _ := s.current()
		if res == nil {
			writeError(w, r, http.StatusServiceUnavailable, errors.New(errors.ErrCodeNotFound, "map not loaded"))
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("ETag", `"`+res.InputHash+`"`)
		_, _ = w.Write(res.Artifacts[name])
	}
}

func (s *Server) feature(w http.ResponseWriter, r *http.Request) {
	_, features := s.current()
	id := chi.URLParam(r, "id")
	f, ok := features[id]
	if !ok {
		writeError(w, r, http.StatusNotFound, errors.New(errors.ErrCodeNotFound, "unknown feature %s", id))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_ = json.NewEncoder(w).Encode(f)
}

// network renders the centreline diagram of the loaded map, caching the SVG
// by the hash of the inputs it was drawn from.
func (s *Server) network(w http.ResponseWriter, r *http.Request) {
	res, _ := s.current()
	if res == nil {
		writeError(w, r, http.StatusServiceUnavailable, errors.New(errors.ErrCodeNotFound, "map not loaded"))
		return
	}
	ctx := r.Context()
	key := s.renderKey(res.InputHash)
	svg, hit, err := s.runner.Cache.Get(ctx, key)
	if err != nil || !hit {
		var hash string
		svg, hash, err = s.renderNetwork(ctx, res)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		_ = s.runner.Cache.Set(ctx, s.renderKey(hash), svg, cache.TTLRender)
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) renderKey(inputHash string) string {
	return s.runner.Keyer.RenderKey(inputHash, cache.RenderKeyOpts{Format: "svg", Routes: true})
}

// renderNetwork draws res. A result loaded from the cache carries no graph,
// so the map is rebuilt; the returned hash is that of the inputs drawn.
func (s *Server) renderNetwork(ctx context.Context, res *pipeline.Result) ([]byte, string, error) {
	if res.CacheInfo.BuildHit {
		fresh, err := s.runner.Build(ctx, s.opts)
		if err != nil {
			return nil, "", err
		}
		if fresh.InputHash != res.InputHash {
			s.logger.Warn("inputs changed since load; POST /rebuild to refresh", "loaded", res.InputHash, "current", fresh.InputHash)
		}
		res = fresh
	}
	if res.Graph == nil {
		return nil, "", errors.New(errors.ErrCodeNotFound, "map has no centreline network")
	}
	var paths []route.RoutedPath
	if res.Routes != nil {
		paths = res.Routes.Paths
	}
	svg, err := nodelink.RenderSVG(nodelink.ToDOT(res.Graph, paths, nodelink.Options{Routes: true}))
	return svg, res.InputHash, err
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if err := s.Load(r.Context(), true); err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.document(mapio.FileIndex, "application/json")(w, r)
}

// observe reports requests to the HTTP hooks and the log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(errorBody{Code: code, Message: errors.UserMessage(err)})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
