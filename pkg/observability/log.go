package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event as a debug record to a charmbracelet logger.
// Failures are logged at warn level.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks logging to l, or to the default logger when l is
// nil.
func NewLogHooks(l *log.Logger) *LogHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogHooks{Logger: l.WithPrefix("obs")}
}

// Install registers h for every event category.
func (h *LogHooks) Install() {
	SetPipelineHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnResolveStart(_ context.Context, source string) {
	h.Logger.Debug("resolve start", "source", source)
}

func (h *LogHooks) OnResolveComplete(_ context.Context, source string, n int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("resolve failed", "source", source, "err", err, "took", d)
		return
	}
	h.Logger.Debug("resolved", "source", source, "features", n, "took", d)
}

func (h *LogHooks) OnRouteStart(_ context.Context, pathCount int) {
	h.Logger.Debug("route start", "paths", pathCount)
}

func (h *LogHooks) OnRouteComplete(_ context.Context, routed int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("route failed", "err", err, "took", d)
		return
	}
	h.Logger.Debug("routed", "paths", routed, "took", d)
}

func (h *LogHooks) OnContention(_ context.Context, contended, infeasible int, timedOut bool) {
	if contended == 0 {
		return
	}
	h.Logger.Debug("contention", "edges", contended, "infeasible", infeasible, "timed_out", timedOut)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {
	h.Logger.Debug("request", "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.Logger.Debug("response", "method", method, "path", path, "status", status, "took", d)
}

func (h *LogHooks) OnError(_ context.Context, method, path string, err error) {
	h.Logger.Warn("handler error", "method", method, "path", path, "err", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
