package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNoopHooks(t *testing.T) {
	ctx := context.Background()
	Reset()

	p, c, h := Pipeline(), Cache(), HTTP()
	p.OnResolveStart(ctx, "body")
	p.OnResolveComplete(ctx, "body", 100, time.Second, nil)
	p.OnRouteStart(ctx, 12)
	p.OnRouteComplete(ctx, 11, time.Second, nil)
	p.OnContention(ctx, 2, 1, false)
	c.OnCacheHit(ctx, "build")
	c.OnCacheMiss(ctx, "knowledge")
	c.OnCacheSet(ctx, "render", 1024)
	h.OnRequest(ctx, "GET", "/features")
	h.OnResponse(ctx, "GET", "/features", 200, time.Second)
	h.OnError(ctx, "GET", "/network.svg", nil)
}

// countingHooks counts route completions.
type countingHooks struct {
	NoopPipelineHooks
	routed int
}

func (h *countingHooks) OnRouteComplete(_ context.Context, n int, _ time.Duration, _ error) {
	h.routed += n
}

func TestSetPipelineHooks(t *testing.T) {
	defer Reset()

	h := &countingHooks{}
	SetPipelineHooks(h)
	SetPipelineHooks(nil)

	Pipeline().OnRouteComplete(context.Background(), 3, 0, nil)
	Pipeline().OnRouteComplete(context.Background(), 4, 0, nil)
	if h.routed != 7 {
		t.Errorf("routed = %d, want 7", h.routed)
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Errorf("Pipeline() after Reset() = %T, want NoopPipelineHooks", Pipeline())
	}
}

func TestLogHooks(t *testing.T) {
	defer Reset()
	ctx := context.Background()

	var buf bytes.Buffer
	l := log.New(&buf)
	l.SetLevel(log.DebugLevel)
	h := NewLogHooks(l)
	h.Install()

	if Pipeline() != PipelineHooks(h) || Cache() != CacheHooks(h) || HTTP() != HTTPHooks(h) {
		t.Fatal("Install() did not register every category")
	}

	Pipeline().OnResolveComplete(ctx, "body", 42, time.Millisecond, nil)
	Cache().OnCacheMiss(ctx, "knowledge")
	HTTP().OnError(ctx, "GET", "/network.svg", errors.New("no graph"))

	out := buf.String()
	for _, want := range []string{"source=body", "features=42", "type=knowledge", "no graph"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLogHooksQuietWithoutContention(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf)
	l.SetLevel(log.DebugLevel)
	NewLogHooks(l).OnContention(context.Background(), 0, 0, false)
	if buf.Len() != 0 {
		t.Errorf("OnContention(0) wrote %q, want nothing", buf.String())
	}
}
