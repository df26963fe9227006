package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/flatmap/pkg/observability"
)

// stageHooks shows the running build stage on a spinner and forwards every
// event to the hooks that were installed before it.
type stageHooks struct {
	spinner *Spinner
	next    observability.PipelineHooks
}

// followStages points the spinner at the pipeline until the returned function
// is called.
func followStages(s *Spinner) (restore func()) {
	prev := observability.Pipeline()
	observability.SetPipelineHooks(&stageHooks{spinner: s, next: prev})
	return func() { observability.SetPipelineHooks(prev) }
}

func (h *stageHooks) OnResolveStart(ctx context.Context, source string) {
	h.spinner.Update(fmt.Sprintf("Resolving %s...", source))
	h.next.OnResolveStart(ctx, source)
}

func (h *stageHooks) OnResolveComplete(ctx context.Context, source string, n int, d time.Duration, err error) {
	h.next.OnResolveComplete(ctx, source, n, d, err)
}

func (h *stageHooks) OnRouteStart(ctx context.Context, pathCount int) {
	h.spinner.Update(fmt.Sprintf("Routing %d paths...", pathCount))
	h.next.OnRouteStart(ctx, pathCount)
}

func (h *stageHooks) OnRouteComplete(ctx context.Context, routed int, d time.Duration, err error) {
	h.next.OnRouteComplete(ctx, routed, d, err)
}

func (h *stageHooks) OnContention(ctx context.Context, contended, infeasible int, timedOut bool) {
	if contended > 0 {
		h.spinner.Update(fmt.Sprintf("Resolving contention on %d edges...", contended))
	}
	h.next.OnContention(ctx, contended, infeasible, timedOut)
}
