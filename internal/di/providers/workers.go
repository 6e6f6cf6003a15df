package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/kaziapp/taggraph/internal/config"
	"github.com/kaziapp/taggraph/internal/logger"
	"github.com/kaziapp/taggraph/internal/metrics"
	"github.com/kaziapp/taggraph/internal/service"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/worker"
)

// ProvideMetrics provides the Prometheus collectors and counts dropped SSE events.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	m := metrics.New(sseHandle.ClientCount)
	sseHandle.OnDrop(func(t sse.EventType) {
		m.EventDropped(string(t))
	})
	return m, nil
}

// ReconcilerHandle wraps the usage-count reconciler. Reconciler is nil when
// no schedule is configured.
type ReconcilerHandle struct {
	*worker.Reconciler
}

// Shutdown implements do.Shutdownable.
func (h *ReconcilerHandle) Shutdown() error {
	if h.Reconciler == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Stop(ctx)
}

// ProvideReconciler provides and starts the scheduled usage recount.
func ProvideReconciler(i do.Injector) (*ReconcilerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	assignments := do.MustInvoke[*service.AssignmentService](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	if cfg.Worker.RecountSchedule == "" {
		log.Info("Scheduled usage recount disabled")
		return &ReconcilerHandle{}, nil
	}

	r, err := worker.NewReconciler(cfg.Worker.RecountSchedule, assignments.RecountUsage, m, log.Logger)
	if err != nil {
		return nil, err
	}
	r.Start()

	return &ReconcilerHandle{Reconciler: r}, nil
}
