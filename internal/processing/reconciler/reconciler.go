package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ysalameh/paywatch/internal/infrastructure/logger"
	"github.com/ysalameh/paywatch/internal/processing/paylinks"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paywatch_reconcile_ticks_total",
		Help: "Total number of reconciliation ticks",
	})

	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywatch_probes_total",
			Help: "Total number of link probes by outcome status",
		},
		[]string{"status"},
	)

	probeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paywatch_probe_duration_seconds",
		Help:    "Duration of one probe-and-apply pass over a single link",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

// OwnerSource reports which owners currently have a live viewing session.
// Links that nobody is watching wait for the check-now trigger instead.
type OwnerSource interface {
	ActiveOwners() []string
}

type Reconciler struct {
	svc         *paylinks.Service
	owners      OwnerSource
	interval    time.Duration
	concurrency int
}

func New(svc *paylinks.Service, owners OwnerSource, interval time.Duration, concurrency int) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Reconciler{
		svc:         svc,
		owners:      owners,
		interval:    interval,
		concurrency: concurrency,
	}
}

// Run blocks until ctx is cancelled, probing every non-archived link of
// every watched owner once per interval. A probe failure marks its own link
// and never aborts the tick for the others.
func (r *Reconciler) Run(ctx context.Context) {
	logger.Info("reconciler started",
		zap.Duration("interval", r.interval),
		zap.Int("concurrency", r.concurrency),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconciler stopping")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	ticksTotal.Inc()

	for _, ownerID := range r.owners.ActiveOwners() {
		links, err := r.svc.ListLinks(ctx, ownerID)
		if err != nil {
			logger.Error("failed to list links for reconciliation",
				zap.Error(err),
				zap.String("owner_id", ownerID),
			)
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for _, link := range links {
			g.Go(func() error {
				r.checkOne(gctx, link)
				return nil
			})
		}
		_ = g.Wait()
	}
}

func (r *Reconciler) checkOne(ctx context.Context, link *paylinks.Link) {
	start := time.Now()

	updated, err := r.svc.CheckLink(ctx, link)
	probeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		// Deleted between enumeration and probe completion.
		if errors.Is(err, paylinks.ErrNotFound) {
			logger.Debug("link vanished during probe, skipping", zap.String("link_id", link.ID))
			return
		}
		probesTotal.WithLabelValues("store_error").Inc()
		logger.Error("failed to apply probe result",
			zap.Error(err),
			zap.String("link_id", link.ID),
		)
		return
	}

	probesTotal.WithLabelValues(string(updated.Status)).Inc()
}
