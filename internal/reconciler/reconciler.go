// Package reconciler runs the background maintenance loop: it drains
// buffered report views out of Redis into the database and repairs the
// denormalized per-community counters.
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/civichub/civichub/internal/cache"
	"github.com/civichub/civichub/internal/db"
	"github.com/civichub/civichub/pkg/config"
	"github.com/civichub/civichub/pkg/logging"
)

var (
	viewsFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "civichub_report_views_flushed_total",
		Help: "Buffered report views written to the database",
	})
	countersRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "civichub_community_counters_repaired_total",
		Help: "Communities whose denormalized counters were corrected",
	})
)

// Reconciler manages the periodic reconcile process
type Reconciler struct {
	config      *config.Config
	communities db.CommunityStore
	memberships db.MembershipStore
	reports     db.ReportStore
	cache       *cache.Cache
	logger      *zap.Logger
}

// New creates a new reconciler
func New(cfg *config.Config, communities db.CommunityStore, memberships db.MembershipStore, reports db.ReportStore, redisCache *cache.Cache) *Reconciler {
	return &Reconciler{
		config:      cfg,
		communities: communities,
		memberships: memberships,
		reports:     reports,
		cache:       redisCache,
		logger:      logging.GetLogger().With(zap.String("component", "reconciler")),
	}
}

// Run starts the reconcile loop and blocks until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context) error {
	interval := r.config.Reconciler.IntervalSeconds
	if interval == 0 {
		interval = 30
	}

	r.logger.Info("Starting reconciler", zap.Int("interval_seconds", interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			r.RunOnce(ctx)
			r.wait(ctx, interval)
		}
	}
}

// RunOnce performs a single reconcile pass. Failures are logged and do
// not stop the loop; the next pass retries.
func (r *Reconciler) RunOnce(ctx context.Context) {
	if err := r.flushViews(ctx); err != nil {
		r.logger.Error("Failed to flush report views", zap.Error(err))
	}
	if err := r.repairCounters(ctx); err != nil {
		r.logger.Error("Failed to repair community counters", zap.Error(err))
	}
}

// flushViews drains buffered view counters from Redis into the reports table
func (r *Reconciler) flushViews(ctx context.Context) error {
	batch := r.config.Reconciler.BatchSize
	if batch == 0 {
		batch = 500
	}

	views, err := r.cache.DrainReportViews(ctx, int64(batch))
	if err != nil {
		if err == cache.ErrCacheDisabled {
			return nil
		}
		return err
	}
	if len(views) == 0 {
		return nil
	}

	var flushed int64
	for raw, count := range views {
		reportID, err := uuid.Parse(raw)
		if err != nil {
			r.logger.Warn("Dropping view counter with bad report ID", zap.String("key", raw))
			continue
		}
		if err := r.reports.AddViews(ctx, reportID, count); err != nil {
			r.logger.Error("Failed to write report views",
				zap.String("report_id", raw), zap.Int64("views", count), zap.Error(err))
			continue
		}
		flushed += count
	}

	viewsFlushed.Add(float64(flushed))
	r.logger.Info("Flushed report views",
		zap.Int64("views", flushed), zap.Int("reports", len(views)))
	return nil
}

// repairCounters recounts memberships and reports per community and
// overwrites any counter that drifted.
func (r *Reconciler) repairCounters(ctx context.Context) error {
	communities, err := r.communities.List(ctx)
	if err != nil {
		return err
	}

	for _, community := range communities {
		memberCount, err := r.memberships.CountByCommunity(ctx, community.ID)
		if err != nil {
			r.logger.Error("Failed to count members",
				zap.String("slug", community.Slug), zap.Error(err))
			continue
		}
		reportCount, err := r.reports.CountByCommunity(ctx, community.ID)
		if err != nil {
			r.logger.Error("Failed to count reports",
				zap.String("slug", community.Slug), zap.Error(err))
			continue
		}

		if memberCount == community.MemberCount && reportCount == community.ReportCount {
			continue
		}

		if err := r.communities.SetCounters(ctx, community.ID, memberCount, reportCount); err != nil {
			r.logger.Error("Failed to set counters",
				zap.String("slug", community.Slug), zap.Error(err))
			continue
		}

		countersRepaired.Inc()
		r.logger.Info("Repaired community counters",
			zap.String("slug", community.Slug),
			zap.Int64("member_count", memberCount),
			zap.Int64("report_count", reportCount))
	}

	return nil
}

// wait waits for the specified duration or until context is cancelled
func (r *Reconciler) wait(ctx context.Context, seconds int) {
	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
