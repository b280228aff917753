package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

var (
	lifecycleOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floorboard",
		Name:      "lifecycle_operations_total",
		Help:      "Assignment lifecycle operations by operation and result.",
	}, []string{"operation", "result"})

	localRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floorboard",
		Name:      "board_local_rejections_total",
		Help:      "Board commands rejected before any write was issued.",
	}, []string{"operation", "result"})

	rebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "floorboard",
		Name:      "placement_rebuild_duration_seconds",
		Help:      "Time spent rebuilding the placement view from a snapshot.",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
	})

	renderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "floorboard",
		Name:      "board_render_failures_total",
		Help:      "Board redraws that returned an error or panicked.",
	})

	duplicatePlacements = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "floorboard",
		Name:      "duplicate_active_placements",
		Help:      "Workers with more than one active assignment in the latest board snapshot by site and floor.",
	}, []string{"site", "floor"})

	liveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "floorboard",
		Name:      "live_subscriptions",
		Help:      "Open live query subscriptions by kind.",
	}, []string{"kind"})

	snapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floorboard",
		Name:      "snapshots_delivered_total",
		Help:      "Full result-set snapshots pushed to subscribers by kind.",
	}, []string{"kind"})

	rosterFetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "floorboard",
		Name:      "roster_fetch_attempts_total",
		Help:      "Roster fetch attempts by result.",
	}, []string{"result"})
)

// Result 把错误归类为指标标签
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsConflict(err):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrAlreadyClosed):
		return "closed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	default:
		return "error"
	}
}

func ObserveLifecycle(operation string, err error) {
	lifecycleOps.WithLabelValues(operation, Result(err)).Inc()
}

func ObserveLocalRejection(operation string, err error) {
	localRejections.WithLabelValues(operation, Result(err)).Inc()
}

func ObserveRebuild(start time.Time) {
	rebuildDuration.Observe(time.Since(start).Seconds())
}

// ObserveDuplicates 记录某个楼层最近一次快照中重复在场的人数，只由看板会话调用
func ObserveDuplicates(siteID, floorID string, duplicates int) {
	duplicatePlacements.WithLabelValues(siteID, floorID).Set(float64(duplicates))
}

func ObserveRenderFailure() {
	renderFailures.Inc()
}

func SubscriptionOpened(kind string) {
	liveSubscriptions.WithLabelValues(kind).Inc()
}

func SubscriptionClosed(kind string) {
	liveSubscriptions.WithLabelValues(kind).Dec()
}

func ObserveSnapshot(kind string) {
	snapshotsDelivered.WithLabelValues(kind).Inc()
}

func ObserveRosterFetch(err error) {
	if err != nil {
		rosterFetchAttempts.WithLabelValues("error").Inc()
		return
	}
	rosterFetchAttempts.WithLabelValues("ok").Inc()
}
