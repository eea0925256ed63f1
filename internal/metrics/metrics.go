package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"venuechat/internal/models"
)

var (
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venuechat_cache_hits_total",
		Help: "Proximity searches answered from the venue store",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venuechat_cache_misses_total",
		Help: "Proximity searches that consulted the venue provider",
	})
	ProviderErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuechat_provider_errors_total",
		Help: "Venue provider failures by kind",
	}, []string{"kind"})
	UpsertFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venuechat_upsert_failures_total",
		Help: "Provider candidates rejected during reconciliation",
	})
	SearchLogFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venuechat_search_log_failures_total",
		Help: "Search log reads and writes that failed",
	}, []string{"op"})
)

var (
	venuesDesc = prometheus.NewDesc(
		"venuechat_venues",
		"Venues held in the store",
		nil, nil,
	)
	venuesWithRoomsDesc = prometheus.NewDesc(
		"venuechat_venues_with_rooms",
		"Venues with at least one chat room",
		nil, nil,
	)
	searchEntriesDesc = prometheus.NewDesc(
		"venuechat_search_log_entries",
		"Entries in the search log",
		nil, nil,
	)
)

// StatsSource reports store-side counts.
type StatsSource interface {
	GetCacheStats(ctx context.Context) (models.CacheStats, error)
}

// StoreCollector is a custom Prometheus collector that reads venue and
// search log counts from the store on each scrape.
type StoreCollector struct {
	source StatsSource
	log    *zap.SugaredLogger
}

// NewStoreCollector creates a collector backed by source.
func NewStoreCollector(source StatsSource, log *zap.SugaredLogger) *StoreCollector {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &StoreCollector{source: source, log: log}
}

// Describe sends the metric descriptors to the channel.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- venuesDesc
	ch <- venuesWithRoomsDesc
	ch <- searchEntriesDesc
}

// Collect queries the store and emits its counts as gauges.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := c.source.GetCacheStats(ctx)
	if err != nil {
		c.log.Errorw("failed to collect cache metrics", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(venuesDesc, prometheus.GaugeValue, float64(stats.Venues))
	ch <- prometheus.MustNewConstMetric(venuesWithRoomsDesc, prometheus.GaugeValue, float64(stats.VenuesWithRooms))
	ch <- prometheus.MustNewConstMetric(searchEntriesDesc, prometheus.GaugeValue, float64(stats.SearchEntries))
}

var initOnce sync.Once

// Init registers the cache counters and the store collector with the
// default registry. Must be called once at startup.
func Init(source StatsSource, log *zap.SugaredLogger) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			CacheHits,
			CacheMisses,
			ProviderErrors,
			UpsertFailures,
			SearchLogFailures,
			NewStoreCollector(source, log),
		)
	})
}
