package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/softfinder/softfinder-go/internal/cache"
)

var (
	cacheLookupsDesc = prometheus.NewDesc(
		"softfinder_cache_lookups_total",
		"Cache lookups by cache and result",
		[]string{"cache", "result"}, nil,
	)
	cacheEntriesDesc = prometheus.NewDesc(
		"softfinder_cache_entries",
		"Entries currently held by each cache, including stale ones not yet evicted",
		[]string{"cache"}, nil,
	)
)

// cacheCollector reads cache statistics at scrape time.
type cacheCollector struct {
	mu        sync.Mutex
	providers []cache.StatsProvider
}

func (c *cacheCollector) add(providers ...cache.StatsProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers = append(c.providers, providers...)
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheLookupsDesc
	ch <- cacheEntriesDesc
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	providers := append([]cache.StatsProvider(nil), c.providers...)
	c.mu.Unlock()

	for _, p := range providers {
		s := p.GetStats()
		name := p.Name()
		ch <- prometheus.MustNewConstMetric(cacheLookupsDesc, prometheus.CounterValue, float64(s.HitCount), name, "hit")
		ch <- prometheus.MustNewConstMetric(cacheLookupsDesc, prometheus.CounterValue, float64(s.MissCount), name, "miss")
		ch <- prometheus.MustNewConstMetric(cacheLookupsDesc, prometheus.CounterValue, float64(s.EvictedCount), name, "evicted")
		ch <- prometheus.MustNewConstMetric(cacheEntriesDesc, prometheus.GaugeValue, float64(s.TotalEntries), name)
	}
}
