package monitoring

import (
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zenfocus_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zenfocus_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	ActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zenfocus_http_active_requests",
			Help: "Requests currently being served",
		},
	)
	SnapshotDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zenfocus_snapshot_deliveries_total",
			Help: "Collection snapshots delivered to subscribers",
		},
		[]string{"collection", "outcome"},
	)
	XPAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zenfocus_xp_awarded_total",
			Help: "Experience points awarded by reason",
		},
		[]string{"reason"},
	)
	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zenfocus_websocket_clients",
			Help: "Connected dashboard push clients",
		},
	)
	SharedCacheOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zenfocus_shared_cache_online",
			Help: "1 while the Redis offline cache is in the read path",
		},
	)
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zenfocus_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

var startTime = time.Now()

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDuration,
		ActiveRequests,
		SnapshotDeliveries,
		XPAwarded,
		WebsocketClients,
		SharedCacheOnline,
		RateLimited,
	)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ActiveRequests.Inc()

		c.Next()

		ActiveRequests.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordSnapshot(collection string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	SnapshotDeliveries.WithLabelValues(collection, outcome).Inc()
}

func RecordXP(reason string, amount int64) {
	if amount <= 0 {
		return
	}
	XPAwarded.WithLabelValues(reason).Add(float64(amount))
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc_mb"`
	TotalAlloc uint64 `json:"total_alloc_mb"`
	Sys        uint64 `json:"sys_mb"`
	NumGC      uint32 `json:"num_gc"`
}

func GetSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Uptime: Uptime().String(),
		MemoryUsage: MemoryStats{
			Alloc:      bToMb(m.Alloc),
			TotalAlloc: bToMb(m.TotalAlloc),
			Sys:        bToMb(m.Sys),
			NumGC:      m.NumGC,
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func Uptime() time.Duration {
	return time.Since(startTime).Round(time.Second)
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
