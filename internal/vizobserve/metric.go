// Package vizobserve 暴露 Prometheus 指标
package vizobserve

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 指标定义
var (
	TotalReq = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vizquery_requests_total",
		Help: "请求总数",
	})
	FailReq = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vizquery_requests_failed",
		Help: "请求失败数",
	})
	CacheHit = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vizquery_result_cache_hits_total",
		Help: "查询结果缓存命中数",
	})
	CacheMiss = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vizquery_result_cache_misses_total",
		Help: "查询结果缓存未命中数",
	})
	DroppedFilter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vizquery_dropped_filters_total",
		Help: "因字段名或操作符不合法而被静默丢弃的过滤描述符数",
	})
	SwallowedAtom = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vizquery_swallowed_predicate_atoms_total",
		Help: "引用不存在列而按恒真处理的谓词原子数",
	})
	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vizquery_query_duration_seconds",
		Help:    "单次查询执行耗时（含数据获取，不含缓存命中）",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vizquery_http_request_duration_seconds",
		Help:    "HTTP 请求耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "code"})
)

// Register 必须在 main 调用一次
func Register() {
	prometheus.MustRegister(
		TotalReq, FailReq,
		CacheHit, CacheMiss,
		DroppedFilter, SwallowedAtom,
		queryDuration, httpRequestDuration,
	)
}

// ObserveQueryDuration 记录一次非缓存命中的查询耗时。
func ObserveQueryDuration(sourceID string, d time.Duration) {
	queryDuration.WithLabelValues(sourceID).Observe(d.Seconds())
}

// PrometheusMiddleware 按路由模板（而非原始路径）记录 HTTP 请求耗时，
// 避免路径参数导致标签基数爆炸。
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		httpRequestDuration.
			WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler 返回 HTTP 处理器
func Handler() http.Handler { return promhttp.Handler() }
