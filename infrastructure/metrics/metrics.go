package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "social_dashboard"

// Collector implements the usecase metrics hooks on Prometheus counters.
type Collector struct {
	registry *prometheus.Registry

	retryAttempts       *prometheus.CounterVec
	rateLimitDecisions  *prometheus.CounterVec
	alertsRaised        *prometheus.CounterVec
	alertsSuppressed    *prometheus.CounterVec
	notificationsSent   *prometheus.CounterVec
	reportRuns          *prometheus.CounterVec
	publishOutcomes     *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

// NewCollector registers every metric on its own registry, so collectors can be
// created more than once in a process.
func NewCollector() *Collector {
	c := &Collector{
		registry:           prometheus.NewRegistry(),
		retryAttempts:      counter("retry_attempts_total", "Failed operation attempts by outcome", "platform", "outcome"),
		rateLimitDecisions: counter("rate_limit_decisions_total", "Rate limit checks", "category", "limited"),
		alertsRaised:       counter("alerts_raised_total", "Alerts persisted and dispatched", "type"),
		alertsSuppressed:   counter("alerts_suppressed_total", "Breaches that did not raise an alert", "type", "reason"),
		notificationsSent:  counter("notifications_sent_total", "Notification deliveries", "channel", "success"),
		reportRuns:         counter("report_runs_total", "Scheduled report runs", "frequency", "success"),
		publishOutcomes:    counter("publish_outcomes_total", "Per-platform publish results", "platform", "success"),
		httpRequestsTotal:  counter("http_requests_total", "Total number of HTTP requests", "method", "endpoint", "status"),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.retryAttempts,
		c.rateLimitDecisions,
		c.alertsRaised,
		c.alertsSuppressed,
		c.notificationsSent,
		c.reportRuns,
		c.publishOutcomes,
		c.httpRequestsTotal,
		c.httpRequestDuration,
	)
	return c
}

func (c *Collector) RetryAttempt(platform, outcome string) {
	c.retryAttempts.WithLabelValues(platform, outcome).Inc()
}

func (c *Collector) RateLimitDecision(category string, limited bool) {
	c.rateLimitDecisions.WithLabelValues(category, strconv.FormatBool(limited)).Inc()
}

func (c *Collector) AlertRaised(alertType string) {
	c.alertsRaised.WithLabelValues(alertType).Inc()
}

func (c *Collector) AlertSuppressed(alertType, reason string) {
	c.alertsSuppressed.WithLabelValues(alertType, reason).Inc()
}

func (c *Collector) NotificationSent(channel string, success bool) {
	c.notificationsSent.WithLabelValues(channel, strconv.FormatBool(success)).Inc()
}

func (c *Collector) ReportRun(frequency string, success bool) {
	c.reportRuns.WithLabelValues(frequency, strconv.FormatBool(success)).Inc()
}

func (c *Collector) PublishOutcome(platform string, success bool) {
	c.publishOutcomes.WithLabelValues(platform, strconv.FormatBool(success)).Inc()
}

// Middleware records request counts and latency per route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
	}
}
