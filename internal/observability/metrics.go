package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec
	gateDenied         *CounterVec

	enrollments     *CounterVec
	progressUpdates *CounterVec
	courseCompleted *Counter
	paymentStatus   *CounterVec
	eventsPublished *CounterVec
	contentResolved *CounterVec

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	scrapeInterval time.Duration
}

type MetricsConfig struct {
	Enabled        bool
	ScrapeInterval time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics registry. It returns nil when disabled;
// every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger, cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New(cfg)
		if log != nil {
			log.Info("observability metrics enabled")
		}
	})
	return instance
}

// New builds an independent registry. Tests use it directly.
func New(cfg MetricsConfig) *Metrics {
	interval := cfg.ScrapeInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Metrics{
		apiRequests: NewCounterVec("cf_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"cf_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		apiInflight: NewGauge("cf_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("cf_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("cf_api_requests_error_total", "Total API requests answered with 5xx."),

		aggregateOps: NewCounterVec("cf_aggregate_operations_total", "Aggregate write operations by name/status.", []string{"aggregate", "status"}),
		aggregateLatency: NewHistogramVec(
			"cf_aggregate_operation_duration_seconds",
			"Aggregate write latency in seconds by name/status.",
			[]string{"aggregate", "status"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		),
		aggregateConflicts: NewCounterVec("cf_aggregate_conflicts_total", "Aggregate compare-and-set conflicts.", []string{"aggregate"}),
		aggregateRetries:   NewCounterVec("cf_aggregate_retries_total", "Aggregate retryable failures.", []string{"aggregate"}),
		gateDenied:         NewCounterVec("cf_publication_gate_denials_total", "Non-author access to unpublished courses.", []string{"aggregate"}),

		enrollments:     NewCounterVec("cf_enrollments_total", "Enrollment attempts by source/outcome.", []string{"source", "outcome"}),
		progressUpdates: NewCounterVec("cf_progress_recomputes_total", "Progress recomputations by trigger/changed.", []string{"trigger", "changed"}),
		courseCompleted: NewCounter("cf_course_completions_total", "Enrollments that reached 100% progress."),
		paymentStatus:   NewCounterVec("cf_payment_status_transitions_total", "Payment ledger transitions by provider/status.", []string{"provider", "status"}),
		eventsPublished: NewCounterVec("cf_realtime_events_total", "Realtime events by event/result.", []string{"event", "result"}),
		contentResolved: NewCounterVec("cf_content_url_resolutions_total", "Content url resolutions by scheme/result.", []string{"scheme", "result"}),

		pgStats:   NewGaugeVec("cf_db_pool_stats", "Database pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("cf_redis_up", "Redis reachability (1 = up)."),
		redisPing: NewGauge("cf_redis_ping_seconds", "Redis ping latency in seconds."),

		scrapeInterval: interval,
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries, m.gateDenied,
		m.enrollments, m.progressUpdates, m.courseCompleted, m.paymentStatus,
		m.eventsPublished, m.contentResolved,
		m.pgStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Inc(name, status)
	m.aggregateLatency.Observe(dur.Seconds(), name, status)
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(name)
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(name)
}

func (m *Metrics) IncGateDenied(name string) {
	if m == nil {
		return
	}
	m.gateDenied.Inc(name)
}

// IncEnrollment records an enrollment attempt; outcome is "created" or "existing".
func (m *Metrics) IncEnrollment(source, outcome string) {
	if m == nil {
		return
	}
	m.enrollments.Inc(source, outcome)
}

func (m *Metrics) IncProgressRecompute(trigger string, changed bool) {
	if m == nil {
		return
	}
	flag := "false"
	if changed {
		flag = "true"
	}
	m.progressUpdates.Inc(trigger, flag)
}

func (m *Metrics) IncCourseCompleted() {
	if m == nil {
		return
	}
	m.courseCompleted.Inc()
}

func (m *Metrics) IncPaymentStatus(provider, status string) {
	if m == nil {
		return
	}
	m.paymentStatus.Inc(provider, status)
}

func (m *Metrics) IncEventPublished(event, result string) {
	if m == nil {
		return
	}
	m.eventsPublished.Inc(event, result)
}

func (m *Metrics) IncContentResolved(scheme, result string) {
	if m == nil {
		return
	}
	m.contentResolved.Inc(scheme, result)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings rdb on every scrape interval. The caller owns rdb.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
