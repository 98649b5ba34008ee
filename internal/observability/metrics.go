package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/estate-backend/internal/platform/logger"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type Metrics struct {
	aggregateOps      *CounterVec
	aggregateLatency  *HistogramVec
	aggregateConflict *CounterVec
	aggregateRetry    *CounterVec

	commands       *CounterVec
	commandLatency *HistogramVec
	commandTotal   *Counter
	commandError   *Counter

	eventsRecorded  *CounterVec
	outboxPublished *CounterVec
	outboxFailed    *CounterVec
	outboxPending   *Gauge
	outboxLag       *Gauge

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

// Init builds the process-wide metrics set. It returns nil when METRICS_ENABLED is off;
// every method is safe on a nil receiver.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// NewMetrics returns an unregistered metrics set.
func NewMetrics() *Metrics {
	return &Metrics{
		aggregateOps: NewCounterVec("estate_aggregate_operations_total", "Aggregate store operations by operation/status.", []string{"operation", "status"}),
		aggregateLatency: NewHistogramVec(
			"estate_aggregate_operation_duration_seconds",
			"Aggregate store operation latency in seconds by operation/status.",
			[]string{"operation", "status"},
			durationBuckets,
		),
		aggregateConflict: NewCounterVec("estate_aggregate_conflicts_total", "Optimistic concurrency conflicts by operation.", []string{"operation"}),
		aggregateRetry:    NewCounterVec("estate_aggregate_retries_total", "Retryable aggregate failures by operation.", []string{"operation"}),
		commands:          NewCounterVec("estate_commands_total", "Estate commands by command/status.", []string{"command", "status"}),
		commandLatency: NewHistogramVec(
			"estate_command_duration_seconds",
			"Estate command latency in seconds by command/status.",
			[]string{"command", "status"},
			durationBuckets,
		),
		commandTotal:    NewCounter("estate_commands_total_all", "Total estate commands (all)."),
		commandError:    NewCounter("estate_commands_error_total", "Estate commands that failed with an internal or retryable error."),
		eventsRecorded:  NewCounterVec("estate_events_recorded_total", "Domain events appended to the outbox by type.", []string{"type"}),
		outboxPublished: NewCounterVec("estate_outbox_published_total", "Outbox events published by type.", []string{"type"}),
		outboxFailed:    NewCounterVec("estate_outbox_failed_total", "Outbox publish failures by type.", []string{"type"}),
		outboxPending:   NewGauge("estate_outbox_pending", "Outbox events not yet published."),
		outboxLag:       NewGauge("estate_outbox_lag_seconds", "Age of the oldest unpublished outbox event."),
		pgStats:         NewGaugeVec("estate_postgres_pool", "Postgres connection pool stats.", []string{"stat"}),
		redisUp:         NewGauge("estate_redis_up", "Redis availability (1 up, 0 down)."),
		redisPing:       NewGauge("estate_redis_ping_seconds", "Redis ping latency in seconds."),
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

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.aggregateOps,
		m.aggregateLatency,
		m.aggregateConflict,
		m.aggregateRetry,
		m.commands,
		m.commandLatency,
		m.commandTotal,
		m.commandError,
		m.eventsRecorded,
		m.outboxPublished,
		m.outboxFailed,
		m.outboxPending,
		m.outboxLag,
		m.pgStats,
		m.redisUp,
		m.redisPing,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAggregateOperation(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	operation = orUnknown(operation)
	status = orUnknown(status)
	m.aggregateOps.Inc(operation, status)
	m.aggregateLatency.Observe(dur.Seconds(), operation, status)
}

func (m *Metrics) IncAggregateConflict(operation string) {
	if m == nil {
		return
	}
	m.aggregateConflict.Inc(orUnknown(operation))
}

func (m *Metrics) IncAggregateRetry(operation string) {
	if m == nil {
		return
	}
	m.aggregateRetry.Inc(orUnknown(operation))
}

func (m *Metrics) ObserveCommand(command, status string, dur time.Duration) {
	if m == nil {
		return
	}
	command = orUnknown(command)
	status = orUnknown(status)
	m.commands.Inc(command, status)
	m.commandLatency.Observe(dur.Seconds(), command, status)
	m.commandTotal.Inc()
	if isFailureStatus(status) {
		m.commandError.Inc()
	}
}

func (m *Metrics) AddEventsRecorded(eventType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsRecorded.Add(float64(n), orUnknown(eventType))
}

func (m *Metrics) IncOutboxPublished(eventType string) {
	if m == nil {
		return
	}
	m.outboxPublished.Inc(orUnknown(eventType))
}

func (m *Metrics) IncOutboxFailed(eventType string) {
	if m == nil {
		return
	}
	m.outboxFailed.Inc(orUnknown(eventType))
}

func (m *Metrics) SetOutboxBacklog(pending int64, oldest time.Duration) {
	if m == nil {
		return
	}
	m.outboxPending.Set(float64(pending))
	m.outboxLag.Set(oldest.Seconds())
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
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

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
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

// StartOutboxCollector samples the unpublished outbox backlog. table is the outbox
// table name.
func (m *Metrics) StartOutboxCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, table string) {
	if m == nil || db == nil || strings.TrimSpace(table) == "" {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var row struct {
					Pending int64
					Oldest  *time.Time
				}
				if err := db.WithContext(ctx).
					Table(table).
					Select("count(*) as pending, min(created_at) as oldest").
					Where("published_at IS NULL").
					Scan(&row).Error; err != nil {
					if log != nil {
						log.Warn("metrics: outbox backlog query failed", "error", err)
					}
					continue
				}
				var lag time.Duration
				if row.Oldest != nil {
					lag = time.Since(*row.Oldest)
				}
				m.SetOutboxBacklog(row.Pending, lag)
			}
		}
	}()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

func isFailureStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "failed", "error", "internal", "retryable", "timeout", "panic":
		return true
	default:
		return false
	}
}
