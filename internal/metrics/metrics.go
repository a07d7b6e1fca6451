package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 服务内共享的 Prometheus 指标
// 所有方法对 nil 接收者安全，测试中可直接传 nil
type Metrics struct {
	SyncedOrders        *prometheus.CounterVec
	SyncDuration        *prometheus.HistogramVec
	Notifications       *prometheus.CounterVec
	WebhookRequests     *prometheus.CounterVec
	SchedulerRuns       *prometheus.CounterVec
	RealtimeConnections prometheus.Gauge
	RealtimeEvents      *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry 构建并注册指标单例
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			SyncedOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "synced_orders_total",
				Help:      "Orders processed by the sync engine, by sync type and outcome.",
			}, []string{"sync_type", "status"}),
			SyncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Duration of full order sync runs.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"sync_type", "status"}),
			Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Merged order notifications, by outcome.",
			}, []string{"status"}),
			WebhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_requests_total",
				Help:      "Incoming Shopify webhooks, by topic and outcome.",
			}, []string{"topic", "status"}),
			SchedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_tenant_runs_total",
				Help:      "Scheduler decisions per tenant per tick.",
			}, []string{"result"}),
			RealtimeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "realtime_connections",
				Help:      "Open realtime connections.",
			}),
			RealtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "realtime_events_total",
				Help:      "Inbound realtime events, by type.",
			}, []string{"type"}),
		}

		prometheus.MustRegister(
			metricsInstance.SyncedOrders,
			metricsInstance.SyncDuration,
			metricsInstance.Notifications,
			metricsInstance.WebhookRequests,
			metricsInstance.SchedulerRuns,
			metricsInstance.RealtimeConnections,
			metricsInstance.RealtimeEvents,
		)
	})
	return metricsInstance
}

func (m *Metrics) OrderSynced(syncType, status string) {
	if m == nil {
		return
	}
	m.SyncedOrders.WithLabelValues(syncType, status).Inc()
}

func (m *Metrics) ObserveSync(syncType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncDuration.WithLabelValues(syncType, status).Observe(d.Seconds())
}

func (m *Metrics) Notification(status string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(status).Inc()
}

func (m *Metrics) Webhook(topic, status string) {
	if m == nil {
		return
	}
	m.WebhookRequests.WithLabelValues(topic, status).Inc()
}

func (m *Metrics) SchedulerRun(result string) {
	if m == nil {
		return
	}
	m.SchedulerRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.RealtimeConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.RealtimeConnections.Dec()
}

func (m *Metrics) RealtimeEvent(eventType string) {
	if m == nil {
		return
	}
	m.RealtimeEvents.WithLabelValues(eventType).Inc()
}
