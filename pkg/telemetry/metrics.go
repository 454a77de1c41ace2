// Package telemetry exports raid counters to Prometheus.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lisanmuaddib/raider-go/pkg/chat"
)

type MetricsProviderInterface interface {
	RaidStarted()
	RaidFinished(status string)
	DashboardFailed()
	ActiveRaids(n int)
	ObserveGatewayCall(method string, duration time.Duration, err error)
}

type MetricsProvider struct {
	raidsStarted    prometheus.Counter
	raidsFinished   *prometheus.CounterVec
	dashboardFailed prometheus.Counter
	activeRaids     prometheus.Gauge
	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
}

func (m *MetricsProvider) RaidStarted() {
	m.raidsStarted.Inc()
}

func (m *MetricsProvider) RaidFinished(status string) {
	m.raidsFinished.WithLabelValues(status).Inc()
}

func (m *MetricsProvider) DashboardFailed() {
	m.dashboardFailed.Inc()
}

func (m *MetricsProvider) ActiveRaids(n int) {
	m.activeRaids.Set(float64(n))
}

func (m *MetricsProvider) ObserveGatewayCall(method string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayCalls.WithLabelValues(method, outcome).Inc()
	m.gatewayDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// NewMetricsProvider registers the raid metrics with reg, or returns a no-op
// provider when metrics are disabled.
func NewMetricsProvider(enabled bool, reg prometheus.Registerer) MetricsProviderInterface {
	if !enabled {
		return &noopMetrics{}
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &MetricsProvider{
		raidsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "raider_raids_started_total",
			Help: "Total number of raids that reached the active state",
		}),

		raidsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raider_raids_finished_total",
			Help: "Total number of raids that ended, by outcome",
		}, []string{"status"}),

		dashboardFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "raider_dashboard_failures_total",
			Help: "Total number of dashboard messages that could not be posted",
		}),

		activeRaids: factory.NewGauge(prometheus.GaugeOpts{
			Name: "raider_active_raids",
			Help: "Current number of registered raids",
		}),

		gatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raider_gateway_calls_total",
			Help: "Total number of chat gateway calls, by method and outcome",
		}, []string{"method", "outcome"}),

		gatewayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "raider_gateway_call_duration_seconds",
			Help:    "Chat gateway call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) RaidStarted()                                          {}
func (n *noopMetrics) RaidFinished(_ string)                                 {}
func (n *noopMetrics) DashboardFailed()                                      {}
func (n *noopMetrics) ActiveRaids(_ int)                                     {}
func (n *noopMetrics) ObserveGatewayCall(_ string, _ time.Duration, _ error) {}

// InstrumentGateway times every call made through gw.
func InstrumentGateway(gw chat.Gateway, metrics MetricsProviderInterface) chat.Gateway {
	if _, ok := metrics.(*noopMetrics); ok {
		return gw
	}
	return &instrumentedGateway{next: gw, metrics: metrics}
}

type instrumentedGateway struct {
	next    chat.Gateway
	metrics MetricsProviderInterface
}

func (g *instrumentedGateway) Send(ctx context.Context, chatID int64, msg chat.Message) (chat.MessageRef, error) {
	start := time.Now()
	ref, err := g.next.Send(ctx, chatID, msg)
	g.metrics.ObserveGatewayCall("send", time.Since(start), err)
	return ref, err
}

func (g *instrumentedGateway) Edit(ctx context.Context, chatID int64, ref chat.MessageRef, msg chat.Message) error {
	start := time.Now()
	err := g.next.Edit(ctx, chatID, ref, msg)
	g.metrics.ObserveGatewayCall("edit", time.Since(start), err)
	return err
}

func (g *instrumentedGateway) Delete(ctx context.Context, chatID int64, ref chat.MessageRef) error {
	start := time.Now()
	err := g.next.Delete(ctx, chatID, ref)
	g.metrics.ObserveGatewayCall("delete", time.Since(start), err)
	return err
}

func (g *instrumentedGateway) AnswerInteraction(ctx context.Context, interactionID, text string, alert bool) error {
	start := time.Now()
	err := g.next.AnswerInteraction(ctx, interactionID, text, alert)
	g.metrics.ObserveGatewayCall("answer", time.Since(start), err)
	return err
}
