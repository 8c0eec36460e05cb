package stats

import (
	"errors"

	"github.com/agentcore/escrowd/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "escrowd"

const (
	ResultOk    = "ok"
	ResultError = "error"
	// ResultRejected labels webhook deliveries answered with a non 2xx status.
	ResultRejected = "rejected"
)

// Metrics groups the collectors exported by the daemon. Every instance owns
// its registry so that tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	escrowedAmount    prometheus.Gauge
	payouts           *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	wsClients         prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Number of escrow operations by kind and result.",
		}, []string{"operation", "result"}),
		escrowedAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "escrowed_amount",
			Help:      "Amount currently held in escrow.",
		}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Number of settled payouts by withdrawal method.",
		}, []string{"method"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Number of webhook publications by result.",
		}, []string{"result"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Number of connected websocket clients.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.escrowedAmount,
		m.payouts,
		m.webhookDeliveries,
		m.wsClients,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveOperation(operation string, err error) {
	m.operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

func (m *Metrics) SetEscrowedAmount(amount uint64) {
	m.escrowedAmount.Set(float64(amount))
}

func (m *Metrics) ObservePayout(method string) {
	m.payouts.WithLabelValues(method).Inc()
}

func (m *Metrics) ObserveWebhookDelivery(err error) {
	result := resultLabel(err)
	var deliveryErr *ports.DeliveryError
	if errors.As(err, &deliveryErr) {
		result = ResultRejected
	}
	m.webhookDeliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) SetWsClients(n int) {
	m.wsClients.Set(float64(n))
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOk
}
