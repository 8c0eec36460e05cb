package ports

// Metrics collects the figures exported by the service.
type Metrics interface {
	ObserveOperation(operation string, err error)
	SetEscrowedAmount(amount uint64)
	ObservePayout(method string)
	ObserveWebhookDelivery(err error)
}

type noopMetrics struct{}

// NoopMetrics returns a Metrics that discards everything.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) ObserveOperation(string, error) {}
func (noopMetrics) SetEscrowedAmount(uint64)       {}
func (noopMetrics) ObservePayout(string)           {}
func (noopMetrics) ObserveWebhookDelivery(error)   {}
