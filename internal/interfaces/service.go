package interfaces

// Service is a transport exposing the escrow application services.
// Start returns once the listener is bound, while Stop drains in-flight
// requests before returning.
type Service interface {
	Start() error
	Stop()
}
