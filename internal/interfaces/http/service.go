package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/agentcore/escrowd/internal/core/application"
	"github.com/agentcore/escrowd/internal/core/domain"
	interfaces "github.com/agentcore/escrowd/internal/interfaces"
	"github.com/agentcore/escrowd/pkg/amount"
	"github.com/agentcore/escrowd/pkg/sigverify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type ServiceOpts struct {
	Address string

	EscrowSvc application.EscrowService
	PubSubSvc application.PubSubService
	// WsHandler serves the websocket notifications endpoint, if defined.
	WsHandler http.Handler
	// Gatherer is exposed at /metrics, if defined.
	Gatherer prometheus.Gatherer
	Verifier domain.SignatureVerifier

	AmountPrecision int32
}

func (o ServiceOpts) validate() error {
	if o.EscrowSvc == nil {
		return fmt.Errorf("escrow app service must not be null")
	}
	if o.PubSubSvc == nil {
		return fmt.Errorf("pubsub app service must not be null")
	}
	if o.AmountPrecision < 0 || o.AmountPrecision > 18 {
		return amount.ErrInvalidPrecision
	}
	return nil
}

type service struct {
	opts     ServiceOpts
	server   *http.Server
	listener net.Listener
}

func NewService(opts ServiceOpts) (interfaces.Service, error) {
	handler, err := NewHandler(opts)
	if err != nil {
		return nil, err
	}

	return &service{
		opts: opts,
		server: &http.Server{
			Addr:              opts.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// NewHandler returns the router serving the REST api.
func NewHandler(opts ServiceOpts) (http.Handler, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}
	verifier := opts.Verifier
	if verifier == nil {
		verifier = sigverify.NewVerifier()
	}

	escrowHandler := &escrowHandler{opts.EscrowSvc, verifier, opts.AmountPrecision}
	webhookHandler := &webhookHandler{opts.PubSubSvc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(
			opts.Gatherer, promhttp.HandlerOpts{},
		))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/trades", func(r chi.Router) {
			r.Post("/", escrowHandler.lock)
			r.Get("/", escrowHandler.listTrades)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", escrowHandler.getTrade)
				r.Post("/withdraw", escrowHandler.withdraw)
				r.Post("/dispute", escrowHandler.dispute)
				r.Post("/refund", escrowHandler.refund)
			})
		})
		r.Get("/balances/{address}", escrowHandler.getBalance)
		r.Get("/stats", escrowHandler.getStats)

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/", webhookHandler.addWebhook)
			r.Get("/", webhookHandler.listWebhooks)
			r.Delete("/{id}", webhookHandler.removeWebhook)
		})

		if opts.WsHandler != nil {
			r.Handle("/ws", opts.WsHandler)
		}
	})

	return r, nil
}

func (s *service) Start() error {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()

	log.Infof("http server listening on %s", listener.Addr())
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop http server")
	}
	log.Info("http server stopped")
}
