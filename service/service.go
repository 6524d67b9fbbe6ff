package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/SethEden/Hay-CAF/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"

	MetricsHost = "0.0.0.0"
	MetricsPort = "7300"
)

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	HealthzAddr string
	MetricsAddr string
}

func New() *Service {
	s := &Service{
		Healthz:     &HealthzServer{},
		Metrics:     &MetricsServer{},
		HealthzAddr: net.JoinHostPort(HealthzHost, HealthzPort),
		MetricsAddr: net.JoinHostPort(MetricsHost, MetricsPort),
	}
	return s
}

func (s *Service) Start(ctx context.Context) {
	log.Info("service starting")

	go func() {
		log.Info("starting healthz server", "addr", s.HealthzAddr)
		if err := s.Healthz.Start(ctx, s.HealthzAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	if s.MetricsAddr == "" {
		log.Info("metrics server disabled")
		log.Info("service started")
		return
	}

	go func() {
		log.Info("starting metrics server", "addr", s.MetricsAddr)
		if err := s.Metrics.Start(ctx, s.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting metrics server", "err", err)
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()

	log.Info("service started")
}

func (s *Service) Shutdown() {
	log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	log.Info("metrics stopped")

	log.Info("service stopped")
}
