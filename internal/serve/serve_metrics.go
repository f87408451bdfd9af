package serve

import (
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/stellar/stellar-anchor-backend/internal/monitor"
)

type MetricsServeOptions struct {
	Port        int
	Environment string

	MetricsService *monitor.MetricsService
}

func MetricsServe(opts MetricsServeOptions, httpServer HTTPServerInterface) error {
	if opts.MetricsService == nil {
		return fmt.Errorf("metrics service is required")
	}

	metricsAddr := fmt.Sprintf(":%d", opts.Port)
	metricsServerConfig := supporthttp.Config{
		ListenAddr:   metricsAddr,
		Handler:      handleMetricsHTTP(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  2 * time.Minute,
		OnStarting: func() {
			log.Info("Starting Metrics Server")
			log.Infof("Listening on %s", metricsAddr)
		},
		OnStopping: func() {
			log.Info("Stopping Metrics Server")
		},
	}

	httpServer.Run(metricsServerConfig)
	return nil
}

func handleMetricsHTTP(opts MetricsServeOptions) *chi.Mux {
	mux := chi.NewMux()
	mux.Handle("/metrics", opts.MetricsService.Handler())
	return mux
}
