package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flight-scraper/config"
)

// New builds the HTTP server with all application routes plus the
// prometheus endpoint.
func New(cfg *config.Config, handlers *Handlers) *http.Server {
	mux := http.NewServeMux()
	handlers.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
