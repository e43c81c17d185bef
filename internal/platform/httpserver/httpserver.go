package httpserver

import (
	"net/http"
	"time"
)

// New builds the engine's HTTP server. Export downloads can take a while on
// large trails, so the write timeout is generous; the header timeout stays
// tight to shed slow-loris clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
