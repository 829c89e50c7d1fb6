// Package healthcheck exposes a minimal liveness endpoint for long-running
// channel loops.
package healthcheck

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// NormalizeListen trims the listen address and maps a bare port ("8080" or
// ":8080") to a usable listen string. An empty result disables the server.
func NormalizeListen(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

// StartServer serves GET /healthz on addr until the returned server is shut
// down. The component name is echoed in the response body so operators can
// tell loops apart when several run on one host.
func StartServer(ctx context.Context, logger *slog.Logger, addr, component string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok " + component + "\n"))
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("health_server_error", "addr", addr, "error", err.Error())
		}
	}()
	logger.Info("health_server_start", "addr", ln.Addr().String(), "component", component)
	return srv, nil
}
