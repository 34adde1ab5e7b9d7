// Package server exposes the ops HTTP surface: keepalive banner, health,
// status and metrics. The hosting platform probes these while the Telegram
// worker long-polls in the background. It injects correlation IDs into request
// contexts for consistent logging.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/allmoviespro/moviefinder/config"
	"github.com/allmoviespro/moviefinder/store"
	"github.com/allmoviespro/moviefinder/telemetry"
)

// Handlers carries the injected state the endpoints read.
type Handlers struct {
	cfg   *config.Config
	store *store.Store
}

func NewHandlers(cfg *config.Config, st *store.Store) *Handlers {
	return &Handlers{cfg: cfg, store: st}
}

// NewMux returns the HTTP handler with all routes.
func NewMux(cfg *config.Config, st *store.Store) http.Handler {
	h := NewHandlers(cfg, st)

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.HandleRoot)
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/status", h.HandleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	// Wrap with correlation ID injector; reuse the header if provided.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandleRoot is the keepalive banner the hosting platform pings.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(h.cfg.Brand + " bot is running\n"))
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleStatus reports uptime, known users and usage counters as JSON.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.store.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"brand":          h.cfg.Brand,
		"uptime_seconds": int64(st.Uptime.Seconds()),
		"known_users":    st.KnownUsers,
		"searches":       st.Searches,
		"trending":       st.Trending,
		"callbacks":      st.Callbacks,
		"broadcasts":     st.Broadcasts,
	}); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("status encode failed", slog.Any("err", err))
	}
}

// Start runs the ops server until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, cfg *config.Config, st *store.Store, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(cfg, st),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown failed", slog.Any("err", err))
		}
	}()
	slog.Info("ops http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
