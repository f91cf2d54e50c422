// ABOUTME: Gateway runs the HTTP server in front of the conversation service
// ABOUTME: Owns the store, event broadcaster and inbound router for a long-lived process

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/JuzerShakir/railsdevs.com/internal/config"
	"github.com/JuzerShakir/railsdevs.com/internal/conversation"
	"github.com/JuzerShakir/railsdevs.com/internal/inbound"
	"github.com/JuzerShakir/railsdevs.com/internal/store"
)

// Gateway orchestrates the railsdevs-conversations server components.
type Gateway struct {
	config      *config.Config
	store       *store.SQLiteStore
	service     *conversation.Service
	broadcaster *conversation.EventBroadcaster
	seen        *inbound.SeenTracker
	inbound     *inbound.Router
	httpServer  *http.Server
	logger      *slog.Logger
}

// New opens the store and wires the service, broadcaster and inbound router.
// The inbound webhook is only served when inbound.domain is configured.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	broadcaster := conversation.NewEventBroadcaster(logger)
	service := conversation.New(
		conversation.DepsFromStore(sqlStore),
		conversation.Settings{HiringFeeWindow: cfg.HiringFee.GracePeriod},
		broadcaster,
		logger,
	)

	gw := &Gateway{
		config:      cfg,
		store:       sqlStore,
		service:     service,
		broadcaster: broadcaster,
		logger:      logger.With("component", "gateway"),
	}

	if cfg.Inbound.Domain != "" {
		gw.seen = inbound.NewSeenTracker(cfg.Inbound.DedupeTTL, cfg.Inbound.DedupeSize)
		gw.inbound = inbound.NewRouter(cfg.Inbound.Domain, service, sqlStore, gw.seen, logger)
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Handler returns the HTTP routes served by the gateway.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", g.handleHealth)

	mux.HandleFunc("POST /api/conversations", g.handleStart)
	mux.HandleFunc("GET /api/conversations/{id}", g.handleShow)
	mux.HandleFunc("DELETE /api/conversations/{id}", g.handleDelete)
	mux.HandleFunc("POST /api/conversations/{id}/messages", g.handleSendMessage)
	mux.HandleFunc("POST /api/conversations/{id}/read", g.handleMarkRead)
	mux.HandleFunc("POST /api/conversations/{id}/{action}", g.handleToggle)

	mux.HandleFunc("GET /api/users/{id}/inbox", g.handleInbox)
	mux.HandleFunc("GET /api/users/{id}/events", g.handleEvents)

	if g.inbound != nil {
		mux.HandleFunc("POST /inbound", g.handleInbound)
	}

	return withOrigin(mux)
}

// SubscriptionHeader names the event stream a request is made from. Events
// caused by the request are not sent back to that stream.
const SubscriptionHeader = "X-Subscription-ID"

func withOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(SubscriptionHeader); id != "" {
			r = r.WithContext(conversation.WithOrigin(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Run listens on server.http_addr and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return g.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until the context is canceled.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	// The original context is already canceled here
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := g.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases resources. Event streams are
// closed first so that their handlers return and the server can drain.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	g.broadcaster.Close()

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.seen != nil {
		g.seen.Close()
	}
	errs = appendCloseError(errs, "store close", g.store.Close())

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
