// Package http implements the HTTP server of a node. It exposes the state of
// the ledger read-only and the metrics of the process.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/jellybean"
	"golang.org/x/xerrors"
)

type key int

const (
	requestIDKey key = 0
)

const shutdownTimeout = 10 * time.Second

// HTTP is a server listening on a TCP address.
type HTTP struct {
	sync.Mutex

	mux        *http.ServeMux
	server     *http.Server
	logger     zerolog.Logger
	listenAddr string
	ln         net.Listener
	done       chan struct{}
}

// NewHTTP creates a new server for the address. An empty address or port
// zero picks a free port.
func NewHTTP(listenAddr string) *HTTP {
	logger := jellybean.Logger.With().Timestamp().Str("role", "http server").Logger()

	nextRequestID := func() string {
		return xid.New().String()
	}

	mux := http.NewServeMux()

	return &HTTP{
		mux: mux,
		server: &http.Server{
			Handler:           tracing(nextRequestID)(logging(logger)(mux)),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:     logger,
		listenAddr: listenAddr,
	}
}

// Listen opens the socket and serves the requests in the background. It
// returns an error if the socket cannot be opened.
func (h *HTTP) Listen() error {
	h.Lock()
	defer h.Unlock()

	if h.ln != nil {
		return xerrors.New("server already listening")
	}

	ln, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		return xerrors.Errorf("failed to create conn '%s': %v", h.listenAddr, err)
	}

	h.ln = ln
	h.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)

		err := h.server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			h.logger.Err(err).Msg("server failed")
		}
	}(h.done)

	h.logger.Info().Msgf("server is ready to handle requests at http://%s", ln.Addr())

	return nil
}

// GetAddr returns the address of the socket, or nil when the server is not
// listening.
func (h *HTTP) GetAddr() net.Addr {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// Stop gracefully shuts the server down and waits for the requests in
// progress. A stopped server cannot listen again.
func (h *HTTP) Stop() error {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	h.server.SetKeepAlivesEnabled(false)

	err := h.server.Shutdown(ctx)
	if err != nil {
		return xerrors.Errorf("failed to shutdown: %v", err)
	}

	<-h.done
	h.ln = nil

	h.logger.Info().Msg("server stopped")

	return nil
}

// RegisterHandler registers the handler for the pattern of the mux, which can
// be prefixed by the method, like "GET /path/{name}".
func (h *HTTP) RegisterHandler(pattern string, handler http.HandlerFunc) {
	h.mux.HandleFunc(pattern, handler)
}

// logging logs every request once served.
func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			defer func() {
				requestID, ok := r.Context().Value(requestIDKey).(string)
				if !ok {
					requestID = "unknown"
				}

				logger.Info().Str("requestID", requestID).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).
					Dur("duration", time.Since(start)).
					Msg("")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// tracing sets the request identifier, either the one of the client or a new
// one.
func tracing(nextRequestID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = nextRequestID()
			}

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set("X-Request-Id", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
