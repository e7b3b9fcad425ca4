package bill

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/billscan/internal/metrics"
)

// maxUploadSize caps multipart uploads; phone photos of long bills get large
const maxUploadSize = int64(50 << 20)

// Server handles HTTP requests for bills
type Server struct {
	service   *Service
	basicAuth BasicAuth
	mux       *http.ServeMux
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) enabled() bool {
	return a.Username != "" || a.Password != ""
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth, m *metrics.Metrics, logger *slog.Logger) *Server {
	return NewServerWithMux(service, basicAuth, m, logger, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, m *metrics.Metrics, logger *slog.Logger, mux *http.ServeMux) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		mux:       mux,
		metrics:   m,
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.handle("POST /upload", s.requireAuth(s.handleUpload))

	s.handle("GET /api/bills/{id}/file", s.requireAuth(s.handleGetBillFile))
	s.handle("GET /api/bills/{id}/text", s.requireAuth(s.handleGetBillText))
	s.handle("GET /api/bills/{id}", s.requireAuth(s.handleGetBill))
	s.handle("DELETE /api/bills/{id}", s.requireAuth(s.handleDeleteBill))
	s.handle("GET /api/bills", s.requireAuth(s.handleListBills))
	s.handle("POST /api/bills", s.requireAuth(s.handleUpload))

	s.handle("GET /metrics", s.requireAuth(s.metrics.Handler().ServeHTTP))
	s.handle("GET /healthz", s.handleHealth)
}

// handle registers h and counts its responses under the route pattern
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.RequestServed(pattern, rec.status)
	})
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if !s.basicAuth.enabled() {
		return true
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="billscan"`)
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// corsMiddleware adds CORS headers to every response and answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corsMiddleware(s.mux).ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
