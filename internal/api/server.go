// Package api serves the JSON HTTP interface over the units core and the
// registry/settings store.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"svcwatch/internal/storage"
	"svcwatch/internal/units"
	logx "svcwatch/pkg/logx"
)

type Config struct {
	Addr             string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CORSOrigins      []string
	ActionRatePerSec float64
}

// Deps are the collaborators the handlers call. Health is optional; its
// entries are added to the /healthz body.
type Deps struct {
	Status    *units.Normalizer
	Resources *units.Correlator
	Actions   *units.Executor
	Catalog   *units.Catalog
	Store     storage.Store
	Health    func() map[string]any
}

type Server struct {
	cfg     Config
	deps    Deps
	log     logx.Logger
	limiter *rate.Limiter
	handler http.Handler
}

func NewServer(cfg Config, deps Deps, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	s := &Server{cfg: cfg, deps: deps, log: log.With(logx.String("comp", "http"))}
	if cfg.ActionRatePerSec > 0 {
		burst := int(cfg.ActionRatePerSec)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.ActionRatePerSec), burst)
	}
	s.handler = s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on cfg.Addr and serves until ctx is done, then shuts down
// gracefully within 5 seconds.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	s.log.Info("http listening", logx.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		s.log.Warn("http shutdown", logx.Err(err))
		return err
	}
	s.log.Info("http stopped")
	return nil
}

func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/services", s.handleOverview).Methods(http.MethodGet)
	a.HandleFunc("/units", s.handleUnits).Methods(http.MethodGet)
	a.HandleFunc("/service/action", s.handleActionBody).Methods(http.MethodPost)
	a.HandleFunc("/service/{name}", s.handleStatus).Methods(http.MethodGet)
	a.HandleFunc("/service/{name}/resources", s.handleResources).Methods(http.MethodGet)
	a.HandleFunc("/service/{name}/logs", s.handleLogs).Methods(http.MethodGet)
	a.HandleFunc("/service/{name}/{action}", s.handleActionPath).Methods(http.MethodPost)

	a.HandleFunc("/monitored", s.handleListMonitored).Methods(http.MethodGet)
	a.HandleFunc("/monitored", s.handleAddMonitored).Methods(http.MethodPost)
	a.HandleFunc("/monitored/{id:[0-9]+}", s.handleGetMonitored).Methods(http.MethodGet)
	a.HandleFunc("/monitored/{id:[0-9]+}", s.handleRemoveMonitored).Methods(http.MethodDelete)

	a.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	a.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return requestID(s.recovery(s.logging(cors(s.cfg.CORSOrigins, r))))
}
