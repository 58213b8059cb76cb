package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ggarber/rtcstats-server/internal/ingest"
	"github.com/ggarber/rtcstats-server/internal/runtime"
	logpkg "github.com/ggarber/rtcstats-server/pkg/log"
)

type Server struct {
	rt  *runtime.Runtime
	ing *ingest.Ingestor
	srv *http.Server
	lis net.Listener
	log logpkg.Logger
}

func New(rt *runtime.Runtime, ing *ingest.Ingestor, logger logpkg.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		rt:  rt,
		ing: ing,
		log: logger.With(logpkg.Component("http")),
		srv: &http.Server{Handler: cors(mux)},
	}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/ingest", s.handleIngest)
	if rt.Config().MetricsAddr == "" {
		mux.Handle("/metrics", rt.Metrics().Handler())
	}
	return s
}

// NewMetrics builds a server exposing only /metrics, for deployments
// that keep the exposition on a separate listener.
func NewMetrics(rt *runtime.Runtime) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.Metrics().Handler())
	return &Server{rt: rt, srv: &http.Server{Handler: mux}}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleIngest consumes one client session: the request body streams
// NDJSON event lines until the client closes its end. Nothing is sent
// back until the stream is over.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info := ingest.ConnInfo{
		Path:       r.URL.Path,
		Origin:     r.Header.Get("Origin"),
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
	}
	sid, err := s.ing.HandleConn(r.Context(), info, r.Body)
	if err != nil {
		s.log.Error("session open failed", logpkg.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	s.log.Debug("session stream ended", logpkg.Str("session", sid))
	w.WriteHeader(http.StatusNoContent)
}
