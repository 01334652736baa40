package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rzbill/catalog/internal/runtime"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

// Server serves catalog documents and cursors from a runtime.
type Server struct {
	rt       *runtime.Runtime
	srv      *http.Server
	lis      net.Listener
	logger   logpkg.Logger
	basePath string
}

// New builds the router. The document routes are mounted at the path of
// the runtime's base address.
func New(rt *runtime.Runtime, logger logpkg.Logger) (*Server, error) {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	u, err := url.Parse(rt.Config().BaseAddress)
	if err != nil {
		return nil, fmt.Errorf("httpserver: base address: %w", err)
	}
	basePath := u.Path
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	s := &Server{rt: rt, logger: logger.WithComponent("http"), basePath: basePath}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors)

	r.Get("/v1/health", s.handleHealth)
	r.Get("/v1/catalog", s.handleCatalogInfo)
	r.Route("/v1/cursors", func(r chi.Router) {
		r.Get("/", s.handleListCursors)
		r.Get("/{name}", s.handleGetCursor)
		r.Put("/{name}", s.handlePutCursor)
	})
	r.Get(basePath+"*", s.handleDocument)

	s.srv = &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("listening", logpkg.Str("addr", l.Addr().String()), logpkg.Str("catalog_path", s.basePath))
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
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
