// Package httpapi exposes the token board over HTTP.
package httpapi

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"token-board/internal/board"
	"token-board/internal/observability"
)

// DefaultMaxBodyBytes caps request bodies. Submissions may carry inline logos.
const DefaultMaxBodyBytes = 50 << 20

// AdminHeader carries the shared admin credential.
const AdminHeader = "X-Admin-Password"

// Options for creating the router.
type Options struct {
	Board *board.Service

	// WebSocket serves GET /ws when set.
	WebSocket http.Handler

	// AdminPassword guards admin routes. Empty locks them entirely.
	AdminPassword string

	// TrustProxy takes the voter IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	// Throttle limits vote bursts per IP. Nil disables it.
	Throttle *ThrottleConfig

	// StaticDir is served at / when set.
	StaticDir string

	MaxBodyBytes int64
	Logger       *log.Logger
}

// Server holds handler dependencies.
type Server struct {
	board         *board.Service
	adminPassword []byte
	trustProxy    bool
	throttle      *Throttle
	maxBodyBytes  int64
	logger        *log.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	s := &Server{
		board:         opts.Board,
		adminPassword: []byte(opts.AdminPassword),
		trustProxy:    opts.TrustProxy,
		maxBodyBytes:  opts.MaxBodyBytes,
		logger:        opts.Logger,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}
	if s.logger == nil {
		s.logger = log.New(os.Stdout, "[http] ", log.LstdFlags|log.Lshortfile)
	}
	if opts.Throttle != nil {
		s.throttle = NewThrottle(*opts.Throttle)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.Handler())
	if opts.WebSocket != nil {
		r.Get("/ws", opts.WebSocket.ServeHTTP)
	}

	r.Route("/api/approved", func(r chi.Router) {
		r.Use(countRequests)
		r.Get("/", s.listTokens)
		r.With(s.requireAdmin).Post("/", s.submitToken)
		r.With(s.requireAdmin).Delete("/{symbol}", s.removeToken)
		r.With(s.throttleVotes).Put("/{symbol}/vote", s.castVote)
		r.With(s.requireAdmin).Put("/{symbol}/votes", s.setVotes)
		r.With(s.requireAdmin).Put("/{symbol}/ranking", s.setRanking)
	})

	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}
	return r
}

// requireAdmin rejects requests without the admin credential.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get(AdminHeader))
		if len(s.adminPassword) == 0 || subtle.ConstantTimeCompare(got, s.adminPassword) != 1 {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// throttleVotes applies the per-IP burst throttle.
func (s *Server) throttleVotes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.throttle.Allow(ClientIP(r, s.trustProxy)) {
			observability.RecordVoteThrottled()
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// countRequests records API requests by route pattern and status class.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = r.Method + " " + p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RecordHTTPRequest(route, status)
	})
}
