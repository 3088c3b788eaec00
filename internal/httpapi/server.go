// Package httpapi exposes the membership manager and the record services
// over HTTP using a chi router.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/roster/internal/membership"
	"github.com/mesh-intelligence/roster/internal/records"
)

// Server wires handlers, middleware and metrics into one http.Handler.
type Server struct {
	manager     *membership.Manager
	members     *records.MemberService
	groups      *records.GroupService
	logger      *zap.Logger
	metrics     *Metrics
	gatherer    prometheus.Gatherer
	corsOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables request metrics and serves gatherer on /metrics.
func WithMetrics(metrics *Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = metrics
		s.gatherer = gatherer
	}
}

// WithCORSOrigins sets the allowed CORS origins. An empty list disables CORS.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// NewServer returns a Server for the given services.
func NewServer(manager *membership.Manager, members *records.MemberService, groups *records.GroupService, opts ...Option) *Server {
	s := &Server{
		manager: manager,
		members: members,
		groups:  groups,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))
	if s.metrics != nil {
		router.Use(s.metrics.middleware)
	}
	if len(s.corsOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", s.health)
	if s.gatherer != nil {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/members", func(r chi.Router) {
		r.Get("/", s.listMembers)
		r.Post("/", s.createMember)
		r.Get("/{memberId}", s.getMember)
		r.Put("/{memberId}", s.updateMember)
		r.Delete("/{memberId}", s.deleteMember)
	})

	router.Route("/groups", func(r chi.Router) {
		r.Get("/", s.listGroups)
		r.Post("/", s.createGroup)
		r.Get("/{groupId}", s.getGroup)
		r.Put("/{groupId}", s.updateGroup)
		r.Delete("/{groupId}", s.deleteGroup)

		r.Route("/{groupId}/members", func(r chi.Router) {
			r.Get("/", s.listGroupMembers)
			r.Put("/", s.replaceGroupMembers)
			r.Post("/{memberId}", s.addMembership)
			r.Get("/{memberId}", s.getMembership)
			r.Delete("/{memberId}", s.removeMembership)
		})
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
