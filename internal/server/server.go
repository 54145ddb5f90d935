package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/fairshare/internal/engine"
	"github.com/dukerupert/fairshare/internal/handler"
	"github.com/dukerupert/fairshare/internal/middleware"
	"github.com/dukerupert/fairshare/internal/push"
	"github.com/dukerupert/fairshare/internal/store"
	ws "github.com/dukerupert/fairshare/internal/websocket"
)

// Config carries the HTTP-facing settings.
type Config struct {
	APITokenHash   string
	VAPIDPublicKey string
	// JobRateLimit caps manual job triggers per client per minute.
	JobRateLimit int
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	allocationH *handler.AllocationHandler
	assignmentH *handler.AssignmentHandler
	jobH        *handler.JobHandler
	absenceH    *handler.AbsenceHandler
	pushH       *handler.PushHandler
	rateLimiter *middleware.RateLimiter
	gatherer    prometheus.Gatherer
	cfg         Config
	logger      *slog.Logger
}

// New wires handlers around an engine. dispatcher may be nil when push is
// disabled; gatherer may be nil to serve the default registry.
func New(db *sql.DB, eng *engine.Engine, hub *ws.Hub, dispatcher *push.Dispatcher, gatherer prometheus.Gatherer, cfg Config, logger *slog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if cfg.JobRateLimit <= 0 {
		cfg.JobRateLimit = 6
	}

	memberStore := store.NewMemberStore(db)

	return &Server{
		db:          db,
		hub:         hub,
		allocationH: handler.NewAllocationHandler(eng, logger.With("component", "allocation")),
		assignmentH: handler.NewAssignmentHandler(eng, logger.With("component", "assignment")),
		jobH:        handler.NewJobHandler(eng, dispatcher, logger.With("component", "jobs_http")),
		absenceH:    handler.NewAbsenceHandler(store.NewAbsenceStore(db, eng.Location()), memberStore, eng.Location(), logger.With("component", "absence")),
		pushH:       handler.NewPushHandler(store.NewPushStore(db), memberStore, cfg.VAPIDPublicKey, logger.With("component", "push_handler")),
		rateLimiter: middleware.NewRateLimiter(),
		gatherer:    gatherer,
		cfg:         cfg,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// HubNotifier forwards engine events to the websocket hub.
func HubNotifier(hub *ws.Hub) engine.Notifier {
	return engine.NotifierFunc(func(ev engine.Event) {
		entity, action, _ := strings.Cut(ev.Type, "_")
		hub.Broadcast(ws.NewMessage(entity, action, ev.HouseholdID, ev.AssignmentID, map[string]any{
			"task_id":   ev.TaskID,
			"member_id": ev.MemberID,
			"status":    ev.Status,
		}))
	})
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	if s.hub != nil {
		outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
	}

	// Protected routes, wrapped with RequireToken
	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)
	outerMux.Handle("/api/", middleware.RequireToken(s.cfg.APITokenHash)(apiMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(route string, h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, route, keyFunc, s.cfg.JobRateLimit, time.Minute)
	wrapped := rl(h)
	return wrapped.ServeHTTP
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Allocation and scoring
	mux.HandleFunc("POST /api/households/{id}/tasks/{task_id}/allocate", s.allocationH.Allocate)
	mux.HandleFunc("POST /api/households/{id}/allocate-all", s.allocationH.AllocateAll)
	mux.HandleFunc("GET /api/tasks/{id}/scores", s.allocationH.Scores)
	mux.HandleFunc("GET /api/due-date", s.allocationH.DueDate)

	// Assignment lifecycle
	mux.HandleFunc("POST /api/assignments/{id}/start", s.assignmentH.Start)
	mux.HandleFunc("POST /api/assignments/{id}/complete", s.assignmentH.Complete)
	mux.HandleFunc("POST /api/assignments/{id}/verify", s.assignmentH.Verify)
	mux.HandleFunc("POST /api/assignments/{id}/cancel", s.assignmentH.Cancel)

	// Absences
	mux.HandleFunc("POST /api/members/{id}/absences", s.absenceH.Create)
	mux.HandleFunc("GET /api/members/{id}/absences", s.absenceH.List)
	mux.HandleFunc("DELETE /api/absences/{id}", s.absenceH.Delete)

	// Push subscriptions
	mux.HandleFunc("POST /api/members/{id}/push-subscriptions", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/members/{id}/push-subscriptions", s.pushH.List)
	mux.HandleFunc("DELETE /api/push/subscriptions", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)

	// Manual job triggers for external schedulers
	mux.HandleFunc("POST /api/jobs/rotation-sweep", s.rateLimitedHandler("rotation-sweep", s.jobH.RotationSweep))
	mux.HandleFunc("POST /api/jobs/absence-reconciliation", s.rateLimitedHandler("absence-reconciliation", s.jobH.AbsenceReconciliation))
	mux.HandleFunc("POST /api/jobs/reminders", s.rateLimitedHandler("reminders", s.jobH.Reminders))
}
