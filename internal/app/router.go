package app

import (
	"net/http"

	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/aliuyar1234/tasktally/internal/audit"
	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/config"
	"github.com/aliuyar1234/tasktally/internal/invitations"
	"github.com/aliuyar1234/tasktally/internal/invoices"
	"github.com/aliuyar1234/tasktally/internal/notifications"
	"github.com/aliuyar1234/tasktally/internal/orgs"
	"github.com/aliuyar1234/tasktally/internal/projects"
	"github.com/aliuyar1234/tasktally/internal/tasks"
	"github.com/aliuyar1234/tasktally/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(pool *pgxpool.Pool, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	isProduction := !cfg.IsDev()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(apperrors.RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(middleware.RequestSize(cfg.MaxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", auth.CSRFHeaderName},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.AuthMiddleware(cfg.JWTSecret))

	auditor := audit.NewWriter(pool)
	userService := users.NewService(pool)
	taskService := tasks.NewService(pool, tasks.Settings{
		DefaultCurrency:  cfg.DefaultCurrency,
		DueSoonThreshold: cfg.DueSoonThreshold,
	})
	taskHandlers := tasks.NewHandlers(taskService, auditor)
	invoiceService := invoices.NewService(taskService, projects.NewService(pool))

	// Health check routes (no authentication required)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(pool))

	publicLimit := RateLimitMiddleware(cfg.LoginRateLimitRPM, "Too many attempts. Try again later.")

	// Public API routes
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(NoCacheMiddleware)

		r.Get("/csrf", auth.HandleCSRF(isProduction))

		r.Group(func(r chi.Router) {
			r.Use(CSRFMiddleware)
			r.With(publicLimit).Post("/signup", users.HandleSignup(pool, auditor, cfg.JWTSecret, cfg.SessionDays, isProduction))
			r.With(publicLimit).Post("/login", auth.HandleLogin(pool, auditor, cfg.JWTSecret, cfg.SessionDays, isProduction))
			r.Post("/logout", auth.HandleLogout(isProduction))
		})

		r.With(auth.RequireActor(userService.GetByID)).Get("/me", auth.HandleMe)
	})

	r.With(ContentTypeJSON, publicLimit).Get("/api/v1/invitations/validate/{token}", invitations.HandleValidate(pool))

	// Authenticated API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(NoCacheMiddleware)
		r.Use(CSRFMiddleware)
		r.Use(auth.RequireActor(userService.GetByID))
		r.Use(UserRateLimitMiddleware(cfg.RateLimitRPM))

		r.Put("/me/organization", users.HandleSwitchOrganization(pool))

		r.Get("/notifications", notifications.HandleList(pool))
		r.Post("/notifications/read-all", notifications.HandleMarkAllRead(pool))
		r.Post("/notifications/{notification_id}/read", notifications.HandleMarkRead(pool))

		r.Post("/orgs", orgs.HandleCreate(pool, auditor))
		r.Get("/orgs", orgs.HandleList(pool))

		r.Route("/orgs/{org_id}", func(r chi.Router) {
			r.Patch("/", orgs.HandleRename(pool, auditor))
			r.Get("/members", orgs.HandleListMembers(pool))
			r.Get("/audit", orgs.HandleListAudit(pool))

			// Membership administration
			r.Get("/users/pending", users.HandleListPending(pool))
			r.Post("/users/{user_id}/approve", users.HandleApprove(pool, auditor))
			r.Patch("/users/{user_id}", users.HandleUpdate(pool, auditor))
			r.Delete("/users/{user_id}", users.HandleDelete(pool, auditor))

			// Invitation links
			r.Post("/invitations", invitations.HandleCreate(pool, auditor))
			r.Get("/invitations", invitations.HandleList(pool))
			r.Delete("/invitations/{invitation_id}", invitations.HandleRevoke(pool, auditor))

			// Projects
			r.Post("/projects", projects.HandleCreate(pool, auditor))
			r.Get("/projects", projects.HandleList(pool))
			r.Get("/projects/{project_id}", projects.HandleGet(pool))
			r.Patch("/projects/{project_id}", projects.HandleUpdate(pool, auditor))
			r.Delete("/projects/{project_id}", projects.HandleDelete(pool, auditor))

			// Tasks
			r.Post("/tasks", taskHandlers.Create)
			r.Get("/tasks", taskHandlers.List)
			r.Get("/tasks/{task_id}", taskHandlers.Get)
			r.Patch("/tasks/{task_id}", taskHandlers.Update)
			r.Delete("/tasks/{task_id}", taskHandlers.Delete)
			r.Get("/tasks/{task_id}/history", taskHandlers.History)
			r.Post("/tasks/{task_id}/comments", taskHandlers.Comment)

			// Invoices
			r.Post("/invoices/report", invoices.HandleReport(invoiceService))
		})
	})

	return r
}

// handleHealthz returns a simple liveness check
// Always returns 200 OK if the service is running
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz returns a readiness check that includes database connectivity
// Returns 200 OK if service is ready to accept traffic, 503 if not
func handleReadyz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
