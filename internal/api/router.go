package api

import (
	"net/http"

	"fileshare/internal/permissions"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/ws", s.ServeWsHandler)
	r.Get("/health", s.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	limiter := newIPRateLimiter(s.config.HTTP.RateLimit, s.config.HTTP.RateBurst)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/register", s.RegisterHandler)
			r.Post("/login", s.LoginHandler)
			r.Get("/confirm/{token}", s.ConfirmEmailHandler)
			r.Post("/resend-verification", s.ResendVerificationHandler)
			r.Post("/forgot-password", s.ForgotPasswordHandler)
			r.Post("/reset-password/{token}", s.ResetPasswordHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.AuthMiddleware)

			r.Get("/me", s.GetCurrentUserHandler)
			r.Put("/me", s.UpdateProfileHandler)
			r.Delete("/me", s.DeleteAccountHandler)
			r.Get("/me/stats", s.GetStatsHandler)
			r.Post("/me/password", s.ChangePasswordHandler)

			r.Get("/files", s.ListFilesHandler)
			r.With(s.RequireCapability(permissions.UploadFiles)).Post("/files", s.UploadFileHandler)
			r.With(s.RequireCapability(permissions.UploadFiles)).Post("/files/batch", s.UploadFilesHandler)
			r.With(s.RequireCapability(permissions.DownloadFiles)).Post("/files/archive", s.DownloadArchiveHandler)
			r.Get("/files/{fileId}", s.GetFileHandler)
			r.Patch("/files/{fileId}", s.UpdateFileHandler)
			r.Delete("/files/{fileId}", s.DeleteFileHandler)
			r.With(s.RequireCapability(permissions.DownloadFiles)).Get("/files/{fileId}/download", s.DownloadFileHandler)
			r.Post("/files/{fileId}/restore", s.RestoreFileHandler)

			r.Get("/files/{fileId}/grants", s.ListGrantsHandler)
			r.With(s.RequireCapability(permissions.ShareFiles)).Post("/files/{fileId}/share", s.ShareFileHandler)
			r.Post("/files/{fileId}/unshare", s.UnshareFileHandler)
			r.Put("/files/{fileId}/grants/{userId}", s.UpdateGrantHandler)
			r.Post("/files/{fileId}/transfer", s.TransferFileHandler)
			r.Get("/shares/outgoing", s.ListOutgoingSharesHandler)

			r.Get("/trash", s.ListTrashHandler)
			r.Delete("/trash/purge", s.PurgeTrashHandler)

			r.Get("/events", s.GetEventsHandler)

			r.Route("/users", func(r chi.Router) {
				r.Use(s.RequireCapability(permissions.ManageUsers))
				r.Get("/", s.ListUsersHandler)
				r.Put("/{userId}/active", s.SetUserActiveHandler)
				r.With(s.RequireCapability(permissions.ManageRoles)).Put("/{userId}/role", s.SetUserRoleHandler)
			})
		})
	})

	return r
}
