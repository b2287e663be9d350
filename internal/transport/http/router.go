package http

import (
	"log/slog"
	"net/http"

	"github.com/corpsite-backoffice/internal/application/authgate"
	"github.com/corpsite-backoffice/internal/application/inquiry"
	"github.com/corpsite-backoffice/internal/application/notice"
	"github.com/corpsite-backoffice/internal/application/profile"
	"github.com/corpsite-backoffice/internal/application/session"
	"github.com/corpsite-backoffice/internal/config"
	jwtinfra "github.com/corpsite-backoffice/internal/infrastructure/jwt"
	"github.com/corpsite-backoffice/internal/realtime"
	"github.com/corpsite-backoffice/internal/transport/http/handler"
	appmiddleware "github.com/corpsite-backoffice/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	InquiryRepo InquiryRepository
	NoticeRepo  NoticeRepository
	ProfileRepo ProfileRepository
	AccountRepo AccountRepository
	SessionRepo SessionRepository
	JWTProvider *jwtinfra.Provider
	// Publisher emits inquiry changes; nil when the store's stream feeds the relay.
	Publisher realtime.Publisher
	Alerters  []inquiry.Alerter
	Hub       handler.ChangeStream
	Logger    *slog.Logger
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RealIP(cfg.TrustedProxies()))
	r.Use(appmiddleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	gate := authgate.NewGate(authgate.GateDeps{
		Verifier:   deps.JWTProvider,
		Sessions:   deps.SessionRepo,
		Profiles:   deps.ProfileRepo,
		CookieName: cfg.Auth.CookieName,
		Logger:     log,
	})
	r.Use(appmiddleware.Identify(gate))

	// 5 requests/second, burst of 10, for sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	inquirySvc := inquiry.NewService(inquiry.ServiceDeps{
		Repo:      deps.InquiryRepo,
		Publisher: deps.Publisher,
		Alerters:  deps.Alerters,
		Logger:    log,
	})
	noticeSvc := notice.NewService(deps.NoticeRepo)
	profileSvc := profile.NewService(deps.ProfileRepo)
	sessionSvc := session.NewService(session.ServiceDeps{
		Accounts:    deps.AccountRepo,
		Sessions:    deps.SessionRepo,
		Profiles:    deps.ProfileRepo,
		Signer:      deps.JWTProvider,
		RefreshTTL:  cfg.Auth.RefreshTokenTTL,
		RegisterKey: cfg.Auth.RegisterKey,
		Logger:      log,
	})

	healthH := handler.NewHealthHandler()
	contactH := handler.NewContactHandler(inquirySvc)
	inquiryH := handler.NewInquiryHandler(inquirySvc)
	noticeH := handler.NewNoticeHandler(noticeSvc)
	profileH := handler.NewProfileHandler(profileSvc)
	authH := handler.NewAuthHandler(sessionSvc, handler.CookieOptions{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", healthH.Health)

	r.Route("/api", func(r chi.Router) {
		// ── Public routes ────────────────────────────────────────────────────
		r.Get("/health", healthH.Health)
		r.With(sensitiveRL.Limit).Post("/contact", contactH.Submit)
		r.Get("/notices", noticeH.List)
		r.Get("/notices/{id}", noticeH.Get)

		r.Route("/admin/auth", func(r chi.Router) {
			r.With(sensitiveRL.Limit).Post("/login", authH.Login)
			r.With(sensitiveRL.Limit).Post("/register", authH.Register)
			r.Post("/refresh", authH.Refresh)
			r.Get("/session", authH.Session)
			r.With(appmiddleware.RequireAuth).Post("/logout", authH.Logout)
		})

		// ── Admin routes ─────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.RequireAdmin)

			r.Post("/notices", noticeH.Create)
			r.Put("/notices/{id}", noticeH.Update)
			r.Delete("/notices/{id}", noticeH.Delete)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/notices", noticeH.AdminList)
				r.Get("/notices/{id}", noticeH.AdminGet)
				r.Patch("/notices/{id}/published", noticeH.SetPublished)

				r.Get("/inquiries", inquiryH.List)
				r.Get("/inquiry-statuses", inquiryH.Statuses)
				if deps.Hub != nil {
					changesH := handler.NewChangesHandler(deps.Hub, gate, cfg.AllowedOrigins())
					r.Get("/inquiries/changes", changesH.Stream)
				}
				r.Get("/inquiries/{id}", inquiryH.Get)
				r.Patch("/inquiries/{id}", inquiryH.UpdateStatus)
				r.Delete("/inquiries/{id}", inquiryH.Delete)

				r.Get("/profiles/{id}", profileH.Get)
				r.With(appmiddleware.RequireSuperAdmin).Patch("/profiles/{id}/role", profileH.SetRole)
			})
		})
	})

	return r
}
