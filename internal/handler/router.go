package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/resumekit/internal/metrics"
	"github.com/hitoshi/resumekit/internal/middleware"
	"github.com/hitoshi/resumekit/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionDecoder    session.Decoder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	MetricsGatherer   prometheus.Gatherer
	HealthChecker     HealthChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロフィール
	UserService UserServiceInterface

	// レジュメ
	ResumeService ResumeServiceInterface

	// テンプレート
	TemplateService TemplateServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → CORS → Logging → CSRF → (Session → RateLimit(General))
//
// /health、/metrics、/api/csrf-token、/auth/* はセッション不要。
// X-Forwarded-ForやX-Real-IPはクライアントが自由に書けるため、RemoteAddrを書き換えない。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{HSTS: deps.CSRFConfig.CookieSecure}))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// --- 認証不要のルート ---
		mountAuthRoutes(r, NewAuthHandler(deps.AuthService, deps.AuthConfig), deps.RateLimiter)

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Session → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionDecoder))
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.GeneralMiddleware())
			}

			userHandler := NewUserHandler(deps.UserService)
			r.Get("/api/me", userHandler.Me)
			r.Patch("/api/me", userHandler.UpdateMe)

			mountResumeRoutes(r, NewResumeHandler(deps.ResumeService))

			templateHandler := NewTemplateHandler(deps.TemplateService)
			r.Get("/api/templates", templateHandler.ListTemplates)
			r.Get("/api/templates/{id}", templateHandler.GetTemplate)
		})
	})

	return r
}
