package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/resumekit/internal/auth"
	"github.com/hitoshi/resumekit/internal/middleware"
	"github.com/hitoshi/resumekit/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignInWithPassword(ctx context.Context, email, password string) (*auth.SignInResult, error)
	Register(ctx context.Context, input auth.RegisterInput) (*auth.SignInResult, error)
	OAuthEnabled() bool
	GetLoginURL(state string) (string, error)
	HandleCallback(ctx context.Context, code, state, expectedState string) (*auth.SignInResult, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge time.Duration // セッションCookieの有効期間
}

// AuthHandler はサインイン・登録・OAuthフローのHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	config    AuthHandlerConfig
	validator *requestValidator
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:   service,
		config:    config,
		validator: newRequestValidator(),
	}
}

// signInRequest はパスワードサインインのリクエストボディ。
// 入力の有無はサービス層で判定するため、ここでは検証タグを付けない。
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerRequest はアカウント登録のリクエストボディ。
type registerRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// sessionResponse はサインイン成功時のレスポンス。
type sessionResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expiresAt"`
	User      model.PublicIdentity `json:"user"`
}

// Login はメールアドレスとパスワードでサインインする。
// POST /auth/login
// 失敗の種別（未登録、パスワード不一致など）はレスポンスで区別しない。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidSignInError())
		return
	}

	h.setSessionCookie(w, result)
	writeJSON(w, http.StatusOK, toSessionResponse(result))
}

// Register はパスワード認証のアカウントを作成し、そのままサインインする。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := h.validator.Struct(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.service.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			writeAPIErrorResponse(w, http.StatusConflict, model.NewEmailTakenError())
		case errors.Is(err, auth.ErrMissingCredentials),
			errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrPasswordTooShort):
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError([]string{err.Error()}))
		default:
			handleServiceError(w, err)
		}
		return
	}

	h.setSessionCookie(w, result)
	writeJSON(w, http.StatusCreated, toSessionResponse(result))
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.service.OAuthEnabled() {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewOAuthUnavailableError())
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	loginURL, err := h.service.GetLoginURL(state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
// サインインが拒否された場合はフロントエンドのログイン画面にerrorパラメータ付きでリダイレクトする。
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.service.OAuthEnabled() {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewOAuthUnavailableError())
		return
	}

	var expectedState string
	if c, err := r.Cookie(oauthStateCookie); err == nil {
		expectedState = c.Value
	}

	// stateクッキーは1回限り
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		slog.Warn("oauth provider returned error", slog.String("error", errParam))
		h.redirectToLogin(w, r, "AccessDenied")
		return
	}

	result, err := h.service.HandleCallback(r.Context(), query.Get("code"), query.Get("state"), expectedState)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidState) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidStateError())
			return
		}
		h.redirectToLogin(w, r, "AccessDenied")
		return
	}

	h.setSessionCookie(w, result)
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout はセッションCookieを削除する。
// POST /auth/logout
// トークン自体は失効させない。有効期限まで有効なまま残る。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie はセッショントークンをHTTP Only Cookieに設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, result *auth.SignInResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.config.SessionMaxAge.Seconds()),
		Expires:  result.Claims.ExpiresAt,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectToLogin はフロントエンドのログイン画面へリダイレクトする。
func (h *AuthHandler) redirectToLogin(w http.ResponseWriter, r *http.Request, reason string) {
	target := h.config.BaseURL + "/auth/login?" + url.Values{"error": {reason}}.Encode()
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func toSessionResponse(result *auth.SignInResult) sessionResponse {
	return sessionResponse{
		Token:     result.Token,
		ExpiresAt: result.Claims.ExpiresAt,
		User:      result.Identity,
	}
}

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	mountAuthRoutes(r, NewAuthHandler(service, config), limiter)
	return r
}

// mountAuthRoutes は/auth配下のルートを登録する。サインインと登録はIP単位のレート制限を受ける。
func mountAuthRoutes(r chi.Router, h *AuthHandler, limiter *middleware.RateLimiter) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.SignInMiddleware())
			}
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
		})

		r.Get("/google/login", h.GoogleLogin)
		r.Get("/google/callback", h.GoogleCallback)
		r.Post("/logout", h.Logout)
	})
}
