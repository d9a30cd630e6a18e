package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	// csrfCookieName はCSRFトークンを保持するCookieの名前。
	// フロントエンドがJavaScriptで読み取ってヘッダーに載せるため、HttpOnlyにしない。
	csrfCookieName = "csrf_token"

	// csrfHeaderName はダブルサブミット用のリクエストヘッダー名。
	csrfHeaderName = "X-CSRF-Token"

	csrfTokenBytes = 32

	defaultCSRFCookieMaxAge = 24 * time.Hour
)

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
	// CookieMaxAge はトークンCookieの有効期間。0の場合は24時間。
	CookieMaxAge time.Duration
}

func (c CSRFConfig) maxAge() time.Duration {
	if c.CookieMaxAge <= 0 {
		return defaultCSRFCookieMaxAge
	}
	return c.CookieMaxAge
}

// csrfFailure はCSRF検証に失敗した理由。ログにのみ出力する。
type csrfFailure string

const (
	csrfMissingCookie csrfFailure = "missing cookie token"
	csrfMissingHeader csrfFailure = "missing header token"
	csrfMismatch      csrfFailure = "token mismatch"
)

// NewCSRFMiddleware はダブルサブミットCookie方式のCSRF対策ミドルウェアを返す。
// GET・HEAD・OPTIONSは検証せず、トークンCookieが無ければ発行する。
// それ以外のメソッドはCookieとX-CSRF-Tokenヘッダーの一致を要求し、不一致は403を返す。
// セッションCookieを持たずBearerトークンのみで認証するクライアントは検証対象外とする。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case isSafeMethod(r.Method):
				if _, err := issueCSRFToken(w, r, config); err != nil {
					// 発行に失敗しても読み取り系のリクエストは通す
					slog.Error("failed to issue CSRF token", slog.String("error", err.Error()))
				}
			case bearerOnly(r):
			default:
				if reason := verifyCSRFToken(r); reason != "" {
					slog.Warn("CSRF validation failed",
						slog.String("reason", string(reason)),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)
					WriteErrorResponse(w, http.StatusForbidden, newCSRFError())
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler はGET /api/csrf-tokenのハンドラーを返す。
// 既存のトークンCookieがあればその値を、なければ新規発行した値を{"token": ...}で返す。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := issueCSRFToken(w, r, config)
		if err != nil {
			slog.Error("failed to issue CSRF token", slog.String("error", err.Error()))
			WriteInternalServerError(w)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Token string `json:"token"`
		}{Token: token})
	})
}

// issueCSRFToken はリクエストのトークンCookieを返す。
// 未設定の場合は新しいトークンを生成してCookieに設定する。
func issueCSRFToken(w http.ResponseWriter, r *http.Request, config CSRFConfig) (string, error) {
	if c, err := r.Cookie(csrfCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	token := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   int(config.maxAge().Seconds()),
		HttpOnly: false,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// verifyCSRFToken はCookieとヘッダーのトークンを比較し、失敗理由を返す。成功時は空文字。
func verifyCSRFToken(r *http.Request) csrfFailure {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return csrfMissingCookie
	}
	header := r.Header.Get(csrfHeaderName)
	if header == "" {
		return csrfMissingHeader
	}
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
		return csrfMismatch
	}
	return ""
}

// isSafeMethod はHTTPメソッドが読み取り専用かどうかを判定する。
func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// bearerOnly はセッションCookieが無くAuthorizationヘッダーのみを持つリクエストかどうかを判定する。
// ブラウザが自動送信する資格情報を持たないため、CSRFの対象にならない。
func bearerOnly(r *http.Request) bool {
	if _, err := r.Cookie(SessionCookieName); err == nil {
		return false
	}
	return r.Header.Get("Authorization") != ""
}
