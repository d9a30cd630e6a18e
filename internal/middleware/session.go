// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/session"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "session_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// claimsContextKey はリクエストコンテキストにクレームを格納するためのキー。
var claimsContextKey = contextKey("session_claims")

// NewSessionMiddleware はCookieまたはAuthorizationヘッダーからセッショントークンを読み取り、
// デコードしたクレームをリクエストコンテキストに注入するミドルウェアを返す。
// Cookieのトークンが無効な場合はBearerトークンを試す。
// デコードはストアにアクセスしない。有効なトークンが無い場合は401を返す。
func NewSessionMiddleware(decoder session.Decoder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokens := TokensFromRequest(r)
			if len(tokens) == 0 {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			var lastErr error
			for _, token := range tokens {
				claims, err := decoder.Decode(token)
				if err != nil {
					lastErr = err
					continue
				}
				setLoggedUserID(r.Context(), claims.SubjectID)
				next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
				return
			}

			slog.Debug("session token rejected",
				slog.String("path", r.URL.Path),
				slog.Int("candidates", len(tokens)),
				slog.String("error", lastErr.Error()),
			)
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		})
	}
}

// TokensFromRequest はリクエストが持つセッショントークンを、セッションCookie、Bearerトークンの順で返す。
// 古いCookieが残っていてもヘッダーのトークンで認証できるよう、両方を候補にする。
func TokensFromRequest(r *http.Request) []string {
	var tokens []string
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		tokens = append(tokens, cookie.Value)
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// ClaimsFromContext はリクエストコンテキストからクレームを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ClaimsFromContext(ctx context.Context) (session.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(session.Claims)
	if !ok || claims.SubjectID == "" {
		return session.Claims{}, false
	}
	return claims, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("user ID not found in context")
	}
	return claims.SubjectID, nil
}

// ContextWithClaims はコンテキストにクレームを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaims(ctx context.Context, claims session.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ContextWithUserID はユーザーIDのみを持つクレームをコンテキストに注入する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithClaims(ctx, session.Claims{SubjectID: userID})
}
