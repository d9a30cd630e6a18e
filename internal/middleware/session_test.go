package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/session"
)

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// newTestCodec は固定時刻のCodecを生成する。
func newTestCodec(t *testing.T, now time.Time) *session.Codec {
	t.Helper()
	codec, err := session.NewCodec(session.CodecConfig{
		SigningKey: "middleware-test-signing-key-0123456789",
		Issuer:     "resumekit",
		Audience:   "resumekit-web",
		Now:        func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	return codec
}

// issueTestToken はテスト用のセッショントークンを発行する。
func issueTestToken(t *testing.T, codec *session.Codec, userID string, role model.Role) string {
	t.Helper()
	token, _, err := session.Issue(codec, model.PublicIdentity{
		ID:   userID,
		Role: role,
		Plan: model.PlanFree,
	}, testNow, session.DefaultTTL)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

// claimsCapturingHandler はコンテキストのクレームを記録するハンドラーを返す。
func claimsCapturingHandler(got *session.Claims, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*got, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionMiddleware_ValidCookie_BindsClaims(t *testing.T) {
	codec := newTestCodec(t, testNow.Add(time.Hour))
	token := issueTestToken(t, codec, "user-123", model.RoleAdmin)

	var got session.Claims
	called := false
	handler := NewSessionMiddleware(codec)(claimsCapturingHandler(&got, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !called {
		t.Fatal("next handler was not called")
	}
	if got.SubjectID != "user-123" {
		t.Errorf("SubjectID = %q, want %q", got.SubjectID, "user-123")
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleAdmin)
	}
	if !got.ExpiresAt.Equal(testNow.Add(session.DefaultTTL)) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, testNow.Add(session.DefaultTTL))
	}
}

func TestSessionMiddleware_BearerHeader_BindsClaims(t *testing.T) {
	codec := newTestCodec(t, testNow)
	token := issueTestToken(t, codec, "user-456", model.RoleUser)

	var got session.Claims
	called := false
	handler := NewSessionMiddleware(codec)(claimsCapturingHandler(&got, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.SubjectID != "user-456" {
		t.Errorf("SubjectID = %q, want %q", got.SubjectID, "user-456")
	}
}

func TestSessionMiddleware_Rejects(t *testing.T) {
	codec := newTestCodec(t, testNow)
	valid := issueTestToken(t, codec, "user-1", model.RoleUser)

	// 31日後の時計では期限切れ
	expiredCodec := newTestCodec(t, testNow.Add(31*24*time.Hour))

	otherCodec, err := session.NewCodec(session.CodecConfig{
		SigningKey: "a-different-signing-key-9876543210",
		Issuer:     "resumekit",
		Audience:   "resumekit-web",
		Now:        func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	forged := issueTestToken(t, otherCodec, "user-1", model.RoleAdmin)

	tests := []struct {
		name    string
		decoder session.Decoder
		setup   func(r *http.Request)
	}{
		{"no token", codec, func(r *http.Request) {}},
		{"empty cookie", codec, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: ""})
		}},
		{"garbage token", codec, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "not-a-jwt"})
		}},
		{"non bearer scheme", codec, func(r *http.Request) {
			r.Header.Set("Authorization", "Basic "+valid)
		}},
		{"expired token", expiredCodec, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: valid})
		}},
		{"foreign signature", codec, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: forged})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewSessionMiddleware(tt.decoder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/resumes", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if called {
				t.Error("next handler should not be called")
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != model.ErrCodeUnauthorized {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
			}
		})
	}
}

func TestTokensFromRequest_CookieBeforeHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")

	got := TokensFromRequest(req)
	if len(got) != 2 || got[0] != "cookie-token" || got[1] != "header-token" {
		t.Errorf("TokensFromRequest() = %v, want [cookie-token header-token]", got)
	}
}

func TestTokensFromRequest_IgnoresOtherSchemes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	if got := TokensFromRequest(req); len(got) != 0 {
		t.Errorf("TokensFromRequest() = %v, want empty", got)
	}
}

func TestSessionMiddleware_ValidCookieWinsOverHeader(t *testing.T) {
	codec := newTestCodec(t, testNow)
	cookieToken := issueTestToken(t, codec, "cookie-user", model.RoleUser)
	headerToken := issueTestToken(t, codec, "header-user", model.RoleUser)

	var got session.Claims
	called := false
	handler := NewSessionMiddleware(codec)(claimsCapturingHandler(&got, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/resumes", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookieToken})
	req.Header.Set("Authorization", "Bearer "+headerToken)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("handler should have been called")
	}
	if got.SubjectID != "cookie-user" {
		t.Errorf("SubjectID = %q, want %q", got.SubjectID, "cookie-user")
	}
}

func TestSessionMiddleware_StaleCookie_FallsBackToBearer(t *testing.T) {
	codec := newTestCodec(t, testNow)
	headerToken := issueTestToken(t, codec, "header-user", model.RoleUser)

	// testNowで発行したCookieトークンは31日後のCodecでは期限切れになる
	expired := issueTestToken(t, codec, "cookie-user", model.RoleUser)
	later := newTestCodec(t, testNow.Add(31*24*time.Hour))
	laterHeader, _, err := session.Issue(later, model.PublicIdentity{ID: "header-user", Role: model.RoleUser, Plan: model.PlanFree}, testNow.Add(31*24*time.Hour), session.DefaultTTL)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	tests := []struct {
		name   string
		codec  *session.Codec
		cookie string
		bearer string
	}{
		{"garbage cookie", codec, "not-a-jwt", headerToken},
		{"expired cookie", later, expired, laterHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got session.Claims
			called := false
			handler := NewSessionMiddleware(tt.codec)(claimsCapturingHandler(&got, &called))

			req := httptest.NewRequest(http.MethodGet, "/api/resumes", nil)
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			req.Header.Set("Authorization", "Bearer "+tt.bearer)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if !called {
				t.Fatalf("handler not called, status = %d", w.Code)
			}
			if got.SubjectID != "header-user" {
				t.Errorf("SubjectID = %q, want %q", got.SubjectID, "header-user")
			}
		})
	}
}

func TestSessionMiddleware_BothInvalid_Returns401(t *testing.T) {
	codec := newTestCodec(t, testNow)
	called := false
	var got session.Claims
	handler := NewSessionMiddleware(codec)(claimsCapturingHandler(&got, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/resumes", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage-1"})
	req.Header.Set("Authorization", "Bearer garbage-2")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should not be called")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestClaimsFromContext_Empty(t *testing.T) {
	if _, ok := ClaimsFromContext(context.Background()); ok {
		t.Error("ClaimsFromContext() ok = true, want false")
	}
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("UserIDFromContext() error = nil, want error")
	}
}

func TestContextWithUserID(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-789")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-789" {
		t.Errorf("userID = %q, want %q", userID, "user-789")
	}
}
