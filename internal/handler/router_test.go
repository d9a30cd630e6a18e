package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/resumekit/internal/middleware"
	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/session"
)

var routerTestNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newRouterTestCodec(t *testing.T) *session.Codec {
	t.Helper()
	codec, err := session.NewCodec(session.CodecConfig{
		SigningKey: "router-test-signing-key-0123456789abcdef",
		Issuer:     "resumekit",
		Audience:   "resumekit-web",
		Now:        func() time.Time { return routerTestNow.Add(time.Minute) },
	})
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	return codec
}

func issueRouterTestToken(t *testing.T, codec *session.Codec, userID string) string {
	t.Helper()
	token, _, err := session.Issue(codec, model.PublicIdentity{
		ID:   userID,
		Role: model.RoleUser,
		Plan: model.PlanFree,
	}, routerTestNow, session.DefaultTTL)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

// createTestRouter は全ルートをモックサービスで構成したルーターとセッショントークンを返す。
func createTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	codec := newRouterTestCodec(t)
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(limiter.Stop)

	deps := &RouterDeps{
		SessionDecoder:    codec,
		CORSAllowedOrigin: "http://localhost:3000",
		CSRFConfig:        middleware.CSRFConfig{CookieSecure: false},
		RateLimiter:       limiter,
		MetricsGatherer:   prometheus.NewRegistry(),
		HealthChecker:     &mockHealthChecker{},
		AuthService:       &mockAuthService{},
		AuthConfig:        testAuthConfig,
		UserService:       &mockUserService{},
		ResumeService:     &mockResumeService{},
		TemplateService:   &mockTemplateService{},
	}

	return NewRouter(deps), issueRouterTestToken(t, codec, "user-router")
}

func TestNewRouter_PublicEndpoints_NoSessionRequired(t *testing.T) {
	router, _ := createTestRouter(t)

	for _, path := range []string{"/health", "/metrics", "/api/csrf-token"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

func TestNewRouter_CSRFTokenEndpoint_ReturnsToken(t *testing.T) {
	router, _ := createTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["token"] == "" {
		t.Error("token is empty")
	}
}

func TestNewRouter_ProtectedRoutes_NoSession_Returns401(t *testing.T) {
	router, _ := createTestRouter(t)

	for _, path := range []string{"/api/me", "/api/resumes", "/api/dashboard", "/api/templates"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestNewRouter_ProtectedRoute_WithBearer_Succeeds(t *testing.T) {
	router, token := createTestRouter(t)

	for _, path := range []string{"/api/resumes", "/api/dashboard", "/api/templates"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

func TestNewRouter_CookieSessionPOST_RequiresCSRF(t *testing.T) {
	router, token := createTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/resumes", strings.NewReader(`{"name":"cv"}`))
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestNewRouter_CookieSessionPOST_WithCSRF_Succeeds(t *testing.T) {
	router, token := createTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/resumes", strings.NewReader(`{"name":"cv"}`))
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "csrf-123"})
	req.Header.Set("X-CSRF-Token", "csrf-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestNewRouter_BearerPOST_SkipsCSRF(t *testing.T) {
	router, token := createTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/resumes/r1/views", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_SignIn_RequiresCSRF(t *testing.T) {
	router, _ := createTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@example.com","password":"x"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// TestNewRouter_SignIn_ForwardedHeadersDoNotBypassLimit は転送ヘッダーを毎回変えても
// 同じ接続元からのサインインが制限されることを確認する。
func TestNewRouter_SignIn_ForwardedHeadersDoNotBypassLimit(t *testing.T) {
	router, _ := createTestRouter(t)

	throttled := 0
	for i := 0; i < 30; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@example.com","password":"x"}`))
		req.RemoteAddr = "203.0.113.7:50000"
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("192.0.2.%d", i))
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "csrf-tok"})
		req.Header.Set("X-CSRF-Token", "csrf-tok")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code == http.StatusTooManyRequests {
			throttled++
		}
	}

	if throttled == 0 {
		t.Error("sign-in with rotated forwarding headers was never throttled")
	}
	if throttled < 15 {
		t.Errorf("throttled = %d, want >= 15", throttled)
	}
}

func TestNewRouter_AuthRoutes_NoSessionRequired(t *testing.T) {
	router, _ := createTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// OAuth未設定のモックなので503（401ではない）
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestNewRouter_ExpiredToken_Returns401(t *testing.T) {
	router, _ := createTestRouter(t)

	codec := newRouterTestCodec(t)
	token, _, err := session.Issue(codec, model.PublicIdentity{ID: "user-old"}, routerTestNow.Add(-48*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/resumes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestNewRouter_UnknownRoute_Returns404(t *testing.T) {
	router, _ := createTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound && w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 404 or 401", w.Code)
	}
}

func TestNewRouter_SecurityHeaders(t *testing.T) {
	router, _ := createTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
}
