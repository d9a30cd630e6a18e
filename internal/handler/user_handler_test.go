package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/resumekit/internal/middleware"
	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/session"
	"github.com/hitoshi/resumekit/internal/user"
)

// --- モック定義 ---

type mockUserService struct {
	getProfileFn    func(ctx context.Context, userID string) (*user.Profile, error)
	updateProfileFn func(ctx context.Context, userID string, update model.IdentityUpdate) (*user.Profile, error)
}

func (m *mockUserService) GetProfile(ctx context.Context, userID string) (*user.Profile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, update model.IdentityUpdate) (*user.Profile, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, update)
	}
	return nil, model.NewUserNotFoundError()
}

func withTestClaims(r *http.Request, userID string) *http.Request {
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return r.WithContext(middleware.ContextWithClaims(r.Context(), session.Claims{
		SubjectID: userID,
		Role:      model.RoleAdmin,
		Plan:      model.PlanPro,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(session.DefaultTTL),
	}))
}

// --- テスト ---

func TestUserHandler_Me_ReturnsClaimsAndProfile(t *testing.T) {
	svc := &mockUserService{
		getProfileFn: func(_ context.Context, userID string) (*user.Profile, error) {
			return &user.Profile{ID: userID, Email: "hanako@example.com", Name: "Hanako", Plan: model.PlanFree}, nil
		},
	}
	h := NewUserHandler(svc)

	req := withTestClaims(httptest.NewRequest(http.MethodGet, "/api/me", nil), "user-1")
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body meResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Session.SubjectID != "user-1" {
		t.Errorf("session.subjectId = %q, want %q", body.Session.SubjectID, "user-1")
	}
	if body.Session.Role != model.RoleAdmin {
		t.Errorf("session.role = %q, want %q", body.Session.Role, model.RoleAdmin)
	}
	// クレームは発行時点の値、プロフィールは現在値を返す
	if body.Session.Plan != model.PlanPro {
		t.Errorf("session.plan = %q, want %q", body.Session.Plan, model.PlanPro)
	}
	if body.Profile == nil || body.Profile.Plan != model.PlanFree {
		t.Errorf("profile = %+v, want plan %q", body.Profile, model.PlanFree)
	}
}

func TestUserHandler_Me_NoClaims_ReturnsUnauthorized(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUserHandler_Me_UserGone_ReturnsNotFound(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := withTestClaims(httptest.NewRequest(http.MethodGet, "/api/me", nil), "deleted-user")
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if code := decodeErrorCode(t, w); code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", code, model.ErrCodeUserNotFound)
	}
}

func TestUserHandler_UpdateMe_PassesOnlyProvidedFields(t *testing.T) {
	var got model.IdentityUpdate
	svc := &mockUserService{
		updateProfileFn: func(_ context.Context, userID string, update model.IdentityUpdate) (*user.Profile, error) {
			got = update
			return &user.Profile{ID: userID, Name: *update.Name}, nil
		},
	}
	h := NewUserHandler(svc)

	req := withTestClaims(httptest.NewRequest(http.MethodPatch, "/api/me", strings.NewReader(`{"name":"Taro"}`)), "user-1")
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.Name == nil || *got.Name != "Taro" {
		t.Errorf("update.Name = %v, want Taro", got.Name)
	}
	if got.Phone != nil {
		t.Errorf("update.Phone = %q, want nil", *got.Phone)
	}
	if got.AvatarURL != nil {
		t.Errorf("update.AvatarURL = %q, want nil", *got.AvatarURL)
	}
}

func TestUserHandler_UpdateMe_InvalidAvatarURL_ReturnsBadRequest(t *testing.T) {
	called := false
	svc := &mockUserService{
		updateProfileFn: func(context.Context, string, model.IdentityUpdate) (*user.Profile, error) {
			called = true
			return &user.Profile{}, nil
		},
	}
	h := NewUserHandler(svc)

	req := withTestClaims(httptest.NewRequest(http.MethodPatch, "/api/me", strings.NewReader(`{"avatarUrl":"not a url"}`)), "user-1")
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("service called for invalid request")
	}
}

func TestUserHandler_UpdateMe_InternalError(t *testing.T) {
	svc := &mockUserService{
		updateProfileFn: func(context.Context, string, model.IdentityUpdate) (*user.Profile, error) {
			return nil, errors.New("connection reset")
		},
	}
	h := NewUserHandler(svc)

	req := withTestClaims(httptest.NewRequest(http.MethodPatch, "/api/me", strings.NewReader(`{"phone":"090"}`)), "user-1")
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "connection reset") {
		t.Errorf("body leaks internal error: %s", w.Body.String())
	}
}

func TestSetupUserRoutes_MeEndpoint(t *testing.T) {
	svc := &mockUserService{
		getProfileFn: func(_ context.Context, userID string) (*user.Profile, error) {
			return &user.Profile{ID: userID}, nil
		},
	}
	router := SetupUserRoutes(svc)

	req := withTestClaims(httptest.NewRequest(http.MethodGet, "/api/me", nil), "user-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
