package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/resumekit/internal/middleware"
	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/user"
)

// UserServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*user.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update model.IdentityUpdate) (*user.Profile, error)
}

// UserHandler はログインユーザーのプロフィールのHTTPハンドラー。
type UserHandler struct {
	service   UserServiceInterface
	validator *requestValidator
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service:   service,
		validator: newRequestValidator(),
	}
}

// sessionInfo はトークンに埋め込まれたクレームのレスポンス表現。
// ロールとプランは発行時点の値で、プロフィールの現在値と異なる場合がある。
type sessionInfo struct {
	SubjectID string     `json:"subjectId"`
	Role      model.Role `json:"role"`
	Plan      model.Plan `json:"plan"`
	IssuedAt  time.Time  `json:"issuedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// meResponse はGET /api/meのレスポンス。
type meResponse struct {
	Session sessionInfo   `json:"session"`
	Profile *user.Profile `json:"profile"`
}

// updateProfileRequest はプロフィール更新のリクエストボディ。未指定の項目は変更しない。
type updateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url,max=2048"`
}

// Me は現在のセッションのクレームとプロフィールを返す。
// GET /api/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	profile, err := h.service.GetProfile(r.Context(), claims.SubjectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		Session: sessionInfo{
			SubjectID: claims.SubjectID,
			Role:      claims.Role,
			Plan:      claims.Plan,
			IssuedAt:  claims.IssuedAt,
			ExpiresAt: claims.ExpiresAt,
		},
		Profile: profile,
	})
}

// UpdateMe はプロフィールを更新する。
// PATCH /api/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := h.validator.Struct(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, model.IdentityUpdate{
		Name:      req.Name,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// SetupUserRoutes はプロフィール関連のルーティングを設定したchi.Routerを返す。
// セッションミドルウェアは呼び出し側で適用する。
func SetupUserRoutes(service UserServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewUserHandler(service)

	r.Get("/api/me", h.Me)
	r.Patch("/api/me", h.UpdateMe)

	return r
}
