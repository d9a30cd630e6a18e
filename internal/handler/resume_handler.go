package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/resumekit/internal/model"
)

// ResumeServiceInterface はレジュメハンドラーが必要とするサービスインターフェース。
// すべての操作はownerIDでスコープされる。
type ResumeServiceInterface interface {
	List(ctx context.Context, ownerID string) ([]model.ResumeSummary, error)
	Get(ctx context.Context, ownerID, resumeID string) (*model.Resume, error)
	Create(ctx context.Context, ownerID string, content model.ResumeContent) (*model.Resume, error)
	Update(ctx context.Context, ownerID, resumeID string, content model.ResumeContent) (*model.Resume, error)
	Delete(ctx context.Context, ownerID, resumeID string) error
	RecordEvent(ctx context.Context, ownerID, resumeID string, event model.AnalyticsEvent) (*model.Analytics, error)
	Stats(ctx context.Context, ownerID string) (*model.ResumeStats, error)
}

// ResumeHandler はレジュメ管理のHTTPハンドラー。
type ResumeHandler struct {
	service   ResumeServiceInterface
	validator *requestValidator
}

// NewResumeHandler はResumeHandlerを生成する。
func NewResumeHandler(service ResumeServiceInterface) *ResumeHandler {
	return &ResumeHandler{
		service:   service,
		validator: newRequestValidator(),
	}
}

// dashboardRecentLimit はダッシュボードに表示する最近のレジュメの件数。
const dashboardRecentLimit = 5

// dashboardResponse はGET /api/dashboardのレスポンス。
type dashboardResponse struct {
	Stats         *model.ResumeStats    `json:"stats"`
	RecentResumes []model.ResumeSummary `json:"recentResumes"`
}

// analyticsEvents はURLのサブリソース名と利用イベントの対応。
var analyticsEvents = map[string]model.AnalyticsEvent{
	"views":     model.EventView,
	"downloads": model.EventDownload,
	"shares":    model.EventShare,
}

// ListResumes はレジュメ一覧を返す。
// GET /api/resumes
func (h *ResumeHandler) ListResumes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	summaries, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// CreateResume はレジュメを作成する。
// POST /api/resumes
func (h *ResumeHandler) CreateResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	content, ok := h.decodeContent(w, r)
	if !ok {
		return
	}

	created, err := h.service.Create(r.Context(), userID, *content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetResume はレジュメを1件返す。
// GET /api/resumes/{id}
func (h *ResumeHandler) GetResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	resume, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resume)
}

// UpdateResume はレジュメ本体を置き換える。
// PUT /api/resumes/{id}
func (h *ResumeHandler) UpdateResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	content, ok := h.decodeContent(w, r)
	if !ok {
		return
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), *content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteResume はレジュメを削除する。
// DELETE /api/resumes/{id}
func (h *ResumeHandler) DeleteResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecordEvent は閲覧・ダウンロード・共有の回数を記録する。
// POST /api/resumes/{id}/{event}
func (h *ResumeHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "event")
	event, known := analyticsEvents[name]
	if !known {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidEventError(name))
		return
	}

	analytics, err := h.service.RecordEvent(r.Context(), userID, chi.URLParam(r, "id"), event)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analytics)
}

// Dashboard は集計値と最近更新したレジュメを返す。
// GET /api/dashboard
func (h *ResumeHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	summaries, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if len(summaries) > dashboardRecentLimit {
		summaries = summaries[:dashboardRecentLimit]
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Stats:         stats,
		RecentResumes: summaries,
	})
}

// decodeContent はリクエストボディをレジュメ本体としてデコードし、検証する。
func (h *ResumeHandler) decodeContent(w http.ResponseWriter, r *http.Request) (*model.ResumeContent, bool) {
	var content model.ResumeContent
	if !decodeJSON(w, r, &content) {
		return nil, false
	}
	if apiErr := h.validator.Struct(content); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return nil, false
	}
	return &content, true
}

// SetupResumeRoutes はレジュメ管理関連のルーティングを設定したchi.Routerを返す。
// セッションミドルウェアは呼び出し側で適用する。
func SetupResumeRoutes(service ResumeServiceInterface) http.Handler {
	r := chi.NewRouter()
	mountResumeRoutes(r, NewResumeHandler(service))
	return r
}

func mountResumeRoutes(r chi.Router, h *ResumeHandler) {
	r.Get("/api/dashboard", h.Dashboard)

	r.Route("/api/resumes", func(r chi.Router) {
		r.Get("/", h.ListResumes)
		r.Post("/", h.CreateResume)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetResume)
			r.Put("/", h.UpdateResume)
			r.Delete("/", h.DeleteResume)
			r.Post("/{event}", h.RecordEvent)
		})
	})
}
