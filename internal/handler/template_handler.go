package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/resumekit/internal/model"
)

// TemplateServiceInterface はテンプレートハンドラーが必要とするサービスインターフェース。
type TemplateServiceInterface interface {
	List(ctx context.Context, category model.TemplateCategory) ([]*model.Template, error)
	Get(ctx context.Context, id string) (*model.Template, error)
}

// TemplateHandler はテンプレートカタログのHTTPハンドラー。
type TemplateHandler struct {
	service TemplateServiceInterface
}

// NewTemplateHandler はTemplateHandlerを生成する。
func NewTemplateHandler(service TemplateServiceInterface) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// ListTemplates はテンプレート一覧を人気順で返す。
// GET /api/templates?category=Tech
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	category := model.TemplateCategory(r.URL.Query().Get("category"))

	templates, err := h.service.List(r.Context(), category)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, templates)
}

// GetTemplate はテンプレートを1件返す。
// GET /api/templates/{id}
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tmpl)
}

// SetupTemplateRoutes はテンプレート関連のルーティングを設定したchi.Routerを返す。
func SetupTemplateRoutes(service TemplateServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewTemplateHandler(service)

	r.Get("/api/templates", h.ListTemplates)
	r.Get("/api/templates/{id}", h.GetTemplate)

	return r
}
