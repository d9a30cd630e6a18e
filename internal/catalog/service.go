// Package catalog はレジュメテンプレートのカタログを提供する。
package catalog

import (
	"context"
	"fmt"

	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/repository"
)

// Service はテンプレートカタログのサービス層。
type Service struct {
	templates repository.TemplateStore
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(templates repository.TemplateStore) *Service {
	return &Service{templates: templates}
}

// List は有効なテンプレートを人気順で返す。categoryが空なら全件。
func (s *Service) List(ctx context.Context, category model.TemplateCategory) ([]*model.Template, error) {
	if category != "" && !category.Valid() {
		return nil, model.NewValidationError([]string{fmt.Sprintf("unknown category: %s", category)})
	}

	templates, err := s.templates.ListActive(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if templates == nil {
		templates = []*model.Template{}
	}
	return templates, nil
}

// Get は指定IDのテンプレートを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Template, error) {
	tmpl, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if tmpl == nil {
		return nil, model.NewTemplateNotFoundError(id)
	}
	return tmpl, nil
}
