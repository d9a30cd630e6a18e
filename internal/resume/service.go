// Package resume はレジュメのCRUD・利用統計・ダッシュボード集計のドメインロジックを提供する。
//
// すべての操作は所有者でスコープされ、他ユーザーのレジュメは存在しないものとして扱う。
package resume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/resumekit/internal/metrics"
	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/repository"
	"github.com/hitoshi/resumekit/internal/security"
)

// メトリクスに記録するライフサイクルイベント
const (
	eventCreated = "created"
	eventUpdated = "updated"
	eventDeleted = "deleted"
)

// Service はレジュメ管理のサービス層。
type Service struct {
	resumes   repository.ResumeStore
	templates repository.TemplateStore
	sanitizer security.ContentSanitizer
	collector metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。collectorはnilでもよい。
func NewService(
	resumes repository.ResumeStore,
	templates repository.TemplateStore,
	sanitizer security.ContentSanitizer,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		resumes:   resumes,
		templates: templates,
		sanitizer: sanitizer,
		collector: collector,
		now:       time.Now,
	}
}

// List は所有者のレジュメ一覧を更新日時の降順で返す。
func (s *Service) List(ctx context.Context, ownerID string) ([]model.ResumeSummary, error) {
	summaries, err := s.resumes.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	if summaries == nil {
		summaries = []model.ResumeSummary{}
	}
	return summaries, nil
}

// Get は所有者のレジュメを1件返す。
func (s *Service) Get(ctx context.Context, ownerID, resumeID string) (*model.Resume, error) {
	r, err := s.resumes.FindByID(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	if r == nil || r.OwnerID != ownerID {
		return nil, model.NewResumeNotFoundError(resumeID)
	}
	return r, nil
}

// Create はレジュメを作成する。未指定の見た目設定には初期値を入れる。
func (s *Service) Create(ctx context.Context, ownerID string, content model.ResumeContent) (*model.Resume, error) {
	if err := s.prepare(ctx, &content); err != nil {
		return nil, err
	}

	created, err := s.resumes.Create(ctx, &model.Resume{
		OwnerID:       ownerID,
		ResumeContent: content,
		Active:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resume: %w", err)
	}

	s.record(eventCreated)
	slog.Info("レジュメを作成しました",
		slog.String("user_id", ownerID),
		slog.String("resume_id", created.ID),
	)
	return created, nil
}

// Update はレジュメ本体を置き換える。
func (s *Service) Update(ctx context.Context, ownerID, resumeID string, content model.ResumeContent) (*model.Resume, error) {
	if err := s.prepare(ctx, &content); err != nil {
		return nil, err
	}

	updated, err := s.resumes.Update(ctx, resumeID, ownerID, content)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewResumeNotFoundError(resumeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update resume: %w", err)
	}

	s.record(eventUpdated)
	return updated, nil
}

// Delete はレジュメを論理削除する。物理削除はクリーンアップワーカーが行う。
func (s *Service) Delete(ctx context.Context, ownerID, resumeID string) error {
	err := s.resumes.Deactivate(ctx, resumeID, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewResumeNotFoundError(resumeID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}

	s.record(eventDeleted)
	slog.Info("レジュメを削除しました",
		slog.String("user_id", ownerID),
		slog.String("resume_id", resumeID),
	)
	return nil
}

// RecordView は閲覧数を1増やす。
func (s *Service) RecordView(ctx context.Context, ownerID, resumeID string) (*model.Analytics, error) {
	return s.RecordEvent(ctx, ownerID, resumeID, model.EventView)
}

// RecordDownload はダウンロード数を1増やす。
func (s *Service) RecordDownload(ctx context.Context, ownerID, resumeID string) (*model.Analytics, error) {
	return s.RecordEvent(ctx, ownerID, resumeID, model.EventDownload)
}

// RecordShare は共有数を1増やす。
func (s *Service) RecordShare(ctx context.Context, ownerID, resumeID string) (*model.Analytics, error) {
	return s.RecordEvent(ctx, ownerID, resumeID, model.EventShare)
}

// RecordEvent は利用イベントを記録し、更新後の統計を返す。
func (s *Service) RecordEvent(ctx context.Context, ownerID, resumeID string, event model.AnalyticsEvent) (*model.Analytics, error) {
	if !event.Valid() {
		return nil, model.NewInvalidEventError(string(event))
	}

	analytics, err := s.resumes.IncrementAnalytics(ctx, resumeID, ownerID, event, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewResumeNotFoundError(resumeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", event, err)
	}

	s.record(string(event))
	return analytics, nil
}

// Stats はダッシュボード用の集計値を返す。
func (s *Service) Stats(ctx context.Context, ownerID string) (*model.ResumeStats, error) {
	stats, err := s.resumes.StatsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate resume stats: %w", err)
	}
	if stats == nil {
		stats = &model.ResumeStats{}
	}
	return stats, nil
}

// prepare は保存前のテンプレート参照解決・サニタイズ・初期値設定を行う。
// テンプレートの初期レイアウト・配色・フォントは未指定の項目にのみ反映する。
func (s *Service) prepare(ctx context.Context, content *model.ResumeContent) error {
	if id := strings.TrimSpace(content.Template.ID); id != "" {
		tmpl, err := s.templates.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to resolve template: %w", err)
		}
		if tmpl == nil {
			return model.NewTemplateNotFoundError(id)
		}
		content.Template = tmpl.Ref()
		tmpl.ApplyDefaults(content)
	}

	s.sanitize(content)
	content.ApplyDefaults()
	return nil
}

// sanitize は自由記述欄を書式タグのみ、それ以外をプレーンテキストにする。
func (s *Service) sanitize(c *model.ResumeContent) {
	plain := s.sanitizer.SanitizePlain
	rich := s.sanitizer.SanitizeRich

	c.Name = strings.TrimSpace(plain(c.Name))

	pi := &c.PersonalInfo
	pi.FullName = plain(pi.FullName)
	pi.Title = plain(pi.Title)
	pi.Address = plain(pi.Address)
	pi.City = plain(pi.City)
	pi.State = plain(pi.State)
	pi.Country = plain(pi.Country)
	pi.Summary = rich(pi.Summary)

	for i := range c.Education {
		e := &c.Education[i]
		e.Institution = plain(e.Institution)
		e.Degree = plain(e.Degree)
		e.FieldOfStudy = plain(e.FieldOfStudy)
		e.Description = rich(e.Description)
	}
	for i := range c.Experience {
		e := &c.Experience[i]
		e.Company = plain(e.Company)
		e.Position = plain(e.Position)
		e.Description = rich(e.Description)
		for j := range e.Achievements {
			e.Achievements[j] = plain(e.Achievements[j])
		}
	}
	for i := range c.Skills {
		c.Skills[i].Name = plain(c.Skills[i].Name)
	}
	for i := range c.Projects {
		p := &c.Projects[i]
		p.Name = plain(p.Name)
		p.Description = rich(p.Description)
	}
	for i := range c.Certifications {
		c.Certifications[i].Name = plain(c.Certifications[i].Name)
		c.Certifications[i].Issuer = plain(c.Certifications[i].Issuer)
	}
	for i := range c.CustomSections {
		cs := &c.CustomSections[i]
		cs.Title = plain(cs.Title)
		cs.Content = rich(cs.Content)
	}
}

func (s *Service) record(event string) {
	if s.collector != nil {
		s.collector.RecordResumeEvent(event)
	}
}
