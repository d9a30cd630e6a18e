// Package user はユーザープロフィールの参照・更新のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/repository"
	"github.com/hitoshi/resumekit/internal/security"
)

// Profile はプロフィールAPIが返すユーザー情報。
type Profile struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	Name          string         `json:"name"`
	AvatarURL     string         `json:"avatarUrl,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	Role          model.Role     `json:"role"`
	Plan          model.Plan     `json:"subscriptionPlan"`
	Provider      model.Provider `json:"provider"`
	EmailVerified bool           `json:"emailVerified"`
	LastLoginAt   *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func toProfile(identity *model.Identity) *Profile {
	return &Profile{
		ID:            identity.ID,
		Email:         identity.Email,
		Name:          identity.Name,
		AvatarURL:     identity.AvatarURL,
		Phone:         identity.Phone,
		Role:          identity.Role,
		Plan:          identity.Plan,
		Provider:      identity.Provider(),
		EmailVerified: identity.EmailVerified,
		LastLoginAt:   identity.LastLoginAt,
		CreatedAt:     identity.CreatedAt,
	}
}

// Service はプロフィール管理のサービス層。
type Service struct {
	identities repository.IdentityStore
	sanitizer  security.ContentSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(identities repository.IdentityStore, sanitizer security.ContentSanitizer) *Service {
	return &Service{
		identities: identities,
		sanitizer:  sanitizer,
	}
}

// GetProfile は指定ユーザーのプロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	identity, err := s.identities.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	if identity == nil {
		return nil, model.NewUserNotFoundError()
	}
	return toProfile(identity), nil
}

// UpdateProfile は名前・電話番号・アバターURLを更新する。
// 値はタグを除去してから保存する。ロールとプランは変更できない。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update model.IdentityUpdate) (*Profile, error) {
	update.Name = s.clean(update.Name)
	update.Phone = s.clean(update.Phone)
	update.AvatarURL = s.clean(update.AvatarURL)

	if update.Name != nil && *update.Name == "" {
		return nil, model.NewValidationError([]string{"name must not be empty"})
	}

	identity, err := s.identities.Update(ctx, userID, update)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewUserNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update identity: %w", err)
	}
	if identity == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("プロフィールを更新しました",
		slog.String("user_id", userID),
	)

	return toProfile(identity), nil
}

func (s *Service) clean(v *string) *string {
	if v == nil {
		return nil
	}
	cleaned := strings.TrimSpace(s.sanitizer.SanitizePlain(*v))
	return &cleaned
}
