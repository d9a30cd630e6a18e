package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/repository"
)

// Reconciler は外部IdPのプロフィールをアイデンティティレコードに対応付ける。
//
// メールアドレスのみをプロバイダ横断のキーとして扱うため、同じメールアドレスの
// パスワード認証アカウントにはそのまま紐付く（所有確認は行わない）。
type Reconciler struct {
	identities repository.IdentityStore
}

// NewReconciler はReconcilerを生成する。
func NewReconciler(identities repository.IdentityStore) *Reconciler {
	return &Reconciler{identities: identities}
}

// Reconcile はプロフィールに対応するアイデンティティを返す。
// 未登録の場合はprovider=oauth、role=user、plan=freeで作成する。
// 登録済みの場合はロールとプランを変更せず、名前とアバターが変わっていれば更新する。
func (r *Reconciler) Reconcile(ctx context.Context, assertion model.ProfileAssertion) (*model.Identity, error) {
	email := model.NormalizeEmail(assertion.Email)
	if email == "" || assertion.SubjectID == "" {
		return nil, ErrIncompleteAssertion
	}

	existing, err := r.identities.FindByEmail(ctx, email, false)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	if existing == nil {
		created, err := r.identities.Create(ctx, &model.Identity{
			Email:     email,
			Name:      assertion.Name,
			AvatarURL: assertion.AvatarURL,
			Role:      model.RoleUser,
			Plan:      model.PlanFree,
			Credential: model.OAuthCredential{
				Issuer:    assertion.Issuer,
				SubjectID: assertion.SubjectID,
			},
			EmailVerified: assertion.EmailVerified,
		})
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: %w", ErrSignInConflict, err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create identity: %w", err)
		}

		slog.Info("identity created from oauth profile",
			slog.String("user_id", created.ID),
			slog.String("issuer", assertion.Issuer),
		)
		return created, nil
	}

	update := profileChanges(existing, assertion)
	if update.IsEmpty() {
		return existing, nil
	}

	updated, err := r.identities.Update(ctx, existing.ID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update identity profile: %w", err)
	}
	return updated, nil
}

// profileChanges は名前とアバターのうち変更があった項目のみを返す。
// IdPが空値を返した項目は既存値を維持する。
func profileChanges(existing *model.Identity, assertion model.ProfileAssertion) model.IdentityUpdate {
	var update model.IdentityUpdate
	if assertion.Name != "" && assertion.Name != existing.Name {
		name := assertion.Name
		update.Name = &name
	}
	if assertion.AvatarURL != "" && assertion.AvatarURL != existing.AvatarURL {
		avatar := assertion.AvatarURL
		update.AvatarURL = &avatar
	}
	return update
}
