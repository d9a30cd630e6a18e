package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/repository"
	"github.com/hitoshi/resumekit/internal/security"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 8

var validate = validator.New(validator.WithRequiredStructEnabled())

// CredentialVerifier はメールアドレスとパスワードによる認証を行う。
type CredentialVerifier struct {
	identities repository.IdentityStore
	hasher     security.PasswordHasher
}

// NewCredentialVerifier はCredentialVerifierを生成する。
func NewCredentialVerifier(identities repository.IdentityStore, hasher security.PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{identities: identities, hasher: hasher}
}

// VerifyCredentials はメールアドレスとパスワードを検証し、公開フィールドのみを返す。
// 失敗時はErrMissingCredentials、ErrIdentityNotFound、ErrInvalidCredentials、
// またはストア障害（repository.ErrStoreUnavailable）を返す。
func (v *CredentialVerifier) VerifyCredentials(ctx context.Context, email, password string) (*model.PublicIdentity, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	identity, err := v.identities.FindByEmail(ctx, email, true)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		return nil, ErrIdentityNotFound
	}

	hash, ok := identity.PasswordHash()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	match, err := v.hasher.Verify(password, hash)
	if err != nil {
		slog.Error("stored password hash could not be verified",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return nil, ErrInvalidCredentials
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	public := identity.Public()
	return &public, nil
}

// RegisterInput はパスワード認証でのアカウント登録入力。
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register はパスワード認証のアイデンティティを作成する。
// ロールはuser、プランはfreeで作成し、パスワードはハッシュのみを保存する。
func (v *CredentialVerifier) Register(ctx context.Context, input RegisterInput) (*model.PublicIdentity, error) {
	email := model.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrMissingCredentials
	}
	if err := validate.Var(email, "email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if len([]rune(input.Password)) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := v.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	created, err := v.identities.Create(ctx, &model.Identity{
		Email:      email,
		Name:       name,
		Role:       model.RoleUser,
		Plan:       model.PlanFree,
		Credential: model.PasswordCredential{PasswordHash: hash},
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	slog.Info("identity registered",
		slog.String("user_id", created.ID),
		slog.String("provider", string(model.ProviderCredentials)),
	)

	public := created.Public()
	return &public, nil
}
