// Package auth はパスワード認証、OAuthサインイン、セッショントークンの発行を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/resumekit/internal/metrics"
	"github.com/hitoshi/resumekit/internal/model"
	"github.com/hitoshi/resumekit/internal/repository"
	"github.com/hitoshi/resumekit/internal/security"
	"github.com/hitoshi/resumekit/internal/session"
)

// 認証の失敗種別。ユーザーには区別せず汎用メッセージを返し、種別はログにのみ残す。
var (
	ErrMissingCredentials  = errors.New("email and password are required")
	ErrIdentityNotFound    = errors.New("no identity matches the email")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidEmail        = errors.New("email address is malformed")
	ErrPasswordTooShort    = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrEmailTaken          = errors.New("email is already registered")
	ErrSignInConflict      = errors.New("identity was created by a concurrent sign-in")
	ErrIncompleteAssertion = errors.New("oauth profile has no email or subject")
	ErrInvalidState        = errors.New("oauth state does not match")
	ErrOAuthDisabled       = errors.New("oauth provider is not configured")
)

// FailureKind はエラーをログ・メトリクス用の失敗種別に変換する。
func FailureKind(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrIdentityNotFound):
		return "identity_not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrPasswordTooShort):
		return "invalid_input"
	case errors.Is(err, ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, ErrSignInConflict):
		return "conflict"
	case errors.Is(err, ErrIncompleteAssertion):
		return "incomplete_profile"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrOAuthDisabled):
		return "oauth_disabled"
	case errors.Is(err, repository.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}

// SignInResult はサインイン成功時に発行したセッションを表す。
type SignInResult struct {
	Token    string
	Claims   session.Claims
	Identity model.PublicIdentity
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionTTL time.Duration    // セッション有効期間
	Now        func() time.Time // テスト用の時刻関数
}

// Service はサインインの各経路を検証・クレーム生成・エンコードの順に合成する。
type Service struct {
	credentials *CredentialVerifier
	reconciler  *Reconciler
	identities  repository.IdentityStore
	encoder     session.Encoder
	oauth       OAuthProvider
	metrics     metrics.MetricsCollector
	config      ServiceConfig
}

// NewService はServiceを生成する。oauthがnilの場合、OAuthサインインは無効になる。
func NewService(
	identities repository.IdentityStore,
	hasher security.PasswordHasher,
	encoder session.Encoder,
	oauth OAuthProvider,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if config.SessionTTL <= 0 {
		config.SessionTTL = session.DefaultTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Service{
		credentials: NewCredentialVerifier(identities, hasher),
		reconciler:  NewReconciler(identities),
		identities:  identities,
		encoder:     encoder,
		oauth:       oauth,
		metrics:     collector,
		config:      config,
	}
}

// VerifyCredentials はメールアドレスとパスワードを検証する。
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*model.PublicIdentity, error) {
	return s.credentials.VerifyCredentials(ctx, email, password)
}

// SignInWithPassword はパスワード認証を行い、セッショントークンを発行する。
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	identity, err := s.credentials.VerifyCredentials(ctx, email, password)
	if err != nil {
		s.recordFailure(metrics.MethodPassword, err)
		return nil, err
	}
	return s.issue(ctx, metrics.MethodPassword, *identity)
}

// Register はアカウントを登録し、そのままサインインしたセッションを発行する。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*SignInResult, error) {
	identity, err := s.credentials.Register(ctx, input)
	if err != nil {
		s.recordFailure(metrics.MethodRegister, err)
		return nil, err
	}
	return s.issue(ctx, metrics.MethodRegister, *identity)
}

// OAuthEnabled はOAuthサインインが利用可能かどうかを返す。
func (s *Service) OAuthEnabled() bool {
	return s.oauth != nil
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	return s.oauth.GetLoginURL(state), nil
}

// HandleCallback はOAuthコールバックを処理し、セッショントークンを発行する。
// stateはログイン開始時にCookieへ保存した値と比較する。
func (s *Service) HandleCallback(ctx context.Context, code, state, expectedState string) (*SignInResult, error) {
	if s.oauth == nil {
		return nil, ErrOAuthDisabled
	}
	if state == "" || state != expectedState {
		s.recordFailure(metrics.MethodGoogle, ErrInvalidState)
		return nil, ErrInvalidState
	}

	assertion, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		err = fmt.Errorf("failed to exchange oauth code: %w", err)
		s.recordFailure(metrics.MethodGoogle, err)
		return nil, err
	}

	identity, err := s.reconciler.Reconcile(ctx, *assertion)
	if err != nil {
		s.recordFailure(metrics.MethodGoogle, err)
		return nil, err
	}

	return s.issue(ctx, metrics.MethodGoogle, identity.Public())
}

// issue はクレームを生成してエンコードし、最終ログイン日時を記録する。
func (s *Service) issue(ctx context.Context, method string, identity model.PublicIdentity) (*SignInResult, error) {
	now := s.config.Now()

	token, claims, err := session.Issue(s.encoder, identity, now, s.config.SessionTTL)
	if err != nil {
		err = fmt.Errorf("failed to issue session token: %w", err)
		s.recordFailure(method, err)
		return nil, err
	}

	if err := s.identities.TouchLastLogin(ctx, identity.ID, now); err != nil {
		slog.Warn("failed to record last login",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordSignIn(method, FailureKind(nil))
	}
	slog.Info("session issued",
		slog.String("user_id", identity.ID),
		slog.String("method", method),
		slog.Time("expires_at", claims.ExpiresAt),
	)

	return &SignInResult{Token: token, Claims: claims, Identity: identity}, nil
}

// recordFailure は失敗種別をログとメトリクスに記録する。
func (s *Service) recordFailure(method string, err error) {
	kind := FailureKind(err)
	if s.metrics != nil {
		s.metrics.RecordSignIn(method, kind)
	}

	attrs := []any{
		slog.String("method", method),
		slog.String("kind", kind),
	}
	if kind == "store_unavailable" || kind == "conflict" || kind == "error" {
		slog.Error("sign-in denied", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	slog.Warn("sign-in denied", attrs...)
}

// GenerateState はOAuthのCSRF対策用stateを生成する。
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
