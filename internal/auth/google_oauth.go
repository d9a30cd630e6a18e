package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/hitoshi/resumekit/internal/model"
)

// IssuerGoogle はGoogleで確立したアイデンティティのIdP識別子。
const IssuerGoogle = "google"

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、プロフィール情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*model.ProfileAssertion, error)
}

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なエンドポイント
	AuthURL         string
	TokenURL        string
	UserInfoBaseURL string
}

// GoogleOAuthProvider はGoogle OAuth 2.0による認証を提供する。
// プロフィールはGoogle OAuth2 APIのuserinfoから取得する。
type GoogleOAuthProvider struct {
	oauth           *oauth2.Config
	userInfoBaseURL string
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	endpoint := google.Endpoint
	if config.AuthURL != "" {
		endpoint.AuthURL = config.AuthURL
	}
	if config.TokenURL != "" {
		endpoint.TokenURL = config.TokenURL
	}

	return &GoogleOAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes: []string{
				"openid",
				googleoauth2.UserinfoEmailScope,
				googleoauth2.UserinfoProfileScope,
			},
			Endpoint: endpoint,
		},
		userInfoBaseURL: config.UserInfoBaseURL,
	}
}

// GetLoginURL はGoogle OAuthの認証URLを生成する。
func (p *GoogleOAuthProvider) GetLoginURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode は認可コードをアクセストークンに交換し、プロフィール情報を取得する。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*model.ProfileAssertion, error) {
	if code == "" {
		return nil, errors.New("authorization code is empty")
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(p.oauth.Client(ctx, token))}
	if p.userInfoBaseURL != "" {
		opts = append(opts, option.WithEndpoint(p.userInfoBaseURL))
	}

	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth2 service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	if info.Id == "" {
		return nil, errors.New("empty id in user info response")
	}
	if info.Email == "" {
		return nil, errors.New("empty email in user info response")
	}

	verified := info.VerifiedEmail != nil && *info.VerifiedEmail
	return &model.ProfileAssertion{
		Issuer:        IssuerGoogle,
		SubjectID:     info.Id,
		Email:         info.Email,
		Name:          info.Name,
		AvatarURL:     info.Picture,
		EmailVerified: verified,
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
