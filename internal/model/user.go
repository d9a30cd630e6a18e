// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
)

// Valid はロールが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Plan はサブスクリプションプランを表す。
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
	PlanPro     Plan = "pro"
)

// Valid はプランが定義済みの値かどうかを返す。
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPremium, PlanPro:
		return true
	default:
		return false
	}
}

// Provider はアイデンティティを確立した認証方式を表す。
type Provider string

const (
	// ProviderCredentials はメールアドレスとパスワードによる認証。
	ProviderCredentials Provider = "credentials"
	// ProviderOAuth は外部IdPによるOAuth認証。
	ProviderOAuth Provider = "oauth"
)

// Credential は認証方式ごとの資格情報を表すタグ付きバリアント。
// 実装は PasswordCredential と OAuthCredential のみ。
type Credential interface {
	Provider() Provider
	isCredential()
}

// PasswordCredential はパスワード認証で作成されたアイデンティティの資格情報。
// PasswordHash は検証用に明示的に読み込んだ場合のみ値を持つ。
type PasswordCredential struct {
	PasswordHash string
}

// Provider はProviderCredentialsを返す。
func (PasswordCredential) Provider() Provider { return ProviderCredentials }

func (PasswordCredential) isCredential() {}

// OAuthCredential は外部IdPで作成されたアイデンティティの資格情報。
type OAuthCredential struct {
	Issuer    string // IdPの識別子（例: google）
	SubjectID string // IdP側のユーザーID
}

// Provider はProviderOAuthを返す。
func (OAuthCredential) Provider() Provider { return ProviderOAuth }

func (OAuthCredential) isCredential() {}

// Identity は永続化されるユーザーのアイデンティティレコードを表す。
// メールアドレス（小文字正規化済み）がプロバイダを跨いだ一意キーとなる。
type Identity struct {
	ID            string
	Email         string
	Name          string
	AvatarURL     string
	Phone         string
	Role          Role
	Plan          Plan
	Credential    Credential
	EmailVerified bool
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Provider はアイデンティティの認証方式を返す。資格情報が未設定の場合は空文字を返す。
func (i *Identity) Provider() Provider {
	if i.Credential == nil {
		return ""
	}
	return i.Credential.Provider()
}

// PasswordHash はパスワードハッシュを返す。
// OAuthのみで作成されたアイデンティティ、またはハッシュ未読込の場合はfalseを返す。
func (i *Identity) PasswordHash() (string, bool) {
	pc, ok := i.Credential.(PasswordCredential)
	if !ok || pc.PasswordHash == "" {
		return "", false
	}
	return pc.PasswordHash, true
}

// Public はハッシュを含まない公開フィールドのみを返す。
func (i *Identity) Public() PublicIdentity {
	return PublicIdentity{
		ID:    i.ID,
		Name:  i.Name,
		Email: i.Email,
		Role:  i.Role,
		Plan:  i.Plan,
	}
}

// PublicIdentity は認証境界の外へ渡してよいアイデンティティのフィールド。
type PublicIdentity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Plan  Plan   `json:"subscriptionPlan"`
}

// IdentityUpdate はアイデンティティのプロフィール更新内容を表す。
// nilのフィールドは更新しない。ロールとプランはこの経路では変更できない。
type IdentityUpdate struct {
	Name      *string
	AvatarURL *string
	Phone     *string
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (u IdentityUpdate) IsEmpty() bool {
	return u.Name == nil && u.AvatarURL == nil && u.Phone == nil
}

// ProfileAssertion は外部IdPから受け取ったプロフィール情報を表す。
// メールアドレスは追加検証なしで信頼される。
type ProfileAssertion struct {
	Issuer        string
	SubjectID     string
	Email         string
	Name          string
	AvatarURL     string
	EmailVerified bool
}

// NormalizeEmail はメールアドレスを前後空白除去・小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
