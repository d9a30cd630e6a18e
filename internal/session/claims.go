// Package session はセッショントークンに埋め込むクレームの生成と、
// 署名付きトークンへのエンコード・デコードを提供する。
//
// クレームは発行時点のアイデンティティのスナップショットであり、
// ロールやプランが後から変わっても再認証まで反映されない。
// デコードはストアへアクセスしない純粋な関数として実装する。
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/resumekit/internal/model"
)

// DefaultTTL はセッショントークンの有効期間（30日）。
const DefaultTTL = 30 * 24 * time.Hour

// Claims はセッショントークンに埋め込むクレームセット。
type Claims struct {
	SubjectID string
	Role      model.Role
	Plan      model.Plan
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ClaimsFromIdentity はアイデンティティからクレームセットを生成する。
// expiresAtはnow+ttlで固定され、更新されない。
func ClaimsFromIdentity(identity model.PublicIdentity, now time.Time, ttl time.Duration) Claims {
	issuedAt := now.UTC().Truncate(time.Second)
	return Claims{
		SubjectID: identity.ID,
		Role:      identity.Role,
		Plan:      identity.Plan,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}
}

// ExpiredAt は指定時刻においてクレームが期限切れかどうかを返す。
func (c Claims) ExpiredAt(t time.Time) bool {
	return t.After(c.ExpiresAt)
}

// tokenClaims はJWTのペイロード表現。
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Plan string `json:"plan"`
}

func (c Claims) toToken(issuer, audience string) tokenClaims {
	return tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.SubjectID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
		Role: string(c.Role),
		Plan: string(c.Plan),
	}
}

func (tc tokenClaims) toClaims() Claims {
	c := Claims{
		SubjectID: tc.Subject,
		Role:      model.Role(tc.Role),
		Plan:      model.Plan(tc.Plan),
	}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time.UTC()
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time.UTC()
	}
	return c
}
