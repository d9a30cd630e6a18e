package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/resumekit/internal/model"
)

var (
	// ErrSigningKeyMissing は署名鍵が未設定の場合のエラー。起動時に致命的として扱う。
	ErrSigningKeyMissing = errors.New("session signing key is not configured")
	// ErrTokenInvalid はトークンが不正・期限切れ・署名不一致のいずれかの場合のエラー。
	// 呼び出し側には種別を区別させない。
	ErrTokenInvalid = errors.New("session token is invalid")
)

// Encoder はクレームセットを署名付きトークンにエンコードするインターフェース。
type Encoder interface {
	Encode(claims Claims) (string, error)
}

// Decoder は署名付きトークンを検証してクレームセットを取り出すインターフェース。
type Decoder interface {
	Decode(token string) (Claims, error)
}

// CodecConfig はCodecの設定。
type CodecConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	// Now は現在時刻の取得関数。nilの場合はtime.Nowを使用する。
	Now func() time.Time
}

// Codec はHS256署名のJWTでクレームセットをエンコード・デコードする。
// 署名鍵は起動時に1回読み込まれ、プロセス全体で共有される。
type Codec struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

var (
	_ Encoder = (*Codec)(nil)
	_ Decoder = (*Codec)(nil)
)

// NewCodec はCodecを生成する。署名鍵が空の場合はErrSigningKeyMissingを返す。
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if cfg.SigningKey == "" {
		return nil, ErrSigningKeyMissing
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Codec{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      now,
	}, nil
}

// Encode はクレームセットをHS256で署名したトークン文字列に変換する。
func (c *Codec) Encode(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims.toToken(c.issuer, c.audience))

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Decode はトークンの署名・アルゴリズム・有効期限・発行者・対象者を検証し、
// クレームセットを返す。検証に失敗した場合は理由を問わずErrTokenInvalidを返す。
func (c *Codec) Decode(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, ErrTokenInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	var tc tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &tc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Claims{}, ErrTokenInvalid
	}

	claims := tc.toClaims()
	if claims.SubjectID == "" || !claims.Role.Valid() || !claims.Plan.Valid() {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

// Issue はアイデンティティからクレームを生成してエンコードする。
// ClaimsFromIdentityとEncodeを合成した関数。
func Issue(enc Encoder, identity model.PublicIdentity, now time.Time, ttl time.Duration) (string, Claims, error) {
	claims := ClaimsFromIdentity(identity, now, ttl)
	token, err := enc.Encode(claims)
	if err != nil {
		return "", Claims{}, err
	}
	return token, claims, nil
}
