package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrUnsupportedHash は保存済みハッシュの形式が未知の場合のエラー。
var ErrUnsupportedHash = errors.New("unsupported password hash format")

// PasswordHasher はパスワードの一方向ハッシュ化と検証のインターフェース。
// 平文パスワードは保存もログ出力もしない。
type PasswordHasher interface {
	// Hash はソルト付きのエンコード済みハッシュを返す。
	Hash(password string) (string, error)
	// Verify は平文がハッシュと一致するかどうかを返す。
	// 不一致はエラーではなく (false, nil) を返す。
	Verify(password, encoded string) (bool, error)
}

// passwordHasher は新規ハッシュをargon2idで生成し、
// 既存のbcryptハッシュ（$2a$, $2b$, $2y$）の検証にも対応する。
type passwordHasher struct {
	config argon2.Config
}

var _ PasswordHasher = (*passwordHasher)(nil)

// NewPasswordHasher は指定のargon2設定でPasswordHasherを生成する。
func NewPasswordHasher(config argon2.Config) PasswordHasher {
	return &passwordHasher{config: config}
}

// NewDefaultPasswordHasher はargon2idの推奨パラメータでPasswordHasherを生成する。
func NewDefaultPasswordHasher() PasswordHasher {
	return NewPasswordHasher(argon2.DefaultConfig())
}

// Hash はargon2idでエンコード済みハッシュを生成する。
func (h *passwordHasher) Hash(password string) (string, error) {
	encoded, err := h.config.HashEncoded([]byte(password))
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(encoded), nil
}

// Verify はハッシュ形式に応じた比較関数で平文を検証する。
func (h *passwordHasher) Verify(password, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2"):
		ok, err := argon2.VerifyEncoded([]byte(password), []byte(encoded))
		if err != nil {
			return false, fmt.Errorf("failed to verify argon2 hash: %w", err)
		}
		return ok, nil
	case isBcryptHash(encoded):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to verify bcrypt hash: %w", err)
		}
		return true, nil
	default:
		return false, ErrUnsupportedHash
	}
}

func isBcryptHash(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}
