// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, resume, template, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInvalidSignIn     = "INVALID_SIGN_IN"
	ErrCodeSignInDenied      = "SIGN_IN_DENIED"
	ErrCodeEmailTaken        = "EMAIL_TAKEN"
	ErrCodeInvalidState      = "INVALID_OAUTH_STATE"
	ErrCodeOAuthUnavailable  = "OAUTH_UNAVAILABLE"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeResumeNotFound    = "RESUME_NOT_FOUND"
	ErrCodeTemplateNotFound  = "TEMPLATE_NOT_FOUND"
	ErrCodeInvalidEvent      = "INVALID_ANALYTICS_EVENT"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeCSRFFailed        = "CSRF_VALIDATION_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: "auth",
		Action:   "Please sign in again.",
	}
}

// NewInvalidSignInError はサインイン失敗エラーを生成する。
// アカウントの有無とパスワードの正誤を区別しない。
func NewInvalidSignInError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignIn,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "Check your email and password and try again.",
	}
}

// NewSignInDeniedError は外部IdPでのサインイン拒否エラーを生成する。
func NewSignInDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeSignInDenied,
		Message:  "Sign in was denied",
		Category: "auth",
		Action:   "Please try signing in again in a moment.",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "An account with this email already exists",
		Category: "auth",
		Action:   "Sign in instead, or use a different email address.",
	}
}

// NewInvalidStateError はOAuth stateの不一致エラーを生成する。
func NewInvalidStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  "Invalid OAuth state",
		Category: "auth",
		Action:   "Please start the sign in again.",
	}
}

// NewOAuthUnavailableError は外部IdPが未設定の場合のエラーを生成する。
func NewOAuthUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthUnavailable,
		Message:  "Google sign in is not available",
		Category: "auth",
		Action:   "Sign in with your email and password.",
	}
}

// NewValidationError は入力検証エラーを生成する。
// problemsは項目ごとのエラーメッセージ。
func NewValidationError(problems []string) *APIError {
	msg := "Invalid request"
	if len(problems) > 0 {
		msg = strings.Join(problems, "; ")
	}
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  msg,
		Category: "validation",
		Action:   "Fix the highlighted fields and try again.",
	}
}

// NewResumeNotFoundError はレジュメ未検出エラーを生成する。
func NewResumeNotFoundError(resumeID string) *APIError {
	return &APIError{
		Code:     ErrCodeResumeNotFound,
		Message:  fmt.Sprintf("Resume not found: %s", resumeID),
		Category: "resume",
		Action:   "Check the resume ID.",
	}
}

// NewTemplateNotFoundError はテンプレート未検出エラーを生成する。
func NewTemplateNotFoundError(templateID string) *APIError {
	return &APIError{
		Code:     ErrCodeTemplateNotFound,
		Message:  fmt.Sprintf("Template not found: %s", templateID),
		Category: "template",
		Action:   "Choose a template from the catalog.",
	}
}

// NewInvalidEventError は不正な利用イベント種別のエラーを生成する。
func NewInvalidEventError(event string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEvent,
		Message:  fmt.Sprintf("Invalid analytics event: %s", event),
		Category: "validation",
		Action:   "Use one of views, downloads, shares.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Please sign in again.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}
