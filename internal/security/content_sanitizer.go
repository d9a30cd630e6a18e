// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はレジュメの自由記述欄（サマリー、職務内容、カスタムセクション）を
// 保存前にサニタイズし、共有ページやプレビューでのXSSを防ぐ。
// PasswordHasher はパスワードの一方向ハッシュ化と検証を行う。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はレジュメのテキストをサニタイズするインターフェース。
type ContentSanitizer interface {
	// SanitizeRich は簡易な書式タグ（p, br, ul, ol, li, strong, em, b, i, u, a）のみを残す。
	// aタグのhrefはhttpsとmailtoのみ許可し、target="_blank"とrel="noopener noreferrer"を付与する。
	SanitizeRich(raw string) string
	// SanitizePlain はすべてのタグを除去したテキストを返す。
	SanitizePlain(raw string) string
}

// contentSanitizer はContentSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	rich  *bluemonday.Policy
	plain *bluemonday.Policy
}

var _ ContentSanitizer = (*contentSanitizer)(nil)

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em", "b", "i", "u",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return u.Host != ""
	})
	p.AllowURLSchemes("mailto")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		rich:  p,
		plain: bluemonday.StrictPolicy(),
	}
}

// SanitizeRich は書式タグのみを残したHTMLを返す。
func (s *contentSanitizer) SanitizeRich(raw string) string {
	if raw == "" {
		return ""
	}
	return s.rich.Sanitize(raw)
}

// SanitizePlain はタグをすべて除去したテキストを返す。
func (s *contentSanitizer) SanitizePlain(raw string) string {
	if raw == "" {
		return ""
	}
	return s.plain.Sanitize(raw)
}
