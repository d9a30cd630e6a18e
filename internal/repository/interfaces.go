// Package repository はデータ永続化のインターフェースとその実装（PostgreSQL、MongoDB）を定義する。
//
// 検索系メソッドは該当なしの場合 (nil, nil) を返す。
// 作成時の一意制約違反は ErrConflict、更新・削除対象が存在しない場合は ErrNotFound、
// ストアへの到達やクエリ自体の失敗は ErrStoreUnavailable でラップして返す。
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/resumekit/internal/model"
)

var (
	// ErrNotFound は更新・削除対象のレコードが存在しない場合のエラー。
	ErrNotFound = errors.New("record not found")
	// ErrConflict は一意制約に違反した場合のエラー。
	ErrConflict = errors.New("record conflicts with an existing record")
	// ErrStoreUnavailable はストアの操作自体が失敗した場合のエラー。
	ErrStoreUnavailable = errors.New("store unavailable")
)

// unavailable はストア操作の失敗をErrStoreUnavailableでラップする。
func unavailable(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrStoreUnavailable, err)
}

// IdentityStore はアイデンティティレコードの永続化インターフェース。
// メールアドレスは大文字小文字を区別せず一意であることをストア側で保証する。
type IdentityStore interface {
	// FindByEmail はメールアドレスでアイデンティティを検索する。
	// includeHashがfalseの場合、パスワードハッシュは読み込まない。
	FindByEmail(ctx context.Context, email string, includeHash bool) (*model.Identity, error)

	// FindByID は指定IDのアイデンティティを取得する。パスワードハッシュは読み込まない。
	FindByID(ctx context.Context, id string) (*model.Identity, error)

	// Create はアイデンティティを作成し、IDとタイムスタンプを設定して返す。
	// メールアドレスが既に存在する場合はErrConflictを返す。
	Create(ctx context.Context, identity *model.Identity) (*model.Identity, error)

	// Update はプロフィール項目を更新する。対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, id string, update model.IdentityUpdate) (*model.Identity, error)

	// TouchLastLogin は最終ログイン日時を記録する。
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// ResumeStore はレジュメの永続化インターフェース。
// 削除は論理削除（active=false）で、物理削除はDeleteInactiveBeforeで行う。
type ResumeStore interface {
	// FindByOwner は所有者の有効なレジュメのサマリーを更新日時の降順で返す。
	FindByOwner(ctx context.Context, ownerID string) ([]model.ResumeSummary, error)

	// FindByID は指定IDの有効なレジュメを取得する。
	FindByID(ctx context.Context, id string) (*model.Resume, error)

	// Create はレジュメを作成し、IDとタイムスタンプを設定して返す。
	Create(ctx context.Context, resume *model.Resume) (*model.Resume, error)

	// Update は所有者のレジュメ本体を置き換える。対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, id, ownerID string, content model.ResumeContent) (*model.Resume, error)

	// Deactivate は所有者のレジュメを論理削除する。対象が存在しない場合はErrNotFoundを返す。
	Deactivate(ctx context.Context, id, ownerID string) error

	// IncrementAnalytics は利用イベントのカウンタを1増やし、更新後の統計を返す。
	IncrementAnalytics(ctx context.Context, id, ownerID string, event model.AnalyticsEvent, at time.Time) (*model.Analytics, error)

	// StatsByOwner は所有者の有効なレジュメの件数・閲覧数・ダウンロード数を集計する。
	StatsByOwner(ctx context.Context, ownerID string) (*model.ResumeStats, error)

	// DeleteInactiveBefore は論理削除から保持期間を過ぎたレジュメを物理削除し、削除件数を返す。
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TemplateStore はテンプレートカタログの永続化インターフェース。
type TemplateStore interface {
	// ListActive は有効なテンプレートを人気順で返す。categoryが空の場合は全カテゴリを返す。
	ListActive(ctx context.Context, category model.TemplateCategory) ([]*model.Template, error)

	// FindByID は指定IDのテンプレートを取得する。
	FindByID(ctx context.Context, id string) (*model.Template, error)
}
