package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/resumekit/internal/model"
)

const resumeColumns = `id, owner_id, content, views, downloads, shares, last_viewed_at, active, created_at, updated_at`

// PostgresResumeRepo はPostgreSQLを使用したレジュメリポジトリ。
// レジュメ本体はJSONBカラムに保存する。
type PostgresResumeRepo struct {
	db *sql.DB
}

// NewPostgresResumeRepo はPostgresResumeRepoを生成する。
func NewPostgresResumeRepo(db *sql.DB) *PostgresResumeRepo {
	return &PostgresResumeRepo{db: db}
}

// FindByOwner は所有者の有効なレジュメのサマリーを更新日時の降順で返す。
func (r *PostgresResumeRepo) FindByOwner(ctx context.Context, ownerID string) ([]model.ResumeSummary, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return []model.ResumeSummary{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resumeColumns+`
		 FROM resumes
		 WHERE owner_id = $1 AND active = TRUE
		 ORDER BY updated_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, unavailable("list resumes by owner", err)
	}
	defer rows.Close()

	summaries := []model.ResumeSummary{}
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, unavailable("scan resume", err)
		}
		summaries = append(summaries, resume.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate resumes", err)
	}
	return summaries, nil
}

// FindByID は指定IDの有効なレジュメを取得する。見つからない場合はnilを返す。
func (r *PostgresResumeRepo) FindByID(ctx context.Context, id string) (*model.Resume, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	resume, err := scanResume(r.db.QueryRowContext(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE id = $1 AND active = TRUE`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find resume by ID", err)
	}
	return resume, nil
}

// Create はレジュメを作成する。
func (r *PostgresResumeRepo) Create(ctx context.Context, resume *model.Resume) (*model.Resume, error) {
	content, err := json.Marshal(resume.ResumeContent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resume content: %w", err)
	}

	created, err := scanResume(r.db.QueryRowContext(ctx,
		`INSERT INTO resumes (owner_id, content)
		 VALUES ($1, $2)
		 RETURNING `+resumeColumns,
		resume.OwnerID, content,
	))
	if err != nil {
		return nil, unavailable("insert resume", err)
	}
	return created, nil
}

// Update は所有者のレジュメ本体を置き換える。
func (r *PostgresResumeRepo) Update(ctx context.Context, id, ownerID string, content model.ResumeContent) (*model.Resume, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resume content: %w", err)
	}

	updated, err := scanResume(r.db.QueryRowContext(ctx,
		`UPDATE resumes
		 SET content = $3, updated_at = NOW()
		 WHERE id = $1 AND owner_id = $2 AND active = TRUE
		 RETURNING `+resumeColumns,
		id, ownerID, raw,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("update resume", err)
	}
	return updated, nil
}

// Deactivate は所有者のレジュメを論理削除する。
func (r *PostgresResumeRepo) Deactivate(ctx context.Context, id, ownerID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE resumes SET active = FALSE, updated_at = NOW()
		 WHERE id = $1 AND owner_id = $2 AND active = TRUE`,
		id, ownerID,
	)
	if err != nil {
		return unavailable("deactivate resume", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return unavailable("get rows affected", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementAnalytics は利用イベントのカウンタを1増やす。
// 閲覧イベントの場合は最終閲覧日時も更新する。
func (r *PostgresResumeRepo) IncrementAnalytics(ctx context.Context, id, ownerID string, event model.AnalyticsEvent, at time.Time) (*model.Analytics, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := `UPDATE resumes SET `
	args := []any{id, ownerID}
	switch event {
	case model.EventView:
		query += `views = views + 1, last_viewed_at = $3`
		args = append(args, at)
	case model.EventDownload:
		query += `downloads = downloads + 1`
	case model.EventShare:
		query += `shares = shares + 1`
	default:
		return nil, fmt.Errorf("unknown analytics event %q", event)
	}
	query += `
		 WHERE id = $1 AND owner_id = $2 AND active = TRUE
		 RETURNING views, downloads, shares, last_viewed_at`

	var (
		analytics    model.Analytics
		lastViewedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&analytics.Views, &analytics.Downloads, &analytics.Shares, &lastViewedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("increment resume analytics", err)
	}
	if lastViewedAt.Valid {
		t := lastViewedAt.Time
		analytics.LastViewedAt = &t
	}
	return &analytics, nil
}

// StatsByOwner は所有者の有効なレジュメを集計する。
func (r *PostgresResumeRepo) StatsByOwner(ctx context.Context, ownerID string) (*model.ResumeStats, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return &model.ResumeStats{}, nil
	}

	var stats model.ResumeStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(views), 0), COALESCE(SUM(downloads), 0)
		 FROM resumes
		 WHERE owner_id = $1 AND active = TRUE`,
		ownerID,
	).Scan(&stats.TotalResumes, &stats.TotalViews, &stats.TotalDownloads)
	if err != nil {
		return nil, unavailable("aggregate resume stats", err)
	}
	return &stats, nil
}

// DeleteInactiveBefore は論理削除後にcutoffより前から更新されていないレジュメを物理削除する。
func (r *PostgresResumeRepo) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM resumes WHERE active = FALSE AND updated_at < $1`, cutoff,
	)
	if err != nil {
		return 0, unavailable("delete inactive resumes", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, unavailable("get rows affected", err)
	}
	return deleted, nil
}

// scanResume はresumeColumnsの順で並んだ行を読み込む。
func scanResume(row rowScanner) (*model.Resume, error) {
	var (
		resume       model.Resume
		content      []byte
		lastViewedAt sql.NullTime
	)

	err := row.Scan(
		&resume.ID, &resume.OwnerID, &content,
		&resume.Analytics.Views, &resume.Analytics.Downloads, &resume.Analytics.Shares,
		&lastViewedAt, &resume.Active, &resume.CreatedAt, &resume.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(content, &resume.ResumeContent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resume content: %w", err)
	}
	if lastViewedAt.Valid {
		t := lastViewedAt.Time
		resume.Analytics.LastViewedAt = &t
	}
	return &resume, nil
}

// compile-time interface check
var _ ResumeStore = (*PostgresResumeRepo)(nil)
