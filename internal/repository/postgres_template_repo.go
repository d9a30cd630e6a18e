package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/resumekit/internal/model"
)

const templateColumns = `id, name, description, category, preview_image, thumbnail_image,
	is_premium, is_active, popularity, tags, design, created_at, updated_at`

// PostgresTemplateRepo はPostgreSQLを使用したテンプレートリポジトリ。
type PostgresTemplateRepo struct {
	db *sql.DB
}

// NewPostgresTemplateRepo はPostgresTemplateRepoを生成する。
func NewPostgresTemplateRepo(db *sql.DB) *PostgresTemplateRepo {
	return &PostgresTemplateRepo{db: db}
}

// ListActive は有効なテンプレートを人気順で返す。
func (r *PostgresTemplateRepo) ListActive(ctx context.Context, category model.TemplateCategory) ([]*model.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+templateColumns+`
		 FROM templates
		 WHERE is_active = TRUE AND ($1 = '' OR category = $1)
		 ORDER BY popularity DESC, id ASC`,
		string(category),
	)
	if err != nil {
		return nil, unavailable("list templates", err)
	}
	defer rows.Close()

	templates := []*model.Template{}
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, unavailable("scan template", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate templates", err)
	}
	return templates, nil
}

// FindByID は指定IDの有効なテンプレートを取得する。見つからない場合はnilを返す。
func (r *PostgresTemplateRepo) FindByID(ctx context.Context, id string) (*model.Template, error) {
	tmpl, err := scanTemplate(r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = $1 AND is_active = TRUE`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find template by ID", err)
	}
	return tmpl, nil
}

func scanTemplate(row rowScanner) (*model.Template, error) {
	var (
		tmpl     model.Template
		category string
		design   []byte
	)
	err := row.Scan(
		&tmpl.ID, &tmpl.Name, &tmpl.Description, &category, &tmpl.PreviewImage, &tmpl.Thumbnail,
		&tmpl.IsPremium, &tmpl.IsActive, &tmpl.Popularity, pq.Array(&tmpl.Tags), &design,
		&tmpl.CreatedAt, &tmpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(design) > 0 {
		if err := json.Unmarshal(design, &tmpl.TemplateDesign); err != nil {
			return nil, fmt.Errorf("failed to decode design of template %s: %w", tmpl.ID, err)
		}
	}
	tmpl.Normalize()
	tmpl.Category = model.TemplateCategory(category)
	if tmpl.Tags == nil {
		tmpl.Tags = []string{}
	}
	return &tmpl, nil
}

// compile-time interface check
var _ TemplateStore = (*PostgresTemplateRepo)(nil)
