package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/resumekit/internal/model"
)

// pgUniqueViolation は一意制約違反のSQLSTATE。
const pgUniqueViolation = "23505"

const identityColumns = `id, email, name, avatar_url, phone, role, plan, provider,
	oauth_issuer, oauth_subject, email_verified, last_login_at, created_at, updated_at`

// PostgresIdentityRepo はPostgreSQLを使用したアイデンティティリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByEmail はメールアドレス（大文字小文字を区別しない）でアイデンティティを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByEmail(ctx context.Context, email string, includeHash bool) (*model.Identity, error) {
	query := `SELECT ` + identityColumns + `, NULL::TEXT FROM users WHERE LOWER(email) = LOWER($1)`
	if includeHash {
		query = `SELECT ` + identityColumns + `, password_hash FROM users WHERE LOWER(email) = LOWER($1)`
	}

	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, model.NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find identity by email", err)
	}
	return identity, nil
}

// FindByID は指定IDのアイデンティティを取得する。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	identity, err := scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+`, NULL::TEXT FROM users WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find identity by ID", err)
	}
	return identity, nil
}

// Create はアイデンティティを作成する。
// メールアドレスが重複する場合はErrConflictを返す。
func (r *PostgresIdentityRepo) Create(ctx context.Context, identity *model.Identity) (*model.Identity, error) {
	created := *identity
	created.ID = uuid.NewString()
	created.Email = model.NormalizeEmail(identity.Email)

	var passwordHash, oauthIssuer, oauthSubject sql.NullString
	switch c := identity.Credential.(type) {
	case model.PasswordCredential:
		passwordHash = sql.NullString{String: c.PasswordHash, Valid: true}
	case model.OAuthCredential:
		oauthIssuer = sql.NullString{String: c.Issuer, Valid: true}
		oauthSubject = sql.NullString{String: c.SubjectID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, name, avatar_url, phone, role, plan, provider,
		                    password_hash, oauth_issuer, oauth_subject, email_verified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		created.ID, created.Email, created.Name, created.AvatarURL, created.Phone,
		string(created.Role), string(created.Plan), string(created.Provider()),
		passwordHash, oauthIssuer, oauthSubject, created.EmailVerified,
	).Scan(&created.CreatedAt, &created.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, unavailable("insert identity", err)
	}

	if passwordHash.Valid {
		created.Credential = model.PasswordCredential{}
	}
	return &created, nil
}

// Update はプロフィール項目を更新する。nilの項目は変更しない。
// 対象が存在しない場合はErrNotFoundを返す。
func (r *PostgresIdentityRepo) Update(ctx context.Context, id string, update model.IdentityUpdate) (*model.Identity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	if update.IsEmpty() {
		identity, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if identity == nil {
			return nil, ErrNotFound
		}
		return identity, nil
	}

	identity, err := scanIdentity(r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET name = COALESCE($2, name),
		     avatar_url = COALESCE($3, avatar_url),
		     phone = COALESCE($4, phone),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+identityColumns+`, NULL::TEXT`,
		id, update.Name, update.AvatarURL, update.Phone,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("update identity", err)
	}
	return identity, nil
}

// TouchLastLogin は最終ログイン日時を記録する。
func (r *PostgresIdentityRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at,
	)
	if err != nil {
		return unavailable("update last login", err)
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

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanIdentity はidentityColumnsとpassword_hashの順で並んだ行を読み込む。
func scanIdentity(row rowScanner) (*model.Identity, error) {
	var (
		identity                  model.Identity
		role, plan, provider      string
		oauthIssuer, oauthSubject sql.NullString
		lastLoginAt               sql.NullTime
		passwordHash              sql.NullString
	)

	err := row.Scan(
		&identity.ID, &identity.Email, &identity.Name, &identity.AvatarURL, &identity.Phone,
		&role, &plan, &provider,
		&oauthIssuer, &oauthSubject, &identity.EmailVerified, &lastLoginAt,
		&identity.CreatedAt, &identity.UpdatedAt,
		&passwordHash,
	)
	if err != nil {
		return nil, err
	}

	identity.Role = model.Role(role)
	identity.Plan = model.Plan(plan)
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		identity.LastLoginAt = &t
	}

	switch model.Provider(provider) {
	case model.ProviderOAuth:
		identity.Credential = model.OAuthCredential{Issuer: oauthIssuer.String, SubjectID: oauthSubject.String}
	default:
		identity.Credential = model.PasswordCredential{PasswordHash: passwordHash.String}
	}

	return &identity, nil
}

// isUniqueViolation はPostgreSQLの一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

// compile-time interface check
var _ IdentityStore = (*PostgresIdentityRepo)(nil)
