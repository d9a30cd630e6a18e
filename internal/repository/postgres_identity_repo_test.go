package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/resumekit/internal/model"
)

func newPasswordIdentity(email string) *model.Identity {
	return &model.Identity{
		Email:      email,
		Name:       "Test User",
		Role:       model.RoleUser,
		Plan:       model.PlanFree,
		Credential: model.PasswordCredential{PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"},
	}
}

func TestNewPostgresIdentityRepo_Initializes(t *testing.T) {
	if repo := NewPostgresIdentityRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// 不正なUUIDはDBに問い合わせずに未検出として扱う
func TestPostgresIdentityRepo_FindByID_InvalidUUID_ReturnsNil(t *testing.T) {
	repo := NewPostgresIdentityRepo(nil)

	got, err := repo.FindByID(context.Background(), "not-a-uuid")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil identity, got %+v", got)
	}
}

func TestPostgresIdentityRepo_Update_InvalidUUID_ReturnsNotFound(t *testing.T) {
	repo := NewPostgresIdentityRepo(nil)
	name := "x"

	_, err := repo.Update(context.Background(), "not-a-uuid", model.IdentityUpdate{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestPostgresIdentityRepo_CreateAndFind(t *testing.T) {
	db := setupPostgres(t)
	repo := NewPostgresIdentityRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newPasswordIdentity("  Alice@Example.COM "))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected ID to be set")
	}
	if created.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", created.Email, "alice@example.com")
	}
	if _, ok := created.PasswordHash(); ok {
		t.Error("created identity should not expose the password hash")
	}

	withoutHash, err := repo.FindByEmail(ctx, "ALICE@example.com", false)
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if withoutHash == nil {
		t.Fatal("expected identity, got nil")
	}
	if _, ok := withoutHash.PasswordHash(); ok {
		t.Error("hash should not be loaded when includeHash is false")
	}
	if withoutHash.Provider() != model.ProviderCredentials {
		t.Errorf("Provider = %q, want %q", withoutHash.Provider(), model.ProviderCredentials)
	}

	withHash, err := repo.FindByEmail(ctx, "alice@example.com", true)
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if hash, ok := withHash.PasswordHash(); !ok || hash == "" {
		t.Error("hash should be loaded when includeHash is true")
	}

	byID, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID == nil || byID.Email != "alice@example.com" {
		t.Errorf("FindByID = %+v, want alice@example.com", byID)
	}
}

func TestPostgresIdentityRepo_FindByEmail_NotFound_ReturnsNil(t *testing.T) {
	db := setupPostgres(t)
	repo := NewPostgresIdentityRepo(db)

	got, err := repo.FindByEmail(context.Background(), "nobody@example.com", true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

// メールアドレスは大文字小文字を区別せず一意
func TestPostgresIdentityRepo_Create_DuplicateEmail_ReturnsConflict(t *testing.T) {
	db := setupPostgres(t)
	repo := NewPostgresIdentityRepo(db)
	ctx := context.Background()

	if _, err := repo.Create(ctx, newPasswordIdentity("bob@example.com")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	oauth := &model.Identity{
		Email:      "BOB@example.com",
		Name:       "Bob",
		Role:       model.RoleUser,
		Plan:       model.PlanFree,
		Credential: model.OAuthCredential{Issuer: "google", SubjectID: "g-1"},
	}
	_, err := repo.Create(ctx, oauth)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestPostgresIdentityRepo_OAuthIdentity_RoundTrip(t *testing.T) {
	db := setupPostgres(t)
	repo := NewPostgresIdentityRepo(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Identity{
		Email:         "carol@example.com",
		Name:          "Carol",
		AvatarURL:     "https://example.com/carol.png",
		Role:          model.RoleUser,
		Plan:          model.PlanFree,
		Credential:    model.OAuthCredential{Issuer: "google", SubjectID: "g-carol"},
		EmailVerified: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.FindByEmail(ctx, "carol@example.com", true)
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	cred, ok := got.Credential.(model.OAuthCredential)
	if !ok {
		t.Fatalf("Credential = %T, want OAuthCredential", got.Credential)
	}
	if cred.Issuer != "google" || cred.SubjectID != "g-carol" {
		t.Errorf("Credential = %+v, want google/g-carol", cred)
	}
	if _, ok := got.PasswordHash(); ok {
		t.Error("OAuth identity should not have a password hash")
	}
	if !got.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
}

func TestPostgresIdentityRepo_Update_PartialFields(t *testing.T) {
	db := setupPostgres(t)
	repo := NewPostgresIdentityRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newPasswordIdentity("dave@example.com"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	phone := "+1-555-0100"
	updated, err := repo.Update(ctx, created.ID, model.IdentityUpdate{Phone: &phone})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Phone != phone {
		t.Errorf("Phone = %q, want %q", updated.Phone, phone)
	}
	if updated.Name != "Test User" {
		t.Errorf("Name = %q, want unchanged %q", updated.Name, "Test User")
	}
}

func TestPostgresIdentityRepo_TouchLastLogin(t *testing.T) {
	db := setupPostgres(t)
	repo := NewPostgresIdentityRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newPasswordIdentity("erin@example.com"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := repo.TouchLastLogin(ctx, created.ID, at); err != nil {
		t.Fatalf("TouchLastLogin failed: %v", err)
	}

	got, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(at) {
		t.Errorf("LastLoginAt = %v, want %v", got.LastLoginAt, at)
	}
}
