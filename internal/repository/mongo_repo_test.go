package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hitoshi/resumekit/internal/database"
	"github.com/hitoshi/resumekit/internal/model"
)

// setupMongo はテストごとに専用データベースを持つMongoStoreを返す。
// TEST_MONGODB_URI が未設定の場合はテストをスキップする。
func setupMongo(t *testing.T) *database.MongoStore {
	t.Helper()

	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI が未設定のためスキップ")
	}

	dbName := fmt.Sprintf("resumekit_test_%d", time.Now().UnixNano())
	store := database.NewMongoStore(uri, dbName, MongoBootstraps()...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if db, err := store.Database(ctx); err == nil {
			_ = db.Drop(ctx)
		}
		_ = store.Close(ctx)
	})

	if err := store.PingContext(context.Background()); err != nil {
		t.Skipf("MongoDBに接続できません（スキップ）: %v", err)
	}
	return store
}

func TestMongoIdentityRepo_FindByID_InvalidObjectID_ReturnsNil(t *testing.T) {
	repo := NewMongoIdentityRepo(nil)

	got, err := repo.FindByID(context.Background(), "not-an-object-id")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestIdentityDocument_ToModel_SelectsCredentialByProvider(t *testing.T) {
	oauth := (&identityDocument{
		ID:           bson.NewObjectID(),
		Provider:     string(model.ProviderOAuth),
		OAuthIssuer:  "google",
		OAuthSubject: "g-1",
	}).toModel()
	if _, ok := oauth.Credential.(model.OAuthCredential); !ok {
		t.Errorf("Credential = %T, want OAuthCredential", oauth.Credential)
	}

	password := (&identityDocument{
		ID:           bson.NewObjectID(),
		Provider:     string(model.ProviderCredentials),
		PasswordHash: "hash",
	}).toModel()
	if hash, ok := password.PasswordHash(); !ok || hash != "hash" {
		t.Errorf("PasswordHash() = %q, %v, want hash, true", hash, ok)
	}
}

func TestContentFields_ContainsTopLevelKeys(t *testing.T) {
	content := model.ResumeContent{Name: "Resume"}
	content.ApplyDefaults()

	fields, err := contentFields(content)
	if err != nil {
		t.Fatalf("contentFields failed: %v", err)
	}

	keys := map[string]bool{}
	for _, f := range fields {
		keys[f.Key] = true
	}
	for _, want := range []string{"name", "personalInfo", "template", "customization", "sectionOrder"} {
		if !keys[want] {
			t.Errorf("missing key %q in %v", want, fields)
		}
	}
}

func TestMongoIdentityRepo_CreateAndConflict(t *testing.T) {
	store := setupMongo(t)
	repo := NewMongoIdentityRepo(store)
	ctx := context.Background()

	created, err := repo.Create(ctx, newPasswordIdentity("Mongo@Example.com"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Email != "mongo@example.com" {
		t.Errorf("Email = %q, want %q", created.Email, "mongo@example.com")
	}

	withoutHash, err := repo.FindByEmail(ctx, "MONGO@example.com", false)
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if _, ok := withoutHash.PasswordHash(); ok {
		t.Error("hash should not be loaded when includeHash is false")
	}

	withHash, err := repo.FindByEmail(ctx, "mongo@example.com", true)
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if _, ok := withHash.PasswordHash(); !ok {
		t.Error("hash should be loaded when includeHash is true")
	}

	_, err = repo.Create(ctx, newPasswordIdentity("mongo@EXAMPLE.com"))
	if !errors.Is(err, ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestMongoResumeRepo_AnalyticsAndStats(t *testing.T) {
	store := setupMongo(t)
	repo := NewMongoResumeRepo(store)
	ctx := context.Background()

	ownerID := bson.NewObjectID().Hex()
	created, err := repo.Create(ctx, newResume(ownerID, "Mongo Resume"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := repo.IncrementAnalytics(ctx, created.ID, ownerID, model.EventView, at); err != nil {
		t.Fatalf("IncrementAnalytics failed: %v", err)
	}
	analytics, err := repo.IncrementAnalytics(ctx, created.ID, ownerID, model.EventDownload, at)
	if err != nil {
		t.Fatalf("IncrementAnalytics failed: %v", err)
	}
	if analytics.Views != 1 || analytics.Downloads != 1 {
		t.Errorf("analytics = %+v, want views=1 downloads=1", analytics)
	}

	stats, err := repo.StatsByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("StatsByOwner failed: %v", err)
	}
	if stats.TotalResumes != 1 || stats.TotalViews != 1 || stats.TotalDownloads != 1 {
		t.Errorf("stats = %+v, want 1/1/1", stats)
	}

	if err := repo.Deactivate(ctx, created.ID, ownerID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	deleted, err := repo.DeleteInactiveBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteInactiveBefore failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestMongoTemplateRepo_SeededCatalog(t *testing.T) {
	store := setupMongo(t)
	repo := NewMongoTemplateRepo(store)

	templates, err := repo.ListActive(context.Background(), model.CategoryAcademic)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(templates) != 1 || templates[0].ID != "academic-cv" {
		t.Fatalf("templates = %+v, want only academic-cv", templates)
	}
	if templates[0].DefaultFont != "garamond" {
		t.Errorf("DefaultFont = %q, want %q", templates[0].DefaultFont, "garamond")
	}
	if len(templates[0].Sections) != 8 {
		t.Errorf("len(Sections) = %d, want 8", len(templates[0].Sections))
	}
}
