package repository

import (
	"context"
	"reflect"
	"testing"

	"github.com/hitoshi/resumekit/internal/model"
)

func TestPostgresTemplateRepo_ListActive_ReturnsSeededCatalog(t *testing.T) {
	db := setupPostgres(t)
	repo := NewPostgresTemplateRepo(db)

	templates, err := repo.ListActive(context.Background(), "")
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(templates) != len(DefaultTemplates()) {
		t.Fatalf("len(templates) = %d, want %d", len(templates), len(DefaultTemplates()))
	}
	if templates[0].ID != "modern-blue" {
		t.Errorf("templates[0].ID = %q, want most popular %q", templates[0].ID, "modern-blue")
	}
	for i := 1; i < len(templates); i++ {
		if templates[i-1].Popularity < templates[i].Popularity {
			t.Errorf("templates not sorted by popularity at %d", i)
		}
	}
}

func TestPostgresTemplateRepo_ListActive_FiltersByCategory(t *testing.T) {
	db := setupPostgres(t)
	repo := NewPostgresTemplateRepo(db)

	templates, err := repo.ListActive(context.Background(), model.CategoryTech)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(templates) != 1 || templates[0].ID != "tech-grid" {
		t.Errorf("templates = %+v, want only tech-grid", templates)
	}
	if len(templates[0].Tags) != 2 {
		t.Errorf("Tags = %v, want 2 tags", templates[0].Tags)
	}
}

func TestPostgresTemplateRepo_FindByID(t *testing.T) {
	db := setupPostgres(t)
	repo := NewPostgresTemplateRepo(db)
	ctx := context.Background()

	got, err := repo.FindByID(ctx, "academic-cv")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got == nil || !got.IsPremium {
		t.Fatalf("FindByID = %+v, want premium academic-cv", got)
	}

	missing, err := repo.FindByID(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil, got %+v", missing)
	}
}

// マイグレーション 000004 のデザインがMongoDB用の初期カタログと一致すること
func TestPostgresTemplateRepo_DesignMatchesDefaultTemplates(t *testing.T) {
	db := setupPostgres(t)
	repo := NewPostgresTemplateRepo(db)
	ctx := context.Background()

	for _, want := range DefaultTemplates() {
		got, err := repo.FindByID(ctx, want.ID)
		if err != nil {
			t.Fatalf("FindByID(%q) failed: %v", want.ID, err)
		}
		if got == nil {
			t.Fatalf("FindByID(%q) = nil", want.ID)
		}
		if !reflect.DeepEqual(got.TemplateDesign, want.TemplateDesign) {
			t.Errorf("design of %q = %+v, want %+v", want.ID, got.TemplateDesign, want.TemplateDesign)
		}
	}
}

// マイグレーションの投入内容とMongoDB用の初期カタログが一致すること
func TestDefaultTemplates_Consistent(t *testing.T) {
	seen := map[string]bool{}
	for _, tmpl := range DefaultTemplates() {
		if seen[tmpl.ID] {
			t.Errorf("duplicate template ID %q", tmpl.ID)
		}
		seen[tmpl.ID] = true
		if !tmpl.Category.Valid() {
			t.Errorf("template %q has invalid category %q", tmpl.ID, tmpl.Category)
		}
	}
	if len(seen) != 6 {
		t.Errorf("len(DefaultTemplates()) = %d, want 6", len(seen))
	}
}

// 初期選択が各一覧に含まれ、ヘッダーが必須であること
func TestDefaultTemplates_DesignReferencesResolve(t *testing.T) {
	for _, tmpl := range DefaultTemplates() {
		t.Run(tmpl.ID, func(t *testing.T) {
			if _, ok := tmpl.ColorScheme(tmpl.DefaultColorScheme); !ok {
				t.Errorf("DefaultColorScheme %q not in ColorSchemes", tmpl.DefaultColorScheme)
			}
			if _, ok := tmpl.Font(tmpl.DefaultFont); !ok {
				t.Errorf("DefaultFont %q not in FontOptions", tmpl.DefaultFont)
			}
			found := false
			for _, l := range tmpl.Layouts {
				if l.ID == tmpl.DefaultLayout {
					found = true
				}
			}
			if !found {
				t.Errorf("DefaultLayout %q not in Layouts", tmpl.DefaultLayout)
			}
			if len(tmpl.Sections) == 0 || tmpl.Sections[0].Type != model.SectionHeader || !tmpl.Sections[0].IsRequired {
				t.Errorf("first section = %+v, want required header", tmpl.Sections)
			}
			ids := map[string]bool{}
			for _, s := range tmpl.Sections {
				if ids[s.ID] {
					t.Errorf("duplicate section ID %q", s.ID)
				}
				ids[s.ID] = true
			}
		})
	}
}
