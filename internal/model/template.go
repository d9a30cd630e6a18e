package model

import (
	"sort"
	"time"
)

// Template はレジュメテンプレートのカタログ項目を表す。
type Template struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Category     TemplateCategory `json:"category"`
	PreviewImage string           `json:"previewImage,omitempty"`
	Thumbnail    string           `json:"thumbnailImage,omitempty"`
	IsPremium    bool             `json:"isPremium"`
	IsActive     bool             `json:"isActive"`
	Popularity   int              `json:"popularity"`
	Tags         []string         `json:"tags"`
	TemplateDesign
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SectionType はテンプレートが配置できるセクションの種別。
type SectionType string

const (
	SectionHeader         SectionType = "header"
	SectionSummary        SectionType = "summary"
	SectionExperience     SectionType = "experience"
	SectionEducation      SectionType = "education"
	SectionSkills         SectionType = "skills"
	SectionProjects       SectionType = "projects"
	SectionCertifications SectionType = "certifications"
	SectionLanguages      SectionType = "languages"
	SectionCustom         SectionType = "custom"
)

// TemplateSection はテンプレート内のセクション定義。
type TemplateSection struct {
	ID             string      `json:"id" bson:"id"`
	Name           string      `json:"name" bson:"name"`
	Type           SectionType `json:"type" bson:"type"`
	IsRequired     bool        `json:"isRequired" bson:"isRequired"`
	DefaultVisible bool        `json:"defaultVisible" bson:"defaultVisible"`
	Order          int         `json:"order" bson:"order"`
}

// LayoutOption はテンプレートが提供するレイアウト。
type LayoutOption struct {
	ID           string `json:"id" bson:"id"`
	Name         string `json:"name" bson:"name"`
	Description  string `json:"description,omitempty" bson:"description,omitempty"`
	PreviewImage string `json:"previewImage,omitempty" bson:"previewImage,omitempty"`
}

// ColorScheme はテンプレートの配色。
type ColorScheme struct {
	ID              string `json:"id" bson:"id"`
	Name            string `json:"name" bson:"name"`
	PrimaryColor    string `json:"primaryColor" bson:"primaryColor"`
	SecondaryColor  string `json:"secondaryColor" bson:"secondaryColor"`
	AccentColor     string `json:"accentColor,omitempty" bson:"accentColor,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty" bson:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty" bson:"textColor,omitempty"`
}

// FontOption はテンプレートで選択できるフォント。
// Categoryはserif、sans-serif、monospace、display、handwritingのいずれか。
type FontOption struct {
	ID         string `json:"id" bson:"id"`
	Name       string `json:"name" bson:"name"`
	FontFamily string `json:"fontFamily" bson:"fontFamily"`
	Category   string `json:"category" bson:"category"`
}

// TemplateDesign はテンプレートの構成要素と初期選択。
// DefaultLayout、DefaultColorScheme、DefaultFontは各一覧のIDを指す。
type TemplateDesign struct {
	Sections           []TemplateSection `json:"sections" bson:"sections"`
	Layouts            []LayoutOption    `json:"layouts" bson:"layouts"`
	ColorSchemes       []ColorScheme     `json:"colorSchemes" bson:"colorSchemes"`
	FontOptions        []FontOption      `json:"fontOptions" bson:"fontOptions"`
	DefaultLayout      string            `json:"defaultLayout" bson:"defaultLayout"`
	DefaultColorScheme string            `json:"defaultColorScheme" bson:"defaultColorScheme"`
	DefaultFont        string            `json:"defaultFont" bson:"defaultFont"`
}

// Normalize はnilの一覧を空スライスにする。JSONで常に配列を返すため。
func (d *TemplateDesign) Normalize() {
	if d.Sections == nil {
		d.Sections = []TemplateSection{}
	}
	if d.Layouts == nil {
		d.Layouts = []LayoutOption{}
	}
	if d.ColorSchemes == nil {
		d.ColorSchemes = []ColorScheme{}
	}
	if d.FontOptions == nil {
		d.FontOptions = []FontOption{}
	}
}

// ColorScheme は指定IDの配色を返す。
func (d *TemplateDesign) ColorScheme(id string) (ColorScheme, bool) {
	for _, cs := range d.ColorSchemes {
		if cs.ID == id {
			return cs, true
		}
	}
	return ColorScheme{}, false
}

// Font は指定IDのフォントを返す。
func (d *TemplateDesign) Font(id string) (FontOption, bool) {
	for _, f := range d.FontOptions {
		if f.ID == id {
			return f, true
		}
	}
	return FontOption{}, false
}

// SectionOrder は初期表示するセクションを表示順に返す。
// ヘッダーは常に先頭に描画されるため含めない。カスタムセクションはIDで表す。
func (d *TemplateDesign) SectionOrder() []string {
	sections := make([]TemplateSection, 0, len(d.Sections))
	for _, s := range d.Sections {
		if s.Type == SectionHeader || (!s.DefaultVisible && !s.IsRequired) {
			continue
		}
		sections = append(sections, s)
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })

	order := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.Type == SectionCustom {
			order = append(order, s.ID)
			continue
		}
		order = append(order, string(s.Type))
	}
	return order
}

// ApplyDefaults はテンプレートの初期選択をレジュメの未指定項目に反映する。
// ユーザーが指定済みの値は変更しない。
func (d *TemplateDesign) ApplyDefaults(c *ResumeContent) {
	cust := &c.Customization
	if cust.Layout == "" {
		cust.Layout = d.DefaultLayout
	}
	if cs, ok := d.ColorScheme(d.DefaultColorScheme); ok {
		if cust.PrimaryColor == "" {
			cust.PrimaryColor = cs.PrimaryColor
		}
		if cust.SecondaryColor == "" {
			cust.SecondaryColor = cs.SecondaryColor
		}
	}
	if f, ok := d.Font(d.DefaultFont); ok && cust.FontFamily == "" {
		cust.FontFamily = f.FontFamily
	}
	if len(c.SectionOrder) == 0 {
		if order := d.SectionOrder(); len(order) > 0 {
			c.SectionOrder = order
		}
	}
}

// Ref はレジュメに埋め込むテンプレート参照を返す。
func (t *Template) Ref() TemplateRef {
	return TemplateRef{ID: t.ID, Name: t.Name, Category: t.Category}
}
