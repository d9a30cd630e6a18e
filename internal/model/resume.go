package model

import "time"

// TemplateCategory はテンプレートのカテゴリを表す。
type TemplateCategory string

const (
	CategoryClassic    TemplateCategory = "Classic"
	CategoryModern     TemplateCategory = "Modern"
	CategoryMinimalist TemplateCategory = "Minimalist"
	CategoryCreative   TemplateCategory = "Creative"
	CategoryTech       TemplateCategory = "Tech"
	CategoryAcademic   TemplateCategory = "Academic"
)

// Valid はカテゴリが定義済みの値かどうかを返す。
func (c TemplateCategory) Valid() bool {
	switch c {
	case CategoryClassic, CategoryModern, CategoryMinimalist, CategoryCreative, CategoryTech, CategoryAcademic:
		return true
	default:
		return false
	}
}

// DefaultSectionOrder はレジュメのセクション表示順の初期値。
var DefaultSectionOrder = []string{
	"summary", "experience", "education", "skills", "projects", "certifications", "languages",
}

// DefaultLanguageProficiency は語学レベル未指定時の初期値。
const DefaultLanguageProficiency = "Professional Working"

// AnalyticsEvent はレジュメに対して記録する利用イベントの種別。
type AnalyticsEvent string

const (
	EventView     AnalyticsEvent = "view"
	EventDownload AnalyticsEvent = "download"
	EventShare    AnalyticsEvent = "share"
)

// Valid はイベント種別が定義済みの値かどうかを返す。
func (e AnalyticsEvent) Valid() bool {
	return e == EventView || e == EventDownload || e == EventShare
}

// PersonalInfo はレジュメの個人情報セクション。
// リンク系の項目はhttp・httpsの絶対URLのみ受け付ける。
type PersonalInfo struct {
	FullName     string            `json:"fullName" bson:"fullName" validate:"max=200"`
	Email        string            `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Phone        string            `json:"phone,omitempty" bson:"phone,omitempty" validate:"max=50"`
	Address      string            `json:"address,omitempty" bson:"address,omitempty"`
	City         string            `json:"city,omitempty" bson:"city,omitempty"`
	State        string            `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode      string            `json:"zipCode,omitempty" bson:"zipCode,omitempty"`
	Country      string            `json:"country,omitempty" bson:"country,omitempty"`
	Title        string            `json:"title,omitempty" bson:"title,omitempty"`
	Summary      string            `json:"summary,omitempty" bson:"summary,omitempty" validate:"max=5000"`
	Website      string            `json:"website,omitempty" bson:"website,omitempty" validate:"omitempty,http_url"`
	LinkedIn     string            `json:"linkedin,omitempty" bson:"linkedin,omitempty" validate:"omitempty,http_url"`
	GitHub       string            `json:"github,omitempty" bson:"github,omitempty" validate:"omitempty,http_url"`
	PortfolioURL string            `json:"portfolioURL,omitempty" bson:"portfolioURL,omitempty" validate:"omitempty,http_url"`
	Photo        string            `json:"photo,omitempty" bson:"photo,omitempty" validate:"omitempty,http_url"`
	SocialLinks  map[string]string `json:"socialLinks,omitempty" bson:"socialLinks,omitempty" validate:"omitempty,dive,http_url"`
}

// Education は学歴の1件。
type Education struct {
	Institution  string     `json:"institution" bson:"institution" validate:"required"`
	Degree       string     `json:"degree,omitempty" bson:"degree,omitempty"`
	FieldOfStudy string     `json:"fieldOfStudy,omitempty" bson:"fieldOfStudy,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
	Current      bool       `json:"current,omitempty" bson:"current,omitempty"`
	GPA          string     `json:"gpa,omitempty" bson:"gpa,omitempty"`
	Description  string     `json:"description,omitempty" bson:"description,omitempty"`
	Location     string     `json:"location,omitempty" bson:"location,omitempty"`
}

// Experience は職歴の1件。
type Experience struct {
	Company      string     `json:"company" bson:"company" validate:"required"`
	Position     string     `json:"position" bson:"position" validate:"required"`
	Location     string     `json:"location,omitempty" bson:"location,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
	Current      bool       `json:"current,omitempty" bson:"current,omitempty"`
	Description  string     `json:"description,omitempty" bson:"description,omitempty"`
	Achievements []string   `json:"achievements,omitempty" bson:"achievements,omitempty"`
	Technologies []string   `json:"technologies,omitempty" bson:"technologies,omitempty"`
}

// Skill はスキルの1件。Levelは0から100。
type Skill struct {
	Name     string `json:"name" bson:"name" validate:"required"`
	Level    int    `json:"level" bson:"level" validate:"min=0,max=100"`
	Category string `json:"category,omitempty" bson:"category,omitempty"`
}

// Project はプロジェクトの1件。
type Project struct {
	Name         string     `json:"name" bson:"name" validate:"required"`
	Description  string     `json:"description,omitempty" bson:"description,omitempty"`
	URL          string     `json:"url,omitempty" bson:"url,omitempty" validate:"omitempty,http_url"`
	Technologies []string   `json:"technologies,omitempty" bson:"technologies,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
}

// Certification は資格の1件。
type Certification struct {
	Name          string     `json:"name" bson:"name" validate:"required"`
	Issuer        string     `json:"issuer,omitempty" bson:"issuer,omitempty"`
	Date          *time.Time `json:"date,omitempty" bson:"date,omitempty"`
	ExpiryDate    *time.Time `json:"expiryDate,omitempty" bson:"expiryDate,omitempty"`
	CredentialID  string     `json:"credentialId,omitempty" bson:"credentialId,omitempty"`
	CredentialURL string     `json:"credentialUrl,omitempty" bson:"credentialUrl,omitempty" validate:"omitempty,http_url"`
}

// Language は語学の1件。
type Language struct {
	Name        string `json:"name" bson:"name" validate:"required"`
	Proficiency string `json:"proficiency" bson:"proficiency" validate:"omitempty,oneof='Elementary' 'Limited Working' 'Professional Working' 'Full Professional' 'Native'"`
}

// CustomSection はユーザー定義セクション。
type CustomSection struct {
	Title   string `json:"title" bson:"title" validate:"required"`
	Content string `json:"content" bson:"content"`
}

// TemplateRef はレジュメが使用するテンプレートへの参照。
type TemplateRef struct {
	ID       string           `json:"id,omitempty" bson:"id,omitempty"`
	Name     string           `json:"name,omitempty" bson:"name,omitempty"`
	Category TemplateCategory `json:"category" bson:"category" validate:"omitempty,oneof=Classic Modern Minimalist Creative Tech Academic"`
}

// Customization はレジュメの見た目の設定。
type Customization struct {
	PrimaryColor   string `json:"primaryColor" bson:"primaryColor" validate:"omitempty,hexcolor"`
	SecondaryColor string `json:"secondaryColor" bson:"secondaryColor" validate:"omitempty,hexcolor"`
	FontSize       string `json:"fontSize" bson:"fontSize" validate:"omitempty,oneof=small medium large"`
	FontFamily     string `json:"fontFamily" bson:"fontFamily"`
	Spacing        string `json:"spacing" bson:"spacing" validate:"omitempty,oneof=compact normal relaxed"`
	Layout         string `json:"layout" bson:"layout"`
	ShowPhoto      *bool  `json:"showPhoto,omitempty" bson:"showPhoto,omitempty"`
}

// Analytics はレジュメの利用統計。
type Analytics struct {
	Views        int64      `json:"views" bson:"views"`
	Downloads    int64      `json:"downloads" bson:"downloads"`
	Shares       int64      `json:"shares" bson:"shares"`
	LastViewedAt *time.Time `json:"lastViewedAt,omitempty" bson:"lastViewedAt,omitempty"`
}

// ResumeContent はユーザーが編集可能なレジュメ本体。
type ResumeContent struct {
	Name           string          `json:"name" bson:"name" validate:"required,max=200"`
	PersonalInfo   PersonalInfo    `json:"personalInfo" bson:"personalInfo"`
	Education      []Education     `json:"education" bson:"education" validate:"dive"`
	Experience     []Experience    `json:"experience" bson:"experience" validate:"dive"`
	Skills         []Skill         `json:"skills" bson:"skills" validate:"dive"`
	Projects       []Project       `json:"projects" bson:"projects" validate:"dive"`
	Certifications []Certification `json:"certifications" bson:"certifications" validate:"dive"`
	Languages      []Language      `json:"languages" bson:"languages" validate:"dive"`
	CustomSections []CustomSection `json:"customSections" bson:"customSections" validate:"dive"`
	Template       TemplateRef     `json:"template" bson:"template"`
	Customization  Customization   `json:"customization" bson:"customization"`
	SectionOrder   []string        `json:"sectionOrder" bson:"sectionOrder"`
}

// ApplyDefaults は未指定のフィールドに初期値を設定する。
func (c *ResumeContent) ApplyDefaults() {
	if c.Template.Category == "" {
		c.Template.Category = CategoryModern
	}
	if c.Customization.PrimaryColor == "" {
		c.Customization.PrimaryColor = "#0073ff"
	}
	if c.Customization.SecondaryColor == "" {
		c.Customization.SecondaryColor = "#0ea5e9"
	}
	if c.Customization.FontSize == "" {
		c.Customization.FontSize = "medium"
	}
	if c.Customization.FontFamily == "" {
		c.Customization.FontFamily = "Inter"
	}
	if c.Customization.Spacing == "" {
		c.Customization.Spacing = "normal"
	}
	if c.Customization.Layout == "" {
		c.Customization.Layout = "standard"
	}
	if c.Customization.ShowPhoto == nil {
		show := true
		c.Customization.ShowPhoto = &show
	}
	if len(c.SectionOrder) == 0 {
		c.SectionOrder = append([]string(nil), DefaultSectionOrder...)
	}
	for i := range c.Languages {
		if c.Languages[i].Proficiency == "" {
			c.Languages[i].Proficiency = DefaultLanguageProficiency
		}
	}
}

// Resume は永続化されるレジュメを表す。
type Resume struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	ResumeContent
	Analytics Analytics `json:"analytics"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary は一覧表示用のサマリーを返す。
func (r *Resume) Summary() ResumeSummary {
	return ResumeSummary{
		ID:            r.ID,
		Name:          r.Name,
		FullName:      r.PersonalInfo.FullName,
		Template:      r.Template,
		Customization: r.Customization,
		Analytics:     r.Analytics,
		UpdatedAt:     r.UpdatedAt,
	}
}

// ResumeSummary はレジュメ一覧の1件。
type ResumeSummary struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	FullName      string        `json:"fullName"`
	Template      TemplateRef   `json:"template"`
	Customization Customization `json:"customization"`
	Analytics     Analytics     `json:"analytics"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// ResumeStats はダッシュボードに表示する集計値。
type ResumeStats struct {
	TotalResumes   int   `json:"totalResumes"`
	TotalViews     int64 `json:"totalViews"`
	TotalDownloads int64 `json:"totalDownloads"`
}
