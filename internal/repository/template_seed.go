package repository

import "github.com/hitoshi/resumekit/internal/model"

var (
	layoutStandard  = model.LayoutOption{ID: "standard", Name: "Standard", Description: "Single column, top to bottom."}
	layoutTwoColumn = model.LayoutOption{ID: "two-column", Name: "Two Column", Description: "Main column with a narrow side column."}
	layoutSidebar   = model.LayoutOption{ID: "sidebar", Name: "Sidebar", Description: "Full height colored sidebar for contact details and skills."}

	schemeNavy     = model.ColorScheme{ID: "navy", Name: "Navy", PrimaryColor: "#1f2937", SecondaryColor: "#4b5563"}
	schemeBurgundy = model.ColorScheme{ID: "burgundy", Name: "Burgundy", PrimaryColor: "#7f1d1d", SecondaryColor: "#b45309"}
	schemeOcean    = model.ColorScheme{ID: "ocean", Name: "Ocean", PrimaryColor: "#0073ff", SecondaryColor: "#0ea5e9"}
	schemeSlate    = model.ColorScheme{ID: "slate", Name: "Slate", PrimaryColor: "#334155", SecondaryColor: "#64748b"}
	schemeMono     = model.ColorScheme{ID: "mono", Name: "Monochrome", PrimaryColor: "#111827", SecondaryColor: "#6b7280"}
	schemeSunset   = model.ColorScheme{ID: "sunset", Name: "Sunset", PrimaryColor: "#e11d48", SecondaryColor: "#f59e0b", AccentColor: "#fde68a"}
	schemeViolet   = model.ColorScheme{ID: "violet", Name: "Violet", PrimaryColor: "#7c3aed", SecondaryColor: "#ec4899"}
	schemeTerminal = model.ColorScheme{ID: "terminal", Name: "Terminal", PrimaryColor: "#16a34a", SecondaryColor: "#0f172a", BackgroundColor: "#f8fafc", TextColor: "#0f172a"}

	fontMerriweather = model.FontOption{ID: "merriweather", Name: "Merriweather", FontFamily: "Merriweather", Category: "serif"}
	fontGaramond     = model.FontOption{ID: "garamond", Name: "EB Garamond", FontFamily: "EB Garamond", Category: "serif"}
	fontInter        = model.FontOption{ID: "inter", Name: "Inter", FontFamily: "Inter", Category: "sans-serif"}
	fontRoboto       = model.FontOption{ID: "roboto", Name: "Roboto", FontFamily: "Roboto", Category: "sans-serif"}
	fontPlexMono     = model.FontOption{ID: "plex-mono", Name: "IBM Plex Mono", FontFamily: "IBM Plex Mono", Category: "monospace"}
	fontPoppins      = model.FontOption{ID: "poppins", Name: "Poppins", FontFamily: "Poppins", Category: "display"}
	fontJetBrains    = model.FontOption{ID: "jetbrains-mono", Name: "JetBrains Mono", FontFamily: "JetBrains Mono", Category: "monospace"}
)

var sectionNames = map[model.SectionType]string{
	model.SectionHeader:         "Header",
	model.SectionSummary:        "Summary",
	model.SectionExperience:     "Experience",
	model.SectionEducation:      "Education",
	model.SectionSkills:         "Skills",
	model.SectionProjects:       "Projects",
	model.SectionCertifications: "Certifications",
	model.SectionLanguages:      "Languages",
}

// sectionsInOrder はヘッダーを先頭に、指定順で表示するセクション一覧を作る。
func sectionsInOrder(types ...model.SectionType) []model.TemplateSection {
	sections := []model.TemplateSection{{
		ID: string(model.SectionHeader), Name: sectionNames[model.SectionHeader], Type: model.SectionHeader,
		IsRequired: true, DefaultVisible: true,
	}}
	for i, typ := range types {
		sections = append(sections, model.TemplateSection{
			ID: string(typ), Name: sectionNames[typ], Type: typ, DefaultVisible: true, Order: i + 1,
		})
	}
	return sections
}

// hidden はIDが一致するセクションを初期非表示にする。
func hidden(sections []model.TemplateSection, ids ...string) []model.TemplateSection {
	for i := range sections {
		for _, id := range ids {
			if sections[i].ID == id {
				sections[i].DefaultVisible = false
			}
		}
	}
	return sections
}

// DefaultTemplates は初期状態のテンプレートカタログを返す。
// PostgreSQLではマイグレーション 000003 と 000004 で同じ内容を投入する。
func DefaultTemplates() []*model.Template {
	standard := []model.SectionType{
		model.SectionSummary, model.SectionExperience, model.SectionEducation, model.SectionSkills,
		model.SectionProjects, model.SectionCertifications, model.SectionLanguages,
	}

	academicSections := append(sectionsInOrder(
		model.SectionSummary, model.SectionEducation, model.SectionExperience,
	), model.TemplateSection{ID: "publications", Name: "Publications", Type: model.SectionCustom, DefaultVisible: true, Order: 4})
	academicSections = append(academicSections,
		model.TemplateSection{ID: "certifications", Name: "Certifications", Type: model.SectionCertifications, DefaultVisible: true, Order: 5},
		model.TemplateSection{ID: "skills", Name: "Skills", Type: model.SectionSkills, DefaultVisible: true, Order: 6},
		model.TemplateSection{ID: "languages", Name: "Languages", Type: model.SectionLanguages, DefaultVisible: true, Order: 7},
	)

	return []*model.Template{
		{
			ID: "classic-serif", Name: "Classic Serif", Description: "Traditional single column layout with serif headings.",
			Category: model.CategoryClassic, Popularity: 80, Tags: []string{"traditional", "single-column"},
			TemplateDesign: model.TemplateDesign{
				Sections:           sectionsInOrder(standard...),
				Layouts:            []model.LayoutOption{layoutStandard},
				ColorSchemes:       []model.ColorScheme{schemeNavy, schemeBurgundy},
				FontOptions:        []model.FontOption{fontMerriweather, fontGaramond},
				DefaultLayout:      layoutStandard.ID,
				DefaultColorScheme: schemeNavy.ID,
				DefaultFont:        fontMerriweather.ID,
			},
		},
		{
			ID: "modern-blue", Name: "Modern Blue", Description: "Clean two column layout with an accent sidebar.",
			Category: model.CategoryModern, Popularity: 100, Tags: []string{"two-column", "sidebar"},
			TemplateDesign: model.TemplateDesign{
				Sections:           sectionsInOrder(standard...),
				Layouts:            []model.LayoutOption{layoutTwoColumn, layoutStandard},
				ColorSchemes:       []model.ColorScheme{schemeOcean, schemeSlate},
				FontOptions:        []model.FontOption{fontInter, fontRoboto},
				DefaultLayout:      layoutTwoColumn.ID,
				DefaultColorScheme: schemeOcean.ID,
				DefaultFont:        fontInter.ID,
			},
		},
		{
			ID: "minimal-mono", Name: "Minimal Mono", Description: "Whitespace first layout with monochrome typography.",
			Category: model.CategoryMinimalist, Popularity: 70, Tags: []string{"monochrome", "single-column"},
			TemplateDesign: model.TemplateDesign{
				Sections:           hidden(sectionsInOrder(standard...), "projects", "certifications"),
				Layouts:            []model.LayoutOption{layoutStandard},
				ColorSchemes:       []model.ColorScheme{schemeMono},
				FontOptions:        []model.FontOption{fontInter, fontPlexMono},
				DefaultLayout:      layoutStandard.ID,
				DefaultColorScheme: schemeMono.ID,
				DefaultFont:        fontInter.ID,
			},
		},
		{
			ID: "creative-bold", Name: "Creative Bold", Description: "Bold color blocks for design and marketing roles.",
			Category: model.CategoryCreative, IsPremium: true, Popularity: 60, Tags: []string{"colorful", "portfolio"},
			TemplateDesign: model.TemplateDesign{
				Sections: hidden(sectionsInOrder(
					model.SectionSummary, model.SectionProjects, model.SectionExperience, model.SectionSkills,
					model.SectionEducation, model.SectionCertifications, model.SectionLanguages,
				), "certifications"),
				Layouts:            []model.LayoutOption{layoutSidebar, layoutTwoColumn},
				ColorSchemes:       []model.ColorScheme{schemeSunset, schemeViolet},
				FontOptions:        []model.FontOption{fontPoppins, fontInter},
				DefaultLayout:      layoutSidebar.ID,
				DefaultColorScheme: schemeSunset.ID,
				DefaultFont:        fontPoppins.ID,
			},
		},
		{
			ID: "tech-grid", Name: "Tech Grid", Description: "Skills forward layout for engineering roles.",
			Category: model.CategoryTech, Popularity: 90, Tags: []string{"skills", "projects"},
			TemplateDesign: model.TemplateDesign{
				Sections: sectionsInOrder(
					model.SectionSummary, model.SectionSkills, model.SectionProjects, model.SectionExperience,
					model.SectionEducation, model.SectionCertifications, model.SectionLanguages,
				),
				Layouts:            []model.LayoutOption{layoutTwoColumn, layoutStandard},
				ColorSchemes:       []model.ColorScheme{schemeTerminal, schemeOcean},
				FontOptions:        []model.FontOption{fontJetBrains, fontInter},
				DefaultLayout:      layoutTwoColumn.ID,
				DefaultColorScheme: schemeTerminal.ID,
				DefaultFont:        fontJetBrains.ID,
			},
		},
		{
			ID: "academic-cv", Name: "Academic CV", Description: "Long form CV with publications and teaching sections.",
			Category: model.CategoryAcademic, IsPremium: true, Popularity: 40, Tags: []string{"cv", "publications"},
			TemplateDesign: model.TemplateDesign{
				Sections:           academicSections,
				Layouts:            []model.LayoutOption{layoutStandard},
				ColorSchemes:       []model.ColorScheme{schemeNavy},
				FontOptions:        []model.FontOption{fontGaramond, fontMerriweather},
				DefaultLayout:      layoutStandard.ID,
				DefaultColorScheme: schemeNavy.ID,
				DefaultFont:        fontGaramond.ID,
			},
		},
	}
}
