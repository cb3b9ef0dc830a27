package render

import "resumebuilder/internal/resume"

// Theme 描述一个视觉模板：页面级的字体与强调色，以及按节点类型附加的样式。
type Theme struct {
	ID          resume.TemplateID
	FontFamily  string
	AccentColor string
	styles      map[Kind]map[string]string
}

var themes = map[resume.TemplateID]Theme{
	resume.TemplateClassic: {
		ID:          resume.TemplateClassic,
		FontFamily:  "Georgia, 'Times New Roman', serif",
		AccentColor: "#1f2937",
		styles: map[Kind]map[string]string{
			KindHeader:       {"text-align": "center", "border-bottom": "2px solid #1f2937"},
			KindName:         {"font-size": "28px"},
			KindSectionTitle: {"border-bottom": "1px solid #d1d5db", "text-transform": "uppercase"},
		},
	},
	resume.TemplateModern: {
		ID:          resume.TemplateModern,
		FontFamily:  "'Helvetica Neue', Arial, sans-serif",
		AccentColor: "#2563eb",
		styles: map[Kind]map[string]string{
			KindHeader:       {"text-align": "left", "border-left": "6px solid #2563eb", "padding-left": "16px"},
			KindName:         {"font-size": "32px", "color": "#2563eb"},
			KindSectionTitle: {"color": "#2563eb", "letter-spacing": "0.08em"},
			KindSkillBar:     {"background": "#dbeafe"},
		},
	},
	resume.TemplateMinimal: {
		ID:          resume.TemplateMinimal,
		FontFamily:  "Inter, Arial, sans-serif",
		AccentColor: "#6b7280",
		styles: map[Kind]map[string]string{
			KindHeader:       {"text-align": "left"},
			KindName:         {"font-size": "24px", "font-weight": "500"},
			KindSectionTitle: {"font-size": "13px", "color": "#6b7280", "text-transform": "uppercase"},
		},
	},
}

// ThemeFor 返回模板对应的主题，未知模板回落到 classic。
func ThemeFor(id resume.TemplateID) Theme {
	if theme, ok := themes[id]; ok {
		return theme
	}
	return themes[resume.TemplateClassic]
}

func (t Theme) styleFor(kind Kind) map[string]string {
	src := t.styles[kind]
	if len(src) == 0 {
		return nil
	}
	cp := make(map[string]string, len(src))
	for k, v := range src {
		cp[k] = v
	}
	return cp
}
