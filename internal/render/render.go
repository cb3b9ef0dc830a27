package render

import (
	"strings"
	"time"

	"resumebuilder/internal/resume"
)

const (
	// NamePlaceholder 在姓名为空时显示。
	NamePlaceholder  = "Your Name"
	ContactSeparator = " • "
	DateSeparator    = " - "
	periodLayout     = "2006-01"
	displayLayout    = "Jan 2006"
)

// Section ids emitted by Render, in display order.
const (
	SectionSummary    = "summary"
	SectionExperience = "experience"
	SectionEducation  = "education"
	SectionSkills     = "skills"
	SectionProjects   = "projects"
)

// Render 将简历内容按模板渲染为文档树。它是纯函数：不读写任何持久化状态，
// 相同输入总是得到结构相同的输出；不同模板之间只有 Style 元数据不同。
// 未知模板回落到 classic。
func Render(content resume.Content, templateID resume.TemplateID) *Document {
	theme := ThemeFor(templateID)
	b := builder{theme: theme}

	root := b.node(KindDocument, "")
	root.Children = append(root.Children, b.header(content.PersonalInfo))

	if content.Summary != "" {
		section := b.section(SectionSummary, "Professional Summary")
		section.Children = append(section.Children, b.node(KindParagraph, content.Summary))
		root.Children = append(root.Children, section)
	}

	if len(content.Experience) > 0 {
		section := b.section(SectionExperience, "Work Experience")
		for _, exp := range content.Experience {
			item := b.node(KindItem, "")
			item.Children = append(item.Children,
				b.node(KindItemTitle, exp.Position),
				b.node(KindItemSubtitle, exp.Company),
				b.node(KindItemDate, FormatDateRange(exp.StartDate, exp.EndDate)),
				b.node(KindItemDescription, exp.Description),
			)
			section.Children = append(section.Children, item)
		}
		root.Children = append(root.Children, section)
	}

	if len(content.Education) > 0 {
		section := b.section(SectionEducation, "Education")
		for _, edu := range content.Education {
			item := b.node(KindItem, "")
			item.Children = append(item.Children,
				b.node(KindItemTitle, edu.Degree),
				b.node(KindItemSubtitle, edu.Institution),
			)
			if edu.GPA != "" {
				item.Children = append(item.Children, b.node(KindItemSubtitle, "GPA: "+edu.GPA))
			}
			item.Children = append(item.Children, b.node(KindItemDate, FormatDateRange(edu.StartDate, edu.EndDate)))
			section.Children = append(section.Children, item)
		}
		root.Children = append(root.Children, section)
	}

	if len(content.Skills) > 0 {
		section := b.section(SectionSkills, "Skills")
		grid := b.node(KindSkillGrid, "")
		for _, skill := range content.Skills {
			bar := b.node(KindSkillBar, "")
			bar.Fill = float64(resume.ClampLevel(skill.Level)) / 100
			entry := b.node(KindSkill, "")
			entry.Children = append(entry.Children, b.node(KindSkillName, skill.Name), bar)
			grid.Children = append(grid.Children, entry)
		}
		section.Children = append(section.Children, grid)
		root.Children = append(root.Children, section)
	}

	if len(content.Projects) > 0 {
		section := b.section(SectionProjects, "Projects")
		for _, project := range content.Projects {
			item := b.node(KindItem, "")
			item.Children = append(item.Children,
				b.node(KindItemTitle, project.Name),
				b.node(KindItemDescription, project.Description),
			)
			if project.Technologies != "" {
				line := b.node(KindItemSubtitle, "")
				line.Children = append(line.Children,
					b.node(KindLabel, "Technologies:"),
					b.node(KindText, " "+project.Technologies),
				)
				item.Children = append(item.Children, line)
			}
			if project.Link != "" {
				link := b.node(KindLink, project.Link)
				link.Href = LinkHref(project.Link)
				line := b.node(KindItemSubtitle, "")
				line.Children = append(line.Children,
					b.node(KindLabel, "Link:"),
					b.node(KindText, " "),
					link,
				)
				item.Children = append(item.Children, line)
			}
			section.Children = append(section.Children, item)
		}
		root.Children = append(root.Children, section)
	}

	return &Document{
		Template: theme.ID,
		Title:    headerName(content.PersonalInfo),
		Root:     root,
	}
}

// ContactLine 按固定顺序拼接非空联系方式：email、phone、address、linkedin。
func ContactLine(info resume.PersonalInfo) string {
	parts := make([]string, 0, 4)
	for _, value := range []string{info.Email, info.Phone, info.Address, info.LinkedIn} {
		if value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, ContactSeparator)
}

// FormatDateRange renders "Mon YYYY - Mon YYYY". An empty or Present end is
// shown as Present. When either bound does not parse as YYYY-MM the raw values
// are joined instead.
func FormatDateRange(start, end string) string {
	if start == "" && end == "" {
		return ""
	}
	if formatted, ok := formatRange(start, end); ok {
		return formatted
	}
	if end == "" {
		end = resume.PresentMarker
	}
	return start + DateSeparator + end
}

func formatRange(start, end string) (string, bool) {
	from := ""
	if start != "" {
		t, err := time.Parse(periodLayout, start)
		if err != nil {
			return "", false
		}
		from = t.Format(displayLayout)
	}
	to := resume.PresentMarker
	if end != "" && end != resume.PresentMarker {
		t, err := time.Parse(periodLayout, end)
		if err != nil {
			return "", false
		}
		to = t.Format(displayLayout)
	}
	return from + DateSeparator + to, true
}

// LinkHref 为项目链接补全 https:// 前缀。
func LinkHref(link string) string {
	lower := strings.ToLower(link)
	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") {
		return link
	}
	return "https://" + link
}

func headerName(info resume.PersonalInfo) string {
	if info.FullName == "" {
		return NamePlaceholder
	}
	return info.FullName
}

type builder struct {
	theme Theme
}

func (b builder) node(kind Kind, text string) *Node {
	return &Node{Kind: kind, Text: text, Style: b.theme.styleFor(kind)}
}

func (b builder) header(info resume.PersonalInfo) *Node {
	header := b.node(KindHeader, "")
	header.Children = append(header.Children,
		b.node(KindName, headerName(info)),
		b.node(KindContact, ContactLine(info)),
	)
	return header
}

func (b builder) section(id, title string) *Node {
	section := b.node(KindSection, "")
	section.ID = id
	section.Children = append(section.Children, b.node(KindSectionTitle, title))
	return section
}
