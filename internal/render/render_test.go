package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/resume"
)

func TestRender_NameOnly(t *testing.T) {
	content := resume.EmptyContent()
	content.PersonalInfo.FullName = "Alex Johnson"

	doc := Render(content, resume.TemplateClassic)

	require.NotNil(t, doc.Root)
	require.Len(t, doc.Root.Children, 1)
	header := doc.Root.Children[0]
	assert.Equal(t, KindHeader, header.Kind)
	assert.Equal(t, "Alex Johnson", header.Find(KindName).Text)
	assert.Equal(t, "", header.Find(KindContact).Text)
	assert.Empty(t, doc.Sections())
}

func TestRender_NamePlaceholder(t *testing.T) {
	doc := Render(resume.EmptyContent(), resume.TemplateClassic)
	assert.Equal(t, "Your Name", doc.Root.Find(KindName).Text)
	assert.Equal(t, "Your Name", doc.Title)
}

func TestContactLine_SkipsEmptyFieldsInFixedOrder(t *testing.T) {
	info := resume.PersonalInfo{
		LinkedIn: "in/alex",
		Email:    "alex@example.com",
		Address:  "SF",
	}
	assert.Equal(t, "alex@example.com • SF • in/alex", ContactLine(info))
}

func TestFormatDateRange(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		want       string
	}{
		{"both empty", "", "", ""},
		{"open ended", "2022-03", "", "Mar 2022 - Present"},
		{"present marker", "2022-03", "Present", "Mar 2022 - Present"},
		{"closed", "2016-09", "2020-05", "Sep 2016 - May 2020"},
		{"end only", "", "2020-05", " - May 2020"},
		{"unparseable start", "spring", "2020-05", "spring - 2020-05"},
		{"unparseable start open end", "2022-13", "", "2022-13 - Present"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatDateRange(tc.start, tc.end))
		})
	}
}

func TestRender_ExperienceEntry(t *testing.T) {
	content := resume.EmptyContent()
	content.Experience = []resume.Experience{
		{Company: "Acme", Position: "Eng", StartDate: "2022-03", EndDate: ""},
	}

	doc := Render(content, resume.TemplateClassic)

	section := doc.Section(SectionExperience)
	require.NotNil(t, section)
	assert.Equal(t, "Work Experience", section.Find(KindSectionTitle).Text)
	item := section.Find(KindItem)
	require.NotNil(t, item)
	assert.Equal(t, "Eng", item.Find(KindItemTitle).Text)
	assert.Equal(t, "Acme", item.Find(KindItemSubtitle).Text)
	assert.Equal(t, "Mar 2022 - Present", item.Find(KindItemDate).Text)
}

func TestRender_SectionsFollowContent(t *testing.T) {
	doc := Render(resume.SampleContent(), resume.TemplateClassic)
	assert.Equal(t, []string{
		SectionSummary, SectionExperience, SectionEducation, SectionSkills, SectionProjects,
	}, doc.Sections())

	content := resume.SampleContent()
	content.Summary = ""
	content.Education = nil
	doc = Render(content, resume.TemplateClassic)
	assert.Equal(t, []string{SectionExperience, SectionSkills, SectionProjects}, doc.Sections())
}

func TestRender_EducationGPA(t *testing.T) {
	content := resume.EmptyContent()
	content.Education = []resume.Education{
		{Institution: "Berkeley", Degree: "BSc", StartDate: "2016-09", EndDate: "2020-05", GPA: "3.8"},
		{Institution: "Community College", Degree: "AA"},
	}
	doc := Render(content, resume.TemplateClassic)
	items := doc.Section(SectionEducation).Children[1:]
	require.Len(t, items, 2)

	var withGPA []string
	for _, child := range items[0].Children {
		if child.Kind == KindItemSubtitle {
			withGPA = append(withGPA, child.Text)
		}
	}
	assert.Equal(t, []string{"Berkeley", "GPA: 3.8"}, withGPA)
	assert.Equal(t, "Sep 2016 - May 2020", items[0].Find(KindItemDate).Text)

	assert.Len(t, items[1].Children, 3)
	assert.Equal(t, "", items[1].Find(KindItemDate).Text)
}

func TestRender_SkillFill(t *testing.T) {
	content := resume.EmptyContent()
	content.Skills = []resume.Skill{{Name: "Go", Level: 95}, {Name: "Rust", Level: 0}, {Name: "Bad", Level: 180}}

	grid := Render(content, resume.TemplateClassic).Section(SectionSkills).Find(KindSkillGrid)
	require.Len(t, grid.Children, 3)
	assert.Equal(t, "Go", grid.Children[0].Find(KindSkillName).Text)
	assert.InDelta(t, 0.95, grid.Children[0].Find(KindSkillBar).Fill, 1e-9)
	assert.InDelta(t, 0.0, grid.Children[1].Find(KindSkillBar).Fill, 1e-9)
	assert.InDelta(t, 1.0, grid.Children[2].Find(KindSkillBar).Fill, 1e-9)
}

func TestRender_ProjectLines(t *testing.T) {
	content := resume.EmptyContent()
	content.Projects = []resume.Project{
		{Name: "Shop", Description: "Store", Technologies: "Go", Link: "github.com/alex/shop"},
		{Name: "Bare", Description: "Nothing else"},
	}
	section := Render(content, resume.TemplateClassic).Section(SectionProjects)
	items := section.Children[1:]
	require.Len(t, items, 2)

	link := items[0].Find(KindLink)
	require.NotNil(t, link)
	assert.Equal(t, "https://github.com/alex/shop", link.Href)
	assert.Equal(t, "github.com/alex/shop", link.Text)

	assert.Len(t, items[0].Children, 4)
	assert.Len(t, items[1].Children, 2)
	assert.Nil(t, items[1].Find(KindLink))
}

func TestLinkHref_KeepsExistingScheme(t *testing.T) {
	assert.Equal(t, "http://example.com", LinkHref("http://example.com"))
	assert.Equal(t, "https://example.com", LinkHref("example.com"))
}

func TestRender_Idempotent(t *testing.T) {
	content := resume.SampleContent()
	first := Render(content, resume.TemplateModern)
	second := Render(content, resume.TemplateModern)
	assert.Equal(t, first, second)
}

func TestRender_TemplatesDifferOnlyInStyle(t *testing.T) {
	content := resume.SampleContent()
	classic := Render(content, resume.TemplateClassic)

	for _, id := range resume.Templates {
		doc := Render(content, id)
		assert.Equal(t, id, doc.Template)
		assert.Equal(t, stripStyle(classic.Root), stripStyle(doc.Root), id)
	}
}

func TestRender_UnknownTemplateFallsBack(t *testing.T) {
	doc := Render(resume.EmptyContent(), resume.TemplateID("fancy"))
	assert.Equal(t, resume.TemplateClassic, doc.Template)
}

func TestRender_DoesNotAliasThemeStyles(t *testing.T) {
	doc := Render(resume.EmptyContent(), resume.TemplateClassic)
	doc.Root.Find(KindHeader).Style["text-align"] = "right"

	again := Render(resume.EmptyContent(), resume.TemplateClassic)
	assert.Equal(t, "center", again.Root.Find(KindHeader).Style["text-align"])
}

func stripStyle(n *Node) *Node {
	cp := *n
	cp.Style = nil
	cp.Children = nil
	for _, child := range n.Children {
		cp.Children = append(cp.Children, stripStyle(child))
	}
	return &cp
}
