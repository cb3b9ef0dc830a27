package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/resume"
)

func parsePage(t *testing.T, content resume.Content, id resume.TemplateID) *goquery.Document {
	t.Helper()
	page, err := Page(Render(content, id))
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestPage_SampleContent(t *testing.T) {
	doc := parsePage(t, resume.SampleContent(), resume.TemplateClassic)

	assert.Equal(t, "Alex Johnson", doc.Find("title").Text())
	assert.Equal(t, "Alex Johnson", doc.Find("h1.resume-name").Text())
	assert.Equal(t,
		"alex.johnson@example.com • +1-555-0123 • San Francisco, CA • linkedin.com/in/alexjohnson",
		doc.Find(".resume-contact").Text())

	assert.Equal(t, 5, doc.Find(".resume-section").Length())
	assert.True(t, doc.Find(".resume-preview").HasClass("classic-template"))

	progress, ok := doc.Find(".skill-progress").First().Attr("style")
	require.True(t, ok)
	assert.Equal(t, "width: 95%", progress)

	href, ok := doc.Find("a.resume-link").Attr("href")
	require.True(t, ok)
	assert.Equal(t, "https://github.com/alex/ecommerce-platform", href)

	assert.Equal(t, "Mar 2022 - Present", doc.Find("[data-section=experience] .resume-item-date").Text())
}

func TestPage_EscapesUserText(t *testing.T) {
	content := resume.EmptyContent()
	content.PersonalInfo.FullName = `<script>alert("x")</script>`
	content.Summary = "<b>bold</b> & more"

	page, err := Page(Render(content, resume.TemplateMinimal))
	require.NoError(t, err)
	assert.NotContains(t, page, "<script>alert")
	assert.Contains(t, page, "&lt;b&gt;bold&lt;/b&gt; &amp; more")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find(".resume-section b").Length())
}

func TestFragment_TemplateStyleApplied(t *testing.T) {
	fragment, err := Fragment(Render(resume.EmptyContent(), resume.TemplateModern))
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	require.NoError(t, err)
	style, ok := doc.Find(".resume-name").Attr("style")
	require.True(t, ok)
	assert.Contains(t, style, "color: #2563eb")
	assert.True(t, doc.Find(".resume-preview").HasClass("modern-template"))
}

func TestFragment_NilDocument(t *testing.T) {
	_, err := Fragment(nil)
	assert.Error(t, err)
}
