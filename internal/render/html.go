package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

type element struct {
	tag   string
	class string
}

var elements = map[Kind]element{
	KindDocument:        {"div", "resume-preview"},
	KindHeader:          {"div", "resume-header"},
	KindName:            {"h1", "resume-name"},
	KindContact:         {"div", "resume-contact"},
	KindSection:         {"div", "resume-section"},
	KindSectionTitle:    {"h2", "resume-section-title"},
	KindParagraph:       {"p", "resume-summary"},
	KindItem:            {"div", "resume-item"},
	KindItemTitle:       {"h3", "resume-item-title"},
	KindItemSubtitle:    {"div", "resume-item-subtitle"},
	KindItemDate:        {"div", "resume-item-date"},
	KindItemDescription: {"div", "resume-item-description"},
	KindSkillGrid:       {"div", "skills-grid"},
	KindSkill:           {"div", "skill-item-preview"},
	KindSkillName:       {"span", "skill-name"},
	KindSkillBar:        {"div", "skill-bar"},
	KindLabel:           {"strong", ""},
	KindLink:            {"a", "resume-link"},
}

// Fragment 将文档树转换为 HTML 片段（不含 <html> 外壳），供实时预览嵌入。
func Fragment(doc *Document) (string, error) {
	if doc == nil || doc.Root == nil {
		return "", fmt.Errorf("render fragment: empty document")
	}
	root := toHTML(doc.Root)
	addClass(root, string(doc.Template)+"-template")

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("render fragment: %w", err)
	}
	return buf.String(), nil
}

// Page renders a standalone HTML page with the template stylesheet. The PDF
// printer consumes this output.
func Page(doc *Document) (string, error) {
	body, err := Fragment(doc)
	if err != nil {
		return "", err
	}
	theme := ThemeFor(doc.Template)

	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, pageData{
		Title:       doc.Title,
		FontFamily:  template.CSS(theme.FontFamily),
		AccentColor: template.CSS(theme.AccentColor),
		Body:        template.HTML(body),
	})
	if err != nil {
		return "", fmt.Errorf("execute page template: %w", err)
	}
	return buf.String(), nil
}

func toHTML(n *Node) *html.Node {
	if n.Kind == KindText {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	el, ok := elements[n.Kind]
	if !ok {
		el = element{tag: "div"}
	}
	out := &html.Node{Type: html.ElementNode, Data: el.tag}
	if el.class != "" {
		out.Attr = append(out.Attr, html.Attribute{Key: "class", Val: el.class})
	}
	if n.ID != "" {
		out.Attr = append(out.Attr, html.Attribute{Key: "data-section", Val: n.ID})
	}
	if n.Kind == KindLink {
		out.Attr = append(out.Attr,
			html.Attribute{Key: "href", Val: n.Href},
			html.Attribute{Key: "target", Val: "_blank"},
		)
	}
	if style := inlineStyle(n.Style); style != "" {
		out.Attr = append(out.Attr, html.Attribute{Key: "style", Val: style})
	}
	if n.Text != "" {
		out.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text})
	}
	if n.Kind == KindSkillBar {
		out.AppendChild(&html.Node{
			Type: html.ElementNode,
			Data: "div",
			Attr: []html.Attribute{
				{Key: "class", Val: "skill-progress"},
				{Key: "style", Val: "width: " + percent(n.Fill)},
			},
		})
	}
	for _, child := range n.Children {
		out.AppendChild(toHTML(child))
	}
	return out
}

func addClass(n *html.Node, class string) {
	for i, attr := range n.Attr {
		if attr.Key == "class" {
			n.Attr[i].Val = attr.Val + " " + class
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

func inlineStyle(style map[string]string) string {
	if len(style) == 0 {
		return ""
	}
	keys := make([]string, 0, len(style))
	for k := range style {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+style[k])
	}
	return strings.Join(parts, "; ")
}

func percent(fill float64) string {
	return strconv.FormatFloat(math.Round(fill*10000)/100, 'f', -1, 64) + "%"
}

type pageData struct {
	Title       string
	FontFamily  template.CSS
	AccentColor template.CSS
	Body        template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(pageTemplateString))

// pageTemplateString 是预览与 PDF 共用的页面外壳，A4 @ 96 DPI。
const pageTemplateString = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        @page { size: A4; margin: 0.5in; }
        body {
            margin: 0;
            font-family: {{.FontFamily}};
            color: #111827;
            background: white;
        }
        .resume-preview {
            width: 794px;
            box-sizing: border-box;
            padding: 36px;
            margin: 0 auto;
        }
        .resume-header { margin-bottom: 16px; padding-bottom: 8px; }
        .resume-name { margin: 0 0 4px 0; }
        .resume-contact { font-size: 13px; color: #4b5563; }
        .resume-section { margin-top: 16px; }
        .resume-section-title { font-size: 16px; margin: 0 0 8px 0; color: {{.AccentColor}}; }
        .resume-item { margin-bottom: 10px; }
        .resume-item-title { font-size: 14px; margin: 0; }
        .resume-item-subtitle { font-size: 13px; color: #374151; }
        .resume-item-date { font-size: 12px; color: #6b7280; }
        .resume-item-description { font-size: 13px; white-space: pre-line; }
        .skills-grid { display: grid; grid-template-columns: repeat(2, 1fr); gap: 8px 24px; }
        .skill-bar { height: 6px; background: #e5e7eb; border-radius: 3px; overflow: hidden; }
        .skill-progress { height: 100%; background: {{.AccentColor}}; }
        .resume-link { color: {{.AccentColor}}; }
        @media print {
            * { -webkit-print-color-adjust: exact !important; print-color-adjust: exact !important; }
        }
    </style>
</head>
<body>
{{.Body}}
</body>
</html>
`
