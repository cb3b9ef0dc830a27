// Package render turns resume content into a display-independent document
// tree and adapts that tree to HTML for preview and printing.
package render

import "resumebuilder/internal/resume"

// Kind 标识文档树节点的语义类型。
type Kind string

const (
	KindDocument        Kind = "document"
	KindHeader          Kind = "header"
	KindName            Kind = "name"
	KindContact         Kind = "contact"
	KindSection         Kind = "section"
	KindSectionTitle    Kind = "section_title"
	KindParagraph       Kind = "paragraph"
	KindItem            Kind = "item"
	KindItemTitle       Kind = "item_title"
	KindItemSubtitle    Kind = "item_subtitle"
	KindItemDate        Kind = "item_date"
	KindItemDescription Kind = "item_description"
	KindSkillGrid       Kind = "skill_grid"
	KindSkill           Kind = "skill"
	KindSkillName       Kind = "skill_name"
	KindSkillBar        Kind = "skill_bar"
	KindLabel           Kind = "label"
	KindText            Kind = "text"
	KindLink            Kind = "link"
)

// Node 是文档树中的一个节点。Style 只承载模板相关的样式元数据，不影响结构。
type Node struct {
	Kind     Kind              `json:"kind"`
	ID       string            `json:"id,omitempty"`
	Text     string            `json:"text,omitempty"`
	Href     string            `json:"href,omitempty"`
	Fill     float64           `json:"fill,omitempty"`
	Style    map[string]string `json:"style,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// Document 是一次渲染的结果。
type Document struct {
	Template resume.TemplateID `json:"template"`
	Title    string            `json:"title"`
	Root     *Node             `json:"root"`
}

// Find returns the first node of kind in depth-first order, or nil.
func (n *Node) Find(kind Kind) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == kind {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(kind); found != nil {
			return found
		}
	}
	return nil
}

// Section returns the section node with the given id, or nil.
func (d *Document) Section(id string) *Node {
	if d == nil || d.Root == nil {
		return nil
	}
	for _, child := range d.Root.Children {
		if child.Kind == KindSection && child.ID == id {
			return child
		}
	}
	return nil
}

// Sections lists the ids of the emitted sections in order.
func (d *Document) Sections() []string {
	if d == nil || d.Root == nil {
		return nil
	}
	var ids []string
	for _, child := range d.Root.Children {
		if child.Kind == KindSection {
			ids = append(ids, child.ID)
		}
	}
	return ids
}
