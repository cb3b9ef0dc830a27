package resume

import (
	"fmt"
	"strings"
	"time"

	"resumebuilder/internal/errcode"
)

// DefaultName 是新建简历的显示名称。
const DefaultName = "Untitled Resume"

// TemplateID 标识渲染简历时使用的视觉模板（封闭枚举）。
type TemplateID string

const (
	TemplateClassic TemplateID = "classic"
	TemplateModern  TemplateID = "modern"
	TemplateMinimal TemplateID = "minimal"
)

// Templates lists every template id in display order.
var Templates = []TemplateID{TemplateClassic, TemplateModern, TemplateMinimal}

// Valid reports whether t belongs to the enumeration.
func (t TemplateID) Valid() bool {
	for _, known := range Templates {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTemplateID 解析模板标识，未知值返回 ErrValidation。
func ParseTemplateID(raw string) (TemplateID, error) {
	id := TemplateID(strings.ToLower(strings.TrimSpace(raw)))
	if !id.Valid() {
		return "", fmt.Errorf("unknown template %q: %w", raw, errcode.ErrValidation)
	}
	return id, nil
}

// Section 是简历中的有序条目分区。
type Section string

const (
	SectionExperience Section = "experience"
	SectionEducation  Section = "education"
	SectionSkills     Section = "skills"
	SectionProjects   Section = "projects"
)

// ParseSection 解析分区名称。
func ParseSection(raw string) (Section, error) {
	switch s := Section(strings.ToLower(strings.TrimSpace(raw))); s {
	case SectionExperience, SectionEducation, SectionSkills, SectionProjects:
		return s, nil
	default:
		return "", fmt.Errorf("unknown section %q: %w", raw, errcode.ErrValidation)
	}
}

// PersonalInfo 表示简历头部的个人信息，所有字段可选。
type PersonalInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	LinkedIn string `json:"linkedin"`
}

// Experience is a single work history entry. EndDate may be empty or the
// literal PresentMarker.
type Experience struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	GPA         string `json:"gpa"`
}

// Skill 的 Level 取值范围为 [0,100]。
type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

type Project struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Technologies string `json:"technologies"`
	Link         string `json:"link"`
}

// Content 是简历的结构化内容，各分区的顺序即展示顺序。
type Content struct {
	PersonalInfo PersonalInfo `json:"personalInfo"`
	Summary      string       `json:"summary"`
	Experience   []Experience `json:"experience"`
	Education    []Education  `json:"education"`
	Skills       []Skill      `json:"skills"`
	Projects     []Project    `json:"projects"`
}

// Resume 是账号拥有的一份简历文档。
type Resume struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"userId"`
	Name      string     `json:"name"`
	Template  TemplateID `json:"template"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Content   Content    `json:"data"`
}

// New returns an empty resume using the classic template.
func New(id, ownerID string, now time.Time) *Resume {
	return &Resume{
		ID:        id,
		OwnerID:   ownerID,
		Name:      DefaultName,
		Template:  TemplateClassic,
		CreatedAt: now,
		UpdatedAt: now,
		Content:   EmptyContent(),
	}
}

// EmptyContent 返回所有分区均为空序列的内容。
func EmptyContent() Content {
	return Content{
		Experience: []Experience{},
		Education:  []Education{},
		Skills:     []Skill{},
		Projects:   []Project{},
	}
}

// Clone deep-copies the resume including every section slice.
func (r *Resume) Clone() *Resume {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Content = r.Content.Clone()
	return &cp
}

// Clone deep-copies the content.
func (c Content) Clone() Content {
	return Content{
		PersonalInfo: c.PersonalInfo,
		Summary:      c.Summary,
		Experience:   append([]Experience{}, c.Experience...),
		Education:    append([]Education{}, c.Education...),
		Skills:       append([]Skill{}, c.Skills...),
		Projects:     append([]Project{}, c.Projects...),
	}
}

// Normalize replaces nil sections with empty ones and clamps skill levels.
// Content decoded from storage or imports goes through it.
func (c *Content) Normalize() {
	if c.Experience == nil {
		c.Experience = []Experience{}
	}
	if c.Education == nil {
		c.Education = []Education{}
	}
	if c.Skills == nil {
		c.Skills = []Skill{}
	}
	if c.Projects == nil {
		c.Projects = []Project{}
	}
	for i := range c.Skills {
		c.Skills[i].Level = ClampLevel(c.Skills[i].Level)
	}
}
