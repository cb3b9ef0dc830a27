package resume

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"resumebuilder/internal/errcode"
)

// PresentMarker is the end-date sentinel for an ongoing entry.
const PresentMarker = "Present"

// DefaultSkillLevel 是新增技能条目的默认熟练度。
const DefaultSkillLevel = 50

var periodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ClampLevel 将熟练度限制在 [0,100]。
func ClampLevel(level int) int {
	switch {
	case level < 0:
		return 0
	case level > 100:
		return 100
	default:
		return level
	}
}

// ParseLevel parses a raw proficiency value. Decimal input is truncated toward
// zero and the result is clamped to [0,100]; anything non-numeric is rejected
// with ErrValidation.
func ParseLevel(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(trimmed); err == nil {
		return ClampLevel(n), nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("skill level %q is not a number: %w", raw, errcode.ErrValidation)
	}
	switch {
	case f < 0:
		return 0, nil
	case f > 100:
		return 100, nil
	}
	return int(math.Trunc(f)), nil
}

func checkPeriod(field, value string, allowPresent bool) error {
	if value == "" || periodPattern.MatchString(value) {
		return nil
	}
	if allowPresent && value == PresentMarker {
		return nil
	}
	return fmt.Errorf("%s %q must be YYYY-MM: %w", field, value, errcode.ErrValidation)
}

// SetPersonalField 替换一个个人信息字段。
func (c *Content) SetPersonalField(key, value string) error {
	p := &c.PersonalInfo
	switch key {
	case "fullName":
		p.FullName = value
	case "email":
		p.Email = value
	case "phone":
		p.Phone = value
	case "address":
		p.Address = value
	case "linkedin":
		p.LinkedIn = value
	default:
		return fmt.Errorf("unknown personal field %q: %w", key, errcode.ErrValidation)
	}
	return nil
}

// SetSummary 替换职业概述。
func (c *Content) SetSummary(value string) {
	c.Summary = value
}

// Len returns the number of entries in section.
func (c *Content) Len(section Section) int {
	switch section {
	case SectionExperience:
		return len(c.Experience)
	case SectionEducation:
		return len(c.Education)
	case SectionSkills:
		return len(c.Skills)
	case SectionProjects:
		return len(c.Projects)
	default:
		return 0
	}
}

// AddEntry appends the blank entry of section and returns its index.
func (c *Content) AddEntry(section Section) (int, error) {
	switch section {
	case SectionExperience:
		c.Experience = append(c.Experience, Experience{})
	case SectionEducation:
		c.Education = append(c.Education, Education{})
	case SectionSkills:
		c.Skills = append(c.Skills, Skill{Level: DefaultSkillLevel})
	case SectionProjects:
		c.Projects = append(c.Projects, Project{})
	default:
		return 0, fmt.Errorf("unknown section %q: %w", section, errcode.ErrValidation)
	}
	return c.Len(section) - 1, nil
}

// UpdateEntry replaces exactly one field of the entry at index. The content is
// left untouched when any check fails.
func (c *Content) UpdateEntry(section Section, index int, field, value string) error {
	if err := c.checkIndex(section, index); err != nil {
		return err
	}
	switch section {
	case SectionExperience:
		return setExperienceField(&c.Experience[index], field, value)
	case SectionEducation:
		return setEducationField(&c.Education[index], field, value)
	case SectionSkills:
		return setSkillField(&c.Skills[index], field, value)
	case SectionProjects:
		return setProjectField(&c.Projects[index], field, value)
	}
	return nil
}

// RemoveEntry 删除 index 处的条目，后续条目的下标依次减一。
func (c *Content) RemoveEntry(section Section, index int) error {
	if err := c.checkIndex(section, index); err != nil {
		return err
	}
	switch section {
	case SectionExperience:
		c.Experience = slices.Delete(c.Experience, index, index+1)
	case SectionEducation:
		c.Education = slices.Delete(c.Education, index, index+1)
	case SectionSkills:
		c.Skills = slices.Delete(c.Skills, index, index+1)
	case SectionProjects:
		c.Projects = slices.Delete(c.Projects, index, index+1)
	}
	return nil
}

func (c *Content) checkIndex(section Section, index int) error {
	if _, err := ParseSection(string(section)); err != nil {
		return err
	}
	if n := c.Len(section); index < 0 || index >= n {
		return fmt.Errorf("%s[%d] with %d entries: %w", section, index, n, errcode.ErrIndexOutOfRange)
	}
	return nil
}

func unknownField(section Section, field string) error {
	return fmt.Errorf("unknown %s field %q: %w", section, field, errcode.ErrValidation)
}

func setExperienceField(e *Experience, field, value string) error {
	switch field {
	case "company":
		e.Company = value
	case "position":
		e.Position = value
	case "startDate":
		if err := checkPeriod(field, value, false); err != nil {
			return err
		}
		e.StartDate = value
	case "endDate":
		if err := checkPeriod(field, value, true); err != nil {
			return err
		}
		e.EndDate = value
	case "description":
		e.Description = value
	default:
		return unknownField(SectionExperience, field)
	}
	return nil
}

func setEducationField(e *Education, field, value string) error {
	switch field {
	case "institution":
		e.Institution = value
	case "degree":
		e.Degree = value
	case "startDate":
		if err := checkPeriod(field, value, false); err != nil {
			return err
		}
		e.StartDate = value
	case "endDate":
		if err := checkPeriod(field, value, true); err != nil {
			return err
		}
		e.EndDate = value
	case "gpa":
		e.GPA = value
	default:
		return unknownField(SectionEducation, field)
	}
	return nil
}

func setSkillField(s *Skill, field, value string) error {
	switch field {
	case "name":
		s.Name = value
	case "level":
		level, err := ParseLevel(value)
		if err != nil {
			return err
		}
		s.Level = level
	default:
		return unknownField(SectionSkills, field)
	}
	return nil
}

func setProjectField(p *Project, field, value string) error {
	switch field {
	case "name":
		p.Name = value
	case "description":
		p.Description = value
	case "technologies":
		p.Technologies = value
	case "link":
		p.Link = value
	default:
		return unknownField(SectionProjects, field)
	}
	return nil
}
