// Package importer 校验并解析外部的简历 JSON 文档。
package importer

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"resumebuilder/internal/errcode"
	"resumebuilder/internal/resume"
)

//go:embed resume.schema.json
var schemaJSON []byte

var schema = mustLoadSchema()

func mustLoadSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("load resume schema: %v", err))
	}
	return s
}

// Document 是导入文件的内容。name 与 template 可省略。
type Document struct {
	Name     string            `json:"name"`
	Template resume.TemplateID `json:"template"`
	Content  resume.Content    `json:"data"`
}

// FieldError 描述某个字段的校验失败。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 汇总全部字段错误，errors.Is(err, errcode.ErrValidation) 成立。
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid resume document: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return errcode.ErrValidation
}

// Parse 按内置 JSON Schema 校验 data 并解码。缺省名称与模板分别回落到默认值。
func Parse(data []byte) (*Document, error) {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("parse resume document: %w: %s", errcode.ErrValidation, err.Error())
	}
	if !result.Valid() {
		verr := &ValidationError{}
		for _, re := range result.Errors() {
			verr.Errors = append(verr.Errors, FieldError{Field: re.Field(), Message: re.Description()})
		}
		return nil, verr
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode resume document: %w: %s", errcode.ErrValidation, err.Error())
	}
	doc.Name = strings.TrimSpace(doc.Name)
	if doc.Name == "" {
		doc.Name = resume.DefaultName
	}
	if doc.Template == "" {
		doc.Template = resume.TemplateClassic
	}
	if err := defaultSkillLevels(data, &doc.Content); err != nil {
		return nil, err
	}
	doc.Content.Normalize()
	return &doc, nil
}

// defaultSkillLevels 为未给出 level 的技能填入默认熟练度，显式的 0 保持不变。
func defaultSkillLevels(data []byte, content *resume.Content) error {
	var levels struct {
		Data struct {
			Skills []struct {
				Level *int `json:"level"`
			} `json:"skills"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &levels); err != nil {
		return fmt.Errorf("decode skill levels: %w: %s", errcode.ErrValidation, err.Error())
	}
	for i, skill := range levels.Data.Skills {
		if skill.Level == nil && i < len(content.Skills) {
			content.Skills[i].Level = resume.DefaultSkillLevel
		}
	}
	return nil
}

// Apply 用导入的文档整体替换 r 的名称、模板与内容。
func (d *Document) Apply(r *resume.Resume) {
	r.Name = d.Name
	r.Template = d.Template
	r.Content = d.Content.Clone()
}
