package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/export"
	"resumebuilder/internal/render"
	"resumebuilder/internal/resume"
	"resumebuilder/internal/session"
)

// EditorHandler 操作编辑器中当前打开的简历。每次修改都返回新的预览。
type EditorHandler struct {
	sessions   *session.Manager
	dispatcher export.Dispatcher
}

// NewEditorHandler 构造编辑器处理器。
func NewEditorHandler(sessions *session.Manager, dispatcher export.Dispatcher) *EditorHandler {
	return &EditorHandler{sessions: sessions, dispatcher: dispatcher}
}

type valueRequest struct {
	Value string `json:"value"`
}

type fieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

// Get 返回编辑器中的简历与预览。
func (h *EditorHandler) Get(c *gin.Context) {
	doc, ok := h.sessions.Active()
	if !ok {
		Fail(c, errcode.ErrNoActiveResume)
		return
	}
	c.JSON(http.StatusOK, newEditorState(doc))
}

// UpdatePersonal 批量替换个人信息字段，任一字段未知时整体不生效。
func (h *EditorHandler) UpdatePersonal(c *gin.Context) {
	var fields map[string]string
	if err := c.ShouldBindJSON(&fields); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.edit(c, func(r *resume.Resume) error {
		for key, value := range fields {
			if err := r.Content.SetPersonalField(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateSummary 替换职业概述。
func (h *EditorHandler) UpdateSummary(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.edit(c, func(r *resume.Resume) error {
		r.Content.SetSummary(req.Value)
		return nil
	})
}

// Rename 修改简历名称，空名称回落到默认名称。
func (h *EditorHandler) Rename(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	name := strings.TrimSpace(req.Value)
	if name == "" {
		name = resume.DefaultName
	}
	h.edit(c, func(r *resume.Resume) error {
		r.Name = name
		return nil
	})
}

// SetTemplate 切换渲染模板。
func (h *EditorHandler) SetTemplate(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	id, err := resume.ParseTemplateID(req.Value)
	if err != nil {
		Fail(c, err)
		return
	}
	h.edit(c, func(r *resume.Resume) error {
		r.Template = id
		return nil
	})
}

// AddEntry 在分区末尾追加空白条目。
func (h *EditorHandler) AddEntry(c *gin.Context) {
	section, err := resume.ParseSection(c.Param("section"))
	if err != nil {
		Fail(c, err)
		return
	}
	index := -1
	doc, err := h.sessions.Edit(func(r *resume.Resume) error {
		var err error
		index, err = r.Content.AddEntry(section)
		return err
	})
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"index":   index,
		"resume":  doc,
		"preview": render.Render(doc.Content, doc.Template),
	})
}

// UpdateEntry 替换条目的单个字段。
func (h *EditorHandler) UpdateEntry(c *gin.Context) {
	section, index, ok := entryParams(c)
	if !ok {
		return
	}
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.edit(c, func(r *resume.Resume) error {
		return r.Content.UpdateEntry(section, index, req.Field, req.Value)
	})
}

// RemoveEntry 删除条目。
func (h *EditorHandler) RemoveEntry(c *gin.Context) {
	section, index, ok := entryParams(c)
	if !ok {
		return
	}
	h.edit(c, func(r *resume.Resume) error {
		return r.Content.RemoveEntry(section, index)
	})
}

// Preview 返回预览树。
func (h *EditorHandler) Preview(c *gin.Context) {
	doc, ok := h.sessions.Active()
	if !ok {
		Fail(c, errcode.ErrNoActiveResume)
		return
	}
	c.JSON(http.StatusOK, render.Render(doc.Content, doc.Template))
}

// PreviewHTML 返回与导出一致的完整 HTML 页面。
func (h *EditorHandler) PreviewHTML(c *gin.Context) {
	doc, ok := h.sessions.Active()
	if !ok {
		Fail(c, errcode.ErrNoActiveResume)
		return
	}
	page, err := render.Page(render.Render(doc.Content, doc.Template))
	if err != nil {
		Fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// Save 立即保存编辑器中的简历。
func (h *EditorHandler) Save(c *gin.Context) {
	doc, err := h.sessions.Save(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newEditorState(doc))
}

// Close 保存并关闭编辑器。
func (h *EditorHandler) Close(c *gin.Context) {
	if err := h.sessions.CloseEditor(c.Request.Context()); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Export 先保存再导出 PDF。同步模式直接返回结果，队列模式返回 202，完成后经 WebSocket 通知。
func (h *EditorHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	doc, err := h.sessions.SaveForExport(ctx)
	if err != nil {
		Fail(c, err)
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	result, err := h.dispatcher.Dispatch(ctx, doc, correlationID)
	if err != nil {
		Fail(c, err)
		return
	}
	if result == nil {
		middleware.LoggerFromContext(c).Info("resume export queued", slog.String("resume_id", doc.ID))
		c.JSON(http.StatusAccepted, gin.H{
			"status":         "queued",
			"resume_id":      doc.ID,
			"correlation_id": correlationID,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *EditorHandler) edit(c *gin.Context, fn func(*resume.Resume) error) {
	doc, err := h.sessions.Edit(fn)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newEditorState(doc))
}

func entryParams(c *gin.Context) (resume.Section, int, bool) {
	section, err := resume.ParseSection(c.Param("section"))
	if err != nil {
		Fail(c, err)
		return "", 0, false
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		BadRequest(c, "index must be an integer")
		return "", 0, false
	}
	return section, index, true
}
