package api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/importer"
	"resumebuilder/internal/render"
	"resumebuilder/internal/resume"
	"resumebuilder/internal/session"
)

const maxImportBytes = 1 << 20

// ResumeHandler 管理当前账号的简历列表。
type ResumeHandler struct {
	sessions *session.Manager
}

// NewResumeHandler 构造简历处理器。
func NewResumeHandler(sessions *session.Manager) *ResumeHandler {
	return &ResumeHandler{sessions: sessions}
}

type resumeSummary struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Template  resume.TemplateID `json:"template"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// editorState 是编辑类接口的统一响应：文档本身与最新的预览树。
type editorState struct {
	Resume  *resume.Resume   `json:"resume"`
	Preview *render.Document `json:"preview"`
}

func newEditorState(doc *resume.Resume) editorState {
	return editorState{Resume: doc, Preview: render.Render(doc.Content, doc.Template)}
}

// List 返回当前账号的简历，最近修改的在前。
func (h *ResumeHandler) List(c *gin.Context) {
	docs, err := h.sessions.ListResumes(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	items := make([]resumeSummary, 0, len(docs))
	for _, doc := range docs {
		items = append(items, resumeSummary{
			ID:        doc.ID,
			Name:      doc.Name,
			Template:  doc.Template,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Create 新建空白简历并在编辑器中打开。
func (h *ResumeHandler) Create(c *gin.Context) {
	doc, err := h.sessions.CreateResume(c.Request.Context(), "")
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newEditorState(doc))
}

// Open 在编辑器中打开已有简历。
func (h *ResumeHandler) Open(c *gin.Context) {
	doc, err := h.sessions.LoadResume(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newEditorState(doc))
}

// Duplicate 复制简历，副本不会被打开。
func (h *ResumeHandler) Duplicate(c *gin.Context) {
	doc, err := h.sessions.DuplicateResume(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// Delete 删除简历；简历不存在时同样返回成功。
func (h *ResumeHandler) Delete(c *gin.Context) {
	if err := h.sessions.DeleteResume(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Import 校验上传的 JSON 文档，创建新简历并以导入内容替换。
func (h *ResumeHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes+1))
	if err != nil {
		BadRequest(c, "failed to read body")
		return
	}
	if len(body) > maxImportBytes {
		Error(c, http.StatusRequestEntityTooLarge, "document too large")
		return
	}

	parsed, err := importer.Parse(body)
	if err != nil {
		Fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.sessions.CreateResume(ctx, ""); err != nil {
		Fail(c, err)
		return
	}
	if _, err := h.sessions.Edit(func(r *resume.Resume) error {
		parsed.Apply(r)
		return nil
	}); err != nil {
		Fail(c, err)
		return
	}
	doc, err := h.sessions.Save(ctx)
	if err != nil {
		Fail(c, err)
		return
	}

	middleware.LoggerFromContext(c).Info("resume imported", slog.String("resume_id", doc.ID))
	c.JSON(http.StatusCreated, newEditorState(doc))
}
