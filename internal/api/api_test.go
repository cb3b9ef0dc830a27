package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/auth"
	"resumebuilder/internal/config"
	"resumebuilder/internal/database"
	"resumebuilder/internal/export"
	"resumebuilder/internal/notify"
	"resumebuilder/internal/pdf/pdftest"
	"resumebuilder/internal/render"
	"resumebuilder/internal/resume"
	"resumebuilder/internal/session"
	"resumebuilder/internal/storage"
)

type stubPrinter struct{}

func (stubPrinter) Generate(context.Context, string) ([]byte, error) {
	return pdftest.Document(1), nil
}

// readySubscriber 在订阅建立后关闭 ready。
type readySubscriber struct {
	notify.Subscriber
	ready chan struct{}
}

func (s *readySubscriber) Subscribe(ctx context.Context, accountID string) (<-chan []byte, func(), error) {
	ch, cancel, err := s.Subscriber.Subscribe(ctx, accountID)
	close(s.ready)
	return ch, cancel, err
}

type testServer struct {
	router   *gin.Engine
	sessions *session.Manager
	hub      *notify.Hub
	subs     *readySubscriber
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.InitDatabase(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(database.NewStore(db, logger), session.WithLogger(logger), session.WithAutosaveInterval(time.Hour))
	t.Cleanup(sessions.Close)

	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	sink, err := storage.NewLocalSink(afero.NewMemMapFs(), "/exports")
	require.NoError(t, err)
	hub := notify.NewHub()
	subs := &readySubscriber{Subscriber: hub, ready: make(chan struct{})}

	router := NewRouter(logger)
	RegisterRoutes(router, Dependencies{
		Sessions:      sessions,
		Tokens:        tokens,
		Dispatcher:    export.NewInlineDispatcher(export.NewService(stubPrinter{}, sink, hub, logger)),
		Sink:          sink,
		Notifications: subs,
		Logger:        logger,
		LinkTTL:       time.Minute,
	})
	return &testServer{router: router, sessions: sessions, hub: hub, subs: subs}
}

func (s *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"name": "Alex", "email": email, "secret": "hunter2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

type editorStateResponse struct {
	Resume  resume.Resume   `json:"resume"`
	Preview render.Document `json:"preview"`
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) editorStateResponse {
	t.Helper()
	var state editorStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state), rec.Body.String())
	return state
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestAuth_SignupLoginLogout(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "a@example.com")

	rec := s.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a@example.com")
	assert.NotContains(t, rec.Body.String(), "hunter2")

	rec = s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"name": "B", "email": "a@example.com", "secret": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// 令牌随会话失效
	rec = s.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "a@example.com", "secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "a@example.com", "secret": "hunter2"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_SignupRequiresFields(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "a@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth_SignupLongSecret(t *testing.T) {
	s := newTestServer(t)
	secret := strings.Repeat("s", 80)
	rec := s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"name": "Alex", "email": "a@example.com", "secret": secret})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = s.do(t, http.MethodPost, "/v1/auth/logout", resp.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "a@example.com", "secret": secret})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestResumes_RequireAuth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/v1/resumes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEditor_EditFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "a@example.com")

	rec := s.do(t, http.MethodGet, "/v1/editor", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/resumes", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeState(t, rec)
	assert.Equal(t, resume.DefaultName, created.Resume.Name)
	assert.Equal(t, render.NamePlaceholder, created.Preview.Root.Find(render.KindName).Text)

	rec = s.do(t, http.MethodPatch, "/v1/editor/personal", token, gin.H{"fullName": "Alex Johnson", "email": "alex@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeState(t, rec)
	assert.Equal(t, "Alex Johnson", state.Preview.Root.Find(render.KindName).Text)
	assert.Equal(t, "alex@example.com", state.Preview.Root.Find(render.KindContact).Text)

	rec = s.do(t, http.MethodPatch, "/v1/editor/personal", token, gin.H{"fullName": "Other", "nickname": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/editor", token, nil)
	assert.Equal(t, "Alex Johnson", decodeState(t, rec).Resume.Content.PersonalInfo.FullName)

	rec = s.do(t, http.MethodPost, "/v1/editor/sections/skills", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"index":0`)

	rec = s.do(t, http.MethodPatch, "/v1/editor/sections/skills/0", token, gin.H{"field": "level", "value": "150"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, decodeState(t, rec).Resume.Content.Skills[0].Level)

	rec = s.do(t, http.MethodPatch, "/v1/editor/sections/skills/3", token, gin.H{"field": "name", "value": "Go"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPatch, "/v1/editor/sections/skills/x", token, gin.H{"field": "name", "value": "Go"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/editor/sections/hobbies", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/v1/editor/template", token, gin.H{"value": "modern"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resume.TemplateModern, decodeState(t, rec).Preview.Template)

	rec = s.do(t, http.MethodPut, "/v1/editor/name", token, gin.H{"value": "  "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resume.DefaultName, decodeState(t, rec).Resume.Name)

	rec = s.do(t, http.MethodDelete, "/v1/editor/sections/skills/0", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeState(t, rec).Resume.Content.Skills)

	rec = s.do(t, http.MethodGet, "/v1/editor/preview.html", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Alex Johnson")

	rec = s.do(t, http.MethodPost, "/v1/editor/close", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/resumes", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.Resume.ID)

	rec = s.do(t, http.MethodPost, "/v1/resumes/"+created.Resume.ID+"/open", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resume.TemplateModern, decodeState(t, rec).Resume.Template)
}

func TestResumes_DuplicateAndDelete(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "a@example.com")

	rec := s.do(t, http.MethodPost, "/v1/resumes", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	original := decodeState(t, rec).Resume

	rec = s.do(t, http.MethodPost, "/v1/resumes/"+original.ID+"/duplicate", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var dup resume.Resume
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dup))
	assert.NotEqual(t, original.ID, dup.ID)
	assert.Equal(t, original.Name+session.CopySuffix, dup.Name)

	rec = s.do(t, http.MethodDelete, "/v1/resumes/"+original.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/v1/resumes/"+original.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/resumes/"+original.ID+"/open", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResumes_Import(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "a@example.com")

	doc := gin.H{
		"name":     "Imported",
		"template": "minimal",
		"data":     resume.SampleContent(),
	}
	rec := s.do(t, http.MethodPost, "/v1/resumes/import", token, doc)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	state := decodeState(t, rec)
	assert.Equal(t, "Imported", state.Resume.Name)
	assert.Equal(t, resume.TemplateMinimal, state.Resume.Template)
	assert.Equal(t, resume.SampleContent(), state.Resume.Content)

	rec = s.do(t, http.MethodPost, "/v1/resumes/import", token, gin.H{"name": "Broken"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "fields")
}

func TestExport_InlineAndDownload(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "a@example.com")

	rec := s.do(t, http.MethodPost, "/v1/editor/export", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/resumes", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPatch, "/v1/editor/personal", token, gin.H{"fullName": "Alex Johnson"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/editor/export", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result export.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Alex Johnson.pdf", result.FileName)
	assert.Equal(t, 1, result.Pages)

	rec = s.do(t, http.MethodGet, "/v1/exports", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), result.ObjectKey)

	rec = s.do(t, http.MethodGet, "/v1/exports/download?key="+url.QueryEscape(result.ObjectKey), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = s.do(t, http.MethodGet, "/v1/exports/link?key="+url.QueryEscape(result.ObjectKey), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/v1/exports/download?key=")

	rec = s.do(t, http.MethodGet, "/v1/exports/download?key="+url.QueryEscape("exports/someone-else/x/y.pdf"), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/exports/download?key="+url.QueryEscape("../etc/passwd"), token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/exports?key="+url.QueryEscape(result.ObjectKey), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/exports/download?key="+url.QueryEscape(result.ObjectKey), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocket_ForwardsNotifications(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "a@example.com")
	account, ok := s.sessions.CurrentAccount()
	require.True(t, ok)

	server := httptest.NewServer(s.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(gin.H{"type": "auth", "token": token}))
	select {
	case <-s.subs.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not established")
	}

	require.NoError(t, s.hub.Publish(context.Background(), account.ID, notify.Message{
		Status:   notify.StatusCompleted,
		ResumeID: "r-1",
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg notify.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, notify.StatusCompleted, msg.Status)
	assert.Equal(t, "r-1", msg.ResumeID)
}

func TestWebSocket_ClosesAfterLogout(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "a@example.com")
	account, ok := s.sessions.CurrentAccount()
	require.True(t, ok)

	server := httptest.NewServer(s.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(gin.H{"type": "auth", "token": token}))
	select {
	case <-s.subs.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not established")
	}

	rec := s.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	require.NoError(t, s.hub.Publish(context.Background(), account.ID, notify.Message{
		Status:   notify.StatusCompleted,
		ResumeID: "r-1",
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestWebSocket_RejectsBadToken(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(gin.H{"type": "auth", "token": "bogus"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}
