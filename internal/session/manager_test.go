package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"resumebuilder/internal/config"
	"resumebuilder/internal/database"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/resume"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type sequentialIDs struct {
	n atomic.Int64
}

func (s *sequentialIDs) Next() string {
	return fmt.Sprintf("id-%03d", s.n.Add(1))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDatabase(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *database.Store) {
	t.Helper()
	store := database.NewStore(newTestDB(t), nil)
	return newManagerOver(t, store, opts...), store
}

func newManagerOver(t *testing.T, store Store, opts ...Option) *Manager {
	t.Helper()
	clock := &stepClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	ids := &sequentialIDs{}
	base := []Option{WithClock(clock.Now), WithIDGenerator(ids.Next), WithAutosaveInterval(time.Hour)}
	m := NewManager(store, append(base, opts...)...)
	t.Cleanup(m.Close)
	return m
}

// gatedStore 在 armed 时让下一次 PutResume 停在 release 上。
type gatedStore struct {
	*database.Store
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) PutResume(ctx context.Context, doc *resume.Resume) error {
	if s.armed.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.release
	}
	return s.Store.PutResume(ctx, doc)
}

func signup(t *testing.T, m *Manager, email string) string {
	t.Helper()
	account, err := m.Signup(context.Background(), SignupInput{Name: "Alex", Email: email, Secret: "pass"})
	require.NoError(t, err)
	return account.ID
}

func TestSignup_LogsIn(t *testing.T) {
	m, store := newTestManager(t)
	id := signup(t, m, "a@example.com")

	current, ok := m.CurrentAccount()
	require.True(t, ok)
	assert.Equal(t, id, current.ID)

	persisted, err := store.ActiveAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, persisted)

	stored, err := store.FindAccountByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pass", stored.SecretHash)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	m, store := newTestManager(t)
	first := signup(t, m, "a@example.com")

	_, err := m.Signup(context.Background(), SignupInput{Name: "Other", Email: "a@example.com", Secret: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errcode.ErrDuplicateAccount)

	stored, err := store.FindAccountByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, stored.ID)
	assert.Equal(t, "Alex", stored.Name)
}

func TestSignup_RequiresAllFields(t *testing.T) {
	m, _ := newTestManager(t)
	cases := []SignupInput{
		{Email: "a@example.com", Secret: "x"},
		{Name: "Alex", Secret: "x"},
		{Name: "Alex", Email: "a@example.com"},
		{Name: "  ", Email: "a@example.com", Secret: "x"},
	}
	for _, in := range cases {
		_, err := m.Signup(context.Background(), in)
		assert.ErrorIs(t, err, errcode.ErrValidation, "%+v", in)
	}
}

func TestSignup_LongSecret(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	secret := strings.Repeat("s", 80)
	_, err := m.Signup(ctx, SignupInput{Name: "Alex", Email: "a@example.com", Secret: secret})
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))

	_, err = m.Login(ctx, LoginInput{Email: "a@example.com", Secret: secret})
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))

	// 超过 72 字节的部分同样参与比较
	_, err = m.Login(ctx, LoginInput{Email: "a@example.com", Secret: secret[:79] + "t"})
	assert.ErrorIs(t, err, errcode.ErrNotFound)
}

func TestLogin(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := signup(t, m, "a@example.com")
	require.NoError(t, m.Logout(ctx))

	_, err := m.Login(ctx, LoginInput{Email: "a@example.com"})
	assert.ErrorIs(t, err, errcode.ErrValidation)

	_, err = m.Login(ctx, LoginInput{Email: "a@example.com", Secret: "PASS"})
	assert.ErrorIs(t, err, errcode.ErrNotFound)

	_, err = m.Login(ctx, LoginInput{Email: "b@example.com", Secret: "pass"})
	assert.ErrorIs(t, err, errcode.ErrNotFound)

	account, err := m.Login(ctx, LoginInput{Email: "a@example.com", Secret: "pass"})
	require.NoError(t, err)
	assert.Equal(t, id, account.ID)
}

func TestRestore(t *testing.T) {
	m, store := newTestManager(t)
	id := signup(t, m, "a@example.com")

	restored := NewManager(store)
	t.Cleanup(restored.Close)
	require.NoError(t, restored.Restore(context.Background()))
	current, ok := restored.CurrentAccount()
	require.True(t, ok)
	assert.Equal(t, id, current.ID)
}

func TestLogout_SavesAndClearsSession(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	signup(t, m, "a@example.com")
	doc, err := m.CreateResume(ctx, "")
	require.NoError(t, err)

	_, err = m.Edit(func(r *resume.Resume) error {
		r.Content.SetSummary("unsaved")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx))

	_, ok := m.CurrentAccount()
	assert.False(t, ok)
	_, ok = m.Active()
	assert.False(t, ok)

	persisted, err := store.ActiveAccount(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)

	stored, err := store.GetResume(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "unsaved", stored.Content.Summary)

	_, err = m.ListResumes(ctx)
	assert.ErrorIs(t, err, errcode.ErrUnauthenticated)
}

func TestCreateResume(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	owner := signup(t, m, "a@example.com")

	doc, err := m.CreateResume(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, resume.DefaultName, doc.Name)
	assert.Equal(t, resume.TemplateClassic, doc.Template)
	assert.Equal(t, resume.EmptyContent(), doc.Content)

	stored, err := store.GetResume(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, stored.OwnerID)

	active, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, doc.ID, active.ID)

	_, err = m.CreateResume(ctx, "someone-else")
	assert.ErrorIs(t, err, errcode.ErrNotFound)
}

func TestLoadResume_ChecksOwnership(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	signup(t, m, "a@example.com")
	doc, err := m.CreateResume(ctx, "")
	require.NoError(t, err)

	signup(t, m, "b@example.com")
	_, err = m.LoadResume(ctx, doc.ID)
	assert.ErrorIs(t, err, errcode.ErrNotFound)

	_, err = m.LoadResume(ctx, "missing")
	assert.ErrorIs(t, err, errcode.ErrNotFound)
}

func TestLoadResume_SavesPreviousEditor(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	signup(t, m, "a@example.com")
	first, err := m.CreateResume(ctx, "")
	require.NoError(t, err)
	_, err = m.Edit(func(r *resume.Resume) error {
		r.Name = "First"
		return nil
	})
	require.NoError(t, err)

	second, err := m.CreateResume(ctx, "")
	require.NoError(t, err)

	stored, err := store.GetResume(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", stored.Name)

	active, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, second.ID, active.ID)
}

func TestSaveResume_RefreshesUpdatedAt(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	signup(t, m, "a@example.com")
	doc, err := m.CreateResume(ctx, "")
	require.NoError(t, err)

	saved, err := m.SaveResume(ctx, doc)
	require.NoError(t, err)
	assert.True(t, saved.UpdatedAt.After(doc.UpdatedAt))
	assert.True(t, saved.CreatedAt.Equal(doc.CreatedAt))

	stored, err := store.GetResume(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, saved.UpdatedAt.Equal(stored.UpdatedAt))
}

func TestDuplicateResume_DeepCopy(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	signup(t, m, "a@example.com")
	doc, err := m.CreateResume(ctx, "")
	require.NoError(t, err)

	doc.Name = "Backend"
	doc.Content = resume.SampleContent()
	saved, err := m.SaveResume(ctx, doc)
	require.NoError(t, err)

	dup, err := m.DuplicateResume(ctx, saved.ID)
	require.NoError(t, err)
	assert.NotEqual(t, saved.ID, dup.ID)
	assert.Equal(t, "Backend (Copy)", dup.Name)
	assert.Equal(t, saved.Content, dup.Content)
	assert.True(t, dup.CreatedAt.After(saved.CreatedAt))

	dup.Content.Experience[0].Company = "Changed"
	dup.Content.Skills = dup.Content.Skills[:1]
	_, err = m.SaveResume(ctx, dup)
	require.NoError(t, err)

	original, err := store.GetResume(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, resume.SampleContent(), original.Content)

	list, err := m.ListResumes(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, dup.ID, list[0].ID)
}

func TestSaveResume_RejectsForeignResume(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	signup(t, m, "a@example.com")
	theirs, err := m.CreateResume(ctx, "")
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))
	mine := signup(t, m, "b@example.com")

	forged := theirs.Clone()
	forged.Name = "Taken"
	_, err = m.SaveResume(ctx, forged)
	assert.ErrorIs(t, err, errcode.ErrNotFound)

	// 改写 ownerID 也无法覆盖他人的简历
	forged.OwnerID = mine
	_, err = m.SaveResume(ctx, forged)
	assert.ErrorIs(t, err, errcode.ErrNotFound)

	stored, err := store.GetResume(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, theirs.Name, stored.Name)
	assert.Equal(t, theirs.OwnerID, stored.OwnerID)

	require.NoError(t, m.Logout(ctx))
	_, err = m.SaveResume(ctx, theirs)
	assert.ErrorIs(t, err, errcode.ErrUnauthenticated)
}

func TestDeleteResume_WaitsForInFlightAutosave(t *testing.T) {
	store := &gatedStore{
		Store:   database.NewStore(newTestDB(t), nil),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := newManagerOver(t, store)
	ctx := context.Background()
	signup(t, m, "a@example.com")
	doc, err := m.CreateResume(ctx, "")
	require.NoError(t, err)

	store.armed.Store(true)
	autosaved := make(chan error, 1)
	go func() { autosaved <- m.AutoSave(ctx) }()
	<-store.entered

	deleted := make(chan error, 1)
	go func() { deleted <- m.DeleteResume(ctx, doc.ID) }()
	select {
	case err := <-deleted:
		t.Fatalf("delete returned before the autosave write finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-autosaved)
	require.NoError(t, <-deleted)

	_, err = store.GetResume(ctx, doc.ID)
	assert.ErrorIs(t, err, errcode.ErrNotFound)
	_, ok := m.Active()
	assert.False(t, ok)

	// 删除之后的自动保存不会让简历复活
	require.NoError(t, m.AutoSave(ctx))
	_, err = store.GetResume(ctx, doc.ID)
	assert.ErrorIs(t, err, errcode.ErrNotFound)
}

func TestDeleteResume(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	signup(t, m, "a@example.com")
	keep, err := m.CreateResume(ctx, "")
	require.NoError(t, err)
	doc, err := m.CreateResume(ctx, "")
	require.NoError(t, err)

	require.NoError(t, m.DeleteResume(ctx, doc.ID))
	_, ok := m.Active()
	assert.False(t, ok)
	_, err = store.GetResume(ctx, doc.ID)
	assert.ErrorIs(t, err, errcode.ErrNotFound)

	// 不存在的 ID 不报错，存储不变
	require.NoError(t, m.DeleteResume(ctx, "missing"))
	require.NoError(t, m.DeleteResume(ctx, doc.ID))
	list, err := m.ListResumes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)
}

func TestEdit_FailedMutationLeavesStateUntouched(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	signup(t, m, "a@example.com")
	_, err := m.CreateResume(ctx, "")
	require.NoError(t, err)

	_, err = m.Edit(func(r *resume.Resume) error {
		if _, err := r.Content.AddEntry(resume.SectionSkills); err != nil {
			return err
		}
		return r.Content.UpdateEntry(resume.SectionSkills, 3, "name", "Go")
	})
	assert.ErrorIs(t, err, errcode.ErrIndexOutOfRange)

	active, ok := m.Active()
	require.True(t, ok)
	assert.Empty(t, active.Content.Skills)
}

func TestEdit_WithoutOpenResume(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Edit(func(*resume.Resume) error { return nil })
	assert.ErrorIs(t, err, errcode.ErrNoActiveResume)
}

func TestAutoSave_NoActiveResumeIsNoop(t *testing.T) {
	var saves atomic.Int32
	m, _ := newTestManager(t, WithSaveObserver(func(SaveTrigger) { saves.Add(1) }))
	require.NoError(t, m.AutoSave(context.Background()))
	assert.Equal(t, int32(0), saves.Load())
}

func TestAutoSave_TimerPersistsEdits(t *testing.T) {
	var autosaves atomic.Int32
	m, store := newTestManager(t,
		WithAutosaveInterval(10*time.Millisecond),
		WithSaveObserver(func(trigger SaveTrigger) {
			if trigger == TriggerAutosave {
				autosaves.Add(1)
			}
		}),
	)
	ctx := context.Background()
	signup(t, m, "a@example.com")
	doc, err := m.CreateResume(ctx, "")
	require.NoError(t, err)

	_, err = m.Edit(func(r *resume.Resume) error {
		r.Content.SetSummary("typed")
		return nil
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		stored, err := store.GetResume(ctx, doc.ID)
		return err == nil && stored.Content.Summary == "typed"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.CloseEditor(ctx))
	m.Close()
	after := autosaves.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, autosaves.Load())
}

func TestAutoSave_TimerTargetsResumeOpenWhenFiring(t *testing.T) {
	m, store := newTestManager(t, WithAutosaveInterval(20*time.Millisecond))
	ctx := context.Background()
	signup(t, m, "a@example.com")
	first, err := m.CreateResume(ctx, "")
	require.NoError(t, err)
	second, err := m.CreateResume(ctx, "")
	require.NoError(t, err)

	before, err := store.GetResume(ctx, first.ID)
	require.NoError(t, err)

	_, err = m.Edit(func(r *resume.Resume) error {
		r.Content.SetSummary("second draft")
		return nil
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		stored, err := store.GetResume(ctx, second.ID)
		return err == nil && stored.Content.Summary == "second draft"
	}, 2*time.Second, 10*time.Millisecond)

	after, err := store.GetResume(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
	assert.Empty(t, after.Content.Summary)
}

func TestCloseEditor_SavesBeforeClosing(t *testing.T) {
	var triggers []SaveTrigger
	var mu sync.Mutex
	m, store := newTestManager(t, WithSaveObserver(func(trigger SaveTrigger) {
		mu.Lock()
		defer mu.Unlock()
		triggers = append(triggers, trigger)
	}))
	ctx := context.Background()
	signup(t, m, "a@example.com")
	doc, err := m.CreateResume(ctx, "")
	require.NoError(t, err)
	_, err = m.Edit(func(r *resume.Resume) error {
		r.Template = resume.TemplateMinimal
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, m.CloseEditor(ctx))
	require.NoError(t, m.CloseEditor(ctx))

	stored, err := store.GetResume(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, resume.TemplateMinimal, stored.Template)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []SaveTrigger{TriggerClose}, triggers)
}
