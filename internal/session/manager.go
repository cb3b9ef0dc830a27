// Package session 负责把简历模型与文档存储串起来：登录状态、当前编辑的简历、
// 保存、复制、删除以及定时自动保存。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"resumebuilder/internal/auth"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/resume"
)

// DefaultAutosaveInterval 是编辑器打开期间自动保存的周期。
const DefaultAutosaveInterval = 30 * time.Second

// CopySuffix 追加在复制出的简历名称之后。
const CopySuffix = " (Copy)"

// SaveTrigger 标识一次保存的来源，用于日志与指标。
type SaveTrigger string

const (
	TriggerExplicit SaveTrigger = "explicit"
	TriggerAutosave SaveTrigger = "autosave"
	TriggerClose    SaveTrigger = "close"
	TriggerExport   SaveTrigger = "export"
)

// Store 是会话层依赖的文档存储。
type Store interface {
	PutAccount(ctx context.Context, account *auth.Account) error
	FindAccountByEmail(ctx context.Context, email string) (*auth.Account, error)
	GetAccount(ctx context.Context, id string) (*auth.Account, error)
	PutResume(ctx context.Context, doc *resume.Resume) error
	GetResume(ctx context.Context, id string) (*resume.Resume, error)
	ListResumesByOwner(ctx context.Context, ownerID string) ([]*resume.Resume, error)
	DeleteResume(ctx context.Context, id string) error
	SetActiveAccount(ctx context.Context, accountID string) error
	ActiveAccount(ctx context.Context) (string, error)
}

// SignupInput 是注册所需字段。
type SignupInput struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required"`
	Secret string `json:"secret" validate:"required"`
}

// LoginInput 是登录所需字段。
type LoginInput struct {
	Email  string `json:"email" validate:"required"`
	Secret string `json:"secret" validate:"required"`
}

// Option 定制 Manager。
type Option func(*Manager)

// WithClock 替换时间来源。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator 替换实体 ID 生成器。
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithAutosaveInterval overrides DefaultAutosaveInterval.
func WithAutosaveInterval(interval time.Duration) Option {
	return func(m *Manager) { m.autosaveInterval = interval }
}

// WithSaveObserver registers a callback invoked after every successful save.
func WithSaveObserver(observe func(SaveTrigger)) Option {
	return func(m *Manager) { m.observeSave = observe }
}

// Manager 是单用户的会话与生命周期管理器，所有方法可并发调用。
type Manager struct {
	store            Store
	validate         *validator.Validate
	logger           *slog.Logger
	now              func() time.Time
	newID            func() string
	autosaveInterval time.Duration
	observeSave      func(SaveTrigger)

	// saveMu 串行化写入与删除，先于 mu 获取。
	saveMu sync.Mutex

	mu      sync.Mutex
	account *auth.Account
	active  *resume.Resume

	stopAutosave context.CancelFunc
	loops        sync.WaitGroup
}

// NewManager 构造会话管理器。
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:            store,
		validate:         validator.New(),
		logger:           slog.Default(),
		now:              time.Now,
		newID:            uuid.NewString,
		autosaveInterval: DefaultAutosaveInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore 恢复上次持久化的登录状态。账号已不存在时清除指针。
func (m *Manager) Restore(ctx context.Context) error {
	id, err := m.store.ActiveAccount(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	account, err := m.store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			m.logger.Warn("persisted account missing, clearing session", slog.String("account_id", id))
			return m.store.SetActiveAccount(ctx, "")
		}
		return err
	}

	m.mu.Lock()
	m.account = account
	m.mu.Unlock()
	return nil
}

// Signup 创建账号并直接登录。
func (m *Manager) Signup(ctx context.Context, in SignupInput) (*auth.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := m.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("signup: %w: %s", errcode.ErrValidation, err.Error())
	}

	if _, err := m.store.FindAccountByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("signup %s: %w", in.Email, errcode.ErrDuplicateAccount)
	} else if !errors.Is(err, errcode.ErrNotFound) {
		return nil, fmt.Errorf("signup: %w", err)
	}

	hash, err := auth.HashSecret(in.Secret)
	if err != nil {
		return nil, err
	}
	account := &auth.Account{
		ID:         m.newID(),
		Name:       in.Name,
		Email:      in.Email,
		SecretHash: hash,
		CreatedAt:  m.now(),
	}
	if err := m.store.PutAccount(ctx, account); err != nil {
		return nil, err
	}

	m.logger.Info("account created", slog.String("account_id", account.ID))
	if err := m.activate(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login 以邮箱与口令精确匹配登录。凭据不匹配时返回 ErrNotFound。
func (m *Manager) Login(ctx context.Context, in LoginInput) (*auth.Account, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := m.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("login: %w: %s", errcode.ErrValidation, err.Error())
	}

	account, err := m.store.FindAccountByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !auth.CheckSecret(in.Secret, account.SecretHash) {
		return nil, fmt.Errorf("login: invalid credentials: %w", errcode.ErrNotFound)
	}

	if err := m.activate(ctx, account); err != nil {
		return nil, err
	}
	m.logger.Info("account logged in", slog.String("account_id", account.ID))
	return account, nil
}

func (m *Manager) activate(ctx context.Context, account *auth.Account) error {
	if err := m.CloseEditor(ctx); err != nil {
		return err
	}
	if err := m.store.SetActiveAccount(ctx, account.ID); err != nil {
		return err
	}
	m.mu.Lock()
	m.account = account
	m.mu.Unlock()
	return nil
}

// Logout 保存并关闭当前编辑器，然后清除登录状态。
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.CloseEditor(ctx); err != nil {
		return err
	}
	if err := m.store.SetActiveAccount(ctx, ""); err != nil {
		return err
	}
	m.mu.Lock()
	m.account = nil
	m.mu.Unlock()
	return nil
}

// CurrentAccount 返回当前登录的账号。
func (m *Manager) CurrentAccount() (*auth.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.account == nil {
		return nil, false
	}
	cp := *m.account
	return &cp, true
}

func (m *Manager) requireAccount() (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.account == nil {
		return nil, errcode.ErrUnauthenticated
	}
	return m.account, nil
}

// CreateResume 为 ownerID 新建空白简历并立即持久化，随后在编辑器中打开。
// 登录状态下 ownerID 必须是当前账号；传空串表示当前账号。
func (m *Manager) CreateResume(ctx context.Context, ownerID string) (*resume.Resume, error) {
	if account, ok := m.CurrentAccount(); ok {
		if ownerID == "" {
			ownerID = account.ID
		} else if ownerID != account.ID {
			return nil, fmt.Errorf("create resume for %s: %w", ownerID, errcode.ErrNotFound)
		}
	}
	if ownerID == "" {
		return nil, errcode.ErrUnauthenticated
	}

	doc := resume.New(m.newID(), ownerID, m.now())
	if err := m.store.PutResume(ctx, doc); err != nil {
		return nil, err
	}
	m.logger.Info("resume created", slog.String("resume_id", doc.ID), slog.String("owner_id", ownerID))

	if err := m.open(ctx, doc); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// LoadResume 读取简历并在编辑器中打开。简历不存在或不属于当前账号时返回 ErrNotFound。
func (m *Manager) LoadResume(ctx context.Context, id string) (*resume.Resume, error) {
	doc, err := m.ownedResume(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.open(ctx, doc); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

func (m *Manager) ownedResume(ctx context.Context, id string) (*resume.Resume, error) {
	account, err := m.requireAccount()
	if err != nil {
		return nil, err
	}
	doc, err := m.store.GetResume(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != account.ID {
		return nil, fmt.Errorf("resume %s: %w", id, errcode.ErrNotFound)
	}
	return doc, nil
}

// DuplicateResume 深拷贝一份简历为新实体，原简历不受影响。
func (m *Manager) DuplicateResume(ctx context.Context, id string) (*resume.Resume, error) {
	source, err := m.ownedResume(ctx, id)
	if err != nil {
		return nil, err
	}
	// 编辑器中未保存的修改也一并复制
	m.mu.Lock()
	if m.active != nil && m.active.ID == id {
		source = m.active.Clone()
	}
	m.mu.Unlock()

	now := m.now()
	dup := source.Clone()
	dup.ID = m.newID()
	dup.Name = source.Name + CopySuffix
	dup.CreatedAt = now
	dup.UpdatedAt = now
	if err := m.store.PutResume(ctx, dup); err != nil {
		return nil, err
	}
	m.logger.Info("resume duplicated", slog.String("resume_id", dup.ID), slog.String("source_id", id))
	return dup.Clone(), nil
}

// DeleteResume 删除简历。已不存在时视为成功；删除的正是当前编辑的简历时关闭编辑器且不再保存。
func (m *Manager) DeleteResume(ctx context.Context, id string) error {
	if _, err := m.ownedResume(ctx, id); err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			m.discardIfActive(id)
			return nil
		}
		return err
	}

	// 进行中的保存先完成，之后的保存看不到这份简历
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	m.discardIfActive(id)
	if err := m.store.DeleteResume(ctx, id); err != nil {
		return err
	}
	m.logger.Info("resume deleted", slog.String("resume_id", id))
	return nil
}

func (m *Manager) discardIfActive(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && m.active.ID == id {
		m.active = nil
		m.cancelAutosaveLocked()
	}
}

// SaveResume 刷新 updatedAt 并整体写入存储。doc 必须属于当前账号，否则返回 ErrNotFound。
// 保存的是当前编辑的简历时同步编辑器状态。
func (m *Manager) SaveResume(ctx context.Context, doc *resume.Resume) (*resume.Resume, error) {
	account, err := m.requireAccount()
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("save resume: %w", errcode.ErrValidation)
	}
	if doc.OwnerID != account.ID {
		return nil, fmt.Errorf("save resume %s: %w", doc.ID, errcode.ErrNotFound)
	}
	// 同一 id 已被其他账号占用时同样视为不存在
	existing, err := m.store.GetResume(ctx, doc.ID)
	switch {
	case err == nil && existing.OwnerID != account.ID:
		return nil, fmt.Errorf("save resume %s: %w", doc.ID, errcode.ErrNotFound)
	case err != nil && !errors.Is(err, errcode.ErrNotFound):
		return nil, err
	}
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	return m.saveLocked(ctx, doc, TriggerExplicit, true)
}

// saveLocked 写入 doc，调用方持有 saveMu。replace 为 false 时 doc 是编辑器快照，
// 写入期间可能已有新的修改，只同步 updatedAt。
func (m *Manager) saveLocked(ctx context.Context, doc *resume.Resume, trigger SaveTrigger, replace bool) (*resume.Resume, error) {
	if doc == nil {
		return nil, fmt.Errorf("save resume: %w", errcode.ErrValidation)
	}
	saved := doc.Clone()
	saved.UpdatedAt = m.now()
	if err := m.store.PutResume(ctx, saved); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.active != nil && m.active.ID == saved.ID {
		if replace {
			m.active = saved.Clone()
		} else {
			m.active.UpdatedAt = saved.UpdatedAt
		}
	}
	m.mu.Unlock()

	m.logger.Debug("resume saved", slog.String("resume_id", saved.ID), slog.String("trigger", string(trigger)))
	if m.observeSave != nil {
		m.observeSave(trigger)
	}
	return saved, nil
}

// Save 保存当前编辑的简历。
func (m *Manager) Save(ctx context.Context) (*resume.Resume, error) {
	return m.saveActive(ctx, TriggerExplicit)
}

// SaveForExport 在导出前保存当前编辑的简历。
func (m *Manager) SaveForExport(ctx context.Context) (*resume.Resume, error) {
	return m.saveActive(ctx, TriggerExport)
}

func (m *Manager) saveActive(ctx context.Context, trigger SaveTrigger) (*resume.Resume, error) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	doc, ok := m.Active()
	if !ok {
		return nil, errcode.ErrNoActiveResume
	}
	return m.saveLocked(ctx, doc, trigger, false)
}

// AutoSave 保存触发时刻的当前简历；没有打开的简历时什么也不做。
func (m *Manager) AutoSave(ctx context.Context) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	doc, ok := m.Active()
	if !ok {
		return nil
	}
	_, err := m.saveLocked(ctx, doc, TriggerAutosave, false)
	return err
}

// ListResumes 返回当前账号的简历，最近修改的在前。
func (m *Manager) ListResumes(ctx context.Context) ([]*resume.Resume, error) {
	account, err := m.requireAccount()
	if err != nil {
		return nil, err
	}
	return m.store.ListResumesByOwner(ctx, account.ID)
}

// Active 返回当前编辑简历的副本。
func (m *Manager) Active() (*resume.Resume, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, false
	}
	return m.active.Clone(), true
}

// Edit 在当前简历的副本上执行修改，成功后才替换编辑器状态。
func (m *Manager) Edit(fn func(*resume.Resume) error) (*resume.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, errcode.ErrNoActiveResume
	}
	working := m.active.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	m.active = working
	return working.Clone(), nil
}

// CloseEditor 保存当前简历后关闭编辑器，相当于离开编辑页面。
func (m *Manager) CloseEditor(ctx context.Context) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	doc, ok := m.Active()
	if !ok {
		return nil
	}
	if _, err := m.saveLocked(ctx, doc, TriggerClose, false); err != nil {
		return err
	}
	m.discardIfActive(doc.ID)
	return nil
}

// Close 停止后台自动保存并等待其退出，不执行保存。
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancelAutosaveLocked()
	m.mu.Unlock()
	m.loops.Wait()
}

// open 切换编辑器到 doc：先保存之前打开的另一份简历，再启动新的自动保存循环。
func (m *Manager) open(ctx context.Context, doc *resume.Resume) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	if previous, ok := m.Active(); ok && previous.ID != doc.ID {
		if _, err := m.saveLocked(ctx, previous, TriggerClose, false); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = doc.Clone()
	m.cancelAutosaveLocked()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.stopAutosave = cancel
	m.loops.Add(1)
	go m.autosaveLoop(loopCtx)
	return nil
}

func (m *Manager) cancelAutosaveLocked() {
	if m.stopAutosave != nil {
		m.stopAutosave()
		m.stopAutosave = nil
	}
}

func (m *Manager) autosaveLoop(ctx context.Context) {
	defer m.loops.Done()
	ticker := time.NewTicker(m.autosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.AutoSave(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				m.logger.Error("autosave failed", slog.Any("error", err))
			}
		}
	}
}
