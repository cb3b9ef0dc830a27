package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resumebuilder/internal/auth"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/resume"
)

// Store 是基于 GORM 的文档存储：账号、简历与当前会话指针。
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore 构造文档存储。
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// PutAccount 写入新账号。邮箱已被其他账号占用时返回 ErrDuplicateAccount；
// 以同一 ID 重写自身是幂等的。
func (s *Store) PutAccount(ctx context.Context, account *auth.Account) error {
	if account == nil || account.ID == "" {
		return fmt.Errorf("put account: %w", errcode.ErrValidation)
	}
	record := Account{
		ID:         account.ID,
		Name:       account.Name,
		Email:      normalizeEmail(account.Email),
		SecretHash: account.SecretHash,
		CreatedAt:  account.CreatedAt.UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Account
		err := tx.Where("email = ?", record.Email).First(&existing).Error
		switch {
		case err == nil && existing.ID != record.ID:
			return errcode.ErrDuplicateAccount
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Save(&record).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = errcode.ErrDuplicateAccount
	}
	if err != nil {
		return fmt.Errorf("put account %s: %w", record.Email, err)
	}
	return nil
}

// FindAccountByEmail 按邮箱查找账号。
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	var record Account
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find account by email: %w", errcode.ErrNotFound)
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return record.toAuth(), nil
}

// GetAccount 按 ID 读取账号。
func (s *Store) GetAccount(ctx context.Context, id string) (*auth.Account, error) {
	var record Account
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get account %s: %w", id, errcode.ErrNotFound)
		}
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return record.toAuth(), nil
}

// PutResume 插入或整体替换简历。所属账号必须存在。
func (s *Store) PutResume(ctx context.Context, doc *resume.Resume) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("put resume: %w", errcode.ErrValidation)
	}
	payload, err := json.Marshal(doc.Content)
	if err != nil {
		return fmt.Errorf("marshal resume content: %w", err)
	}
	record := Resume{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Name:      doc.Name,
		Template:  string(doc.Template),
		Content:   payload,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(&Account{}).Where("id = ?", doc.OwnerID).Count(&owners).Error; err != nil {
			return err
		}
		if owners == 0 {
			return fmt.Errorf("owner %s: %w", doc.OwnerID, errcode.ErrNotFound)
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error
	})
	if err != nil {
		return fmt.Errorf("put resume %s: %w", doc.ID, err)
	}
	return nil
}

// GetResume 读取简历。内容无法解码的记录按不存在处理。
func (s *Store) GetResume(ctx context.Context, id string) (*resume.Resume, error) {
	var record Resume
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get resume %s: %w", id, errcode.ErrNotFound)
		}
		return nil, fmt.Errorf("get resume %s: %w", id, err)
	}

	doc, err := record.toResume()
	if err != nil {
		s.logger.Warn("discarding unreadable resume", slog.String("resume_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("get resume %s: %w", id, errcode.ErrNotFound)
	}
	return doc, nil
}

// ListResumesByOwner 返回账号拥有的全部简历，最近修改的在前，跳过损坏的记录。
func (s *Store) ListResumesByOwner(ctx context.Context, ownerID string) ([]*resume.Resume, error) {
	var records []Resume
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list resumes for %s: %w", ownerID, err)
	}

	out := make([]*resume.Resume, 0, len(records))
	for _, record := range records {
		doc, err := record.toResume()
		if err != nil {
			s.logger.Warn("skipping unreadable resume",
				slog.String("resume_id", record.ID),
				slog.String("owner_id", ownerID),
				slog.Any("error", err),
			)
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

// DeleteResume 删除简历，记录不存在时不报错。
func (s *Store) DeleteResume(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Resume{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete resume %s: %w", id, err)
	}
	return nil
}

// SetActiveAccount 持久化当前登录的账号，传入空字符串表示登出。
func (s *Store) SetActiveAccount(ctx context.Context, accountID string) error {
	state := SessionState{ID: sessionStateRowID, ActiveAccountID: accountID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&state).Error
	if err != nil {
		return fmt.Errorf("set active account: %w", err)
	}
	return nil
}

// ActiveAccount 返回持久化的当前账号 ID，没有时返回空字符串。
func (s *Store) ActiveAccount(ctx context.Context) (string, error) {
	var state SessionState
	err := s.db.WithContext(ctx).First(&state, sessionStateRowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load active account: %w", err)
	}
	return state.ActiveAccountID, nil
}

func (r Account) toAuth() *auth.Account {
	return &auth.Account{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		SecretHash: r.SecretHash,
		CreatedAt:  r.CreatedAt,
	}
}

func (r Resume) toResume() (*resume.Resume, error) {
	var content resume.Content
	if err := json.Unmarshal(r.Content, &content); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	content.Normalize()

	template := resume.TemplateID(r.Template)
	if !template.Valid() {
		template = resume.TemplateClassic
	}
	return &resume.Resume{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Name:      r.Name,
		Template:  template,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Content:   content,
	}, nil
}

// 邮箱按原样比较，只去掉首尾空白。
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
