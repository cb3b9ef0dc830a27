package database

import (
	"time"

	"gorm.io/datatypes"
)

// Account 表示系统中的账号信息。
type Account struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Name       string    `gorm:"size:255"`
	Email      string    `gorm:"uniqueIndex;size:255"`
	SecretHash string    `gorm:"size:255"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
}

// Resume 表示账号拥有的一份简历，Content 以 JSON 文档保存。
// 时间戳由会话层赋值，GORM 不自动改写。
type Resume struct {
	ID        string         `gorm:"primaryKey;size:36"`
	OwnerID   string         `gorm:"index;size:36"`
	Name      string         `gorm:"size:255"`
	Template  string         `gorm:"size:32"`
	Content   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time      `gorm:"index;autoUpdateTime:false"`
}

// SessionState 是单行表，记录当前登录的账号。
type SessionState struct {
	ID              uint   `gorm:"primaryKey"`
	ActiveAccountID string `gorm:"size:36"`
}

const sessionStateRowID = 1
