package model

import (
	"time"
)

// SessionSnapshot снимок состояния сессии в базе данных
type SessionSnapshot struct {
	Key       string `gorm:"column:snapshot_key;primaryKey;type:varchar(128)" json:"key"`
	Namespace string `gorm:"type:varchar(64);not null;index" json:"namespace"`
	SessionID string `gorm:"type:varchar(36);not null" json:"session_id"`
	Payload   string `gorm:"type:text;not null" json:"payload"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

// TableName указывает имя таблицы для SessionSnapshot
func (SessionSnapshot) TableName() string {
	return "session_snapshots"
}
