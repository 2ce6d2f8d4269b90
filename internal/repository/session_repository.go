package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"xray-analyzer-go/internal/model"
	"xray-analyzer-go/internal/session"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository интерфейс для работы со снимками сессий
type SessionRepository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ session.Purger = (*sessionRepository)(nil)

// sessionRepository реализация SessionRepository на gorm
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository создает новый instance SessionRepository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{
		db: db,
	}
}

// Load получает снимок по ключу
func (r *sessionRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var snap model.SessionSnapshot
	err := r.db.WithContext(ctx).Where("snapshot_key = ?", key).First(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session snapshot: %w", err)
	}
	return []byte(snap.Payload), nil
}

// Save создает или обновляет снимок
func (r *sessionRepository) Save(ctx context.Context, key string, payload []byte) error {
	namespace, id, _ := strings.Cut(key, ":")
	snap := &model.SessionSnapshot{
		Key:       key,
		Namespace: namespace,
		SessionID: id,
		Payload:   string(payload),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	return nil
}

// Delete удаляет снимок; отсутствие записи не ошибка
func (r *sessionRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("snapshot_key = ?", key).Delete(&model.SessionSnapshot{}).Error; err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}

// PurgeOlderThan удаляет снимки, не обновлявшиеся с cutoff
func (r *sessionRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&model.SessionSnapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge session snapshots: %w", result.Error)
	}
	return result.RowsAffected, nil
}
