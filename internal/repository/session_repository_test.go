package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"xray-analyzer-go/internal/model"
	"xray-analyzer-go/internal/session"
)

func newTestRepo(t *testing.T) SessionRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.SessionSnapshot{}))
	return NewSessionRepository(db)
}

func TestSessionRepositorySaveLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	key := session.Key("0b7c6f40-0000-4000-8000-000000000001")

	_, err := repo.Load(ctx, key)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, repo.Save(ctx, key, []byte(`{"v":1}`)))
	require.NoError(t, repo.Save(ctx, key, []byte(`{"v":2}`)))

	payload, err := repo.Load(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(payload))

	require.NoError(t, repo.Delete(ctx, key))
	_, err = repo.Load(ctx, key)
	assert.ErrorIs(t, err, session.ErrNotFound)

	assert.NoError(t, repo.Delete(ctx, key))
}

func TestSessionRepositoryPurge(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, session.Key("a"), []byte(`{}`)))
	require.NoError(t, repo.Save(ctx, session.Key("b"), []byte(`{}`)))

	n, err := repo.PurgeOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.PurgeOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSessionRepositoryBacksManager(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	m := session.NewManager(repo, quiet())
	store := m.Create()
	store.SetFile(session.NewFileRef("scan.png", "image/png", []byte{1}))

	restored, err := session.NewManager(repo, quiet()).Open(ctx, store.ID())
	require.NoError(t, err)
	require.NotNil(t, restored.State().File)
	assert.Equal(t, "scan.png", restored.State().File.Name)
}

func TestSessionRepositoryPurgedThroughManager(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	store := session.NewManager(repo, quiet()).Create()
	store.SetFile(session.NewFileRef("scan.png", "image/png", []byte{1}))

	restarted := session.NewManager(repo, quiet())
	_, err := restarted.Purge(ctx, -time.Hour)
	require.NoError(t, err)

	_, err = repo.Load(ctx, session.Key(store.ID()))
	assert.ErrorIs(t, err, session.ErrNotFound)
}
