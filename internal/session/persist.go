package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"xray-analyzer-go/pkg/models"
)

// Namespace префикс ключей снимков сессий
const Namespace = "analysis-storage"

// ErrNotFound сессия не найдена ни в памяти, ни в хранилище
var ErrNotFound = errors.New("session not found")

// Persister долговременное хранилище снимков сессий
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

// Key ключ снимка для сессии
func Key(id string) string {
	return Namespace + ":" + id
}

type snapshot struct {
	Analysis     *models.RawAnalysisResult `json:"current_analysis"`
	Kind         models.AnalysisKind       `json:"kind"`
	File         *FileRef                  `json:"uploaded_file"`
	DisplayImage *string                   `json:"uploaded_image_url"`
	SavedAt      time.Time                 `json:"saved_at"`
}

// Encode сериализует состояние. Содержимое файла не сохраняется.
func Encode(st State) ([]byte, error) {
	return json.Marshal(snapshot{
		Analysis:     st.Analysis,
		Kind:         st.Kind,
		File:         st.File,
		DisplayImage: st.DisplayImage,
		SavedAt:      time.Now().UTC(),
	})
}

// Decode восстанавливает состояние из снимка. Файл восстанавливается без
// содержимого, а адрес изображения сбрасывается: он указывал на это содержимое.
func Decode(payload []byte) (State, error) {
	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return State{}, fmt.Errorf("decode session snapshot: %w", err)
	}

	st := State{
		Analysis: snap.Analysis,
		Kind:     snap.Kind,
		File:     snap.File,
	}
	if st.Analysis != nil {
		st.Kind = st.Analysis.Kind
	}
	return st, nil
}

// MemoryPersister хранилище снимков в памяти процесса
type MemoryPersister struct {
	mu   sync.RWMutex
	data map[string]memorySnapshot
	now  func() time.Time
}

type memorySnapshot struct {
	payload []byte
	savedAt time.Time
}

// NewMemoryPersister создает пустое хранилище в памяти
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string]memorySnapshot), now: time.Now}
}

// Load возвращает снимок или ErrNotFound
func (p *MemoryPersister) Load(_ context.Context, key string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap, ok := p.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), snap.payload...), nil
}

// Save сохраняет снимок
func (p *MemoryPersister) Save(_ context.Context, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = memorySnapshot{payload: append([]byte(nil), payload...), savedAt: p.now()}
	return nil
}

// Delete удаляет снимок; отсутствие ключа не ошибка
func (p *MemoryPersister) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, key)
	return nil
}

// PurgeOlderThan удаляет снимки, сохраненные раньше cutoff
func (p *MemoryPersister) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var n int64
	for key, snap := range p.data {
		if snap.savedAt.Before(cutoff) {
			delete(p.data, key)
			n++
		}
	}
	return n, nil
}
