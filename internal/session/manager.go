package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const persistTimeout = 5 * time.Second

// Purger хранилище, умеющее удалять устаревшие снимки
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type entry struct {
	store      *Store
	lastAccess time.Time
}

// Manager владеет хранилищами сессий и связывает их с Persister
type Manager struct {
	mu        sync.Mutex
	stores    map[string]*entry
	persister Persister
	now       func() time.Time
	logger    *logrus.Logger
}

// NewManager создает менеджер сессий
func NewManager(persister Persister, logger *logrus.Logger) *Manager {
	return &Manager{
		stores:    make(map[string]*entry),
		persister: persister,
		now:       time.Now,
		logger:    logger,
	}
}

// Create создает новую пустую сессию
func (m *Manager) Create() *Store {
	id := uuid.New().String()

	m.mu.Lock()
	defer m.mu.Unlock()

	store := m.attach(NewStore(id))
	m.stores[id] = &entry{store: store, lastAccess: m.now()}
	m.logger.Infof("Создана сессия %s", id)
	return store
}

// Open возвращает сессию из памяти или восстанавливает ее из хранилища.
// Запрос к хранилищу выполняется без блокировки менеджера.
func (m *Manager) Open(ctx context.Context, id string) (*Store, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	if store := m.lookup(id); store != nil {
		return store, nil
	}

	payload, err := m.persister.Load(ctx, Key(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	state, err := Decode(payload)
	if err != nil {
		return nil, err
	}

	restored := NewStore(id)
	restored.restore(state)

	store, inserted := m.insert(id, restored)
	if inserted {
		m.logger.Infof("Сессия %s восстановлена из хранилища (файл без содержимого: %t)", id, state.File.Stale())
	}
	return store, nil
}

// Ensure открывает сессию или создает пустую с тем же идентификатором.
// Сессия, выданная до перезапуска и ни разу не измененная, в хранилище не попадает,
// поэтому для нее создается новое пустое хранилище.
func (m *Manager) Ensure(ctx context.Context, id string) (*Store, error) {
	store, err := m.Open(ctx, id)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, perr := uuid.Parse(id); perr != nil {
		return nil, err
	}

	store, _ = m.insert(id, NewStore(id))
	return store, nil
}

// Remove удаляет сессию из памяти и ее снимок из хранилища
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.stores, id)
	m.mu.Unlock()

	if err := m.persister.Delete(ctx, Key(id)); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	m.logger.Infof("Сессия %s удалена", id)
	return nil
}

// Purge выгружает из памяти сессии, к которым не обращались дольше ttl, удаляет
// их снимки и, если хранилище это умеет, снимки сессий, не загруженных в память.
// Возвращает число выгруженных сессий.
func (m *Manager) Purge(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var idle []string
	for id, e := range m.stores {
		if e.lastAccess.Before(cutoff) {
			idle = append(idle, id)
			delete(m.stores, id)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range idle {
		if err := m.persister.Delete(ctx, Key(id)); err != nil {
			errs = append(errs, fmt.Errorf("delete session %s: %w", id, err))
		}
	}

	if purger, ok := m.persister.(Purger); ok {
		n, err := purger.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("purge snapshots: %w", err))
		} else if n > 0 {
			m.logger.Infof("Удалено устаревших снимков сессий: %d", n)
		}
	}

	if len(idle) > 0 {
		m.logger.Infof("Выгружено неактивных сессий: %d", len(idle))
	}
	return len(idle), errors.Join(errs...)
}

// Len число сессий в памяти
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

func (m *Manager) lookup(id string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.stores[id]
	if !ok {
		return nil
	}
	e.lastAccess = m.now()
	return e.store
}

// insert добавляет store, если сессию не успели добавить параллельно;
// иначе возвращает уже существующую
func (m *Manager) insert(id string, store *Store) (*Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.stores[id]; ok {
		e.lastAccess = m.now()
		return e.store, false
	}
	m.stores[id] = &entry{store: m.attach(store), lastAccess: m.now()}
	return store, true
}

// attach подписывает адаптер сохранения на изменения хранилища
func (m *Manager) attach(store *Store) *Store {
	key := Key(store.ID())
	store.Subscribe(func(st State) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if st.Empty() {
			if err := m.persister.Delete(ctx, key); err != nil {
				m.logger.Warnf("Не удалось удалить снимок сессии %s: %v", store.ID(), err)
			}
			return
		}

		payload, err := Encode(st)
		if err != nil {
			m.logger.Warnf("Не удалось сериализовать сессию %s: %v", store.ID(), err)
			return
		}
		if err := m.persister.Save(ctx, key, payload); err != nil {
			m.logger.Warnf("Не удалось сохранить сессию %s: %v", store.ID(), err)
		}
	})
	return store
}
