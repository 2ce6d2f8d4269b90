package session

import (
	"sync"
	"time"

	"xray-analyzer-go/pkg/models"
)

// FileRef сведения об исходном файле. Содержимое живет только в памяти процесса
// и не сериализуется.
type FileRef struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`

	data []byte
}

// NewFileRef создает ссылку на загруженный файл
func NewFileRef(name, contentType string, data []byte) *FileRef {
	return &FileRef{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedAt:  time.Now(),
		data:        data,
	}
}

// Data содержимое файла или nil, если оно не пережило перезапуск
func (f *FileRef) Data() []byte {
	if f == nil {
		return nil
	}
	return f.data
}

// Stale true, если метаданные есть, а содержимого уже нет
func (f *FileRef) Stale() bool {
	return f != nil && f.data == nil
}

// State состояние анализа одной сессии. Значения по указателям не изменяются
// после записи в Store, поэтому снимок можно читать без блокировок.
type State struct {
	Analysis     *models.RawAnalysisResult
	Kind         models.AnalysisKind
	File         *FileRef
	DisplayImage *string
}

// Empty true для начального состояния
func (s State) Empty() bool {
	return s.Analysis == nil && s.Kind == "" && s.File == nil && s.DisplayImage == nil
}

// Listener получает снимок состояния после каждого изменения.
// Вызывается синхронно; писать в тот же Store из Listener нельзя.
type Listener func(State)

type subscription struct {
	id int
	fn Listener
}

// Store состояние анализа одной сессии
type Store struct {
	id string

	notifyMu sync.Mutex // упорядочивает изменения вместе с уведомлениями
	mu       sync.RWMutex

	state      State
	generation uint64
	listeners  []subscription
	nextSubID  int
}

// NewStore создает пустое хранилище сессии
func NewStore(id string) *Store {
	return &Store{id: id}
}

// ID идентификатор сессии
func (s *Store) ID() string {
	return s.id
}

// State возвращает снимок текущего состояния
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Generation номер поколения; увеличивается при каждом Reset
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// SetAnalysis сохраняет ответ сервиса инференса вместе с его тегом
func (s *Store) SetAnalysis(raw *models.RawAnalysisResult) {
	s.mutate(func(st *State) bool {
		setAnalysis(st, raw)
		return true
	})
}

// SetFile сохраняет ссылку на исходный файл
func (s *Store) SetFile(ref *FileRef) {
	s.mutate(func(st *State) bool {
		st.File = ref
		return true
	})
}

// SetDisplayImage сохраняет адрес изображения для отображения; nil очищает его
func (s *Store) SetDisplayImage(handle *string) {
	s.mutate(func(st *State) bool {
		st.DisplayImage = handle
		return true
	})
}

// Reset очищает все поля за одно изменение и начинает новое поколение
func (s *Store) Reset() {
	s.mutate(func(st *State) bool {
		*st = State{}
		s.generation++
		return true
	})
}

// Update описывает изменение нескольких полей за один шаг
type Update struct {
	Analysis     *models.RawAnalysisResult
	File         *FileRef
	DisplayImage *string
}

// Commit применяет Update, только если с момента generation не было Reset.
// Возвращает false, если результат устарел и был отброшен.
func (s *Store) Commit(generation uint64, u Update) bool {
	return s.mutate(func(st *State) bool {
		if s.generation != generation {
			return false
		}
		setAnalysis(st, u.Analysis)
		st.File = u.File
		st.DisplayImage = u.DisplayImage
		return true
	})
}

// Subscribe подписывает l на изменения; возвращает функцию отписки
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, subscription{id: id, fn: l})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// restore выставляет состояние без уведомлений (загрузка из хранилища)
func (s *Store) restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Store) mutate(fn func(*State) bool) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return false
	}
	snapshot := s.state
	listeners := make([]subscription, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.fn(snapshot)
	}
	return true
}

func setAnalysis(st *State, raw *models.RawAnalysisResult) {
	st.Analysis = raw
	st.Kind = ""
	if raw != nil {
		st.Kind = raw.Kind
	}
}
