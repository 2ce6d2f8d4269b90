package service

import (
	"context"
	"fmt"
	"time"

	"xray-analyzer-go/internal/findings"
	"xray-analyzer-go/internal/report"
	"xray-analyzer-go/internal/session"

	"github.com/sirupsen/logrus"
)

// ResultService собирает представление результата и PDF отчет
type ResultService struct {
	sessions *session.Manager
	builder  *report.Builder
	guard    *inflight
	now      func() time.Time
	logger   *logrus.Logger
}

// NewResultService создает сервис результатов
func NewResultService(sessions *session.Manager, builder *report.Builder, logger *logrus.Logger) *ResultService {
	return &ResultService{
		sessions: sessions,
		builder:  builder,
		guard:    newInflight(),
		now:      time.Now,
		logger:   logger,
	}
}

// CreateSession создает новую пустую сессию
func (s *ResultService) CreateSession() string {
	return s.sessions.Create().ID()
}

// View нормализует сохраненный результат и считает сводку
func (s *ResultService) View(ctx context.Context, sessionID string) (*ResultView, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	items := findings.Normalize(st.Analysis)
	view := &ResultView{
		SessionID:       sessionID,
		Kind:            st.Kind,
		FileStale:       st.File.Stale(),
		ImageURL:        st.DisplayImage,
		ModelUsed:       st.Analysis.ModelUsed(),
		Threshold:       st.Analysis.Threshold(),
		InferenceID:     st.Analysis.InferenceID(),
		Summary:         findings.Aggregate(items),
		Findings:        make([]FindingView, 0, len(items)),
		Recommendations: report.Recommendations,
	}
	for _, f := range items {
		view.Findings = append(view.Findings, FindingView{Finding: f, Color: f.Priority.Color()})
	}
	if f := st.File; f != nil {
		view.File = &FileInfo{
			Name:        f.Name,
			Size:        f.Size,
			SizeLabel:   report.FormatFileSize(f.Size),
			ContentType: f.ContentType,
			UploadedAt:  f.UploadedAt,
		}
	}
	return view, nil
}

// Report строит PDF отчет. Повторный запрос во время построения получает ErrBusy.
func (s *ResultService) Report(ctx context.Context, sessionID string) (*report.Document, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	release, err := s.guard.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	items := findings.Normalize(st.Analysis)
	in := report.Input{
		Findings: items,
		Summary:  findings.Aggregate(items),
		Meta: report.Meta{
			Kind:        st.Kind,
			ModelUsed:   st.Analysis.ModelUsed(),
			Threshold:   st.Analysis.Threshold(),
			InferenceID: st.Analysis.InferenceID(),
		},
		GeneratedAt: s.now(),
	}
	if f := st.File; f != nil {
		in.FileName = f.Name
		in.FileSize = f.Size
		in.FileType = f.ContentType
		in.Image = f.Data()
	}

	doc, err := s.builder.Build(ctx, in)
	if err != nil {
		s.logger.Errorf("Не удалось построить отчет для сессии %s: %v", sessionID, err)
		return nil, err
	}
	s.logger.Infof("Отчет %s построен: %d байт", doc.FileName, len(doc.Content))
	return doc, nil
}

// Image возвращает исходное изображение сессии
func (s *ResultService) Image(ctx context.Context, sessionID string) ([]byte, string, error) {
	store, err := s.sessions.Open(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	st := store.State()
	if st.DisplayImage == nil || st.File == nil || st.File.Stale() {
		return nil, "", ErrNoImage
	}
	return st.File.Data(), st.File.ContentType, nil
}

// Reset очищает сессию: файл, изображение и результат
func (s *ResultService) Reset(ctx context.Context, sessionID string) error {
	store, err := s.sessions.Open(ctx, sessionID)
	if err != nil {
		return err
	}
	store.Reset()
	s.logger.Infof("Сессия %s сброшена", sessionID)
	return nil
}

// Discard сбрасывает сессию и удаляет ее
func (s *ResultService) Discard(ctx context.Context, sessionID string) error {
	if err := s.Reset(ctx, sessionID); err != nil {
		return err
	}
	if err := s.sessions.Remove(ctx, sessionID); err != nil {
		return fmt.Errorf("discard session: %w", err)
	}
	return nil
}

func (s *ResultService) state(ctx context.Context, sessionID string) (session.State, error) {
	store, err := s.sessions.Open(ctx, sessionID)
	if err != nil {
		return session.State{}, err
	}
	st := store.State()
	if st.Analysis == nil {
		return session.State{}, ErrNoAnalysis
	}
	return st, nil
}
