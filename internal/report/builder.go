package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"xray-analyzer-go/internal/findings"
	"xray-analyzer-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// MaxFindings верхняя граница числа находок в одном отчете
const MaxFindings = 1000

// ErrReportFailed любая ошибка построения документа
var ErrReportFailed = errors.New("report generation failed")

// Recommendations фиксированный список рекомендаций отчета
var Recommendations = []string{
	"Immediate clinical correlation recommended for high priority findings",
	"Consider additional imaging or laboratory tests as clinically indicated",
	"Follow-up imaging recommended to monitor progression",
}

// Meta сведения об анализе для раздела файла
type Meta struct {
	Kind        models.AnalysisKind
	ModelUsed   string
	Threshold   float64
	InferenceID string
}

// Input данные для построения отчета
type Input struct {
	Findings    []findings.Finding
	Summary     findings.Summary
	FileName    string
	FileSize    int64
	FileType    string
	Meta        Meta
	Image       []byte
	GeneratedAt time.Time
}

// Document готовый отчет: раскладка и байты PDF
type Document struct {
	FileName    string
	ContentType string
	Pages       []Page
	Content     []byte
}

// Builder строит PDF отчеты
type Builder struct {
	geometry Geometry
	product  string
	compress bool
	logger   *logrus.Logger
}

// Option настройка Builder
type Option func(*Builder)

// WithGeometry задает геометрию страницы
func WithGeometry(g Geometry) Option {
	return func(b *Builder) { b.geometry = g }
}

// WithoutCompression отключает сжатие потоков PDF
func WithoutCompression() Option {
	return func(b *Builder) { b.compress = false }
}

// NewBuilder создает построитель отчетов
func NewBuilder(product string, logger *logrus.Logger, opts ...Option) *Builder {
	b := &Builder{
		geometry: A4(),
		product:  product,
		compress: true,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FileNameFor имя скачиваемого файла отчета
func FileNameFor(original string) string {
	return fmt.Sprintf("%s-analysis-report.pdf", original)
}

// Build строит отчет. Любая ошибка возвращается как ErrReportFailed, без частичного результата.
func (b *Builder) Build(ctx context.Context, in Input) (*Document, error) {
	if err := validateInput(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportFailed, err)
	}

	var thumb *Thumbnail
	if len(in.Image) > 0 {
		t, err := NewThumbnail(in.Image, b.geometry.ContentWidth()/2)
		if err != nil {
			b.logger.Debugf("Изображение %s не попадет в отчет: %v", in.FileName, err)
		} else {
			thumb = t
		}
	}

	pages := Paginate(b.blocks(in, thumb), b.geometry, b.product)
	b.logger.Infof("Раскладка отчета для %s: %d находок, %d страниц", in.FileName, len(in.Findings), len(pages))

	var buf bytes.Buffer
	if err := b.render(&buf, in, pages); err != nil {
		b.logger.Errorf("Ошибка рендеринга PDF для %s: %v", in.FileName, err)
		return nil, fmt.Errorf("%w: %v", ErrReportFailed, err)
	}

	return &Document{
		FileName:    FileNameFor(in.FileName),
		ContentType: "application/pdf",
		Pages:       pages,
		Content:     buf.Bytes(),
	}, nil
}

func validateInput(in Input) error {
	if strings.TrimSpace(in.FileName) == "" {
		return errors.New("file name is empty")
	}
	if len(in.Findings) > MaxFindings {
		return fmt.Errorf("too many findings: %d > %d", len(in.Findings), MaxFindings)
	}
	return nil
}

// blocks собирает блоки документа в порядке разделов
func (b *Builder) blocks(in Input, thumb *Thumbnail) []Block {
	m := newMeasurer()
	width := b.geometry.ContentWidth() - 2*textInset
	var blocks []Block

	title := Block{Section: SectionTitle}
	title.Lines = append(title.Lines, m.lines(reportTitle(in.Meta.Kind), width, RoleTitle, true, colorText)...)
	title.Lines = append(title.Lines, Line{
		Role:  RoleBody,
		Text:  "Generated: " + in.GeneratedAt.Format("2006-01-02 15:04:05"),
		Color: colorMuted,
	})
	blocks = append(blocks, title)

	if thumb != nil {
		blocks = append(blocks, Block{Section: SectionImage, Image: thumb})
	}

	file := Block{Section: SectionFile}
	file.Lines = append(file.Lines, Line{Role: RoleHeading, Text: "File Information", Bold: true, Color: colorText})
	file.Lines = append(file.Lines, m.lines("File Name: "+in.FileName, width, RoleBody, false, colorText)...)
	file.Lines = append(file.Lines,
		Line{Role: RoleBody, Text: "File Size: " + FormatFileSize(in.FileSize), Color: colorText},
		Line{Role: RoleBody, Text: "File Type: " + fileType(in.FileType), Color: colorText},
		Line{Role: RoleBody, Text: "Analysis Type: " + analysisLabel(in.Meta.Kind), Color: colorText},
	)
	if in.Meta.ModelUsed != "" {
		file.Lines = append(file.Lines, Line{Role: RoleBody, Text: "Model: " + in.Meta.ModelUsed, Color: colorText})
	}
	if in.Meta.Threshold > 0 {
		file.Lines = append(file.Lines, Line{Role: RoleBody, Text: fmt.Sprintf("Threshold: %.2f", in.Meta.Threshold), Color: colorText})
	}
	if in.Meta.InferenceID != "" {
		file.Lines = append(file.Lines, Line{Role: RoleBody, Text: "Inference ID: " + in.Meta.InferenceID, Color: colorText})
	}
	blocks = append(blocks, file)

	blocks = append(blocks, Block{
		Section: SectionSummary,
		Lines: []Line{
			{Role: RoleHeading, Text: "Analysis Summary", Bold: true, Color: colorText},
			{Role: RoleBody, Text: fmt.Sprintf("Total Findings: %d", in.Summary.TotalFindings), Color: colorText},
			{Role: RoleBody, Text: fmt.Sprintf("High Priority: %d", in.Summary.HighPriorityCount), Color: colorHigh},
			{Role: RoleBody, Text: fmt.Sprintf("Average Confidence: %d%%", in.Summary.AverageConfidence), Color: colorText},
		},
	})

	heading := Block{
		Section: SectionFindings,
		Lines:   []Line{{Role: RoleHeading, Text: "Detected Findings", Bold: true, Color: colorText}},
	}
	if len(in.Findings) == 0 {
		heading.Lines = append(heading.Lines, Line{Role: RoleBody, Text: "No findings detected", Color: colorMuted})
	}
	blocks = append(blocks, heading)

	for _, f := range in.Findings {
		entry := Block{Section: SectionFinding, Separator: true}
		entry.Lines = append(entry.Lines, m.lines(f.Name, width, RoleBody, true, colorText)...)
		entry.Lines = append(entry.Lines,
			Line{Role: RoleBody, Text: "Priority: " + string(f.Priority), Color: priorityColor(f.Priority)},
			Line{Role: RoleBody, Text: fmt.Sprintf("Confidence: %d%%", f.Confidence), Color: colorMuted},
		)
		if c := f.Coordinates; c != nil {
			entry.Lines = append(entry.Lines, Line{
				Role:  RoleBody,
				Text:  fmt.Sprintf("Region: x=%.0f, y=%.0f, w=%.0f, h=%.0f", c.X, c.Y, c.Width, c.Height),
				Color: colorMuted,
			})
		}
		blocks = append(blocks, entry)
	}

	rec := Block{Section: SectionRecommendations}
	rec.Lines = append(rec.Lines, Line{Role: RoleHeading, Text: "Recommendations", Bold: true, Color: colorText})
	for _, r := range Recommendations {
		rec.Lines = append(rec.Lines, m.lines("- "+r, width, RoleBody, false, colorText)...)
	}
	blocks = append(blocks, rec)

	return blocks
}

func reportTitle(kind models.AnalysisKind) string {
	if kind == models.KindDetections {
		return "MRI Analysis Report"
	}
	return "X-ray Analysis Report"
}

func analysisLabel(kind models.AnalysisKind) string {
	if kind == models.KindDetections {
		return "MRI detection"
	}
	return "X-ray disease detection"
}

func priorityColor(p findings.Priority) RGB {
	switch p {
	case findings.PriorityHigh:
		return colorHigh
	case findings.PriorityMedium:
		return colorMedium
	default:
		return colorLow
	}
}
