package report

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xray-analyzer-go/internal/findings"
	"xray-analyzer-go/pkg/models"
)

func newTestBuilder(opts ...Option) *Builder {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewBuilder("Xray AI Analysis", logger, append(opts, WithoutCompression())...)
}

func manyFindings(n int) []findings.Finding {
	items := make([]findings.Finding, n)
	for i := range items {
		items[i] = findings.Finding{
			ID:         fmt.Sprintf("f-%d", i),
			Name:       fmt.Sprintf("Finding %d", i),
			Confidence: 90 - i%50,
			Priority:   findings.PriorityMedium,
		}
	}
	return items
}

func baseInput() Input {
	return Input{
		FileName:    "chest.png",
		FileSize:    1536,
		FileType:    "image/png",
		Meta:        Meta{Kind: models.KindDiseaseScores, ModelUsed: "densenet121", Threshold: 0.6},
		GeneratedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
}

func sectionsOf(pages []Page) []Section {
	var out []Section
	for _, p := range pages {
		for _, b := range p.Blocks {
			out = append(out, b.Section)
		}
	}
	return out
}

func TestBuildWithoutFindings(t *testing.T) {
	doc, err := newTestBuilder().Build(context.Background(), baseInput())
	require.NoError(t, err)

	require.Len(t, doc.Pages, 1)
	assert.Equal(t, "chest.png-analysis-report.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Contains(t, sectionsOf(doc.Pages), SectionRecommendations)
	assert.Equal(t, "Page 1 of 1 - Xray AI Analysis", doc.Pages[0].Footer)

	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF-")))
	assert.Contains(t, string(doc.Content), "Page 1 of 1 - Xray AI Analysis")
	assert.Contains(t, string(doc.Content), "No findings detected")
	assert.Contains(t, string(doc.Content), Recommendations[2])
}

func TestBuildPaginatesLongFindingLists(t *testing.T) {
	in := baseInput()
	in.Findings = manyFindings(40)
	in.Summary = findings.Aggregate(in.Findings)

	doc, err := newTestBuilder().Build(context.Background(), in)
	require.NoError(t, err)

	require.Greater(t, len(doc.Pages), 1)
	total := len(doc.Pages)
	for i, p := range doc.Pages {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, total, p.Total)
		assert.Equal(t, fmt.Sprintf("Page %d of %d - Xray AI Analysis", i+1, total), p.Footer)
		assert.Contains(t, string(doc.Content), p.Footer)
	}

	g := A4()
	for _, p := range doc.Pages {
		for _, b := range p.Blocks {
			assert.LessOrEqual(t, b.Y+b.Height(), g.ContentBottom()+1e-9)
			assert.GreaterOrEqual(t, b.Y, g.Margin)
		}
	}

	sections := sectionsOf(doc.Pages)
	assert.Equal(t, SectionRecommendations, sections[len(sections)-1])
	count := 0
	for _, s := range sections {
		if s == SectionFinding {
			count++
		}
	}
	assert.Equal(t, 40, count)
}

func TestBuildIsDeterministic(t *testing.T) {
	in := baseInput()
	in.Findings = manyFindings(25)

	b := newTestBuilder()
	first, err := b.Build(context.Background(), in)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.Pages, second.Pages)
	assert.Equal(t, first.Content, second.Content)
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	b := newTestBuilder()

	in := baseInput()
	in.FileName = "  "
	doc, err := b.Build(context.Background(), in)
	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, ErrReportFailed))

	in = baseInput()
	in.Findings = manyFindings(MaxFindings + 1)
	doc, err = b.Build(context.Background(), in)
	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, ErrReportFailed))
}

func TestBuildHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestBuilder().Build(ctx, baseInput())
	assert.ErrorIs(t, err, ErrReportFailed)
}

func TestBuildWithImageAndDetections(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		img.SetGray(x, x%32, color.Gray{Y: 200})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	in := baseInput()
	in.Image = buf.Bytes()
	in.Meta = Meta{Kind: models.KindDetections, InferenceID: "inf-42"}
	in.Findings = []findings.Finding{{
		ID: "d1", Name: "glioma", Confidence: 91, Priority: findings.PriorityHigh,
		Coordinates: &findings.BoundingBox{X: 10, Y: 20, Width: 30, Height: 40},
	}}

	doc, err := newTestBuilder().Build(context.Background(), in)
	require.NoError(t, err)

	sections := sectionsOf(doc.Pages)
	assert.Equal(t, []Section{SectionTitle, SectionImage, SectionFile, SectionSummary, SectionFindings, SectionFinding, SectionRecommendations}, sections)
	content := string(doc.Content)
	assert.Contains(t, content, "MRI Analysis Report")
	assert.Contains(t, content, "Region: x=10, y=20, w=30, h=40")
	assert.Contains(t, content, "Inference ID: inf-42")
}

func TestBuildSkipsUndecodableImage(t *testing.T) {
	in := baseInput()
	in.Image = []byte("DICM not really an image")

	doc, err := newTestBuilder().Build(context.Background(), in)
	require.NoError(t, err)
	assert.NotContains(t, sectionsOf(doc.Pages), SectionImage)
}

func TestPaginateSmallPage(t *testing.T) {
	g := Geometry{Width: 100, Height: 60, Margin: 10}
	block := Block{Section: SectionFinding, Lines: []Line{{Role: RoleBody, Text: "x"}}}
	// высота блока 5 + 5 = 10, на страницу помещается 4 блока (10..50)
	pages := Paginate([]Block{block, block, block, block, block, block}, g, "p")

	require.Len(t, pages, 2)
	assert.Len(t, pages[0].Blocks, 4)
	assert.Len(t, pages[1].Blocks, 2)
	assert.Equal(t, 10.0, pages[1].Blocks[0].Y)
	assert.Equal(t, "Page 2 of 2 - p", pages[1].Footer)
}

func TestPaginateEmpty(t *testing.T) {
	pages := Paginate(nil, A4(), "p")
	require.Len(t, pages, 1)
	assert.Equal(t, "Page 1 of 1 - p", pages[0].Footer)
}

func TestBuildLinesFitContentWidth(t *testing.T) {
	in := baseInput()
	in.FileName = "SCAN_" + strings.Repeat("PATIENT_CHEST_PA_", 6) + "2026.png"
	in.Findings = []findings.Finding{
		{ID: "w", Name: strings.Repeat("W", 200), Confidence: 88, Priority: findings.PriorityHigh},
		{ID: "c", Name: "Плевральный выпот", Confidence: 61, Priority: findings.PriorityMedium},
	}

	doc, err := newTestBuilder().Build(context.Background(), in)
	require.NoError(t, err)

	m := newMeasurer()
	limit := A4().ContentWidth()
	for _, p := range doc.Pages {
		for _, b := range p.Blocks {
			for _, l := range b.Lines {
				assert.LessOrEqual(t, m.width(l.Text, l.Role, l.Bold), limit, "%s: %q", b.Section, l.Text)
			}
		}
	}
}

// pngHeader PNG без данных изображения: сигнатура и IHDR с заданным размером
func pngHeader(width, height uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestThumbnailRejectsHugeImage(t *testing.T) {
	_, err := NewThumbnail(pngHeader(12000, 12000), 80)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	in := baseInput()
	in.Image = pngHeader(12000, 12000)
	doc, err := newTestBuilder().Build(context.Background(), in)
	require.NoError(t, err)
	assert.NotContains(t, sectionsOf(doc.Pages), SectionImage)
}

func TestBuildLetterGeometry(t *testing.T) {
	in := baseInput()
	in.Findings = manyFindings(40)

	doc, err := newTestBuilder(WithGeometry(PageGeometry("letter"))).Build(context.Background(), in)
	require.NoError(t, err)

	g := Letter()
	for _, p := range doc.Pages {
		for _, b := range p.Blocks {
			assert.LessOrEqual(t, b.Y+b.Height(), g.ContentBottom()+1e-9)
		}
	}
	assert.Equal(t, A4(), PageGeometry("unknown"))
}

func TestBuildNonLatinFileNameUsesPlaceholders(t *testing.T) {
	in := baseInput()
	in.FileName = "снимок.png"

	doc, err := newTestBuilder().Build(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "снимок.png-analysis-report.pdf", doc.FileName)
	assert.Contains(t, string(doc.Content), "File Name: .......png")
}
