package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 Bytes", FormatFileSize(0))
	assert.Equal(t, "512 Bytes", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "10 MB", FormatFileSize(10*1024*1024))
}

func TestFileType(t *testing.T) {
	assert.Equal(t, "PNG", fileType("image/png"))
	assert.Equal(t, "DICOM", fileType("application/dicom"))
	assert.Equal(t, "FILE", fileType(""))
}

func TestWrapKeepsLinesWithinWidth(t *testing.T) {
	m := newMeasurer()
	width := A4().ContentWidth() - 2*textInset

	texts := []string{
		strings.Repeat("word ", 60),
		strings.Repeat("W", 200),
		"File Name: SCAN_" + strings.Repeat("PATIENT_CHEST_PA_", 6) + "2026.png",
		"Снимок грудной клетки " + strings.Repeat("Ж", 200),
	}
	for _, text := range texts {
		lines := m.wrap(text, width, RoleBody, true)
		assert.Greater(t, len(lines), 1, text)
		for _, l := range lines {
			assert.NotEmpty(t, l)
			assert.LessOrEqual(t, m.width(l, RoleBody, true), width, l)
		}
		assert.Equal(t, strings.Join(strings.Fields(text), ""), strings.Join(strings.Fields(strings.Join(lines, "")), ""))
	}
}

func TestWrapShortText(t *testing.T) {
	m := newMeasurer()
	assert.Equal(t, []string{"Pneumonia"}, m.wrap("Pneumonia", 100, RoleBody, false))
	assert.Equal(t, []string{""}, m.wrap("   ", 100, RoleBody, false))
}
