package report

import (
	"math"
	"strconv"
	"strings"
)

// FormatFileSize человекочитаемый размер: 0 Bytes, 512 Bytes, 1.5 KB, 2.25 MB
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizes[i]
}

// fileType "image/png" -> "PNG"
func fileType(contentType string) string {
	_, sub, ok := strings.Cut(contentType, "/")
	if !ok || sub == "" {
		return "FILE"
	}
	return strings.ToUpper(sub)
}
