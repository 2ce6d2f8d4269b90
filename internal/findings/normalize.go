package findings

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"xray-analyzer-go/pkg/models"
)

// Classify определяет приоритет по исходному score 0..1.
// Сравнение идет до округления в проценты.
func Classify(score float64) Priority {
	switch {
	case score >= HighThreshold:
		return PriorityHigh
	case score >= MediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Percent переводит score 0..1 в целые проценты 0..100
func Percent(score float64) int {
	p := int(math.Round(score * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Normalize приводит ответ сервиса инференса к упорядоченному списку находок.
// Пустой или неизвестный ответ дает пустой список.
func Normalize(raw *models.RawAnalysisResult) []Finding {
	if raw == nil {
		return []Finding{}
	}

	var result []Finding
	switch raw.Kind {
	case models.KindDiseaseScores:
		result = fromScores(raw.Scores)
	case models.KindDetections:
		result = fromDetections(raw.Detections)
	default:
		return []Finding{}
	}
	dedupeIDs(result)

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Confidence > result[j].Confidence
	})
	return result
}

func fromScores(res *models.DiseaseScoreResult) []Finding {
	if res == nil {
		return []Finding{}
	}

	result := make([]Finding, 0, len(res.DetectedDiseases))
	for _, d := range res.DetectedDiseases {
		result = append(result, Finding{
			ID:         diseaseID(d.Label),
			Name:       displayName(d.Label),
			Priority:   Classify(d.Score),
			Confidence: Percent(d.Score),
		})
	}
	return result
}

func fromDetections(res *models.DetectionResult) []Finding {
	if res == nil {
		return []Finding{}
	}

	result := make([]Finding, 0, len(res.Predictions))
	for i, p := range res.Predictions {
		id := p.DetectionID
		if id == "" {
			id = fmt.Sprintf("detection-%d", i+1)
		}
		result = append(result, Finding{
			ID:         id,
			Name:       displayName(p.Class),
			Priority:   Classify(p.Confidence),
			Confidence: Percent(p.Confidence),
			Coordinates: &BoundingBox{
				X:      p.X,
				Y:      p.Y,
				Width:  p.Width,
				Height: p.Height,
			},
		})
	}
	return result
}

// displayName "Pleural_Thickening" -> "Pleural Thickening"
func displayName(label string) string {
	return strings.TrimSpace(strings.ReplaceAll(label, "_", " "))
}

// diseaseID "Lung Lesion" -> "lung-lesion"
func diseaseID(label string) string {
	id := strings.ToLower(strings.TrimSpace(label))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(id)
}

// dedupeIDs делает id уникальными в порядке получения: повтор "lung-lesion"
// становится "lung-lesion-2", следующий "lung-lesion-3"
func dedupeIDs(items []Finding) {
	seen := make(map[string]bool, len(items))
	for i := range items {
		id := items[i].ID
		for n := 2; seen[id]; n++ {
			id = fmt.Sprintf("%s-%d", items[i].ID, n)
		}
		seen[id] = true
		items[i].ID = id
	}
}
