package findings

// Priority приоритет находки
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Пороги приоритета в единицах исходного score (0..1)
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.6
)

// Color цвет приоритета для отображения
func (p Priority) Color() string {
	switch p {
	case PriorityHigh:
		return "#dc2626"
	case PriorityMedium:
		return "#d97706"
	default:
		return "#16a34a"
	}
}

// BoundingBox рамка детекции в пикселях исходного изображения
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Finding нормализованная находка
type Finding struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Confidence  int          `json:"confidence"` // Проценты 0..100
	Priority    Priority     `json:"priority"`
	Coordinates *BoundingBox `json:"coordinates,omitempty"`
}

// Summary сводная статистика по находкам
type Summary struct {
	TotalFindings     int `json:"total_findings"`
	HighPriorityCount int `json:"high_priority_count"`
	AverageConfidence int `json:"average_confidence"`
}
