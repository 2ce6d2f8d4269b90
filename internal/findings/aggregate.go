package findings

import "math"

// Aggregate считает сводку по находкам. Для пустого списка все поля равны нулю.
func Aggregate(items []Finding) Summary {
	summary := Summary{TotalFindings: len(items)}
	if len(items) == 0 {
		return summary
	}

	sum := 0
	for _, f := range items {
		sum += f.Confidence
		if f.Priority == PriorityHigh {
			summary.HighPriorityCount++
		}
	}

	summary.AverageConfidence = int(math.Round(float64(sum) / float64(len(items))))
	return summary
}
