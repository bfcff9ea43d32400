package track

import (
	"vehicle-counter-go/internal/detect"
)

// IoU вычисляет отношение пересечения к объединению двух ограничивающих рамок.
// Непересекающиеся или вырожденные рамки дают 0, деление на ноль исключено
func IoU(a, b detect.BBox) float64 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	if x2 <= x1 || y2 <= y1 {
		return 0.0
	}

	intersection := float64((x2 - x1) * (y2 - y1))
	union := float64(a.Area()+b.Area()) - intersection
	if union <= 0 {
		return 0.0
	}
	return intersection / union
}
