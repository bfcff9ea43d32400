package detect

// Filter отбрасывает обнаружения с площадью рамки меньше minArea.
// Рамки с некорректной геометрией имеют нулевую площадь и отбрасываются всегда.
// Функция не имеет состояния и не возвращает ошибок
func Filter(detections []Detection, minArea int) []Detection {
	filtered := make([]Detection, 0, len(detections))
	for _, det := range detections {
		area := det.BBox.Area()
		if area > 0 && area >= minArea {
			filtered = append(filtered, det)
		}
	}
	return filtered
}
