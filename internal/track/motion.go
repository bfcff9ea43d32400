package track

import (
	"math"

	"vehicle-counter-go/internal/detect"
)

// Количество последних наблюдений для оценки направления и скорости
const (
	directionWindow = 3
	speedWindow     = 5
)

// Estimator оценивает направление и скорость движения трека по его истории.
// Историю не изменяет
type Estimator struct {
	fps            float64
	pixelsPerMeter float64
}

// NewEstimator создает оценщик движения. fps частота кадров источника,
// pixelsPerMeter масштабный коэффициент перевода пикселей в метры
func NewEstimator(fps, pixelsPerMeter float64) *Estimator {
	if fps <= 0 {
		fps = 30
	}
	if pixelsPerMeter <= 0 {
		pixelsPerMeter = 10
	}
	return &Estimator{
		fps:            fps,
		pixelsPerMeter: pixelsPerMeter,
	}
}

// Direction возвращает единичный вектор направления движения трека,
// усредненный по последним наблюдениям. Возвращает nil, если истории
// недостаточно или усредненное смещение нулевое (объект неподвижен)
func (e *Estimator) Direction(tr *Track) *detect.Point {
	recent := lastObservations(tr, directionWindow)
	if len(recent) < 2 {
		return nil
	}

	var dxTotal, dyTotal float64
	for i := 1; i < len(recent); i++ {
		dxTotal += recent[i].Center.X - recent[i-1].Center.X
		dyTotal += recent[i].Center.Y - recent[i-1].Center.Y
	}

	steps := float64(len(recent) - 1)
	dx := dxTotal / steps
	dy := dyTotal / steps

	magnitude := math.Hypot(dx, dy)
	if magnitude == 0 {
		return nil
	}
	return &detect.Point{X: dx / magnitude, Y: dy / magnitude}
}

// Speed возвращает скорость трека в км/ч по последним наблюдениям.
// Возвращает nil, если наблюдений меньше двух или прошедшее время нулевое
func (e *Estimator) Speed(tr *Track) *float64 {
	recent := lastObservations(tr, speedWindow)
	if len(recent) < 2 {
		return nil
	}

	// Суммарное смещение в пикселях
	var totalDistance float64
	for i := 1; i < len(recent); i++ {
		totalDistance += math.Hypot(
			recent[i].Center.X-recent[i-1].Center.X,
			recent[i].Center.Y-recent[i-1].Center.Y,
		)
	}

	// Прошедшее время при фиксированной частоте кадров
	elapsed := float64(len(recent)-1) / e.fps
	if elapsed == 0 {
		return nil
	}

	distanceMeters := totalDistance / e.pixelsPerMeter
	speedKmh := distanceMeters / elapsed * 3.6
	return &speedKmh
}

// lastObservations возвращает до n последних наблюдений трека
func lastObservations(tr *Track, n int) []Observation {
	if tr == nil || len(tr.History) == 0 {
		return nil
	}
	if len(tr.History) <= n {
		return tr.History
	}
	return tr.History[len(tr.History)-n:]
}
