package track

import (
	"testing"

	"vehicle-counter-go/internal/detect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackWithCenters(centers ...detect.Point) *Track {
	tr := &Track{ID: 1, Class: detect.ClassCar}
	for i, center := range centers {
		tr.History = append(tr.History, Observation{
			FrameIndex: i + 1,
			Center:     center,
			Class:      detect.ClassCar,
		})
	}
	return tr
}

func TestDirectionDownward(t *testing.T) {
	estimator := NewEstimator(30, 10)
	tr := trackWithCenters(
		detect.Point{X: 50, Y: 10},
		detect.Point{X: 50, Y: 20},
		detect.Point{X: 50, Y: 30},
	)

	dir := estimator.Direction(tr)
	require.NotNil(t, dir)
	assert.InDelta(t, 0, dir.X, 1e-9)
	assert.InDelta(t, 1, dir.Y, 1e-9)
}

func TestDirectionUnitVector(t *testing.T) {
	estimator := NewEstimator(30, 10)
	tr := trackWithCenters(
		detect.Point{X: 0, Y: 0},
		detect.Point{X: 30, Y: 40},
	)

	dir := estimator.Direction(tr)
	require.NotNil(t, dir)
	assert.InDelta(t, 0.6, dir.X, 1e-9)
	assert.InDelta(t, 0.8, dir.Y, 1e-9)
}

func TestDirectionInsufficientHistory(t *testing.T) {
	estimator := NewEstimator(30, 10)

	assert.Nil(t, estimator.Direction(trackWithCenters()))
	assert.Nil(t, estimator.Direction(trackWithCenters(detect.Point{X: 5, Y: 5})))
}

func TestDirectionStationaryObject(t *testing.T) {
	estimator := NewEstimator(30, 10)
	tr := trackWithCenters(
		detect.Point{X: 50, Y: 50},
		detect.Point{X: 50, Y: 50},
		detect.Point{X: 50, Y: 50},
	)

	assert.Nil(t, estimator.Direction(tr))
}

func TestDirectionUsesRecentWindow(t *testing.T) {
	estimator := NewEstimator(30, 10)

	// Давнее движение вне окна не влияет: последние наблюдения неподвижны
	tr := trackWithCenters(
		detect.Point{X: 0, Y: 0},
		detect.Point{X: 100, Y: 0},
		detect.Point{X: 50, Y: 50},
		detect.Point{X: 50, Y: 50},
		detect.Point{X: 50, Y: 50},
	)

	assert.Nil(t, estimator.Direction(tr))
}

func TestSpeedConstantMotion(t *testing.T) {
	estimator := NewEstimator(30, 10)

	// 10 пикселей за кадр при 30 кадрах/с и 10 пикселях на метр
	tr := trackWithCenters(
		detect.Point{X: 0, Y: 0},
		detect.Point{X: 0, Y: 10},
		detect.Point{X: 0, Y: 20},
		detect.Point{X: 0, Y: 30},
		detect.Point{X: 0, Y: 40},
	)

	speed := estimator.Speed(tr)
	require.NotNil(t, speed)
	assert.InDelta(t, 108, *speed, 1e-6)
}

func TestSpeedUsesRecentWindow(t *testing.T) {
	estimator := NewEstimator(30, 10)

	// Скачок за пределами окна не учитывается
	tr := trackWithCenters(
		detect.Point{X: 1000, Y: 0},
		detect.Point{X: 0, Y: -10},
		detect.Point{X: 0, Y: 0},
		detect.Point{X: 0, Y: 10},
		detect.Point{X: 0, Y: 20},
		detect.Point{X: 0, Y: 30},
		detect.Point{X: 0, Y: 40},
	)

	speed := estimator.Speed(tr)
	require.NotNil(t, speed)
	assert.InDelta(t, 108, *speed, 1e-6)
}

func TestSpeedInsufficientHistory(t *testing.T) {
	estimator := NewEstimator(30, 10)
	assert.Nil(t, estimator.Speed(trackWithCenters(detect.Point{X: 5, Y: 5})))
	assert.Nil(t, estimator.Speed(nil))
}

func TestEstimatorDefaults(t *testing.T) {
	// Некорректные параметры заменяются значениями по умолчанию
	estimator := NewEstimator(0, 0)
	tr := trackWithCenters(
		detect.Point{X: 0, Y: 0},
		detect.Point{X: 0, Y: 10},
	)

	speed := estimator.Speed(tr)
	require.NotNil(t, speed)
	assert.Greater(t, *speed, 0.0)
}
