package roi

import (
	"fmt"
	"testing"

	"vehicle-counter-go/internal/detect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareRegion() []detect.Point {
	return []detect.Point{
		{X: 0, Y: 0},
		{X: 100, Y: 0},
		{X: 100, Y: 100},
		{X: 0, Y: 100},
	}
}

func TestSetRegionRequiresThreePoints(t *testing.T) {
	counter := NewCounter(DefaultConfig())

	err := counter.SetRegion([]detect.Point{{X: 0, Y: 0}, {X: 100, Y: 100}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3 points")
}

func TestGeneratedBoundaries(t *testing.T) {
	counter := NewCounter(DefaultConfig())
	require.NoError(t, counter.SetRegion(squareRegion()))

	boundaries := counter.Boundaries()
	require.Len(t, boundaries, 2)

	// Граница въезда выше центра области, граница выезда ниже
	entry, exit := boundaries[0], boundaries[1]
	assert.Equal(t, BoundaryEntry, entry.Label)
	assert.InDelta(t, 20, entry.Start.Y, 1e-9)
	assert.InDelta(t, 20, entry.End.Y, 1e-9)

	assert.Equal(t, BoundaryExit, exit.Label)
	assert.InDelta(t, 80, exit.Start.Y, 1e-9)
	assert.InDelta(t, 80, exit.End.Y, 1e-9)

	// Обе границы покрывают область по горизонтали
	for _, b := range boundaries {
		assert.InDelta(t, 0, b.Start.X, 1e-9)
		assert.InDelta(t, 100, b.End.X, 1e-9)
	}
}

func TestEvaluateCountsEntryCrossing(t *testing.T) {
	counter := NewCounter(Config{LineThreshold: 30, LineOffset: 30, LogLimit: 100})
	require.NoError(t, counter.SetRegion(squareRegion()))

	event, crossed := counter.Evaluate(7, detect.Point{X: 50, Y: 10}, nil, detect.ClassCar)
	require.True(t, crossed)
	assert.Equal(t, DirectionIn, event.Direction)
	assert.Equal(t, BoundaryEntry, event.LineType)
	assert.Equal(t, 7, event.TrackID)
	assert.Equal(t, detect.ClassCar, event.VehicleType)

	counts := counter.Counts()
	assert.Equal(t, 1, counts.TotalIn)
	assert.Zero(t, counts.TotalOut)
	assert.Equal(t, DirectionCounts{In: 1}, counts.ByType[detect.ClassCar])
}

func TestEvaluateCountsExitCrossing(t *testing.T) {
	counter := NewCounter(Config{LineThreshold: 30, LineOffset: 30, LogLimit: 100})
	require.NoError(t, counter.SetRegion(squareRegion()))

	event, crossed := counter.Evaluate(3, detect.Point{X: 50, Y: 90}, nil, detect.ClassBus)
	require.True(t, crossed)
	assert.Equal(t, DirectionOut, event.Direction)
	assert.Equal(t, BoundaryExit, event.LineType)

	counts := counter.Counts()
	assert.Zero(t, counts.TotalIn)
	assert.Equal(t, 1, counts.TotalOut)
}

func TestEvaluateAtMostOncePerTrack(t *testing.T) {
	counter := NewCounter(DefaultConfig())
	require.NoError(t, counter.SetRegion(squareRegion()))

	_, crossed := counter.Evaluate(1, detect.Point{X: 50, Y: 10}, nil, detect.ClassCar)
	require.True(t, crossed)

	// Повторное пересечение любым способом тем же треком не засчитывается
	_, crossed = counter.Evaluate(1, detect.Point{X: 50, Y: 10}, nil, detect.ClassCar)
	assert.False(t, crossed)
	_, crossed = counter.Evaluate(1, detect.Point{X: 50, Y: 90}, nil, detect.ClassCar)
	assert.False(t, crossed)

	assert.Equal(t, 1, counter.Counts().TotalIn)
}

func TestEvaluateEntryBeforeExit(t *testing.T) {
	// Центр области находится в пределах порога обеих границ,
	// засчитывается граница въезда
	counter := NewCounter(DefaultConfig()) // порог 100
	require.NoError(t, counter.SetRegion(squareRegion()))

	event, crossed := counter.Evaluate(1, detect.Point{X: 50, Y: 50}, nil, detect.ClassCar)
	require.True(t, crossed)
	assert.Equal(t, BoundaryEntry, event.LineType)
	assert.Equal(t, DirectionIn, event.Direction)
}

func TestEvaluateWithoutRegion(t *testing.T) {
	counter := NewCounter(DefaultConfig())

	_, crossed := counter.Evaluate(1, detect.Point{X: 50, Y: 50}, nil, detect.ClassCar)
	assert.False(t, crossed)
}

func TestEvaluateOutsideThreshold(t *testing.T) {
	counter := NewCounter(Config{LineThreshold: 5, LineOffset: 30, LogLimit: 100})
	require.NoError(t, counter.SetRegion(squareRegion()))

	_, crossed := counter.Evaluate(1, detect.Point{X: 50, Y: 50}, nil, detect.ClassCar)
	assert.False(t, crossed)
}

func TestSetRegionResetsCounts(t *testing.T) {
	counter := NewCounter(DefaultConfig())
	require.NoError(t, counter.SetRegion(squareRegion()))

	_, crossed := counter.Evaluate(1, detect.Point{X: 50, Y: 10}, nil, detect.ClassCar)
	require.True(t, crossed)

	// Замена области сбрасывает счетчики, журналы и засчитанные треки
	require.NoError(t, counter.SetRegion(squareRegion()))

	counts := counter.Counts()
	assert.Zero(t, counts.TotalIn)
	assert.Zero(t, counts.TotalOut)
	assert.Empty(t, counts.ByType)

	entries, exits := counter.Logs()
	assert.Empty(t, entries)
	assert.Empty(t, exits)

	// Тот же трек может быть засчитан заново
	_, crossed = counter.Evaluate(1, detect.Point{X: 50, Y: 10}, nil, detect.ClassCar)
	assert.True(t, crossed)
}

func TestLogBounding(t *testing.T) {
	counter := NewCounter(Config{LineThreshold: 30, LineOffset: 30, LogLimit: 3})
	require.NoError(t, counter.SetRegion(squareRegion()))

	for trackID := 1; trackID <= 5; trackID++ {
		_, crossed := counter.Evaluate(trackID, detect.Point{X: 50, Y: 10}, nil, detect.ClassCar)
		require.True(t, crossed, fmt.Sprintf("track %d", trackID))
	}

	// Журнал ограничен, вытеснены старейшие записи; счетчики не затронуты
	entries, exits := counter.Logs()
	require.Len(t, entries, 3)
	assert.Empty(t, exits)
	assert.Equal(t, 3, entries[0].TrackID)
	assert.Equal(t, 5, entries[2].TrackID)

	droppedEntries, droppedExits := counter.Dropped()
	assert.Equal(t, 2, droppedEntries)
	assert.Zero(t, droppedExits)
	assert.Equal(t, 5, counter.Counts().TotalIn)
}

func TestCountsSnapshotIsolation(t *testing.T) {
	counter := NewCounter(DefaultConfig())
	require.NoError(t, counter.SetRegion(squareRegion()))

	_, crossed := counter.Evaluate(1, detect.Point{X: 50, Y: 10}, nil, detect.ClassCar)
	require.True(t, crossed)

	snapshot := counter.Counts()
	snapshot.ByType[detect.ClassCar] = DirectionCounts{In: 99}

	assert.Equal(t, DirectionCounts{In: 1}, counter.Counts().ByType[detect.ClassCar])
}
