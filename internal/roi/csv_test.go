package roi

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"vehicle-counter-go/internal/detect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	counter := NewCounter(Config{LineThreshold: 30, LineOffset: 30, LogLimit: 100})
	require.NoError(t, counter.SetRegion(squareRegion()))

	_, crossed := counter.Evaluate(1, detect.Point{X: 50, Y: 10}, nil, detect.ClassCar)
	require.True(t, crossed)
	_, crossed = counter.Evaluate(2, detect.Point{X: 50, Y: 90}, nil, detect.ClassTruck)
	require.True(t, crossed)

	var buf bytes.Buffer
	require.NoError(t, counter.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"timestamp", "track_id", "vehicle_type", "direction", "line_type"}, records[0])

	// Записи упорядочены по времени и содержат миллисекундные метки
	var previous time.Time
	for _, record := range records[1:] {
		require.Len(t, record, 5)
		ts, err := time.Parse("2006-01-02 15:04:05.000", record[0])
		require.NoError(t, err)
		assert.False(t, ts.Before(previous))
		previous = ts
	}

	assert.Equal(t, []string{"1", "car", "in", "entry"}, records[1][1:])
	assert.Equal(t, []string{"2", "truck", "out", "exit"}, records[2][1:])
}

func TestWriteCSVEmptyLog(t *testing.T) {
	counter := NewCounter(DefaultConfig())

	var buf bytes.Buffer
	require.NoError(t, counter.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1) // только заголовок
}
