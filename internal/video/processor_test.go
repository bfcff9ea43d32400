package video

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vehicle-counter-go/internal/detect"
	"vehicle-counter-go/internal/roi"
	"vehicle-counter-go/internal/track"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource источник обнаружений из заранее подготовленных кадров
type fakeSource struct {
	props  detect.StreamProps
	frames []detect.FrameDetections
	delay  time.Duration
	pos    int
}

func (s *fakeSource) Props() detect.StreamProps { return s.props }

func (s *fakeSource) Next() (detect.FrameDetections, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.pos >= len(s.frames) {
		return detect.FrameDetections{}, io.EOF
	}
	frame := s.frames[s.pos]
	s.pos++
	return frame, nil
}

func (s *fakeSource) Close() error { return nil }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testCounter(t *testing.T) *roi.Counter {
	t.Helper()
	counter := roi.NewCounter(roi.DefaultConfig())
	require.NoError(t, counter.SetRegion([]detect.Point{
		{X: 0, Y: 0},
		{X: 300, Y: 0},
		{X: 300, Y: 300},
		{X: 0, Y: 300},
	}))
	return counter
}

// descendingCarFrames кадры с одним автомобилем, движущимся вниз через
// область подсчета: центр рамки на кадре i находится в точке (100, 40+10i)
func descendingCarFrames(n int) []detect.FrameDetections {
	frames := make([]detect.FrameDetections, n)
	for i := 0; i < n; i++ {
		centerY := 40 + 10*i
		frames[i] = detect.FrameDetections{
			FrameIndex: i + 1,
			Detections: []detect.Detection{{
				BBox:       detect.BBox{X1: 70, Y1: centerY - 50, X2: 130, Y2: centerY + 50},
				Confidence: 0.9,
				Class:      detect.ClassCar,
			}},
		}
	}
	return frames
}

func TestProcessorCountsSingleVehicle(t *testing.T) {
	// Центры от y=40 до y=200 с шагом 10
	source := &fakeSource{
		props:  detect.StreamProps{FPS: 30, Width: 640, Height: 480, TotalFrames: 17},
		frames: descendingCarFrames(17),
	}

	tracker := track.NewTracker(track.DefaultConfig())
	counter := testCounter(t)
	processor := NewProcessor(DefaultConfig(), tracker, counter, testLogger())

	result, err := processor.Run(context.Background(), source, nil, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, 17, result.FramesProcessed)

	// Одна машина пересекла границу въезда ровно один раз
	assert.Equal(t, 1, result.Counts.TotalIn)
	assert.Zero(t, result.Counts.TotalOut)
	assert.Equal(t, roi.DirectionCounts{In: 1}, result.Counts.ByType[detect.ClassCar])

	require.Len(t, result.Crossings, 1)
	crossing := result.Crossings[0]
	assert.Equal(t, roi.DirectionIn, crossing.Event.Direction)
	assert.Equal(t, roi.BoundaryEntry, crossing.Event.LineType)
	assert.Equal(t, detect.ClassCar, crossing.Event.VehicleType)
	assert.InDelta(t, 0.9, crossing.Confidence, 1e-9)

	entries, exits := counter.Logs()
	assert.Len(t, entries, 1)
	assert.Empty(t, exits)
}

func TestProcessorWritesAnnotations(t *testing.T) {
	source := &fakeSource{
		props:  detect.StreamProps{FPS: 30, TotalFrames: 10},
		frames: descendingCarFrames(10),
	}

	path := filepath.Join(t.TempDir(), "annotations.jsonl")
	writer, err := NewJSONLWriter(path)
	require.NoError(t, err)

	processor := NewProcessor(DefaultConfig(), track.NewTracker(track.DefaultConfig()), testCounter(t), testLogger())
	_, err = processor.Run(context.Background(), source, writer, nil, 0)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var annotations []FrameAnnotation
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var annotation FrameAnnotation
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &annotation))
		annotations = append(annotations, annotation)
	}
	require.NoError(t, scanner.Err())

	// Одна аннотация на каждый обработанный кадр
	require.Len(t, annotations, 10)
	assert.Equal(t, 1, annotations[0].FrameIndex)

	// Трек подтверждается и появляется в аннотациях не сразу
	assert.Empty(t, annotations[0].Tracks)
	require.NotEmpty(t, annotations[9].Tracks)
	assert.Equal(t, 1, annotations[9].Tracks[0].TrackID)
	assert.Equal(t, 1, annotations[9].TotalIn)
}

func TestProcessorFiltersSmallDetections(t *testing.T) {
	frames := []detect.FrameDetections{{
		FrameIndex: 1,
		Detections: []detect.Detection{{
			BBox:       detect.BBox{X1: 0, Y1: 0, X2: 5, Y2: 5}, // площадь 25
			Confidence: 0.9,
			Class:      detect.ClassCar,
		}},
	}}
	source := &fakeSource{props: detect.StreamProps{FPS: 30, TotalFrames: 1}, frames: frames}

	tracker := track.NewTracker(track.DefaultConfig())
	processor := NewProcessor(DefaultConfig(), tracker, testCounter(t), testLogger())

	result, err := processor.Run(context.Background(), source, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FramesProcessed)
	assert.Zero(t, tracker.Count())
}

func TestProcessorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{
		props:  detect.StreamProps{FPS: 30, TotalFrames: 30},
		frames: descendingCarFrames(30),
	}
	processor := NewProcessor(DefaultConfig(), track.NewTracker(track.DefaultConfig()), testCounter(t), testLogger())

	result, err := processor.Run(ctx, source, nil, nil, 0)
	require.ErrorIs(t, err, context.Canceled)

	// Частичный результат возвращается даже при остановке
	require.NotNil(t, result)
	assert.Zero(t, result.FramesProcessed)
}

func TestProcessorDurationLimit(t *testing.T) {
	source := &fakeSource{
		props:  detect.StreamProps{FPS: 30}, // поток без известной длины
		frames: descendingCarFrames(1000),
		delay:  2 * time.Millisecond,
	}
	processor := NewProcessor(DefaultConfig(), track.NewTracker(track.DefaultConfig()), testCounter(t), testLogger())

	result, err := processor.Run(context.Background(), source, nil, nil, 20*time.Millisecond)
	require.NoError(t, err)

	// Лимит длительности завершает обработку штатно, задолго до конца потока
	assert.Greater(t, result.FramesProcessed, 0)
	assert.Less(t, result.FramesProcessed, 1000)
}

func TestProcessorReportsProgress(t *testing.T) {
	source := &fakeSource{
		props:  detect.StreamProps{FPS: 30, TotalFrames: 10},
		frames: descendingCarFrames(10),
	}
	processor := NewProcessor(DefaultConfig(), track.NewTracker(track.DefaultConfig()), testCounter(t), testLogger())

	var percents []int
	progress := func(percent int, message string) {
		percents = append(percents, percent)
	}

	_, err := processor.Run(context.Background(), source, nil, progress, 0)
	require.NoError(t, err)

	require.Len(t, percents, 10)
	assert.Equal(t, 10, percents[0])
	assert.Equal(t, 100, percents[9])
}
