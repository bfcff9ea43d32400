package client

import (
	"io"
	"strings"
	"testing"

	"vehicle-counter-go/internal/detect"
	"vehicle-counter-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchSource(t *testing.T) {
	resp := &models.AnalyzeVideoResponse{
		Status: "success",
		Props:  models.StreamProperties{FPS: 25, Width: 640, Height: 480, TotalFrames: 2},
		Frames: []models.FrameResult{
			{
				FrameIndex: 1,
				Detections: []models.DetectionResult{
					{BBox: [4]int{10, 10, 60, 60}, Confidence: 0.9, ClassName: "car"},
					{BBox: [4]int{70, 10, 120, 60}, Confidence: 0.8, ClassName: "person"},
				},
			},
			{FrameIndex: 2},
		},
	}

	source := NewBatchSource(resp)
	assert.InDelta(t, 25, source.Props().FPS, 1e-9)
	assert.Equal(t, 2, source.Props().TotalFrames)

	frame, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, frame.FrameIndex)

	// Обнаружения с неизвестным классом пропускаются
	require.Len(t, frame.Detections, 1)
	assert.Equal(t, detect.ClassCar, frame.Detections[0].Class)
	assert.Equal(t, detect.BBox{X1: 10, Y1: 10, X2: 60, Y2: 60}, frame.Detections[0].BBox)

	frame, err = source.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, frame.FrameIndex)
	assert.Empty(t, frame.Detections)

	_, err = source.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, source.Close())
}

func TestBatchSourceDefaultFPS(t *testing.T) {
	source := NewBatchSource(&models.AnalyzeVideoResponse{})
	assert.InDelta(t, 30, source.Props().FPS, 1e-9)
}

func TestStreamSource(t *testing.T) {
	ndjson := strings.Join([]string{
		`{"props":{"fps":15,"width":1280,"height":720}}`,
		`{"frame":{"frame_index":1,"detections":[{"bbox":[5,5,55,55],"confidence":0.7,"class_name":"truck"}]}}`,
		`{"frame":{"frame_index":2,"detections":[]}}`,
	}, "\n") + "\n"

	source, err := newStreamSource(io.NopCloser(strings.NewReader(ndjson)))
	require.NoError(t, err)
	defer source.Close()

	assert.InDelta(t, 15, source.Props().FPS, 1e-9)
	assert.Zero(t, source.Props().TotalFrames)

	frame, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, frame.FrameIndex)
	require.Len(t, frame.Detections, 1)
	assert.Equal(t, detect.ClassTruck, frame.Detections[0].Class)

	frame, err = source.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, frame.FrameIndex)

	_, err = source.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamSourceErrorChunk(t *testing.T) {
	ndjson := `{"error":"камера недоступна"}` + "\n"

	_, err := newStreamSource(io.NopCloser(strings.NewReader(ndjson)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "камера недоступна")
}

func TestStreamSourceMissingProps(t *testing.T) {
	ndjson := `{"frame":{"frame_index":1}}` + "\n"

	_, err := newStreamSource(io.NopCloser(strings.NewReader(ndjson)))
	require.Error(t, err)
}

func TestStreamSourceEmptyBody(t *testing.T) {
	_, err := newStreamSource(io.NopCloser(strings.NewReader("")))
	require.Error(t, err)
}

func TestStreamSourceMidStreamError(t *testing.T) {
	ndjson := strings.Join([]string{
		`{"props":{"fps":30}}`,
		`{"error":"поток прерван"}`,
	}, "\n") + "\n"

	source, err := newStreamSource(io.NopCloser(strings.NewReader(ndjson)))
	require.NoError(t, err)
	defer source.Close()

	_, err = source.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "поток прерван")
}
