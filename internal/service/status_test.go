package service

import (
	"testing"

	"vehicle-counter-go/internal/detect"
	"vehicle-counter-go/internal/roi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusStoreSetGet(t *testing.T) {
	store := NewStatusStore()

	store.Set("job-1", JobStatus{Status: StatusProcessing, Progress: 10, Message: "работаем"})

	status, ok := store.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, status.Status)
	assert.Equal(t, 10, status.Progress)

	_, ok = store.Get("job-2")
	assert.False(t, ok)
}

func TestStatusStoreUpdate(t *testing.T) {
	store := NewStatusStore()
	store.Set("job-1", JobStatus{Status: StatusProcessing})

	store.Update("job-1", func(status *JobStatus) {
		status.Status = StatusCompleted
		status.Progress = 100
	})

	status, ok := store.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)
}

func TestStatusStoreUpdateMissingJob(t *testing.T) {
	store := NewStatusStore()

	// Обновление несуществующего задания не создает запись
	store.Update("job-1", func(status *JobStatus) {
		status.Status = StatusCompleted
	})

	_, ok := store.Get("job-1")
	assert.False(t, ok)
}

func TestStatusStoreGetReturnsSnapshot(t *testing.T) {
	store := NewStatusStore()
	store.Set("job-1", JobStatus{
		Status: StatusProcessing,
		Counts: &roi.Counts{
			TotalIn: 1,
			ByType: map[detect.VehicleClass]roi.DirectionCounts{
				detect.ClassCar: {In: 1},
			},
		},
	})

	// Изменение снимка не затрагивает хранилище
	status, ok := store.Get("job-1")
	require.True(t, ok)
	status.Counts.TotalIn = 99
	status.Counts.ByType[detect.ClassCar] = roi.DirectionCounts{In: 99}

	fresh, ok := store.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, 1, fresh.Counts.TotalIn)
	assert.Equal(t, roi.DirectionCounts{In: 1}, fresh.Counts.ByType[detect.ClassCar])
}

func TestStatusStoreDelete(t *testing.T) {
	store := NewStatusStore()
	store.Set("job-1", JobStatus{Status: StatusCompleted})

	store.Delete("job-1")

	_, ok := store.Get("job-1")
	assert.False(t, ok)
}
