package service

import (
	"sync"

	"vehicle-counter-go/internal/detect"
	"vehicle-counter-go/internal/roi"
)

// Статусы задания обработки
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// JobStatus состояние задания обработки видео
type JobStatus struct {
	Status     string      `json:"status"`
	Progress   int         `json:"progress"`
	Message    string      `json:"message"`
	OutputFile string      `json:"output_file,omitempty"`
	LogFile    string      `json:"log_file,omitempty"`
	Counts     *roi.Counts `json:"counts,omitempty"`
}

// StatusStore потокобезопасное хранилище статусов заданий. Единственная
// структура, разделяемая между обработчиками HTTP и рабочими горутинами:
// записи изменяет только горутина своего задания, читатели получают снимок
type StatusStore struct {
	mu   sync.RWMutex
	jobs map[string]JobStatus
}

// NewStatusStore создает новое хранилище статусов
func NewStatusStore() *StatusStore {
	return &StatusStore{
		jobs: make(map[string]JobStatus),
	}
}

// Set полностью заменяет статус задания
func (s *StatusStore) Set(id string, status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = status
}

// Update изменяет статус задания под блокировкой. Несуществующее задание
// не создается
func (s *StatusStore) Update(id string, fn func(*JobStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.jobs[id]
	if !ok {
		return
	}
	fn(&status)
	s.jobs[id] = status
}

// Get возвращает снимок статуса задания. Читатель никогда не видит
// частично обновленную запись
func (s *StatusStore) Get(id string) (JobStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.jobs[id]
	if !ok {
		return JobStatus{}, false
	}
	if status.Counts != nil {
		counts := cloneCounts(*status.Counts)
		status.Counts = &counts
	}
	return status, true
}

// Delete удаляет статус задания
func (s *StatusStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// cloneCounts копирует счетчики вместе с картой по типам
func cloneCounts(counts roi.Counts) roi.Counts {
	clone := roi.Counts{
		TotalIn:  counts.TotalIn,
		TotalOut: counts.TotalOut,
		ByType:   make(map[detect.VehicleClass]roi.DirectionCounts, len(counts.ByType)),
	}
	for class, c := range counts.ByType {
		clone.ByType[class] = c
	}
	return clone
}
