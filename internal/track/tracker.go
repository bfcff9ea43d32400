package track

import (
	"vehicle-counter-go/internal/detect"
)

// Observation одна запись истории трека: положение объекта на конкретном кадре
type Observation struct {
	FrameIndex int
	Center     detect.Point
	BBox       detect.BBox
	Confidence float64
	Class      detect.VehicleClass
}

// Track постоянная идентичность объекта, связывающая его обнаружения между кадрами.
// Принадлежит трекеру; потребители читают поля, но не изменяют их
type Track struct {
	ID         int
	BBox       detect.BBox
	Confidence float64
	Class      detect.VehicleClass
	Center     detect.Point

	// Hits количество успешных сопоставлений, Age кадров с последнего сопоставления
	Hits int
	Age  int

	// History ограниченная история наблюдений, старейшие записи вытесняются
	History []Observation
}

// Config параметры трекера
type Config struct {
	MaxAge       int     // максимальный возраст трека без обнаружений
	NInit        int     // количество сопоставлений для подтверждения трека
	IoUThreshold float64 // минимальный IoU для сопоставления
	HistoryLimit int     // максимальная длина истории трека
}

// DefaultConfig возвращает параметры трекера по умолчанию
func DefaultConfig() Config {
	return Config{
		MaxAge:       30,
		NInit:        3,
		IoUThreshold: 0.7,
		HistoryLimit: 30,
	}
}

// Tracker сопоставляет обнаружения текущего кадра с существующими треками
// по IoU и управляет жизненным циклом треков. Не потокобезопасен: каждый
// экземпляр принадлежит ровно одному обработчику видео
type Tracker struct {
	cfg    Config
	tracks []*Track // в порядке создания, ранние треки имеют приоритет при сопоставлении
	nextID int
}

// NewTracker создает новый трекер
func NewTracker(cfg Config) *Tracker {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30
	}
	if cfg.NInit <= 0 {
		cfg.NInit = 3
	}
	if cfg.IoUThreshold <= 0 {
		cfg.IoUThreshold = 0.7
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 30
	}
	return &Tracker{
		cfg:    cfg,
		nextID: 1,
	}
}

// Update обновляет треки обнаружениями текущего кадра и возвращает активные треки.
// Сопоставление жадное: треки перебираются в порядке создания, каждый забирает
// обнаружение с максимальным IoU выше порога, если оно еще не занято ранее
// созданным треком. Глобально оптимальное паросочетание не ищется
func (t *Tracker) Update(detections []detect.Detection, frameIndex int) []*Track {
	claimed := make(map[int]bool, len(detections))

	// Сопоставляем существующие треки с обнаружениями. Каждый трек выбирает
	// обнаружение с максимальным IoU; если оно уже занято ранее созданным
	// треком, текущий трек остается несопоставленным
	for _, tr := range t.tracks {
		bestIdx := -1
		bestIoU := 0.0
		for j, det := range detections {
			iou := IoU(tr.BBox, det.BBox)
			if iou > bestIoU {
				bestIoU = iou
				bestIdx = j
			}
		}

		if bestIdx >= 0 && bestIoU > t.cfg.IoUThreshold && !claimed[bestIdx] {
			claimed[bestIdx] = true
			t.applyMatch(tr, detections[bestIdx], frameIndex)
		} else {
			tr.Age++
		}
	}

	// Незанятые обнаружения порождают новые треки
	for j, det := range detections {
		if claimed[j] {
			continue
		}
		tr := &Track{
			ID:         t.nextID,
			BBox:       det.BBox,
			Confidence: det.Confidence,
			Class:      det.Class,
			Center:     det.Center(),
			Hits:       1,
			Age:        0,
		}
		tr.History = append(tr.History, Observation{
			FrameIndex: frameIndex,
			Center:     tr.Center,
			BBox:       tr.BBox,
			Confidence: tr.Confidence,
			Class:      tr.Class,
		})
		t.tracks = append(t.tracks, tr)
		t.nextID++
	}

	// Удаляем устаревшие треки вместе с их историей
	kept := t.tracks[:0]
	for _, tr := range t.tracks {
		if tr.Age > t.cfg.MaxAge {
			continue
		}
		kept = append(kept, tr)
	}
	for i := len(kept); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = kept

	// Активны только подтвержденные треки: одиночные вспышки детектора
	// не доходят до потребителей
	active := make([]*Track, 0, len(t.tracks))
	for _, tr := range t.tracks {
		if tr.Age < t.cfg.MaxAge && tr.Hits >= t.cfg.NInit {
			active = append(active, tr)
		}
	}
	return active
}

// applyMatch обновляет трек по сопоставленному обнаружению
func (t *Tracker) applyMatch(tr *Track, det detect.Detection, frameIndex int) {
	tr.BBox = det.BBox
	tr.Confidence = det.Confidence
	tr.Class = det.Class
	tr.Center = det.Center()
	tr.Hits++
	tr.Age = 0

	tr.History = append(tr.History, Observation{
		FrameIndex: frameIndex,
		Center:     tr.Center,
		BBox:       tr.BBox,
		Confidence: tr.Confidence,
		Class:      tr.Class,
	})
	if len(tr.History) > t.cfg.HistoryLimit {
		tr.History = tr.History[len(tr.History)-t.cfg.HistoryLimit:]
	}
}

// CleanupStale отбрасывает историю треков, не обновлявшихся дольше maxAge кадров.
// Вызывается периодически при длительной непрерывной обработке
func (t *Tracker) CleanupStale(currentFrame, maxAge int) {
	for _, tr := range t.tracks {
		if len(tr.History) == 0 {
			continue
		}
		last := tr.History[len(tr.History)-1]
		if currentFrame-last.FrameIndex > maxAge {
			tr.History = nil
		}
	}
}

// Count возвращает количество треков, включая неподтвержденные
func (t *Tracker) Count() int {
	return len(t.tracks)
}

// Reset сбрасывает трекер в исходное состояние. Счетчик идентификаторов
// не сбрасывается: идентификаторы треков никогда не переиспользуются
func (t *Tracker) Reset() {
	t.tracks = nil
}
