package roi

import (
	"fmt"
	"math"
	"time"

	"vehicle-counter-go/internal/detect"
)

// Direction направление пересечения границы
type Direction string

// BoundaryLabel метка счетной границы
type BoundaryLabel string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"

	BoundaryEntry BoundaryLabel = "entry"
	BoundaryExit  BoundaryLabel = "exit"
)

// Boundary счетная граница: отрезок, приближение к которому засчитывается
// как пересечение
type Boundary struct {
	Start detect.Point  `json:"start"`
	End   detect.Point  `json:"end"`
	Label BoundaryLabel `json:"label"`
}

// CrossingEvent запись журнала о пересечении границы одним треком
type CrossingEvent struct {
	Timestamp   time.Time           `json:"timestamp"`
	TrackID     int                 `json:"track_id"`
	VehicleType detect.VehicleClass `json:"vehicle_type"`
	Direction   Direction           `json:"direction"`
	LineType    BoundaryLabel       `json:"line_type"`
}

// DirectionCounts счетчики въездов и выездов
type DirectionCounts struct {
	In  int `json:"in"`
	Out int `json:"out"`
}

// Counts снимок агрегированных счетчиков на момент запроса
type Counts struct {
	TotalIn  int                                     `json:"total_in"`
	TotalOut int                                     `json:"total_out"`
	ByType   map[detect.VehicleClass]DirectionCounts `json:"by_type"`
}

// Config параметры счетчика пересечений
type Config struct {
	LineThreshold float64 // порог расстояния до границы в пикселях
	LineOffset    float64 // смещение границ от вертикального центра области
	LogLimit      int     // максимальная длина каждого журнала пересечений
}

// DefaultConfig возвращает параметры счетчика по умолчанию
func DefaultConfig() Config {
	return Config{
		LineThreshold: 100,
		LineOffset:    30,
		LogLimit:      10000,
	}
}

// Counter ведет область подсчета, производные счетные границы и журнал
// пересечений. Каждый трек засчитывается не более одного раза за время
// жизни текущей конфигурации области. Не потокобезопасен: экземпляр
// принадлежит ровно одному обработчику видео
type Counter struct {
	cfg Config

	points     []detect.Point
	boundaries []Boundary

	counted  map[int]struct{}
	counts   Counts
	entryLog []CrossingEvent
	exitLog  []CrossingEvent

	// Количество записей, вытесненных из журналов при достижении предела
	droppedEntries int
	droppedExits   int
}

// NewCounter создает счетчик пересечений без настроенной области
func NewCounter(cfg Config) *Counter {
	if cfg.LineThreshold <= 0 {
		cfg.LineThreshold = 100
	}
	if cfg.LineOffset <= 0 {
		cfg.LineOffset = 30
	}
	if cfg.LogLimit <= 0 {
		cfg.LogLimit = 10000
	}
	c := &Counter{cfg: cfg}
	c.ResetCounts()
	return c
}

// SetRegion задает многоугольник области подсчета и перестраивает счетные
// границы. Замена области сбрасывает все счетчики, журналы и множество
// засчитанных треков
func (c *Counter) SetRegion(points []detect.Point) error {
	if len(points) < 3 {
		return fmt.Errorf("at least 3 points required for ROI polygon, got %d", len(points))
	}

	c.points = make([]detect.Point, len(points))
	copy(c.points, points)

	c.ResetCounts()
	c.generateBoundaries()
	return nil
}

// generateBoundaries строит две горизонтальные счетные границы по
// ограничивающему прямоугольнику многоугольника: границу въезда выше
// вертикального центра и границу выезда ниже
func (c *Counter) generateBoundaries() {
	minX, maxX := c.points[0].X, c.points[0].X
	minY, maxY := c.points[0].Y, c.points[0].Y
	for _, p := range c.points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	centerY := (minY + maxY) / 2
	entryY := centerY - c.cfg.LineOffset
	exitY := centerY + c.cfg.LineOffset

	c.boundaries = []Boundary{
		{
			Start: detect.Point{X: minX, Y: entryY},
			End:   detect.Point{X: maxX, Y: entryY},
			Label: BoundaryEntry,
		},
		{
			Start: detect.Point{X: minX, Y: exitY},
			End:   detect.Point{X: maxX, Y: exitY},
			Label: BoundaryExit,
		},
	}
}

// Boundaries возвращает текущие счетные границы
func (c *Counter) Boundaries() []Boundary {
	out := make([]Boundary, len(c.boundaries))
	copy(out, c.boundaries)
	return out
}

// Region возвращает точки текущего многоугольника области
func (c *Counter) Region() []detect.Point {
	out := make([]detect.Point, len(c.points))
	copy(out, c.points)
	return out
}

// Evaluate проверяет, пересекает ли трек счетную границу, и при пересечении
// обновляет счетчики и журнал. Решение принимается по близости центра к
// границе: вектор направления принимается для записи, но не участвует в
// решении. Уже засчитанные треки повторно не оцениваются
func (c *Counter) Evaluate(trackID int, center detect.Point, direction *detect.Point, vehicleType detect.VehicleClass) (CrossingEvent, bool) {
	if len(c.boundaries) == 0 {
		return CrossingEvent{}, false
	}
	if _, ok := c.counted[trackID]; ok {
		return CrossingEvent{}, false
	}

	for _, boundary := range c.boundaries {
		distance, ok := pointToLineDistance(center, boundary.Start, boundary.End)
		if !ok || distance >= c.cfg.LineThreshold {
			continue
		}

		crossDir := DirectionIn
		if boundary.Label == BoundaryExit {
			crossDir = DirectionOut
		}

		c.counted[trackID] = struct{}{}
		c.applyCount(crossDir, vehicleType)

		event := CrossingEvent{
			Timestamp:   time.Now(),
			TrackID:     trackID,
			VehicleType: vehicleType,
			Direction:   crossDir,
			LineType:    boundary.Label,
		}
		c.appendLog(event)
		return event, true
	}

	return CrossingEvent{}, false
}

// applyCount увеличивает агрегированные счетчики и счетчики по типу
func (c *Counter) applyCount(dir Direction, vehicleType detect.VehicleClass) {
	byType := c.counts.ByType[vehicleType]
	if dir == DirectionIn {
		c.counts.TotalIn++
		byType.In++
	} else {
		c.counts.TotalOut++
		byType.Out++
	}
	c.counts.ByType[vehicleType] = byType
}

// appendLog добавляет запись в соответствующий журнал, вытесняя старейшие
// записи при достижении предела
func (c *Counter) appendLog(event CrossingEvent) {
	if event.Direction == DirectionIn {
		c.entryLog = append(c.entryLog, event)
		if len(c.entryLog) > c.cfg.LogLimit {
			c.entryLog = c.entryLog[1:]
			c.droppedEntries++
		}
	} else {
		c.exitLog = append(c.exitLog, event)
		if len(c.exitLog) > c.cfg.LogLimit {
			c.exitLog = c.exitLog[1:]
			c.droppedExits++
		}
	}
}

// Counts возвращает снимок текущих счетчиков
func (c *Counter) Counts() Counts {
	snapshot := Counts{
		TotalIn:  c.counts.TotalIn,
		TotalOut: c.counts.TotalOut,
		ByType:   make(map[detect.VehicleClass]DirectionCounts, len(c.counts.ByType)),
	}
	for class, counts := range c.counts.ByType {
		snapshot.ByType[class] = counts
	}
	return snapshot
}

// Logs возвращает копии журналов въездов и выездов
func (c *Counter) Logs() (entries, exits []CrossingEvent) {
	entries = make([]CrossingEvent, len(c.entryLog))
	copy(entries, c.entryLog)
	exits = make([]CrossingEvent, len(c.exitLog))
	copy(exits, c.exitLog)
	return entries, exits
}

// Dropped возвращает количество записей, вытесненных из журналов
func (c *Counter) Dropped() (entries, exits int) {
	return c.droppedEntries, c.droppedExits
}

// ResetCounts сбрасывает счетчики, журналы и множество засчитанных треков
func (c *Counter) ResetCounts() {
	c.counts = Counts{ByType: make(map[detect.VehicleClass]DirectionCounts)}
	c.counted = make(map[int]struct{})
	c.entryLog = nil
	c.exitLog = nil
	c.droppedEntries = 0
	c.droppedExits = 0
}

// pointToLineDistance вычисляет перпендикулярное расстояние от точки до
// бесконечной прямой, проходящей через отрезок. Вырожденный отрезок нулевой
// длины дает второй результат false
func pointToLineDistance(point, lineStart, lineEnd detect.Point) (float64, bool) {
	a := lineEnd.Y - lineStart.Y
	b := lineStart.X - lineEnd.X
	cc := lineEnd.X*lineStart.Y - lineStart.X*lineEnd.Y

	denom := math.Sqrt(a*a + b*b)
	if denom == 0 {
		return 0, false
	}
	return math.Abs(a*point.X+b*point.Y+cc) / denom, true
}
