package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"vehicle-counter-go/internal/detect"
	"vehicle-counter-go/internal/roi"
	"vehicle-counter-go/internal/track"

	"github.com/sirupsen/logrus"
)

// Config параметры обработки видео
type Config struct {
	MinDetectionArea int     // минимальная площадь рамки обнаружения
	PixelsPerMeter   float64 // масштабный коэффициент для оценки скорости
	CleanupInterval  int     // период очистки устаревшей истории в кадрах
	StaleHistoryAge  int     // возраст истории, после которого она отбрасывается
}

// DefaultConfig возвращает параметры обработки по умолчанию
func DefaultConfig() Config {
	return Config{
		MinDetectionArea: 200,
		PixelsPerMeter:   10,
		CleanupInterval:  100,
		StaleHistoryAge:  100,
	}
}

// ProgressFunc обратный вызов хода обработки: процент выполнения и сообщение
type ProgressFunc func(progress int, message string)

// CrossingDetail пересечение границы вместе с состоянием трека в момент
// пересечения, для сохранения в базе данных
type CrossingDetail struct {
	Event      roi.CrossingEvent
	BBox       detect.BBox
	Center     detect.Point
	Confidence float64
	SpeedKmh   *float64
}

// Result итог обработки видео
type Result struct {
	FramesProcessed int
	Counts          roi.Counts
	Crossings       []CrossingDetail
}

// Processor покадровый конвейер обработки: фильтрация обнаружений,
// сопоставление треков, оценка движения и подсчет пересечений.
// Обрабатывает кадры строго последовательно; каждый экземпляр вместе со
// своим трекером и счетчиком принадлежит ровно одному заданию
type Processor struct {
	cfg       Config
	tracker   *track.Tracker
	counter   *roi.Counter
	logger    *logrus.Logger
	crossings []CrossingDetail
}

// NewProcessor создает конвейер обработки поверх переданных трекера и счетчика
func NewProcessor(cfg Config, tracker *track.Tracker, counter *roi.Counter, logger *logrus.Logger) *Processor {
	if cfg.MinDetectionArea <= 0 {
		cfg.MinDetectionArea = 200
	}
	if cfg.PixelsPerMeter <= 0 {
		cfg.PixelsPerMeter = 10
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 100
	}
	if cfg.StaleHistoryAge <= 0 {
		cfg.StaleHistoryAge = 100
	}
	return &Processor{
		cfg:     cfg,
		tracker: tracker,
		counter: counter,
		logger:  logger,
	}
}

// Run обрабатывает кадры источника до его исчерпания, истечения maxDuration
// (если больше нуля) или отмены контекста. Контекст проверяется между
// кадрами; выполненные к моменту остановки подсчеты сохраняются
func (p *Processor) Run(ctx context.Context, source detect.Source, writer AnnotationWriter, progress ProgressFunc, maxDuration time.Duration) (*Result, error) {
	props := source.Props()
	estimator := track.NewEstimator(props.FPS, p.cfg.PixelsPerMeter)

	p.logger.Infof("Начинаем обработку: %d кадров, %.1f кадров/с", props.TotalFrames, props.FPS)

	frameCount := 0
	startTime := time.Now()

	for {
		// Кооперативная остановка между кадрами
		if err := ctx.Err(); err != nil {
			p.logger.Infof("Обработка остановлена после %d кадров", frameCount)
			return p.result(frameCount), err
		}
		if maxDuration > 0 && time.Since(startTime) > maxDuration {
			p.logger.Infof("Достигнут лимит длительности, обработано %d кадров", frameCount)
			break
		}

		frame, err := source.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return p.result(frameCount), fmt.Errorf("failed to read frame: %w", err)
		}
		frameCount++

		annotation := p.processFrame(frame, estimator)
		if writer != nil {
			if err := writer.WriteFrame(annotation); err != nil {
				return p.result(frameCount), fmt.Errorf("failed to write annotation: %w", err)
			}
		}

		p.reportProgress(progress, frameCount, props.TotalFrames, startTime, maxDuration)

		// Периодически отбрасываем историю давно не обновлявшихся треков
		if frameCount%p.cfg.CleanupInterval == 0 {
			p.tracker.CleanupStale(frame.FrameIndex, p.cfg.StaleHistoryAge)
		}
	}

	p.logger.Infof("Обработка завершена: %d кадров", frameCount)
	return p.result(frameCount), nil
}

// processFrame пропускает один кадр через конвейер и возвращает его аннотацию
func (p *Processor) processFrame(frame detect.FrameDetections, estimator *track.Estimator) FrameAnnotation {
	filtered := detect.Filter(frame.Detections, p.cfg.MinDetectionArea)
	active := p.tracker.Update(filtered, frame.FrameIndex)

	annotations := make([]TrackAnnotation, 0, len(active))
	for _, tr := range active {
		direction := estimator.Direction(tr)
		speed := estimator.Speed(tr)

		annotation := TrackAnnotation{
			TrackID:    tr.ID,
			BBox:       tr.BBox,
			Confidence: tr.Confidence,
			Class:      tr.Class,
			Center:     tr.Center,
			Direction:  direction,
			SpeedKmh:   speed,
		}

		event, crossed := p.counter.Evaluate(tr.ID, tr.Center, direction, tr.Class)
		if crossed {
			annotation.Crossed = true
			annotation.CrossDir = event.Direction
			annotation.LineType = event.LineType
			p.crossings = append(p.crossings, CrossingDetail{
				Event:      event,
				BBox:       tr.BBox,
				Center:     tr.Center,
				Confidence: tr.Confidence,
				SpeedKmh:   speed,
			})
		}

		annotations = append(annotations, annotation)
	}

	counts := p.counter.Counts()
	return FrameAnnotation{
		FrameIndex: frame.FrameIndex,
		Tracks:     annotations,
		TotalIn:    counts.TotalIn,
		TotalOut:   counts.TotalOut,
	}
}

// reportProgress сообщает о ходе обработки
func (p *Processor) reportProgress(progress ProgressFunc, frameCount, totalFrames int, startTime time.Time, maxDuration time.Duration) {
	if progress == nil {
		return
	}

	switch {
	case totalFrames > 0:
		percent := frameCount * 100 / totalFrames
		if percent > 100 {
			percent = 100
		}
		progress(percent, fmt.Sprintf("Обработан кадр %d/%d", frameCount, totalFrames))
	case maxDuration > 0:
		// Для потоков известна только длительность
		if frameCount%30 != 0 {
			return
		}
		elapsed := time.Since(startTime)
		percent := int(elapsed * 100 / maxDuration)
		if percent > 99 {
			percent = 99
		}
		progress(percent, fmt.Sprintf("Обработка потока: кадр %d, прошло %.1f с", frameCount, elapsed.Seconds()))
	default:
		if frameCount%30 == 0 {
			progress(0, fmt.Sprintf("Обработка потока: кадр %d", frameCount))
		}
	}
}

// result собирает итог обработки
func (p *Processor) result(frameCount int) *Result {
	return &Result{
		FramesProcessed: frameCount,
		Counts:          p.counter.Counts(),
		Crossings:       p.crossings,
	}
}
