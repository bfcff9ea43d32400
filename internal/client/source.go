package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"vehicle-counter-go/internal/detect"
	"vehicle-counter-go/pkg/models"
)

// BatchSource источник обнаружений из готового ответа пакетного анализа видео
type BatchSource struct {
	props  detect.StreamProps
	frames []models.FrameResult
	pos    int
}

// NewBatchSource создает источник обнаружений из ответа пакетного анализа
func NewBatchSource(resp *models.AnalyzeVideoResponse) *BatchSource {
	return &BatchSource{
		props:  toStreamProps(resp.Props),
		frames: resp.Frames,
	}
}

// Props возвращает свойства видео
func (s *BatchSource) Props() detect.StreamProps {
	return s.props
}

// Next возвращает обнаружения очередного кадра или io.EOF после последнего
func (s *BatchSource) Next() (detect.FrameDetections, error) {
	if s.pos >= len(s.frames) {
		return detect.FrameDetections{}, io.EOF
	}
	frame := s.frames[s.pos]
	s.pos++
	return detect.FrameDetections{
		FrameIndex: frame.FrameIndex,
		Detections: toDetections(frame.Detections),
	}, nil
}

// Close освобождает источник
func (s *BatchSource) Close() error {
	s.frames = nil
	return nil
}

// StreamSource источник обнаружений из потокового NDJSON ответа сервиса
// детекции. Читает ответ по одному кадру, не буферизуя весь поток
type StreamSource struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	props   detect.StreamProps
}

// Размер буфера строки NDJSON: кадр с большим числом обнаружений
const maxStreamLine = 1 << 20

// newStreamSource читает первую строку потока со свойствами и возвращает
// источник для чтения остальных кадров
func newStreamSource(body io.ReadCloser) (*StreamSource, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("ошибка чтения свойств потока: %w", err)
		}
		return nil, fmt.Errorf("поток закрыт до получения свойств")
	}

	var chunk models.StreamChunk
	if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
		return nil, fmt.Errorf("ошибка парсинга свойств потока: %w", err)
	}
	if chunk.Error != "" {
		return nil, fmt.Errorf("сервис детекции вернул ошибку: %s", chunk.Error)
	}
	if chunk.Props == nil {
		return nil, fmt.Errorf("первая строка потока не содержит свойств")
	}

	return &StreamSource{
		body:    body,
		scanner: scanner,
		props:   toStreamProps(*chunk.Props),
	}, nil
}

// Props возвращает свойства потока
func (s *StreamSource) Props() detect.StreamProps {
	return s.props
}

// Next возвращает обнаружения очередного кадра или io.EOF по окончании потока
func (s *StreamSource) Next() (detect.FrameDetections, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return detect.FrameDetections{}, fmt.Errorf("ошибка чтения потока: %w", err)
		}
		return detect.FrameDetections{}, io.EOF
	}

	var chunk models.StreamChunk
	if err := json.Unmarshal(s.scanner.Bytes(), &chunk); err != nil {
		return detect.FrameDetections{}, fmt.Errorf("ошибка парсинга кадра потока: %w", err)
	}
	if chunk.Error != "" {
		return detect.FrameDetections{}, fmt.Errorf("сервис детекции вернул ошибку: %s", chunk.Error)
	}
	if chunk.Frame == nil {
		return detect.FrameDetections{}, fmt.Errorf("строка потока не содержит кадра")
	}

	return detect.FrameDetections{
		FrameIndex: chunk.Frame.FrameIndex,
		Detections: toDetections(chunk.Frame.Detections),
	}, nil
}

// Close закрывает тело HTTP ответа потока
func (s *StreamSource) Close() error {
	return s.body.Close()
}

// toStreamProps преобразует свойства из формата сервиса детекции
func toStreamProps(props models.StreamProperties) detect.StreamProps {
	fps := props.FPS
	if fps <= 0 {
		fps = 30
	}
	return detect.StreamProps{
		FPS:         fps,
		Width:       props.Width,
		Height:      props.Height,
		TotalFrames: props.TotalFrames,
	}
}

// toDetections преобразует обнаружения из формата сервиса детекции.
// Обнаружения с неизвестным классом пропускаются: перечень типов транспорта закрыт
func toDetections(results []models.DetectionResult) []detect.Detection {
	detections := make([]detect.Detection, 0, len(results))
	for _, r := range results {
		class := detect.VehicleClass(r.ClassName)
		if !detect.KnownClass(class) {
			continue
		}
		detections = append(detections, detect.Detection{
			BBox: detect.BBox{
				X1: r.BBox[0],
				Y1: r.BBox[1],
				X2: r.BBox[2],
				Y2: r.BBox[3],
			},
			Confidence: r.Confidence,
			Class:      class,
		})
	}
	return detections
}
