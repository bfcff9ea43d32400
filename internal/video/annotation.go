package video

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"vehicle-counter-go/internal/detect"
	"vehicle-counter-go/internal/roi"
)

// TrackAnnotation сведения об активном треке для аннотации кадра
type TrackAnnotation struct {
	TrackID    int                 `json:"track_id"`
	BBox       detect.BBox         `json:"bbox"`
	Confidence float64             `json:"confidence"`
	Class      detect.VehicleClass `json:"class_name"`
	Center     detect.Point        `json:"center"`
	Direction  *detect.Point       `json:"direction,omitempty"`
	SpeedKmh   *float64            `json:"speed_kmh,omitempty"`
	Crossed    bool                `json:"crossed,omitempty"`
	CrossDir   roi.Direction       `json:"crossing_direction,omitempty"`
	LineType   roi.BoundaryLabel   `json:"line_type,omitempty"`
}

// FrameAnnotation аннотация одного обработанного кадра: активные треки,
// пересечения и текущие итоги. Последовательность аннотаций заменяет
// отрисовку на видео, которая выполняется вне этого сервиса
type FrameAnnotation struct {
	FrameIndex int               `json:"frame_index"`
	Tracks     []TrackAnnotation `json:"tracks"`
	TotalIn    int               `json:"total_in"`
	TotalOut   int               `json:"total_out"`
}

// AnnotationWriter приемник аннотаций обработанных кадров
type AnnotationWriter interface {
	WriteFrame(annotation FrameAnnotation) error
	Close() error
}

// JSONLWriter записывает аннотации кадров в файл построчно в формате JSON
type JSONLWriter struct {
	file   *os.File
	writer *bufio.Writer
}

// NewJSONLWriter создает файл аннотаций
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create annotation file: %w", err)
	}
	return &JSONLWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// WriteFrame записывает аннотацию одного кадра
func (w *JSONLWriter) WriteFrame(annotation FrameAnnotation) error {
	data, err := json.Marshal(annotation)
	if err != nil {
		return fmt.Errorf("failed to marshal annotation: %w", err)
	}
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write annotation: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write annotation: %w", err)
	}
	return nil
}

// Close сбрасывает буфер и закрывает файл аннотаций
func (w *JSONLWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush annotations: %w", err)
	}
	return w.file.Close()
}
