package detect

// StreamProps свойства видеопотока, сообщаемые источником обнаружений
type StreamProps struct {
	FPS         float64 `json:"fps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	TotalFrames int     `json:"total_frames"` // 0 для потоков без известной длины
}

// FrameDetections обнаружения одного кадра вместе с его порядковым номером
type FrameDetections struct {
	FrameIndex int         `json:"frame_index"`
	Detections []Detection `json:"detections"`
}

// Source источник покадровых обнаружений. Само чтение и декодирование видео
// выполняется внешним сервисом детекции; конвейер получает только результаты.
// Next возвращает io.EOF после последнего кадра
type Source interface {
	Props() StreamProps
	Next() (FrameDetections, error)
	Close() error
}
