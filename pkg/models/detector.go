package models

// DetectionResult обнаружение в формате ответа сервиса детекции
type DetectionResult struct {
	BBox       [4]int  `json:"bbox"`       // Координаты рамки x1, y1, x2, y2
	Confidence float64 `json:"confidence"` // Уверенность детектора от 0 до 1
	ClassName  string  `json:"class_name"` // Класс транспортного средства
}

// FrameResult обнаружения одного кадра видео
type FrameResult struct {
	FrameIndex int               `json:"frame_index"` // Порядковый номер кадра
	Detections []DetectionResult `json:"detections"`  // Обнаружения на кадре
}

// StreamProperties свойства видеопотока, определенные сервисом детекции
type StreamProperties struct {
	FPS         float64 `json:"fps"`          // Частота кадров
	Width       int     `json:"width"`        // Ширина кадра в пикселях
	Height      int     `json:"height"`       // Высота кадра в пикселях
	TotalFrames int     `json:"total_frames"` // Количество кадров (0 для потоков)
}

// AnalyzeVideoResponse ответ сервиса детекции на пакетный анализ видео файла
type AnalyzeVideoResponse struct {
	Status  string           `json:"status"`  // Статус выполнения (success/error)
	Message string           `json:"message"` // Сообщение
	Props   StreamProperties `json:"props"`   // Свойства видео
	Frames  []FrameResult    `json:"frames"`  // Покадровые обнаружения
}

// StreamChunk одна строка NDJSON ответа при потоковом анализе RTSP.
// Первая строка содержит свойства потока, последующие строки содержат кадры
type StreamChunk struct {
	Props *StreamProperties `json:"props,omitempty"`
	Frame *FrameResult      `json:"frame,omitempty"`
	Error string            `json:"error,omitempty"`
}

// HealthResponse ответ проверки здоровья сервиса детекции
type HealthResponse struct {
	Status      string `json:"status"`       // Статус сервиса (healthy/unhealthy)
	ModelLoaded bool   `json:"model_loaded"` // Загружена ли модель нейронной сети
	Version     string `json:"version"`      // Версия сервиса
}
