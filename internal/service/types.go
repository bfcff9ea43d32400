package service

import (
	"time"

	"vehicle-counter-go/internal/detect"
	"vehicle-counter-go/internal/roi"
)

// UploadResponse ответ на загрузку видео файла
type UploadResponse struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// ProcessRequest запрос на запуск обработки видео или RTSP потока
type ProcessRequest struct {
	Filename        string         `json:"filename,omitempty"`
	RTSPURL         string         `json:"rtsp_url,omitempty"`
	ROIPoints       []detect.Point `json:"roi_points"`
	DurationSeconds int            `json:"duration_seconds,omitempty"` // лимит для потоков, 0 без лимита
}

// ProcessResponse ответ на запуск обработки
type ProcessResponse struct {
	ProcessID string `json:"process_id"`
	Message   string `json:"message"`
}

// StatusResponse ответ с состоянием задания обработки
type StatusResponse struct {
	Status     string      `json:"status"`
	Progress   int         `json:"progress"`
	Message    string      `json:"message"`
	OutputFile string      `json:"output_file,omitempty"`
	LogFile    string      `json:"log_file,omitempty"`
	Counts     *roi.Counts `json:"counts,omitempty"`
}

// SessionResponse ответ с информацией о сессии обработки
type SessionResponse struct {
	ID            string         `json:"id"`
	SourceType    string         `json:"source_type"`
	VideoFilename string         `json:"video_filename,omitempty"`
	RTSPURL       string         `json:"rtsp_url,omitempty"`
	ROIPoints     []detect.Point `json:"roi_points"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       *time.Time     `json:"end_time,omitempty"`
	TotalFrames   int            `json:"total_frames"`
	Status        string         `json:"status"`
	TotalIn       int            `json:"total_in"`
	TotalOut      int            `json:"total_out"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ListSessionsResponse ответ со списком сессий обработки
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Size     int               `json:"size"`
}
