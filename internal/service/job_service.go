package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vehicle-counter-go/internal/client"
	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/detect"
	"vehicle-counter-go/internal/model"
	"vehicle-counter-go/internal/repository"
	"vehicle-counter-go/internal/roi"
	"vehicle-counter-go/internal/track"
	"vehicle-counter-go/internal/video"
	"vehicle-counter-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Типы источников видео
const (
	SourceUpload = "upload"
	SourceRTSP   = "rtsp"
)

// allowedVideoExtensions поддерживаемые расширения загружаемых видео файлов
var allowedVideoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
}

// JobService управляет заданиями обработки видео: запускает фоновые
// горутины, ведет статусы и сохраняет результаты. Каждое задание получает
// собственные экземпляры трекера и счетчика; между заданиями разделяется
// только хранилище статусов
type JobService struct {
	cfg            *config.Config
	detectorClient *client.DetectorAPIClient
	sessionRepo    repository.SessionRepository
	statuses       *StatusStore
	logger         *logrus.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewJobService создает новый сервис заданий обработки
func NewJobService(cfg *config.Config, detectorClient *client.DetectorAPIClient, sessionRepo repository.SessionRepository, statuses *StatusStore, logger *logrus.Logger) *JobService {
	return &JobService{
		cfg:            cfg,
		detectorClient: detectorClient,
		sessionRepo:    sessionRepo,
		statuses:       statuses,
		logger:         logger,
		cancels:        make(map[string]context.CancelFunc),
	}
}

// SaveUpload сохраняет загруженный видео файл в папке загрузок
func (s *JobService) SaveUpload(originalFilename string, data io.Reader) (string, error) {
	filename := filepath.Base(originalFilename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedVideoExtensions[ext] {
		return "", fmt.Errorf("unsupported video extension %q", ext)
	}

	if err := os.MkdirAll(s.cfg.Storage.UploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(s.cfg.Storage.UploadDir, filename)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer file.Close()

	maxBytes := int64(s.cfg.Storage.MaxUploadSizeMB) << 20
	written, err := io.Copy(file, io.LimitReader(data, maxBytes+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if written > maxBytes {
		os.Remove(path)
		return "", fmt.Errorf("file exceeds upload limit of %d MB", s.cfg.Storage.MaxUploadSizeMB)
	}

	s.logger.Infof("Видео файл %s сохранен (%d байт)", filename, written)
	return filename, nil
}

// StartJob запускает фоновую обработку видео файла или RTSP потока.
// Некорректная область подсчета отклоняется синхронно, до запуска задания
func (s *JobService) StartJob(req ProcessRequest) (string, error) {
	if req.Filename == "" && req.RTSPURL == "" {
		return "", fmt.Errorf("either filename or rtsp_url is required")
	}
	if req.Filename != "" && req.RTSPURL != "" {
		return "", fmt.Errorf("filename and rtsp_url are mutually exclusive")
	}

	// Проверяем область подсчета до запуска: ошибка конфигурации
	// не должна доходить до фоновой горутины
	counter := roi.NewCounter(roi.Config{
		LineThreshold: s.cfg.ROI.LineThreshold,
		LineOffset:    s.cfg.ROI.LineOffset,
		LogLimit:      s.cfg.ROI.LogLimit,
	})
	if err := counter.SetRegion(req.ROIPoints); err != nil {
		return "", fmt.Errorf("invalid ROI: %w", err)
	}

	sourceType := SourceUpload
	if req.RTSPURL != "" {
		sourceType = SourceRTSP
	}

	if sourceType == SourceUpload {
		inputPath := filepath.Join(s.cfg.Storage.UploadDir, filepath.Base(req.Filename))
		if _, err := os.Stat(inputPath); err != nil {
			return "", fmt.Errorf("video file %s not found", req.Filename)
		}
	}

	processID := uuid.New().String()

	roiJSON, err := json.Marshal(req.ROIPoints)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ROI points: %w", err)
	}

	session := &model.Session{
		ID:            processID,
		SourceType:    sourceType,
		VideoFilename: req.Filename,
		RTSPURL:       req.RTSPURL,
		ROIPoints:     string(roiJSON),
		StartTime:     time.Now(),
		Status:        StatusProcessing,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		s.logger.Errorf("Ошибка создания сессии в БД: %v", err)
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	s.statuses.Set(processID, JobStatus{
		Status:   StatusProcessing,
		Progress: 0,
		Message:  "Начинаем обработку...",
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[processID] = cancel
	s.mu.Unlock()

	go s.runJob(ctx, processID, req, sourceType, counter)

	s.logger.Infof("Задание %s запущено, источник: %s", processID, sourceType)
	return processID, nil
}

// StopJob останавливает задание. Остановка кооперативная: рабочая горутина
// завершается между кадрами, выполненные подсчеты сохраняются
func (s *JobService) StopJob(processID string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[processID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("process %s not found or already finished", processID)
	}
	cancel()
	s.logger.Infof("Запрошена остановка задания %s", processID)
	return nil
}

// runJob выполняет задание обработки в фоновой горутине. Любая ошибка
// задания затрагивает только само задание
func (s *JobService) runJob(ctx context.Context, processID string, req ProcessRequest, sourceType string, counter *roi.Counter) {
	defer func() {
		s.mu.Lock()
		delete(s.cancels, processID)
		s.mu.Unlock()

		if r := recover(); r != nil {
			s.logger.Errorf("Паника при обработке задания %s: %v", processID, r)
			s.markFailed(processID, fmt.Sprintf("Внутренняя ошибка обработки: %v", r))
		}
	}()

	source, err := s.openSource(ctx, req, sourceType)
	if err != nil {
		s.logger.Errorf("Ошибка открытия источника для задания %s: %v", processID, err)
		s.markFailed(processID, fmt.Sprintf("Не удалось открыть источник видео: %v", err))
		return
	}
	defer source.Close()

	if err := os.MkdirAll(s.cfg.Storage.OutputDir, 0755); err != nil {
		s.markFailed(processID, fmt.Sprintf("Не удалось создать папку результатов: %v", err))
		return
	}
	if err := os.MkdirAll(s.cfg.Storage.LogDir, 0755); err != nil {
		s.markFailed(processID, fmt.Sprintf("Не удалось создать папку журналов: %v", err))
		return
	}

	outputPath := filepath.Join(s.cfg.Storage.OutputDir, fmt.Sprintf("annotations_%s.jsonl", processID))
	logPath := filepath.Join(s.cfg.Storage.LogDir, fmt.Sprintf("log_%s.csv", processID))

	writer, err := video.NewJSONLWriter(outputPath)
	if err != nil {
		s.markFailed(processID, fmt.Sprintf("Не удалось создать файл аннотаций: %v", err))
		return
	}

	tracker := track.NewTracker(track.Config{
		MaxAge:       s.cfg.Tracker.MaxAge,
		NInit:        s.cfg.Tracker.NInit,
		IoUThreshold: s.cfg.Tracker.IoUThreshold,
		HistoryLimit: s.cfg.Tracker.HistoryLimit,
	})
	processor := video.NewProcessor(video.Config{
		MinDetectionArea: s.cfg.Pipeline.MinDetectionArea,
		PixelsPerMeter:   s.cfg.Pipeline.PixelsPerMeter,
		CleanupInterval:  s.cfg.Pipeline.CleanupInterval,
	}, tracker, counter, s.logger)

	// Рабочая горутина единственный писатель статуса своего задания
	progress := func(percent int, message string) {
		counts := counter.Counts()
		s.statuses.Update(processID, func(status *JobStatus) {
			status.Progress = percent
			status.Message = message
			status.Counts = &counts
		})
	}

	maxDuration := time.Duration(req.DurationSeconds) * time.Second
	result, runErr := processor.Run(ctx, source, writer, progress, maxDuration)

	if err := writer.Close(); err != nil {
		s.logger.Warnf("Ошибка закрытия файла аннотаций задания %s: %v", processID, err)
	}

	stopped := runErr != nil && errors.Is(runErr, context.Canceled)
	if runErr != nil && !stopped {
		s.logger.Errorf("Ошибка обработки задания %s: %v", processID, runErr)
		s.markFailed(processID, fmt.Sprintf("Ошибка обработки: %v", runErr))
		return
	}

	// Сохраняем журнал пересечений
	if err := counter.SaveCSV(logPath); err != nil {
		s.logger.Errorf("Ошибка сохранения журнала задания %s: %v", processID, err)
		s.markFailed(processID, fmt.Sprintf("Не удалось сохранить журнал пересечений: %v", err))
		return
	}

	message := fmt.Sprintf("Обработка завершена. Обработано %d кадров.", result.FramesProcessed)
	if stopped {
		message = fmt.Sprintf("Обработка остановлена. Обработано %d кадров.", result.FramesProcessed)
	}

	counts := result.Counts
	s.statuses.Update(processID, func(status *JobStatus) {
		status.Status = StatusCompleted
		status.Progress = 100
		status.Message = message
		status.OutputFile = outputPath
		status.LogFile = logPath
		status.Counts = &counts
	})

	// Сохраняем итоги в базе данных
	crossings := toModelCrossings(processID, result.Crossings)
	endTime := time.Now()
	if err := s.sessionRepo.Complete(processID, endTime, result.FramesProcessed, counts.TotalIn, counts.TotalOut, outputPath, logPath, crossings); err != nil {
		s.logger.Errorf("Ошибка сохранения итогов задания %s в БД: %v", processID, err)
	}
	if err := s.sessionRepo.UpsertDailySummary(endTime, crossings); err != nil {
		s.logger.Errorf("Ошибка обновления суточной статистики задания %s: %v", processID, err)
	}

	s.logger.Infof("Задание %s завершено: %d кадров, въездов %d, выездов %d",
		processID, result.FramesProcessed, counts.TotalIn, counts.TotalOut)
}

// openSource открывает источник обнаружений для задания
func (s *JobService) openSource(ctx context.Context, req ProcessRequest, sourceType string) (detect.Source, error) {
	if sourceType == SourceRTSP {
		return s.detectorClient.OpenStream(ctx, req.RTSPURL)
	}

	inputPath := filepath.Join(s.cfg.Storage.UploadDir, filepath.Base(req.Filename))
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video file: %w", err)
	}
	defer file.Close()

	resp, err := s.detectorClient.AnalyzeVideo(filepath.Base(req.Filename), file)
	if err != nil {
		return nil, err
	}
	return client.NewBatchSource(resp), nil
}

// markFailed отмечает задание завершившимся с ошибкой
func (s *JobService) markFailed(processID, message string) {
	s.statuses.Update(processID, func(status *JobStatus) {
		status.Status = StatusError
		status.Message = message
		status.Progress = 0
	})
	if err := s.sessionRepo.Fail(processID, time.Now()); err != nil {
		s.logger.Errorf("Ошибка обновления сессии %s в БД: %v", processID, err)
	}
}

// GetStatus возвращает снимок статуса задания
func (s *JobService) GetStatus(processID string) (JobStatus, bool) {
	return s.statuses.Get(processID)
}

// GetCounts возвращает снимок текущих счетчиков задания
func (s *JobService) GetCounts(processID string) (*roi.Counts, bool) {
	status, ok := s.statuses.Get(processID)
	if !ok {
		return nil, false
	}
	if status.Counts == nil {
		return &roi.Counts{ByType: map[detect.VehicleClass]roi.DirectionCounts{}}, true
	}
	return status.Counts, true
}

// DownloadPath возвращает путь к артефакту завершенного задания
func (s *JobService) DownloadPath(processID, fileType string) (string, error) {
	status, ok := s.statuses.Get(processID)
	if !ok || status.Status != StatusCompleted {
		return "", fmt.Errorf("processing not completed or id not found")
	}

	switch fileType {
	case "video":
		if status.OutputFile == "" {
			return "", fmt.Errorf("output file not found")
		}
		return status.OutputFile, nil
	case "log":
		if status.LogFile == "" {
			return "", fmt.Errorf("log file not found")
		}
		return status.LogFile, nil
	}
	return "", fmt.Errorf("unknown file type %q", fileType)
}

// GetSession получает сессию обработки из базы данных
func (s *JobService) GetSession(sessionID string) (*SessionResponse, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		s.logger.Errorf("Ошибка получения сессии: %v", err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return modelToResponse(session), nil
}

// ListSessions получает список сессий с пагинацией
func (s *JobService) ListSessions(page, pageSize int) ([]SessionResponse, int64, error) {
	sessions, total, err := s.sessionRepo.List(page, pageSize)
	if err != nil {
		s.logger.Errorf("Ошибка получения списка сессий: %v", err)
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	responses := make([]SessionResponse, len(sessions))
	for i, session := range sessions {
		responses[i] = *modelToResponse(session)
	}
	return responses, total, nil
}

// DeleteSession удаляет сессию вместе с ее артефактами
func (s *JobService) DeleteSession(sessionID string) error {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session for deletion: %w", err)
	}

	if err := s.sessionRepo.Delete(sessionID); err != nil {
		s.logger.Errorf("Ошибка удаления сессии из БД: %v", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}

	// Удаляем файлы артефактов, если они существуют
	for _, path := range []string{session.OutputPath, session.LogPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warnf("Не удалось удалить файл %s: %v", path, err)
		}
	}

	s.logger.Infof("Сессия %s успешно удалена", sessionID)
	return nil
}

// CheckHealth проверяет состояние сервиса детекции
func (s *JobService) CheckHealth() (*models.HealthResponse, error) {
	return s.detectorClient.CheckHealth()
}

// toModelCrossings преобразует пересечения в модели базы данных
func toModelCrossings(sessionID string, crossings []video.CrossingDetail) []model.Crossing {
	records := make([]model.Crossing, len(crossings))
	for i, crossing := range crossings {
		records[i] = model.Crossing{
			SessionID:   sessionID,
			Timestamp:   crossing.Event.Timestamp,
			TrackID:     crossing.Event.TrackID,
			VehicleType: string(crossing.Event.VehicleType),
			Direction:   string(crossing.Event.Direction),
			LineType:    string(crossing.Event.LineType),
			Confidence:  crossing.Confidence,
			BBoxX1:      crossing.BBox.X1,
			BBoxY1:      crossing.BBox.Y1,
			BBoxX2:      crossing.BBox.X2,
			BBoxY2:      crossing.BBox.Y2,
			CenterX:     crossing.Center.X,
			CenterY:     crossing.Center.Y,
			SpeedKmh:    crossing.SpeedKmh,
		}
	}
	return records
}

// modelToResponse преобразует модель сессии в ответ API
func modelToResponse(session *model.Session) *SessionResponse {
	response := &SessionResponse{
		ID:            session.ID,
		SourceType:    session.SourceType,
		VideoFilename: session.VideoFilename,
		RTSPURL:       session.RTSPURL,
		StartTime:     session.StartTime,
		EndTime:       session.EndTime,
		TotalFrames:   session.TotalFrames,
		Status:        session.Status,
		TotalIn:       session.TotalIn,
		TotalOut:      session.TotalOut,
		CreatedAt:     session.CreatedAt,
	}

	if session.ROIPoints != "" {
		var points []detect.Point
		if err := json.Unmarshal([]byte(session.ROIPoints), &points); err == nil {
			response.ROIPoints = points
		}
	}

	return response
}
