package handler

import (
	"net/http"
	"path/filepath"
	"strconv"

	"vehicle-counter-go/internal/database"
	"vehicle-counter-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// JobHandler обрабатывает HTTP запросы заданий подсчета транспорта
type JobHandler struct {
	jobService *service.JobService
	logger     *logrus.Logger
}

// NewJobHandler создает новый экземпляр JobHandler
func NewJobHandler(jobService *service.JobService, logger *logrus.Logger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		logger:     logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *JobHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/upload", h.UploadVideo)
		api.POST("/process", h.StartProcessing)
		api.POST("/process/:id/stop", h.StopProcessing)
		api.GET("/status/:id", h.GetStatus)
		api.GET("/counts/:id", h.GetCounts)
		api.GET("/download/:id/:type", h.Download)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.DeleteSession)
		api.GET("/health", h.CheckHealth)
	}
}

// UploadVideo обрабатывает загрузку видео файла
func (h *JobHandler) UploadVideo(c *gin.Context) {
	h.logger.Info("Получен запрос на загрузку видео")

	file, header, err := c.Request.FormFile("video")
	if err != nil {
		h.logger.Errorf("Ошибка получения видео файла: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Видео файл обязателен"})
		return
	}
	defer file.Close()

	filename, err := h.jobService.SaveUpload(header.Filename, file)
	if err != nil {
		h.logger.Errorf("Ошибка сохранения видео файла: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неподдерживаемый формат или ошибка сохранения файла"})
		return
	}

	c.JSON(http.StatusOK, service.UploadResponse{
		Filename: filename,
		Message:  "Файл успешно загружен",
	})
}

// StartProcessing запускает фоновую обработку видео или RTSP потока
func (h *JobHandler) StartProcessing(c *gin.Context) {
	h.logger.Info("Получен запрос на запуск обработки")

	var req service.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Ошибка парсинга запроса: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса"})
		return
	}

	processID, err := h.jobService.StartJob(req)
	if err != nil {
		h.logger.Errorf("Ошибка запуска обработки: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, service.ProcessResponse{
		ProcessID: processID,
		Message:   "Обработка запущена",
	})
}

// StopProcessing останавливает выполняющееся задание
func (h *JobHandler) StopProcessing(c *gin.Context) {
	processID := c.Param("id")
	h.logger.Infof("Получен запрос на остановку обработки %s", processID)

	if err := h.jobService.StopJob(processID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Задание не найдено или уже завершено"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Остановка запрошена"})
}

// GetStatus возвращает текущий статус задания обработки
func (h *JobHandler) GetStatus(c *gin.Context) {
	processID := c.Param("id")

	status, ok := h.jobService.GetStatus(processID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Задание не найдено"})
		return
	}

	c.JSON(http.StatusOK, service.StatusResponse{
		Status:     status.Status,
		Progress:   status.Progress,
		Message:    status.Message,
		OutputFile: status.OutputFile,
		LogFile:    status.LogFile,
		Counts:     status.Counts,
	})
}

// GetCounts возвращает текущие счетчики задания
func (h *JobHandler) GetCounts(c *gin.Context) {
	processID := c.Param("id")

	counts, ok := h.jobService.GetCounts(processID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Задание не найдено"})
		return
	}

	c.JSON(http.StatusOK, counts)
}

// Download отдает артефакт завершенного задания: аннотации или журнал
func (h *JobHandler) Download(c *gin.Context) {
	processID := c.Param("id")
	fileType := c.Param("type")
	h.logger.Infof("Получен запрос на скачивание %s для задания %s", fileType, processID)

	path, err := h.jobService.DownloadPath(processID, fileType)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Файл не найден или обработка не завершена"})
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

// ListSessions возвращает список сессий обработки с пагинацией
func (h *JobHandler) ListSessions(c *gin.Context) {
	h.logger.Info("Получен запрос на получение списка сессий")

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	sessions, total, err := h.jobService.ListSessions(page, size)
	if err != nil {
		h.logger.Errorf("Ошибка получения списка сессий: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка получения списка сессий"})
		return
	}

	c.JSON(http.StatusOK, service.ListSessionsResponse{
		Sessions: sessions,
		Total:    total,
		Page:     page,
		Size:     size,
	})
}

// GetSession возвращает сессию обработки по ID
func (h *JobHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	h.logger.Infof("Получен запрос на получение сессии с ID: %s", sessionID)

	session, err := h.jobService.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Сессия не найдена"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// DeleteSession удаляет сессию обработки по ID
func (h *JobHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	h.logger.Infof("Получен запрос на удаление сессии с ID: %s", sessionID)

	if err := h.jobService.DeleteSession(sessionID); err != nil {
		h.logger.Errorf("Ошибка удаления сессии: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка удаления сессии"})
		return
	}

	h.logger.Info("Сессия успешно удалена")
	c.JSON(http.StatusOK, gin.H{"message": "Сессия успешно удалена"})
}

// CheckHealth проверяет состояние сервиса и его зависимостей
func (h *JobHandler) CheckHealth(c *gin.Context) {
	h.logger.Info("Получен запрос проверки здоровья сервиса")

	if err := database.HealthCheck(); err != nil {
		h.logger.Errorf("База данных недоступна: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "База данных недоступна",
		})
		return
	}

	detectorHealth, err := h.jobService.CheckHealth()
	if err != nil {
		h.logger.Errorf("Сервис детекции недоступен: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "Сервис детекции недоступен",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"message":      "Сервис работает нормально",
		"detector_api": detectorHealth,
	})
}
