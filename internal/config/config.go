package config

import (
	"os"
	"strconv"
)

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port        int
		Host        string
		Environment string
	}
	DetectorAPI struct {
		BaseURL string
		Timeout int // в секундах
	}
	Storage struct {
		UploadDir       string
		OutputDir       string
		LogDir          string
		MaxUploadSizeMB int
	}
	Tracker struct {
		MaxAge       int
		NInit        int
		IoUThreshold float64
		HistoryLimit int
	}
	ROI struct {
		LineThreshold float64
		LineOffset    float64
		LogLimit      int
	}
	Pipeline struct {
		MinDetectionArea int
		PixelsPerMeter   float64
		CleanupInterval  int
	}
	Logging struct {
		Level string
	}
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() *Config {
	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Environment = getEnv("ENVIRONMENT", "development")

	// Конфигурация сервиса детекции
	cfg.DetectorAPI.BaseURL = getEnv("DETECTOR_API_BASE_URL", "http://localhost:8000")
	cfg.DetectorAPI.Timeout = getEnvInt("DETECTOR_API_TIMEOUT_SECONDS", 300) // 5 минут по умолчанию

	// Конфигурация хранилища файлов
	cfg.Storage.UploadDir = getEnv("UPLOAD_DIR", "uploads")
	cfg.Storage.OutputDir = getEnv("OUTPUT_DIR", "outputs")
	cfg.Storage.LogDir = getEnv("LOG_DIR", "logs")
	cfg.Storage.MaxUploadSizeMB = getEnvInt("MAX_UPLOAD_SIZE_MB", 500)

	// Конфигурация трекера
	cfg.Tracker.MaxAge = getEnvInt("TRACKER_MAX_AGE", 30)
	cfg.Tracker.NInit = getEnvInt("TRACKER_N_INIT", 3)
	cfg.Tracker.IoUThreshold = getEnvFloat("TRACKER_IOU_THRESHOLD", 0.7)
	cfg.Tracker.HistoryLimit = getEnvInt("TRACKER_HISTORY_LIMIT", 30)

	// Конфигурация области подсчета
	cfg.ROI.LineThreshold = getEnvFloat("ROI_LINE_THRESHOLD", 100)
	cfg.ROI.LineOffset = getEnvFloat("ROI_LINE_OFFSET", 30)
	cfg.ROI.LogLimit = getEnvInt("ROI_LOG_LIMIT", 10000)

	// Конфигурация конвейера обработки
	cfg.Pipeline.MinDetectionArea = getEnvInt("MIN_DETECTION_AREA", 200)
	cfg.Pipeline.PixelsPerMeter = getEnvFloat("PIXELS_PER_METER", 10)
	cfg.Pipeline.CleanupInterval = getEnvInt("CLEANUP_INTERVAL", 100)

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	return cfg
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает float значение переменной окружения или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
