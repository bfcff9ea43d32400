package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"vehicle-counter-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// DetectorAPIClient клиент для взаимодействия с сервисом детекции транспорта.
// Сервис принимает видео или адрес RTSP потока и возвращает покадровые
// обнаружения; само декодирование видео и нейронная сеть остаются на его стороне
type DetectorAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewDetectorAPIClient создает новый клиент сервиса детекции
func NewDetectorAPIClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *DetectorAPIClient {
	return &DetectorAPIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// AnalyzeVideo отправляет видео на анализ и возвращает покадровые обнаружения
func (c *DetectorAPIClient) AnalyzeVideo(filename string, video io.Reader) (*models.AnalyzeVideoResponse, error) {
	c.logger.Infof("Отправка видео %s на анализ в сервис детекции", filename)

	// Создаем multipart form-data
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	videoWriter, err := writer.CreateFormFile("video", filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания form field для видео: %w", err)
	}

	if _, err := io.Copy(videoWriter, video); err != nil {
		return nil, fmt.Errorf("ошибка записи видео данных: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	// Создаем HTTP запрос
	url := fmt.Sprintf("%s/analyze", c.baseURL)
	req, err := http.NewRequest("POST", url, &body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	// Отправляем запрос
	c.logger.Debugf("Отправка POST запроса на %s", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("сервис детекции вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	// Парсим JSON ответ
	var apiResponse models.AnalyzeVideoResponse
	if err := json.Unmarshal(respBody, &apiResponse); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	if apiResponse.Status != "success" {
		return nil, fmt.Errorf("сервис детекции вернул ошибку: %s", apiResponse.Message)
	}

	c.logger.Infof("Получены обнаружения для %d кадров", len(apiResponse.Frames))
	return &apiResponse, nil
}

// OpenStream открывает потоковый анализ RTSP источника. Обнаружения
// читаются построчно в формате NDJSON по мере обработки кадров сервисом.
// Отмена контекста прерывает чтение потока
func (c *DetectorAPIClient) OpenStream(ctx context.Context, rtspURL string) (*StreamSource, error) {
	c.logger.Infof("Открываем потоковый анализ RTSP источника")

	payload, err := json.Marshal(map[string]string{"rtsp_url": rtspURL})
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	url := fmt.Sprintf("%s/stream", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Потоковый запрос не ограничиваем общим таймаутом клиента
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия потока: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("сервис детекции вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	source, err := newStreamSource(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	c.logger.Info("Потоковый анализ RTSP источника открыт")
	return source, nil
}

// CheckHealth проверяет состояние сервиса детекции
func (c *DetectorAPIClient) CheckHealth() (*models.HealthResponse, error) {
	c.logger.Debug("Проверка здоровья сервиса детекции")

	url := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("сервис детекции вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	var healthResponse models.HealthResponse
	if err := json.Unmarshal(respBody, &healthResponse); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	return &healthResponse, nil
}
