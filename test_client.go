package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const baseURL = "http://localhost:8080"

func main() {
	// Проверяем health endpoint
	fmt.Println("Проверяем health endpoint...")
	resp, err := http.Get(baseURL + "/api/v1/health")
	if err != nil {
		fmt.Printf("Ошибка при обращении к health endpoint: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Ошибка чтения ответа: %v\n", err)
		return
	}

	fmt.Printf("Health check ответ (статус %d):\n%s\n\n", resp.StatusCode, string(body))

	// Если есть тестовое видео, запускаем полный цикл обработки
	if len(os.Args) > 1 {
		videoPath := os.Args[1]
		fmt.Printf("Отправляем видео %s на обработку...\n", videoPath)

		if err := testProcessing(videoPath); err != nil {
			fmt.Printf("Ошибка при тестировании обработки: %v\n", err)
		}
	} else {
		fmt.Println("Для тестирования обработки запустите: go run test_client.go <путь_к_видео>")
	}
}

func testProcessing(videoPath string) error {
	// Загружаем видео файл
	filename, err := uploadVideo(videoPath)
	if err != nil {
		return err
	}
	fmt.Printf("Видео загружено как %s\n", filename)

	// Запускаем обработку с прямоугольной областью подсчета
	request := map[string]interface{}{
		"filename": filename,
		"roi_points": []map[string]float64{
			{"x": 100, "y": 100},
			{"x": 500, "y": 100},
			{"x": 500, "y": 400},
			{"x": 100, "y": 400},
		},
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	resp, err := http.Post(baseURL+"/api/v1/process", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ошибка запуска обработки: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	fmt.Printf("Ответ запуска обработки (статус %d):\n%s\n", resp.StatusCode, string(respBody))

	var started struct {
		ProcessID string `json:"process_id"`
	}
	if err := json.Unmarshal(respBody, &started); err != nil || started.ProcessID == "" {
		return fmt.Errorf("не удалось получить идентификатор обработки")
	}

	// Опрашиваем статус до завершения
	for {
		time.Sleep(2 * time.Second)

		statusResp, err := http.Get(baseURL + "/api/v1/status/" + started.ProcessID)
		if err != nil {
			return fmt.Errorf("ошибка запроса статуса: %w", err)
		}
		statusBody, err := io.ReadAll(statusResp.Body)
		statusResp.Body.Close()
		if err != nil {
			return fmt.Errorf("ошибка чтения статуса: %w", err)
		}

		var status struct {
			Status   string `json:"status"`
			Progress int    `json:"progress"`
			Message  string `json:"message"`
		}
		if err := json.Unmarshal(statusBody, &status); err != nil {
			return fmt.Errorf("ошибка парсинга статуса: %w", err)
		}

		fmt.Printf("Статус: %s, прогресс %d%%: %s\n", status.Status, status.Progress, status.Message)

		if status.Status == "completed" {
			fmt.Printf("Обработка завершена:\n%s\n", string(statusBody))
			return nil
		}
		if status.Status == "error" {
			return fmt.Errorf("обработка завершилась с ошибкой: %s", status.Message)
		}
	}
}

func uploadVideo(videoPath string) (string, error) {
	videoData, err := os.ReadFile(videoPath)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения видео файла: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	videoWriter, err := writer.CreateFormFile("video", filepath.Base(videoPath))
	if err != nil {
		return "", fmt.Errorf("ошибка создания form field: %w", err)
	}
	if _, err := videoWriter.Write(videoData); err != nil {
		return "", fmt.Errorf("ошибка записи видео: %w", err)
	}
	writer.Close()

	client := &http.Client{Timeout: 5 * time.Minute}
	req, err := http.NewRequest("POST", baseURL+"/api/v1/upload", &body)
	if err != nil {
		return "", fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ошибка отправки запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("загрузка не удалась (статус %d): %s", resp.StatusCode, string(respBody))
	}

	var uploaded struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		return "", fmt.Errorf("ошибка парсинга ответа загрузки: %w", err)
	}
	return uploaded.Filename, nil
}
