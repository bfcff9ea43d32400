package repository

import (
	"fmt"
	"time"

	"vehicle-counter-go/internal/model"

	"gorm.io/gorm"
)

// SessionRepository интерфейс для работы с сессиями обработки
type SessionRepository interface {
	Create(session *model.Session) error
	GetByID(id string) (*model.Session, error)
	List(page, pageSize int) ([]*model.Session, int64, error)
	Delete(id string) error
	Complete(id string, endTime time.Time, totalFrames, totalIn, totalOut int, outputPath, logPath string, crossings []model.Crossing) error
	Fail(id string, endTime time.Time) error
	UpsertDailySummary(date time.Time, crossings []model.Crossing) error
}

// sessionRepository реализация SessionRepository
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository создает новый экземпляр SessionRepository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{
		db: db,
	}
}

// Create создает новую сессию обработки в базе данных
func (r *sessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID получает сессию по ID вместе с пересечениями
func (r *sessionRepository) GetByID(id string) (*model.Session, error) {
	var session model.Session
	err := r.db.Preload("Crossings").Where("id = ?", id).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("session with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// List получает список сессий с пагинацией
func (r *sessionRepository) List(page, pageSize int) ([]*model.Session, int64, error) {
	var sessions []*model.Session
	var total int64

	// Подсчитываем общее количество
	if err := r.db.Model(&model.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	// Получаем сессии с пагинацией
	offset := (page - 1) * pageSize
	err := r.db.
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&sessions).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, total, nil
}

// Delete удаляет сессию вместе с ее пересечениями
func (r *sessionRepository) Delete(id string) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	// Сначала удаляем пересечения
	if err := tx.Where("session_id = ?", id).Delete(&model.Crossing{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete crossings: %w", err)
	}

	// Затем удаляем сессию
	result := tx.Where("id = ?", id).Delete(&model.Session{})
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		tx.Rollback()
		return fmt.Errorf("session with id %s not found", id)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Complete отмечает сессию завершенной и сохраняет итоги вместе с пересечениями
func (r *sessionRepository) Complete(id string, endTime time.Time, totalFrames, totalIn, totalOut int, outputPath, logPath string, crossings []model.Crossing) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	updates := map[string]interface{}{
		"status":       "completed",
		"end_time":     endTime,
		"total_frames": totalFrames,
		"total_in":     totalIn,
		"total_out":    totalOut,
		"output_path":  outputPath,
		"log_path":     logPath,
	}

	result := tx.Model(&model.Session{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return fmt.Errorf("session with id %s not found", id)
	}

	// Сохраняем пересечения
	for i := range crossings {
		crossings[i].ID = 0 // Обнуляем ID для auto-increment
		crossings[i].SessionID = id
		if err := tx.Create(&crossings[i]).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create crossing %d: %w", i, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Fail отмечает сессию завершившейся с ошибкой
func (r *sessionRepository) Fail(id string, endTime time.Time) error {
	result := r.db.Model(&model.Session{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":   "error",
		"end_time": endTime,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session with id %s not found", id)
	}
	return nil
}

// UpsertDailySummary обновляет суточную статистику по списку пересечений
func (r *sessionRepository) UpsertDailySummary(date time.Time, crossings []model.Crossing) error {
	if len(crossings) == 0 {
		return nil
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	var summary model.DailySummary
	err := tx.Where("date = ?", day).First(&summary).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			tx.Rollback()
			return fmt.Errorf("failed to get daily summary: %w", err)
		}
		summary = model.DailySummary{Date: day}
	}

	for _, crossing := range crossings {
		in := crossing.Direction == "in"
		if in {
			summary.TotalVehiclesIn++
		} else {
			summary.TotalVehiclesOut++
		}

		switch crossing.VehicleType {
		case "car":
			if in {
				summary.CarsIn++
			} else {
				summary.CarsOut++
			}
		case "truck":
			if in {
				summary.TrucksIn++
			} else {
				summary.TrucksOut++
			}
		case "bus":
			if in {
				summary.BusesIn++
			} else {
				summary.BusesOut++
			}
		case "motorcycle":
			if in {
				summary.MotorcyclesIn++
			} else {
				summary.MotorcyclesOut++
			}
		}
	}

	if err := tx.Save(&summary).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save daily summary: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
