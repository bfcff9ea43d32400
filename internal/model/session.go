package model

import (
	"time"

	"gorm.io/gorm"
)

// Session сессия обработки видео в базе данных
type Session struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SourceType    string `gorm:"type:varchar(20);not null" json:"source_type"` // upload или rtsp
	VideoFilename string `gorm:"type:varchar(255)" json:"video_filename"`
	RTSPURL       string `gorm:"type:varchar(500)" json:"rtsp_url"`
	ROIPoints     string `gorm:"type:text" json:"roi_points"` // JSON массив точек области

	StartTime   time.Time  `gorm:"not null" json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	TotalFrames int        `gorm:"not null;default:0" json:"total_frames"`
	Status      string     `gorm:"type:varchar(20);not null" json:"status"` // processing, completed, error

	OutputPath string `gorm:"type:varchar(500)" json:"output_path"`
	LogPath    string `gorm:"type:varchar(500)" json:"log_path"`

	// Итоговые счетчики сессии
	TotalIn  int `gorm:"not null;default:0" json:"total_in"`
	TotalOut int `gorm:"not null;default:0" json:"total_out"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Связь с пересечениями
	Crossings []Crossing `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"crossings"`
}

// Crossing запись о пересечении счетной границы транспортным средством
type Crossing struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(36);not null;index" json:"session_id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`

	TrackID     int     `gorm:"not null" json:"track_id"`
	VehicleType string  `gorm:"type:varchar(50);not null;index" json:"vehicle_type"`
	Direction   string  `gorm:"type:varchar(10);not null;index" json:"direction"` // in или out
	LineType    string  `gorm:"type:varchar(20);not null" json:"line_type"`       // entry или exit
	Confidence  float64 `json:"confidence"`

	BBoxX1  int     `json:"bbox_x1"`
	BBoxY1  int     `json:"bbox_y1"`
	BBoxX2  int     `json:"bbox_x2"`
	BBoxY2  int     `json:"bbox_y2"`
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`

	SpeedKmh *float64 `json:"speed_kmh"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Обратная связь с сессией
	Session Session `gorm:"foreignKey:SessionID;references:ID" json:"-"`
}

// DailySummary агрегированная статистика подсчета за сутки
type DailySummary struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex" json:"date"`

	TotalVehiclesIn  int `gorm:"not null;default:0" json:"total_vehicles_in"`
	TotalVehiclesOut int `gorm:"not null;default:0" json:"total_vehicles_out"`

	CarsIn         int `gorm:"not null;default:0" json:"cars_in"`
	CarsOut        int `gorm:"not null;default:0" json:"cars_out"`
	TrucksIn       int `gorm:"not null;default:0" json:"trucks_in"`
	TrucksOut      int `gorm:"not null;default:0" json:"trucks_out"`
	BusesIn        int `gorm:"not null;default:0" json:"buses_in"`
	BusesOut       int `gorm:"not null;default:0" json:"buses_out"`
	MotorcyclesIn  int `gorm:"not null;default:0" json:"motorcycles_in"`
	MotorcyclesOut int `gorm:"not null;default:0" json:"motorcycles_out"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName указывает имя таблицы для Session
func (Session) TableName() string {
	return "processing_sessions"
}

// TableName указывает имя таблицы для Crossing
func (Crossing) TableName() string {
	return "vehicle_crossings"
}

// TableName указывает имя таблицы для DailySummary
func (DailySummary) TableName() string {
	return "daily_summary"
}
