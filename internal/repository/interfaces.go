package repository

import (
	"blockcam/internal/model"
)

// CaptureRepository defines the interface for capture data operations.
type CaptureRepository interface {
	// Create operations
	Insert(c *model.Capture) (int64, error)

	// Read operations
	GetByUUID(uuid string) (*model.Capture, error)
	GetByFilePath(game, path string) (*model.Capture, error)
	GetLatestByCategory(game, category string) (*model.Capture, error)
	GetAll(filter *model.CaptureFilter) ([]model.Capture, error)
	GetTotalCount(filter *model.CaptureFilter) (int, error)
	GetStats() (*model.CaptureStats, error)

	// Delete operations
	Delete(id int64) error
	DeleteByCategory(game, category string) error
	DeleteAll() error
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetByCaptureID(captureID int64) ([]model.Detection, error)
}
