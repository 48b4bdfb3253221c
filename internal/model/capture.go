package model

import "time"

// Capture is one processed image saved for a category.
type Capture struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Game      string    `json:"game"`
	Category  string    `json:"category"`
	Mode      string    `json:"mode"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
	Timestamp time.Time `json:"timestamp"`
}

// CaptureFilter contains filtering options for querying captures.
type CaptureFilter struct {
	Game      string
	Category  string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// CaptureStats contains statistics about stored captures.
type CaptureStats struct {
	TotalCaptures  int            `json:"total_captures"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerCategory    map[string]int `json:"per_category"`
}
