package dto

import (
	"encoding/json"
	"time"
)

// CaptureInfo describes a stored capture for the history listing.
type CaptureInfo struct {
	ID         string            `json:"id"`
	Game       string            `json:"game"`
	Category   string            `json:"category"`
	Mode       string            `json:"mode"`
	Name       string            `json:"name"`
	Size       int64             `json:"size"`
	Date       time.Time         `json:"date"`
	TimeOfDay  time.Time         `json:"timeOfDay"`
	Detections []DetectionResult `json:"detections,omitempty"`
}

// MarshalJSON formats date and time-of-day the way the shell displays them.
func (c CaptureInfo) MarshalJSON() ([]byte, error) {
	type Alias CaptureInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      c.Date.Format("02-01-2006"),
		TimeOfDay: c.TimeOfDay.Format("15:04"),
		Alias:     (Alias)(c),
	})
}
