package dto

import "blockcam/internal/preview"

// CaptureResult is returned by the capture endpoints.
type CaptureResult struct {
	Status     string           `json:"status"`
	Message    string           `json:"message"`
	Category   string           `json:"category"`
	ID         string           `json:"id,omitempty"`
	ImageURL   string           `json:"imageUrl,omitempty"`
	Mode       string           `json:"mode,omitempty"`
	Trimmed    bool             `json:"trimmed"`
	Detection  *DetectionResult `json:"detection,omitempty"`
	PreviewBox *preview.Rect    `json:"previewBox,omitempty"`
	Captured   []string         `json:"captured"`
	Background string           `json:"background"`
	Complete   bool             `json:"complete"`
}
