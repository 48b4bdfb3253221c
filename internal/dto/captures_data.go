// CapturesData is a paginated response payload for the capture history.
package dto

type CapturesData struct {
	Captures    []CaptureInfo `json:"captures"`
	OutputDir   string        `json:"outputDir"`
	Size        int64         `json:"size"`
	MaxSize     int64         `json:"maxSize"`
	Length      int           `json:"length"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"pageSize"`
}
