package model

// Detection is a detector box recorded with a capture.
type Detection struct {
	ID         int64   `json:"id"`
	CaptureID  int64   `json:"capture_id"`
	Label      string  `json:"label"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	Selected   bool    `json:"selected"`
}
