package dto

// PreviewFrame is the websocket message carrying one live preview frame.
type PreviewFrame struct {
	Type      string `json:"type"`
	Camera    string `json:"camera"`
	Timestamp int64  `json:"timestamp"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Image     string `json:"image"`
}
