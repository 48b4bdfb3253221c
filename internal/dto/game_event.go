package dto

// GameEvent tells connected viewers that the game state changed.
type GameEvent struct {
	Type       string   `json:"type"` // "capture", "delete" or "clear"
	Category   string   `json:"category,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	Captured   []string `json:"captured"`
	Background string   `json:"background"`
	Complete   bool     `json:"complete"`
}
