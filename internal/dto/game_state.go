package dto

// CategoryState is one category of the running game and whether it is done.
type CategoryState struct {
	Label    string `json:"label"`
	Title    string `json:"title"`
	Hint     string `json:"hint"`
	Sample   string `json:"sample"`
	Mode     string `json:"mode"`
	Captured bool   `json:"captured"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// GameState is the payload of GET /api/game.
type GameState struct {
	Game       string          `json:"game"`
	Title      string          `json:"title"`
	Background string          `json:"background"`
	Categories []CategoryState `json:"categories"`
	Complete   bool            `json:"complete"`
}
