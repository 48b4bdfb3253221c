package handler

import (
	"net/http"

	"blockcam/internal/dto"
	"blockcam/internal/logger"
	"blockcam/internal/service/capture"
)

// GameStateHandler handles GET /api/game.
func GameStateHandler(pipeline *capture.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, logger, http.StatusOK, gameState(pipeline))
	}
}

func gameState(pipeline *capture.Pipeline) dto.GameState {
	game := pipeline.Game()
	history := pipeline.History()
	captured := history.Captured()

	state := dto.GameState{
		Game:       game.Name,
		Title:      game.Title,
		Background: game.Background(captured),
		Categories: make([]dto.CategoryState, 0, len(game.Categories)),
		Complete:   history.Complete(),
	}
	for _, c := range game.Categories {
		cs := dto.CategoryState{
			Label:  c.Label,
			Title:  c.Title,
			Hint:   c.Hint,
			Sample: c.Sample,
			Mode:   string(c.Mode),
		}
		if _, ok := history.Get(c.Label); ok {
			cs.Captured = true
			cs.ImageURL = imageURL(c.Label)
		}
		state.Categories = append(state.Categories, cs)
	}
	return state
}

// gameEvent describes the current state after a change to category.
func gameEvent(pipeline *capture.Pipeline, kind, category string) dto.GameEvent {
	history := pipeline.History()
	captured := history.Captured()
	ev := dto.GameEvent{
		Type:       kind,
		Category:   category,
		Captured:   captured,
		Background: pipeline.Game().Background(captured),
		Complete:   history.Complete(),
	}
	if _, ok := history.Get(category); ok && category != "" {
		ev.ImageURL = imageURL(category)
	}
	return ev
}
