package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"blockcam/internal/catalog"
	"blockcam/internal/logger"
	"blockcam/internal/service/capture"
	"blockcam/internal/service/narration"
)

const narrationTimeout = 60 * time.Second

func lookupCategory(w http.ResponseWriter, r *http.Request, pipeline *capture.Pipeline, logger *logger.Logger) (*catalog.Category, bool) {
	label := r.URL.Query().Get("category")
	if label == "" {
		writeError(w, logger, http.StatusBadRequest, "category is required")
		return nil, false
	}
	cat, err := pipeline.Game().Category(label)
	if err != nil {
		writeError(w, logger, http.StatusNotFound, err.Error())
		return nil, false
	}
	return cat, true
}

// FactHandler handles GET /api/facts?category= with a random catalog fact.
func FactHandler(pipeline *capture.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		cat, ok := lookupCategory(w, r, pipeline, logger)
		if !ok {
			return
		}
		fact, err := cat.RandomFact(nil)
		if err != nil {
			writeError(w, logger, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, logger, http.StatusOK, fact)
	}
}

// NarrationHandler handles GET /api/narration?category=.
func NarrationHandler(pipeline *capture.Pipeline, narrator *narration.Service, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		cat, ok := lookupCategory(w, r, pipeline, logger)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), narrationTimeout)
		defer cancel()

		n, err := narrator.Narrate(ctx, cat)
		if err != nil {
			writeError(w, logger, narrationStatus(err), err.Error())
			return
		}
		writeJSON(w, logger, http.StatusOK, n)
	}
}

// SpeechHandler handles GET /api/narration/speech?category= with WAV audio.
func SpeechHandler(pipeline *capture.Pipeline, narrator *narration.Service, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		cat, ok := lookupCategory(w, r, pipeline, logger)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), narrationTimeout)
		defer cancel()

		wav, n, err := narrator.Speak(ctx, cat)
		if err != nil {
			logger.Warning("Speech for %s failed: %v", cat.Label, err)
			writeError(w, logger, narrationStatus(err), err.Error())
			return
		}

		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
		w.Header().Set("X-Narration-Source", n.Source)
		w.Write(wav)
	}
}

func narrationStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNoFacts):
		return http.StatusNotFound
	case errors.Is(err, narration.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
