package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"blockcam/internal/catalog"
	"blockcam/internal/dto"
	"blockcam/internal/logger"
	"blockcam/internal/service"
	"blockcam/internal/service/ai"
	"blockcam/internal/service/camera"
	"blockcam/internal/service/capture"
	"blockcam/internal/service/registry"

	"github.com/disintegration/imaging"
)

const (
	captureTimeout = 60 * time.Second
	maxUploadBytes = 20 << 20
)

// CaptureHandler handles POST /api/capture?category=&force= using the live camera.
func CaptureHandler(manager *service.Manager, pipeline *capture.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		q := r.URL.Query()
		label := q.Get("category")

		ctx, cancel := context.WithTimeout(r.Context(), captureTimeout)
		defer cancel()

		res, err := pipeline.Capture(ctx, label, parseBool(q.Get("force")))
		respondCapture(w, manager, pipeline, logger, label, res, err)
	}
}

// CaptureUploadHandler handles POST /api/capture/upload with a multipart "image" field.
func CaptureUploadHandler(manager *service.Manager, pipeline *capture.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid multipart form")
			return
		}
		label := r.FormValue("category")

		file, _, err := r.FormFile("image")
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "image field is required")
			return
		}
		defer file.Close()

		img, err := imaging.Decode(file, imaging.AutoOrientation(true))
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "unsupported image")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), captureTimeout)
		defer cancel()

		res, err := pipeline.CaptureImage(ctx, label, img, parseBool(r.FormValue("force")))
		respondCapture(w, manager, pipeline, logger, label, res, err)
	}
}

func respondCapture(w http.ResponseWriter, manager *service.Manager, pipeline *capture.Pipeline, logger *logger.Logger, label string, res *capture.Result, err error) {
	history := pipeline.History()
	captured := history.Captured()
	out := dto.CaptureResult{
		Status:     "success",
		Message:    capture.Message(err),
		Category:   label,
		Captured:   captured,
		Background: pipeline.Game().Background(captured),
		Complete:   history.Complete(),
	}

	if err != nil {
		out.Status = "error"
		writeJSON(w, logger, captureStatus(err), out)
		return
	}

	out.Message = capture.SuccessMessage(res)
	out.ID = res.ID
	out.ImageURL = imageURL(res.Category)
	out.Mode = string(res.Mode)
	out.Trimmed = res.Trimmed
	out.Detection = res.Detection
	out.PreviewBox = res.PreviewBox

	if manager != nil {
		manager.Notify(gameEvent(pipeline, "capture", res.Category))
	}
	writeJSON(w, logger, http.StatusOK, out)
}

func captureStatus(err error) int {
	switch {
	case errors.Is(err, capture.ErrNoCategory),
		errors.Is(err, catalog.ErrUnknownCategory),
		errors.Is(err, registry.ErrUnknownCategory):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrAlreadyCaptured):
		return http.StatusConflict
	case errors.Is(err, ai.ErrNothingDetected), errors.Is(err, ai.ErrWrongObject):
		return http.StatusUnprocessableEntity
	case errors.Is(err, camera.ErrNoFrame), errors.Is(err, ai.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
