package handler

import (
	"encoding/json"
	"net/http"

	"blockcam/internal/config"
	"blockcam/internal/dto"
	"blockcam/internal/logger"
	"blockcam/internal/preview"
	"blockcam/internal/service/capture"
)

// FrameSizer reports the size of the latest camera frame.
type FrameSizer interface {
	FrameSize() (int, int, error)
}

// PreviewLayoutHandler handles GET /api/preview/layout. The frame size comes
// from frameW/frameH, the camera, or the configured capture size, in that order.
func PreviewLayoutHandler(pipeline *capture.Pipeline, frames FrameSizer, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		q := r.URL.Query()
		frameW, frameH := atoiDefault(q.Get("frameW"), 0), atoiDefault(q.Get("frameH"), 0)
		if frameW == 0 || frameH == 0 {
			frameW, frameH = cfg.CameraWidth, cfg.CameraHeight
			if frames != nil {
				if fw, fh, err := frames.FrameSize(); err == nil {
					frameW, frameH = fw, fh
				}
			}
		}
		if frameW <= 0 || frameH <= 0 {
			writeError(w, logger, http.StatusServiceUnavailable, "frame size unknown, camera has not delivered a frame yet")
			return
		}

		layout, err := pipeline.Layout(frameW, frameH)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.PreviewLayout{
			Layout:      layout,
			Guide:       pipeline.Guide(layout),
			FrameWidth:  frameW,
			FrameHeight: frameH,
			Fit:         cfg.PreviewFit,
		})
	}
}

// PreviewMapHandler handles POST /api/preview/map: an on-screen rectangle in,
// the matching camera frame rectangle out.
func PreviewMapHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		var req dto.MapRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid JSON body")
			return
		}

		rect, err := preview.ToFrame(req.Rect, req.Layout, req.FrameWidth, req.FrameHeight)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.FrameRect{
			X1: rect.Min.X,
			Y1: rect.Min.Y,
			X2: rect.Max.X,
			Y2: rect.Max.Y,
		})
	}
}
