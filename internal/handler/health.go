package handler

import (
	"net/http"

	"blockcam/internal/logger"
	"blockcam/internal/service"
	"blockcam/internal/service/capture"
)

type healthStatus struct {
	Status        string `json:"status"`
	Game          string `json:"game"`
	Camera        bool   `json:"camera"`
	Detector      bool   `json:"detector"`
	Captured      int    `json:"captured"`
	Viewers       int    `json:"viewers"`
	DroppedFrames int64  `json:"dropped_frames"`
}

// HealthHandler handles GET /health.
func HealthHandler(pipeline *capture.Pipeline, frames FrameSizer, manager *service.Manager, detectorReady bool, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := healthStatus{
			Status:   "ok",
			Game:     pipeline.Game().Name,
			Detector: detectorReady,
			Captured: len(pipeline.History().Captured()),
		}
		if frames != nil {
			_, _, err := frames.FrameSize()
			st.Camera = err == nil
		}
		if manager != nil {
			st.Viewers = manager.GetWebsocketService().GetClientCount()
			st.DroppedFrames = manager.Dropped()
		}
		writeJSON(w, logger, http.StatusOK, st)
	}
}
