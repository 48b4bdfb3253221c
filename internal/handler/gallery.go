package handler

import (
	"errors"
	"net/http"
	"path/filepath"

	"blockcam/internal/catalog"
	"blockcam/internal/dto"
	"blockcam/internal/logger"
	"blockcam/internal/model"
	"blockcam/internal/repository"
	"blockcam/internal/service"
	"blockcam/internal/service/capture"
	"blockcam/internal/service/registry"
	"blockcam/internal/service/storage"
)

const defaultPageSize = 24

// GetCapturesHandler returns the filtered capture history of the running game.
func GetCapturesHandler(pipeline *capture.Pipeline, store *storage.Store, logger *logger.Logger,
	captureRepo repository.CaptureRepository, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		if captureRepo == nil {
			writeError(w, logger, http.StatusServiceUnavailable, "capture history is disabled")
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageSize)

		filter := &model.CaptureFilter{
			Game:      pipeline.Game().Name,
			Category:  q.Get("category"),
			StartDate: parseDate(q.Get("dateAfter")),
			EndDate:   parseDate(q.Get("dateBefore")),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}

		captures, err := captureRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying captures from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := captureRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting captures: %v", err)
			totalCount = len(captures)
		}

		totalSize, err := store.DirSize()
		if err != nil {
			logger.Error("Error getting output directory size: %v", err)
			totalSize = 0
		}

		infos := make([]dto.CaptureInfo, 0, len(captures))
		for _, c := range captures {
			info := dto.CaptureInfo{
				ID:        c.UUID,
				Game:      c.Game,
				Category:  c.Category,
				Mode:      c.Mode,
				Name:      c.Filename,
				Size:      c.FileSize,
				Date:      c.Timestamp,
				TimeOfDay: c.Timestamp,
			}
			if detectionRepo != nil {
				dets, err := detectionRepo.GetByCaptureID(c.ID)
				if err != nil {
					logger.Error("Error getting detections for capture %d: %v", c.ID, err)
				}
				for _, d := range dets {
					info.Detections = append(info.Detections, dto.DetectionResult{
						Label:      d.Label,
						Confidence: d.Confidence,
						X:          d.X,
						Y:          d.Y,
						Width:      d.Width,
						Height:     d.Height,
					})
				}
			}
			infos = append(infos, info)
		}

		writeJSON(w, logger, http.StatusOK, dto.CapturesData{
			Captures:    infos,
			OutputDir:   store.Dir(),
			Size:        totalSize,
			MaxSize:     store.MaxSizeBytes(),
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// ViewCaptureHandler serves the current image of ?category=, or a past
// capture by ?id= when the history is enabled.
func ViewCaptureHandler(pipeline *capture.Pipeline, store *storage.Store, captureRepo repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var path string
		switch {
		case q.Get("category") != "":
			p, ok := pipeline.History().Get(q.Get("category"))
			if !ok {
				http.NotFound(w, r)
				return
			}
			path = p
		case q.Get("id") != "" && captureRepo != nil:
			c, err := captureRepo.GetByUUID(q.Get("id"))
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if c == nil || c.Game != pipeline.Game().Name {
				http.NotFound(w, r)
				return
			}
			path = c.FilePath
		default:
			http.Error(w, "category or id parameter is required", http.StatusBadRequest)
			return
		}

		// Only files inside the output directory are served.
		safe, err := store.Path(filepath.Base(path))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, safe)
	}
}

// DeleteCaptureHandler forgets the image of ?category= and removes its files,
// or drops the single history record ?id=.
func DeleteCaptureHandler(manager *service.Manager, pipeline *capture.Pipeline, store *storage.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost, http.MethodDelete) {
			return
		}
		if id := r.URL.Query().Get("id"); id != "" {
			discardCapture(w, manager, pipeline, store, logger, id)
			return
		}
		label := r.URL.Query().Get("category")
		if label == "" {
			writeError(w, logger, http.StatusBadRequest, "category or id is required")
			return
		}
		if _, err := pipeline.Game().Category(label); err != nil {
			if errors.Is(err, catalog.ErrUnknownCategory) {
				writeError(w, logger, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, logger, http.StatusInternalServerError, err.Error())
			return
		}

		if _, err := store.RemoveCategory(label); err != nil {
			logger.Error("Failed to delete files of %s: %v", label, err)
		}
		if err := pipeline.History().Forget(label); err != nil {
			logger.Error("Failed to forget %s: %v", label, err)
			writeError(w, logger, http.StatusInternalServerError, "failed to delete capture")
			return
		}

		logger.Info("Deleted capture of %s", label)
		if manager != nil {
			manager.Notify(gameEvent(pipeline, "delete", label))
		}
		writeJSON(w, logger, http.StatusOK, gameState(pipeline))
	}
}

func discardCapture(w http.ResponseWriter, manager *service.Manager, pipeline *capture.Pipeline, store *storage.Store, logger *logger.Logger, id string) {
	c, orphaned, err := pipeline.History().Discard(id)
	switch {
	case errors.Is(err, registry.ErrHistoryDisabled):
		writeError(w, logger, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, registry.ErrCaptureNotFound):
		writeError(w, logger, http.StatusNotFound, err.Error())
		return
	case err != nil:
		logger.Error("Failed to delete capture %s: %v", id, err)
		writeError(w, logger, http.StatusInternalServerError, "failed to delete capture")
		return
	}

	if orphaned {
		if path, err := store.Path(filepath.Base(c.FilePath)); err == nil {
			if err := store.Remove(path); err != nil {
				logger.Error("Failed to delete file of capture %s: %v", id, err)
			}
		}
	}

	logger.Info("Deleted capture %s of %s", id, c.Category)
	if manager != nil {
		manager.Notify(gameEvent(pipeline, "delete", c.Category))
	}
	writeJSON(w, logger, http.StatusOK, gameState(pipeline))
}

// ClearCapturesHandler starts the game over.
func ClearCapturesHandler(manager *service.Manager, pipeline *capture.Pipeline, store *storage.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost, http.MethodDelete) {
			return
		}

		removed, err := store.RemoveCategory(pipeline.Game().Labels()...)
		if err != nil {
			logger.Error("Failed to delete capture files: %v", err)
		}
		if err := pipeline.History().ForgetAll(); err != nil {
			logger.Error("Failed to clear capture history: %v", err)
			writeError(w, logger, http.StatusInternalServerError, "failed to clear captures")
			return
		}

		logger.Info("Cleared game %s, %d file(s) removed", pipeline.Game().Name, removed)
		if manager != nil {
			manager.Notify(gameEvent(pipeline, "clear", ""))
		}
		writeJSON(w, logger, http.StatusOK, gameState(pipeline))
	}
}
