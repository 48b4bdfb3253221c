package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"blockcam/internal/logger"
	"blockcam/internal/model"
	"blockcam/internal/repository"
)

var (
	ErrHistoryDisabled = errors.New("capture history is disabled")
	ErrCaptureNotFound = errors.New("capture not found")
)

// History couples the in-memory registry with the capture repositories so
// every accepted capture is also kept in the database.
type History struct {
	*Registry
	game       string
	captures   repository.CaptureRepository
	detections repository.DetectionRepository
	logger     *logger.Logger
}

// NewHistory wraps reg for game; captures may be nil to keep history in memory only.
func NewHistory(reg *Registry, game string, captures repository.CaptureRepository, detections repository.DetectionRepository, log *logger.Logger) *History {
	return &History{
		Registry:   reg,
		game:       game,
		captures:   captures,
		detections: detections,
		logger:     log,
	}
}

// Game returns the game whose captures are recorded.
func (h *History) Game() string {
	return h.game
}

// Record stores the capture and its detections, then makes it the current
// image of its category.
func (h *History) Record(c *model.Capture, dets []model.Detection) error {
	if err := h.known(c.Category); err != nil {
		return err
	}
	c.Game = h.game

	if h.captures != nil {
		id, err := h.captures.Insert(c)
		if err != nil {
			return fmt.Errorf("failed to record capture: %w", err)
		}
		c.ID = id

		if h.detections != nil && len(dets) > 0 {
			for i := range dets {
				dets[i].CaptureID = id
			}
			if err := h.detections.InsertBatch(dets); err != nil {
				h.logger.Warning("Could not record detections for %s: %v", c.Category, err)
			}
		}
	}

	return h.Set(c.Category, c.FilePath)
}

// Restore sets every category to its newest recorded capture whose file
// still exists.
func (h *History) Restore() (int, error) {
	if h.captures == nil {
		return 0, nil
	}
	restored := 0
	for _, label := range h.labels {
		c, err := h.captures.GetLatestByCategory(h.game, label)
		if err != nil {
			return restored, err
		}
		if c == nil {
			continue
		}
		if _, err := os.Stat(c.FilePath); errors.Is(err, fs.ErrNotExist) {
			h.logger.Warning("Skipping restore of %s: %s is gone", label, c.FilePath)
			continue
		}
		if err := h.Set(label, c.FilePath); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

// Forget clears a category and drops its recorded history.
func (h *History) Forget(label string) error {
	if err := h.Clear(label); err != nil {
		return err
	}
	if h.captures != nil {
		if err := h.captures.DeleteByCategory(h.game, label); err != nil {
			return fmt.Errorf("failed to delete history of %s: %w", label, err)
		}
	}
	return nil
}

// ForgetAll resets the registry and drops the recorded history of the game.
func (h *History) ForgetAll() error {
	h.Reset()
	if h.captures == nil {
		return nil
	}
	for _, label := range h.labels {
		if err := h.captures.DeleteByCategory(h.game, label); err != nil {
			return fmt.Errorf("failed to delete history of %s: %w", label, err)
		}
	}
	return nil
}

// Discard drops one recorded capture of the game by its public id. Capture
// files can be shared by several records since a retake overwrites the
// same name, so orphaned reports whether no record uses the file anymore.
// An orphaned file that was the current image also clears its category.
func (h *History) Discard(id string) (c *model.Capture, orphaned bool, err error) {
	if h.captures == nil {
		return nil, false, ErrHistoryDisabled
	}
	c, err = h.captures.GetByUUID(id)
	if err != nil {
		return nil, false, err
	}
	if c == nil || c.Game != h.game {
		return nil, false, fmt.Errorf("%w: %s", ErrCaptureNotFound, id)
	}
	if err := h.captures.Delete(c.ID); err != nil {
		return nil, false, fmt.Errorf("failed to delete capture %s: %w", id, err)
	}

	shared, err := h.captures.GetByFilePath(h.game, c.FilePath)
	if err != nil {
		return c, false, err
	}
	if shared != nil {
		return c, false, nil
	}
	if p, ok := h.Get(c.Category); ok && p == c.FilePath {
		if err := h.Clear(c.Category); err != nil {
			return c, true, err
		}
	}
	return c, true, nil
}
