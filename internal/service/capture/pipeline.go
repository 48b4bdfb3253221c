// Package capture turns a camera frame into the cut-out image of the block
// object a child is holding up.
package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"blockcam/internal/catalog"
	"blockcam/internal/config"
	"blockcam/internal/dto"
	"blockcam/internal/logger"
	"blockcam/internal/model"
	"blockcam/internal/preview"
	"blockcam/internal/service/ai"
	"blockcam/internal/service/camera"
	"blockcam/internal/service/matting"
	"blockcam/internal/service/registry"
	"blockcam/internal/service/storage"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// FrameSource provides the most recent camera frame.
type FrameSource interface {
	LastFrame() (image.Image, time.Time, error)
}

// Result describes an accepted capture.
type Result struct {
	ID         string
	Category   string
	Mode       catalog.Mode
	File       storage.File
	Trimmed    bool
	Detection  *dto.DetectionResult
	PreviewBox *preview.Rect // Detection on the preview screen, nil when it cannot be placed
	Capture    *model.Capture
}

// Pipeline runs captures one at a time.
type Pipeline struct {
	game     *catalog.Game
	detector ai.Detector
	remover  matting.Remover
	store    *storage.Store
	history  *registry.History
	frames   FrameSource
	logger   *logger.Logger

	threshold float64
	padding   int
	area      image.Rectangle
	fit       bool
	guideW    float64
	guideH    float64
	now       func() time.Time
	mu        sync.Mutex
}

// NewPipeline wires a pipeline for game. detector may be nil when no model
// could be loaded; detect-mode captures then fail with ai.ErrNotInitialized.
func NewPipeline(cfg *config.Config, game *catalog.Game, detector ai.Detector, remover matting.Remover, store *storage.Store, history *registry.History, frames FrameSource, log *logger.Logger) *Pipeline {
	return &Pipeline{
		game:      game,
		detector:  detector,
		remover:   remover,
		store:     store,
		history:   history,
		frames:    frames,
		logger:    log,
		threshold: cfg.ConfidenceThreshold,
		padding:   cfg.CropPadding,
		area:      image.Rect(cfg.PreviewX, cfg.PreviewY, cfg.PreviewX+cfg.PreviewWidth, cfg.PreviewY+cfg.PreviewHeight),
		fit:       cfg.PreviewFit,
		guideW:    cfg.GuideWidthRatio,
		guideH:    cfg.GuideHeightRatio,
		now:       time.Now,
	}
}

// Game returns the game the pipeline captures for.
func (p *Pipeline) Game() *catalog.Game {
	return p.game
}

// History returns the capture history the pipeline records into.
func (p *Pipeline) History() *registry.History {
	return p.history
}

// Layout returns how a frameW x frameH frame is drawn in the preview area.
func (p *Pipeline) Layout(frameW, frameH int) (preview.Layout, error) {
	if p.fit {
		return preview.Fit(p.area.Min.X, p.area.Min.Y, p.area.Dx(), p.area.Dy(), frameW, frameH)
	}
	if frameW <= 0 || frameH <= 0 {
		return preview.Layout{}, fmt.Errorf("%w: %dx%d", preview.ErrInvalidFrame, frameW, frameH)
	}
	return preview.Stretch(p.area.Min.X, p.area.Min.Y, p.area.Dx(), p.area.Dy()), nil
}

// Guide returns the on-screen guide rectangle for a layout.
func (p *Pipeline) Guide(l preview.Layout) preview.Rect {
	return preview.Guide(l, p.area.Dx(), p.area.Dy(), p.guideW, p.guideH)
}

// Capture processes the camera's last frame for label.
func (p *Pipeline) Capture(ctx context.Context, label string, force bool) (*Result, error) {
	if p.frames == nil {
		return nil, fmt.Errorf("%w: no camera", camera.ErrNoFrame)
	}
	frame, _, err := p.frames.LastFrame()
	if err != nil {
		return nil, err
	}
	return p.CaptureImage(ctx, label, frame, force)
}

// CaptureImage processes img for label. Unless force is set, a category
// that already has an image is refused.
func (p *Pipeline) CaptureImage(ctx context.Context, label string, img image.Image, force bool) (*Result, error) {
	if label == "" {
		return nil, ErrNoCategory
	}
	cat, err := p.game.Category(label)
	if err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty frame", camera.ErrNoFrame)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// checked under mu so a double-tapped shutter records only once
	if _, ok := p.history.Get(label); ok && !force {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCaptured, label)
	}

	start := p.now()
	var res *Result
	switch cat.Mode {
	case catalog.ModeGuide:
		res, err = p.guide(label, img)
	default:
		res, err = p.detect(ctx, label, img)
	}
	if err != nil {
		p.logger.Warning("Capture of %s failed: %v", label, err)
		return nil, err
	}
	p.logger.Info("Captured %s as %s in %v", label, res.File.Name, p.now().Sub(start).Round(time.Millisecond))
	return res, nil
}

func (p *Pipeline) detect(ctx context.Context, label string, img image.Image) (*Result, error) {
	if p.detector == nil {
		return nil, ai.ErrNotInitialized
	}

	temp, err := p.store.SaveTemp(label, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSave, err)
	}
	defer func() {
		if err := p.store.Remove(temp.Path); err != nil {
			p.logger.Warning("Could not delete %s: %v", temp.Name, err)
		}
	}()

	dets, err := p.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetection, err)
	}
	best, err := ai.SelectBest(dets, label, p.threshold)
	if err != nil {
		return nil, err
	}

	box := best.Rect().Inset(-p.padding).Intersect(img.Bounds())
	if box.Dx() <= 0 || box.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCrop, best.Rect())
	}
	crop := imaging.Crop(img, box)
	if crop.Bounds().Empty() {
		return nil, ErrEmptyCrop
	}

	removed, err := p.remover.Remove(ctx, crop)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackgroundRemoval, err)
	}

	result, err := p.store.SaveResult(label, removed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSave, err)
	}

	final, trimmed := result, false
	if t, err := matting.Trim(removed); err != nil {
		p.logger.Warning("Trimming %s failed, keeping untrimmed image: %v", label, err)
	} else if saved, err := p.store.SaveTrimmed(label, t); err != nil {
		p.logger.Warning("Saving trimmed %s failed, keeping untrimmed image: %v", label, err)
	} else {
		final, trimmed = saved, true
	}

	records := make([]model.Detection, 0, len(dets))
	for _, d := range dets {
		records = append(records, model.Detection{
			Label:      d.Label,
			X:          d.X,
			Y:          d.Y,
			Width:      d.Width,
			Height:     d.Height,
			Confidence: d.Confidence,
			Selected:   d == best,
		})
	}

	res, err := p.record(label, catalog.ModeDetect, final, records)
	if err != nil {
		return nil, err
	}
	res.Trimmed = trimmed
	res.Detection = &best
	res.PreviewBox = p.previewBox(best.Rect(), img.Bounds())
	return res, nil
}

func (p *Pipeline) previewBox(r, frame image.Rectangle) *preview.Rect {
	layout, err := p.Layout(frame.Dx(), frame.Dy())
	if err != nil {
		return nil
	}
	box, err := preview.ToPreview(r.Sub(frame.Min), layout, frame.Dx(), frame.Dy())
	if err != nil {
		p.logger.Warning("Could not place detection box on preview: %v", err)
		return nil
	}
	return &box
}

func (p *Pipeline) guide(label string, img image.Image) (*Result, error) {
	b := img.Bounds()
	layout, err := p.Layout(b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCrop, err)
	}
	r, err := preview.ToFrame(p.Guide(layout), layout, b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCrop, err)
	}

	crop := imaging.Crop(img, r.Add(b.Min))
	if crop.Bounds().Empty() {
		return nil, ErrEmptyCrop
	}

	saved, err := p.store.SaveGuide(label, crop, p.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSave, err)
	}
	return p.record(label, catalog.ModeGuide, saved, nil)
}

func (p *Pipeline) record(label string, mode catalog.Mode, f storage.File, dets []model.Detection) (*Result, error) {
	c := &model.Capture{
		UUID:      uuid.NewString(),
		Category:  label,
		Mode:      string(mode),
		Filename:  f.Name,
		FilePath:  f.Path,
		FileSize:  f.Size,
		Timestamp: p.now(),
	}
	if err := p.history.Record(c, dets); err != nil {
		return nil, err
	}
	return &Result{ID: c.UUID, Category: label, Mode: mode, File: f, Capture: c}, nil
}
