package camera

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"blockcam/internal/config"
	"blockcam/internal/logger"

	"github.com/disintegration/imaging"
)

// FrameHandler receives every kept frame.
type FrameHandler func(img image.Image, camera string)

// Poller reads a Source on its own goroutine and keeps every Nth frame.
type Poller struct {
	src      Source
	interval time.Duration
	nth      int
	logger   *logger.Logger

	handlers []FrameHandler
	last     image.Image
	lastAt   time.Time
	count    int
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewPoller creates a poller reading src at cfg.FrameIntervalMs and keeping
// every cfg.ProcessEveryNth frame.
func NewPoller(src Source, cfg *config.Config, log *logger.Logger) *Poller {
	interval := time.Duration(cfg.FrameIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Millisecond
	}
	nth := cfg.ProcessEveryNth
	if nth <= 0 {
		nth = 1
	}
	return &Poller{src: src, interval: interval, nth: nth, logger: log}
}

// OnFrame registers a handler called with every kept frame. Must be called before Run.
func (p *Poller) OnFrame(h FrameHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Name returns the camera name.
func (p *Poller) Name() string {
	return p.src.Name()
}

// Start runs the poller on its own goroutine. Wait blocks until it returned.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("Camera poller for %s stopped: %v", p.src.Name(), err)
		}
	}()
}

// Wait blocks until the goroutine started by Start is no longer reading, so
// the source can be closed safely.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Run reads frames until ctx is cancelled or the source is closed.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Camera poller started for %s (every %v, keeping 1/%d)", p.src.Name(), p.interval, p.nth)
	failures := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Camera poller stopped for %s", p.src.Name())
			return ctx.Err()
		case <-ticker.C:
		}

		img, err := p.src.Read()
		if errors.Is(err, ErrSourceDone) {
			return err
		}
		if errors.Is(err, ErrNoFrame) {
			// network sources have nothing new between frames
			continue
		}
		if err != nil {
			failures++
			if failures == 1 || failures%100 == 0 {
				p.logger.Warning("Camera %s read failed (%d in a row): %v", p.src.Name(), failures, err)
			}
			continue
		}
		failures = 0
		p.keep(img)
	}
}

func (p *Poller) keep(img image.Image) {
	p.mu.Lock()
	p.count++
	if p.count%p.nth != 0 {
		p.mu.Unlock()
		return
	}
	p.count = 0
	p.last = img
	p.lastAt = time.Now()
	handlers := p.handlers
	p.mu.Unlock()

	for _, h := range handlers {
		h(img, p.src.Name())
	}
}

// LastFrame returns a copy of the most recent kept frame.
func (p *Poller) LastFrame() (image.Image, time.Time, error) {
	p.mu.RLock()
	last, at := p.last, p.lastAt
	p.mu.RUnlock()

	if last == nil {
		return nil, time.Time{}, ErrNoFrame
	}
	return imaging.Clone(last), at, nil
}

// FrameSize returns the size of the most recent kept frame.
func (p *Poller) FrameSize() (int, int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return 0, 0, ErrNoFrame
	}
	b := p.last.Bounds()
	return b.Dx(), b.Dy(), nil
}
