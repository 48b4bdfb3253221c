// Package service ties the camera poller to the live preview stream.
package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"blockcam/internal/config"
	"blockcam/internal/dto"
	"blockcam/internal/logger"
	"blockcam/internal/service/websocket"

	"github.com/disintegration/imaging"
)

const (
	previewQuality   = 80
	previewQueueSize = 4
)

type Manager struct {
	websocketService *websocket.HubService
	logger           *logger.Logger

	processingQueue chan previewTask
	width, height   int
	fit             bool
	numWorkers      int

	dropped atomic.Int64
	stopped bool
	stopMu  sync.RWMutex
	wg      sync.WaitGroup
}

type previewTask struct {
	Image  image.Image
	Camera string
	At     time.Time
}

// NewManager starts cfg.PreviewWorkers encoders feeding websocketService.
func NewManager(websocketService *websocket.HubService, cfg *config.Config, logger *logger.Logger) *Manager {
	workers := cfg.PreviewWorkers
	if workers <= 0 {
		workers = 1
	}
	manager := &Manager{
		websocketService: websocketService,
		logger:           logger,
		processingQueue:  make(chan previewTask, previewQueueSize),
		width:            cfg.PreviewWidth,
		height:           cfg.PreviewHeight,
		fit:              cfg.PreviewFit,
		numWorkers:       workers,
	}

	for i := 0; i < manager.numWorkers; i++ {
		manager.wg.Add(1)
		go manager.processingWorker(i)
	}

	manager.logger.Info("Preview manager started with %d worker(s)", manager.numWorkers)
	return manager
}

// HandleFrame queues a kept camera frame for the viewers. Frames are dropped
// while nobody is watching or the encoders are busy.
func (m *Manager) HandleFrame(img image.Image, camera string) {
	if m.websocketService.GetClientCount() == 0 {
		return
	}

	m.stopMu.RLock()
	defer m.stopMu.RUnlock()
	if m.stopped {
		return
	}

	select {
	case m.processingQueue <- previewTask{Image: img, Camera: camera, At: time.Now()}:
	default:
		if n := m.dropped.Add(1); n%100 == 1 {
			m.logger.Warning("Preview queue full for camera %s, %d frame(s) dropped so far", camera, n)
		}
	}
}

// Notify sends a game event to every viewer.
func (m *Manager) Notify(event dto.GameEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("Failed to encode event: %v", err)
		return
	}
	if !m.websocketService.Publish(msg) {
		m.logger.Warning("Viewer hub stopped, %s event not sent", event.Type)
	}
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

// Dropped reports how many frames never reached the encoders.
func (m *Manager) Dropped() int64 {
	return m.dropped.Load()
}

func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	for task := range m.processingQueue {
		msg, err := m.encode(task)
		if err != nil {
			m.logger.Error("Worker %d failed to encode preview: %v", workerID, err)
			continue
		}
		if !m.websocketService.Broadcast(msg) {
			m.dropped.Add(1)
		}
	}
}

func (m *Manager) encode(task previewTask) ([]byte, error) {
	img := task.Image
	if m.width > 0 && m.height > 0 {
		if m.fit {
			img = imaging.Fit(img, m.width, m.height, imaging.Linear)
		} else {
			img = imaging.Resize(img, m.width, m.height, imaging.Linear)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return nil, err
	}

	b := img.Bounds()
	return json.Marshal(dto.PreviewFrame{
		Type:      "frame",
		Camera:    task.Camera,
		Timestamp: task.At.UnixMilli(),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Image:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

// Stop drains the queue and waits for the workers.
func (m *Manager) Stop() {
	m.stopMu.Lock()
	if m.stopped {
		m.stopMu.Unlock()
		return
	}
	m.stopped = true
	close(m.processingQueue)
	m.stopMu.Unlock()

	m.wg.Wait()
	m.logger.Info("Preview workers stopped")
}
