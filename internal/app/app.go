package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"blockcam/internal/catalog"
	"blockcam/internal/config"
	"blockcam/internal/logger"
	"blockcam/internal/repository/sqlite"
	"blockcam/internal/route"
	"blockcam/internal/service"
	"blockcam/internal/service/ai"
	"blockcam/internal/service/ai/dnn"
	"blockcam/internal/service/ai/onnx"
	"blockcam/internal/service/camera"
	"blockcam/internal/service/camera/device"
	"blockcam/internal/service/capture"
	"blockcam/internal/service/matting"
	"blockcam/internal/service/narration"
	"blockcam/internal/service/registry"
	"blockcam/internal/service/storage"
	"blockcam/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger *logger.Logger
	game   *catalog.Game

	db         *sqlite.DB
	store      *storage.Store
	detector   ai.Detector
	source     camera.Source
	udpSource  *camera.UDPSource
	poller     *camera.Poller
	hubService *websocket.HubService
	manager    *service.Manager
	pipeline   *capture.Pipeline
	narration  *narration.Service
	router     http.Handler
}

// NewApp loads the configuration and wires every service. A missing camera
// or model is logged and tolerated: uploads and guide captures still work.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{config: cfg, logger: log}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.game, err = cat.Game(cfg.Game); err != nil {
		a.Close()
		return nil, err
	}

	if a.db, err = sqlite.New(cfg.DatabasePath); err != nil {
		a.Close()
		return nil, err
	}
	captureRepo := sqlite.NewCaptureRepository(a.db)
	detectionRepo := sqlite.NewDetectionRepository(a.db)

	if a.store, err = storage.NewStore(cfg, log); err != nil {
		a.Close()
		return nil, err
	}

	history := registry.NewHistory(registry.New(a.game.Labels()), a.game.Name, captureRepo, detectionRepo, log)
	if cfg.RestoreCaptures {
		n, err := history.Restore()
		if err != nil {
			log.Error("Failed to restore captures: %v", err)
		} else {
			log.Info("Restored %d capture(s) for %s", n, a.game.Name)
		}
	}

	a.detector = a.newDetector()
	remover := a.newRemover()

	a.hubService = websocket.NewHubService(log)
	a.manager = service.NewManager(a.hubService, cfg, log)

	var frames capture.FrameSource
	if err := a.openCamera(); err != nil {
		log.Warning("Running without a camera: %v", err)
	} else {
		a.poller = camera.NewPoller(a.source, cfg, log)
		a.poller.OnFrame(a.manager.HandleFrame)
		frames = a.poller
	}

	a.pipeline = capture.NewPipeline(cfg, a.game, a.detector, remover, a.store, history, frames, log)
	a.narration = a.newNarration()

	deps := route.Dependencies{
		Config:        cfg,
		Logger:        log,
		Manager:       a.manager,
		Pipeline:      a.pipeline,
		Store:         a.store,
		Narration:     a.narration,
		CaptureRepo:   captureRepo,
		DetectionRepo: detectionRepo,
		DetectorReady: a.detector != nil,
	}
	if a.poller != nil {
		deps.Frames = a.poller
	}
	a.router = route.SetupRoutes(deps)

	return a, nil
}

func (a *App) newDetector() ai.Detector {
	var (
		d   ai.Detector
		err error
	)
	switch a.config.DetectorBackend {
	case "dnn":
		var det *dnn.Detector
		if det, err = dnn.NewDetector(a.config, a.logger); err == nil {
			d = det
		}
	case "onnx":
		var det *onnx.Detector
		if det, err = onnx.NewDetector(a.config, a.logger); err == nil {
			d = det
		}
	default:
		err = fmt.Errorf("unknown detector backend %q", a.config.DetectorBackend)
	}
	if err != nil {
		a.logger.Error("Detector unavailable, detect-mode captures will fail: %v", err)
		return nil
	}

	var wanted []string
	for _, c := range a.game.Categories {
		if c.Mode == catalog.ModeDetect {
			wanted = append(wanted, c.Label)
		}
	}
	if missing := ai.MissingLabels(d.Labels(), wanted); len(missing) > 0 {
		a.logger.Warning("Model %s cannot detect %v", a.config.ModelPath, missing)
	}
	a.logger.Info("Detector %s loaded with %d labels", a.config.DetectorBackend, len(d.Labels()))
	return d
}

func (a *App) newRemover() matting.Remover {
	if a.config.Remover == "rembg" {
		a.logger.Info("Background removal via rembg at %s", a.config.RembgURL)
		return matting.NewRembgRemover(a.config.RembgURL)
	}
	return matting.NewColorKeyRemover(a.config.BackgroundTolerance, a.config.FeatherRadius)
}

func (a *App) openCamera() error {
	if a.config.CameraUDPAddr != "" {
		src, err := camera.ListenUDP(a.config.CameraUDPAddr, a.logger)
		if err != nil {
			return err
		}
		a.udpSource = src
		a.source = src
		return nil
	}

	src, err := camera.OpenFirst(a.config.CameraIndexes, device.Opener(a.config.CameraWidth, a.config.CameraHeight), a.logger)
	if err != nil {
		return err
	}
	a.source = src
	return nil
}

func (a *App) newNarration() *narration.Service {
	var narrator narration.Narrator
	if a.config.GeminiAPIKey != "" {
		narrator = narration.NewGemini(a.config.GeminiAPIKey, a.config.GeminiModel)
	}
	var speaker narration.Speaker
	if a.config.VoicevoxURL != "" {
		speaker = narration.NewVoicevox(a.config.VoicevoxURL, a.config.VoicevoxSpeaker)
	}
	return narration.NewService(narrator, speaker, a.logger)
}

// Run starts the background services and serves HTTP until ctx is done.
// Background services stop when Run returns, also when the server failed.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.store.Run(ctx)
	go a.hubService.Run(ctx)
	if a.udpSource != nil {
		go a.udpSource.Run(ctx)
	}
	if a.poller != nil {
		a.poller.Start(ctx)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("Block camera server\n")
	fmt.Printf("URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("Game: %s (%d categories)\n", a.game.Name, len(a.game.Categories))
	fmt.Printf("Output: %s\n", a.store.Dir())
	fmt.Printf("Detector: %s %s\n", a.config.DetectorBackend, a.config.ModelPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Close releases the camera, the model, the database and the log files.
func (a *App) Close() {
	if a.manager != nil {
		a.manager.Stop()
	}
	if a.poller != nil {
		a.poller.Wait()
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warning("Closing camera: %v", err)
		}
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.logger.Warning("Closing detector: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warning("Closing database: %v", err)
		}
	}
	a.logger.Close()
}
