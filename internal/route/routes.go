package route

import (
	"net/http"
	"os"
	"path/filepath"

	"blockcam/internal/config"
	"blockcam/internal/handler"
	"blockcam/internal/logger"
	"blockcam/internal/middleware"
	"blockcam/internal/repository"
	"blockcam/internal/service"
	"blockcam/internal/service/capture"
	"blockcam/internal/service/narration"
	"blockcam/internal/service/storage"
)

// Dependencies are the services the HTTP surface needs. Frames, CaptureRepo
// and DetectionRepo may be nil.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	Manager       *service.Manager
	Pipeline      *capture.Pipeline
	Store         *storage.Store
	Narration     *narration.Service
	Frames        handler.FrameSizer
	CaptureRepo   repository.CaptureRepository
	DetectionRepo repository.DetectionRepository
	DetectorReady bool
	StaticDir     string
}

// dynamicHTMLHandler serves /path as <dir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(dir, filepath.Clean("/"+path)+".html")
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving and API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(d Dependencies) http.Handler {
	cfg, log, p := d.Config, d.Logger, d.Pipeline
	static := d.StaticDir
	if static == "" {
		static = "static"
	}

	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(static))))

	// Game and capture
	mux.HandleFunc("/api/game", handler.GameStateHandler(p, log))
	mux.HandleFunc("/api/capture", handler.CaptureHandler(d.Manager, p, log))
	mux.HandleFunc("/api/capture/upload", handler.CaptureUploadHandler(d.Manager, p, log))

	// History
	mux.HandleFunc("/api/captures", handler.GetCapturesHandler(p, d.Store, log, d.CaptureRepo, d.DetectionRepo))
	mux.HandleFunc("/api/captures/view", handler.ViewCaptureHandler(p, d.Store, d.CaptureRepo))
	mux.HandleFunc("/api/captures/delete", handler.DeleteCaptureHandler(d.Manager, p, d.Store, log))
	mux.HandleFunc("/api/captures/clear", handler.ClearCapturesHandler(d.Manager, p, d.Store, log))

	// Preview
	mux.HandleFunc("/api/preview/layout", handler.PreviewLayoutHandler(p, d.Frames, cfg, log))
	mux.HandleFunc("/api/preview/map", handler.PreviewMapHandler(log))
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(d.Manager, log))

	// Trivia
	mux.HandleFunc("/api/facts", handler.FactHandler(p, log))
	mux.HandleFunc("/api/narration", handler.NarrationHandler(p, d.Narration, log))
	mux.HandleFunc("/api/narration/speech", handler.SpeechHandler(p, d.Narration, log))

	// Log endpoints
	for name, file := range map[string]string{
		"info":    logger.InfoFile,
		"warning": logger.WarningFile,
		"error":   logger.ErrorFile,
	} {
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(log, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	mux.HandleFunc("/health", handler.HealthHandler(p, d.Frames, d.Manager, d.DetectorReady, log))

	// Automatic HTML handler mapping for example: /settings -> static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler(static))

	return middleware.Auth(cfg.Password)(mux)
}
