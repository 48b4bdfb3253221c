package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blockcam/internal/catalog"
	"blockcam/internal/config"
	"blockcam/internal/dto"
	"blockcam/internal/logger"
	"blockcam/internal/middleware"
	"blockcam/internal/repository/sqlite"
	"blockcam/internal/service"
	"blockcam/internal/service/camera"
	"blockcam/internal/service/capture"
	"blockcam/internal/service/narration"
	"blockcam/internal/service/registry"
	"blockcam/internal/service/storage"
	"blockcam/internal/service/websocket"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	dets []dto.DetectionResult
}

func (f *fakeDetector) Detect(ctx context.Context, img image.Image) ([]dto.DetectionResult, error) {
	return f.dets, nil
}
func (f *fakeDetector) Labels() []string { return []string{"house", "cars"} }
func (f *fakeDetector) Close() error     { return nil }

// lightKey makes light pixels transparent.
type lightKey struct{}

func (lightKey) Remove(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i+1] > 128 {
			out.Pix[i+3] = 0
		}
	}
	return out, nil
}

type fakeFrames struct {
	img image.Image
}

func (f fakeFrames) LastFrame() (image.Image, time.Time, error) {
	if f.img == nil {
		return nil, time.Time{}, camera.ErrNoFrame
	}
	return f.img, time.Now(), nil
}

func (f fakeFrames) FrameSize() (int, int, error) {
	if f.img == nil {
		return 0, 0, camera.ErrNoFrame
	}
	b := f.img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// scene is a white 100x80 frame with a red 30x30 block at (30,20).
func scene() *image.NRGBA {
	img := imaging.New(100, 80, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
	for y := 20; y < 50; y++ {
		for x := 30; x < 60; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 20, B: 20, A: 255})
		}
	}
	return img
}

type fixture struct {
	cfg           *config.Config
	log           *logger.Logger
	pipeline      *capture.Pipeline
	store         *storage.Store
	manager       *service.Manager
	detector      *fakeDetector
	frames        fakeFrames
	captureRepo   *sqlite.CaptureRepository
	detectionRepo *sqlite.DetectionRepository
}

func newFixture(t *testing.T, gameName string) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		OutputDirectory:     filepath.Join(dir, "out"),
		LogDirectory:        filepath.Join(dir, "logs"),
		ConfidenceThreshold: 0.3,
		CropPadding:         10,
		PreviewX:            400,
		PreviewY:            50,
		PreviewWidth:        300,
		PreviewHeight:       300,
		GuideWidthRatio:     0.85,
		GuideHeightRatio:    0.70,
		PreviewWorkers:      1,
	}
	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	cat, err := catalog.Load("")
	require.NoError(t, err)
	game, err := cat.Game(gameName)
	require.NoError(t, err)

	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	captureRepo := sqlite.NewCaptureRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	store, err := storage.NewStore(cfg, log)
	require.NoError(t, err)
	history := registry.NewHistory(registry.New(game.Labels()), game.Name, captureRepo, detectionRepo, log)

	det := &fakeDetector{dets: []dto.DetectionResult{
		{Label: "house", Confidence: 0.9, X: 0, Y: 0, Width: 10, Height: 10},
		{Label: "cars", Confidence: 0.8, X: 30, Y: 20, Width: 30, Height: 30},
	}}
	frames := fakeFrames{img: scene()}

	hub := websocket.NewHubService(log)
	hubCtx, stopHub := context.WithCancel(context.Background())
	t.Cleanup(stopHub)
	go hub.Run(hubCtx)
	manager := service.NewManager(hub, cfg, log)
	t.Cleanup(manager.Stop)

	return &fixture{
		cfg:           cfg,
		log:           log,
		pipeline:      capture.NewPipeline(cfg, game, det, lightKey{}, store, history, frames, log),
		store:         store,
		manager:       manager,
		detector:      det,
		frames:        frames,
		captureRepo:   captureRepo,
		detectionRepo: detectionRepo,
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (f *fixture) capture(t *testing.T, label string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/capture?category="+label, nil)
	CaptureHandler(f.manager, f.pipeline, f.log)(rec, req)
	return rec
}

func TestGameStateHandler(t *testing.T) {
	f := newFixture(t, "town")

	rec := httptest.NewRecorder()
	GameStateHandler(f.pipeline, f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/game", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	state := decode[dto.GameState](t, rec)
	assert.Equal(t, "town", state.Game)
	assert.Equal(t, "image/town.jpg", state.Background)
	require.Len(t, state.Categories, 2)
	assert.Equal(t, "house", state.Categories[0].Label)
	assert.False(t, state.Categories[0].Captured)
	assert.False(t, state.Complete)

	rec = httptest.NewRecorder()
	GameStateHandler(f.pipeline, f.log)(rec, httptest.NewRequest(http.MethodPost, "/api/game", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCaptureHandler_Success(t *testing.T) {
	f := newFixture(t, "town")

	rec := f.capture(t, "cars")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[dto.CaptureResult](t, rec)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "cars をみつけた！", res.Message)
	assert.Equal(t, []string{"cars"}, res.Captured)
	assert.Equal(t, "image/car_less.jpg", res.Background)
	assert.Equal(t, "/api/captures/view?category=cars", res.ImageURL)
	assert.True(t, res.Trimmed)
	require.NotNil(t, res.Detection)
	assert.Equal(t, "cars", res.Detection.Label)
	require.NotNil(t, res.PreviewBox)
	assert.Less(t, res.PreviewBox.X1, res.PreviewBox.X2)
	assert.Less(t, res.PreviewBox.Y1, res.PreviewBox.Y2)

	rec = httptest.NewRecorder()
	GameStateHandler(f.pipeline, f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/game", nil))
	state := decode[dto.GameState](t, rec)
	assert.True(t, state.Categories[1].Captured)
	assert.Equal(t, res.ImageURL, state.Categories[1].ImageURL)
}

func TestCaptureHandler_Errors(t *testing.T) {
	f := newFixture(t, "town")
	require.Equal(t, http.StatusOK, f.capture(t, "cars").Code)

	tests := []struct {
		name    string
		label   string
		status  int
		message string
	}{
		{"no category", "", http.StatusBadRequest, "エラー: フラッグが選択されていません"},
		{"unknown category", "Japan", http.StatusBadRequest, "エラー: 不明なブロックです"},
		{"already captured", "cars", http.StatusConflict, "もう とったよ！ とりなおすなら けしてからね"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.capture(t, tt.label)
			assert.Equal(t, tt.status, rec.Code)
			res := decode[dto.CaptureResult](t, rec)
			assert.Equal(t, "error", res.Status)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, []string{"cars"}, res.Captured)
		})
	}

	f.detector.dets = []dto.DetectionResult{{Label: "cars", Confidence: 0.9, X: 30, Y: 20, Width: 30, Height: 30}}
	rec := f.capture(t, "house")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "うーん、ちがうものみたい？ もういちど！", decode[dto.CaptureResult](t, rec).Message)

	rec = httptest.NewRecorder()
	CaptureHandler(f.manager, f.pipeline, f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/capture?category=house", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCaptureStatus(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, captureStatus(camera.ErrNoFrame))
	assert.Equal(t, http.StatusGatewayTimeout, captureStatus(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, captureStatus(capture.ErrSave))
}

func multipartImage(t *testing.T, field string, img image.Image, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if img != nil {
		fw, err := mw.CreateFormFile(field, "frame.png")
		require.NoError(t, err)
		require.NoError(t, imaging.Encode(fw, img, imaging.PNG))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestCaptureUploadHandler(t *testing.T) {
	f := newFixture(t, "town")

	body, ct := multipartImage(t, "image", scene(), map[string]string{"category": "cars"})
	req := httptest.NewRequest(http.MethodPost, "/api/capture/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	CaptureUploadHandler(f.manager, f.pipeline, f.log)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", decode[dto.CaptureResult](t, rec).Status)

	body, ct = multipartImage(t, "image", nil, map[string]string{"category": "house"})
	req = httptest.NewRequest(http.MethodPost, "/api/capture/upload", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	CaptureUploadHandler(f.manager, f.pipeline, f.log)(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCapturesHandler(t *testing.T) {
	f := newFixture(t, "town")
	require.Equal(t, http.StatusOK, f.capture(t, "cars").Code)

	rec := httptest.NewRecorder()
	GetCapturesHandler(f.pipeline, f.store, f.log, f.captureRepo, f.detectionRepo)(rec, httptest.NewRequest(http.MethodGet, "/api/captures?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Captures []struct {
			ID         string                `json:"id"`
			Category   string                `json:"category"`
			Name       string                `json:"name"`
			Date       string                `json:"date"`
			Detections []dto.DetectionResult `json:"detections"`
		} `json:"captures"`
		Length     int `json:"length"`
		TotalPages int `json:"totalPages"`
		PageSize   int `json:"pageSize"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	require.Len(t, data.Captures, 1)
	assert.Equal(t, "cars", data.Captures[0].Category)
	assert.Equal(t, "trimmed_cars.png", data.Captures[0].Name)
	assert.Len(t, data.Captures[0].Detections, 2)
	assert.Equal(t, 1, data.Length)
	assert.Equal(t, 1, data.TotalPages)
	assert.Equal(t, 10, data.PageSize)

	rec = httptest.NewRecorder()
	GetCapturesHandler(f.pipeline, f.store, f.log, f.captureRepo, f.detectionRepo)(rec, httptest.NewRequest(http.MethodGet, "/api/captures?category=house", nil))
	assert.Equal(t, 0, decode[dto.CapturesData](t, rec).Length)

	rec = httptest.NewRecorder()
	GetCapturesHandler(f.pipeline, f.store, f.log, nil, nil)(rec, httptest.NewRequest(http.MethodGet, "/api/captures", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestViewCaptureHandler(t *testing.T) {
	f := newFixture(t, "town")
	res := decode[dto.CaptureResult](t, f.capture(t, "cars"))

	view := ViewCaptureHandler(f.pipeline, f.store, f.captureRepo)

	rec := httptest.NewRecorder()
	view(rec, httptest.NewRequest(http.MethodGet, "/api/captures/view?category=cars", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	view(rec, httptest.NewRequest(http.MethodGet, "/api/captures/view?id="+res.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, target := range []string{"/api/captures/view?category=house", "/api/captures/view?id=nope"} {
		rec = httptest.NewRecorder()
		view(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}

	rec = httptest.NewRecorder()
	view(rec, httptest.NewRequest(http.MethodGet, "/api/captures/view", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAndClearCaptures(t *testing.T) {
	f := newFixture(t, "town")
	require.Equal(t, http.StatusOK, f.capture(t, "cars").Code)

	rec := httptest.NewRecorder()
	DeleteCaptureHandler(f.manager, f.pipeline, f.store, f.log)(rec, httptest.NewRequest(http.MethodPost, "/api/captures/delete?category=cars", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[dto.GameState](t, rec)
	assert.False(t, state.Categories[1].Captured)
	assert.NoFileExists(t, filepath.Join(f.store.Dir(), "trimmed_cars.png"))
	assert.NoFileExists(t, filepath.Join(f.store.Dir(), "result_cars.png"))

	count, err := f.captureRepo.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	rec = httptest.NewRecorder()
	DeleteCaptureHandler(f.manager, f.pipeline, f.store, f.log)(rec, httptest.NewRequest(http.MethodPost, "/api/captures/delete?category=Japan", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusOK, f.capture(t, "cars").Code)
	rec = httptest.NewRecorder()
	ClearCapturesHandler(f.manager, f.pipeline, f.store, f.log)(rec, httptest.NewRequest(http.MethodPost, "/api/captures/clear", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.pipeline.History().Captured())
	entries, err := os.ReadDir(f.store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteCaptureByID(t *testing.T) {
	f := newFixture(t, "town")
	rec := f.capture(t, "cars")
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode[dto.CaptureResult](t, rec).ID
	require.NotEmpty(t, id)

	rec = httptest.NewRecorder()
	DeleteCaptureHandler(f.manager, f.pipeline, f.store, f.log)(rec, httptest.NewRequest(http.MethodPost, "/api/captures/delete?id="+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[dto.GameState](t, rec)
	assert.False(t, state.Categories[1].Captured)
	assert.NoFileExists(t, filepath.Join(f.store.Dir(), "trimmed_cars.png"))

	count, err := f.captureRepo.GetTotalCount(nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	rec = httptest.NewRecorder()
	DeleteCaptureHandler(f.manager, f.pipeline, f.store, f.log)(rec, httptest.NewRequest(http.MethodPost, "/api/captures/delete?id="+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	DeleteCaptureHandler(f.manager, f.pipeline, f.store, f.log)(rec, httptest.NewRequest(http.MethodPost, "/api/captures/delete", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewLayoutHandler(t *testing.T) {
	f := newFixture(t, "flags")

	rec := httptest.NewRecorder()
	PreviewLayoutHandler(f.pipeline, f.frames, f.cfg, f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/preview/layout", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[dto.PreviewLayout](t, rec)
	assert.Equal(t, 100, out.FrameWidth)
	assert.Equal(t, 80, out.FrameHeight)
	assert.InDelta(t, 300, out.Layout.DisplayW, 1e-9)
	assert.Less(t, out.Guide.X1, out.Guide.X2)

	rec = httptest.NewRecorder()
	PreviewLayoutHandler(f.pipeline, f.frames, f.cfg, f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/preview/layout?frameW=640&frameH=480", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 640, decode[dto.PreviewLayout](t, rec).FrameWidth)

	rec = httptest.NewRecorder()
	PreviewLayoutHandler(f.pipeline, nil, f.cfg, f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/preview/layout", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPreviewMapHandler(t *testing.T) {
	log := logger.NewDiscard()
	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		PreviewMapHandler(log)(rec, httptest.NewRequest(http.MethodPost, "/api/preview/map", strings.NewReader(body)))
		return rec
	}

	rec := post(`{"rect":{"x1":450,"y1":100,"x2":550,"y2":200},
		"layout":{"areaX":400,"areaY":50,"pasteX":0,"pasteY":0,"displayW":300,"displayH":300},
		"frameW":600,"frameH":600}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, dto.FrameRect{X1: 100, Y1: 100, X2: 300, Y2: 300}, decode[dto.FrameRect](t, rec))

	rec = post(`{"rect":{"x1":450,"y1":100,"x2":550,"y2":200},"layout":{"displayW":300,"displayH":300},"frameW":0,"frameH":600}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeNarrator struct{}

func (fakeNarrator) Narrate(ctx context.Context, subject string) (string, error) {
	return subject + "のおはなし", nil
}

type fakeSpeaker struct{}

func (fakeSpeaker) Speak(ctx context.Context, text string) ([]byte, error) {
	return []byte("RIFF" + text), nil
}

func TestFactAndNarrationHandlers(t *testing.T) {
	f := newFixture(t, "flags")
	svc := narration.NewService(fakeNarrator{}, fakeSpeaker{}, f.log)

	rec := httptest.NewRecorder()
	FactHandler(f.pipeline, f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/facts?category=Japan", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[catalog.Fact](t, rec).Text)

	rec = httptest.NewRecorder()
	FactHandler(f.pipeline, f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/facts?category=Mars", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	NarrationHandler(f.pipeline, svc, f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/narration?category=Japan", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	n := decode[narration.Narration](t, rec)
	assert.Equal(t, "にほんのおはなし", n.Text)
	assert.Equal(t, narration.SourceModel, n.Source)

	rec = httptest.NewRecorder()
	SpeechHandler(f.pipeline, svc, f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/narration/speech?category=Japan", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "RIFF"))

	rec = httptest.NewRecorder()
	SpeechHandler(f.pipeline, narration.NewService(nil, nil, f.log), f.log)(rec, httptest.NewRequest(http.MethodGet, "/api/narration/speech?category=Japan", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogsHandlers(t *testing.T) {
	f := newFixture(t, "town")
	f.log.Info("hello from the test")

	rec := httptest.NewRecorder()
	ShowLogsHandler(f.log, logger.InfoFile)(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello from the test")

	rec = httptest.NewRecorder()
	ClearLogsHandler(f.log, logger.InfoFile)(rec, httptest.NewRequest(http.MethodPost, "/logs/info/clear", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	data, err := os.ReadFile(filepath.Join(f.cfg.LogDirectory, logger.InfoFile))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestLoginHandler(t *testing.T) {
	cfg := &config.Config{Password: "secret"}
	login := LoginHandler(cfg, logger.NewDiscard())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password=wrong"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	login(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password=secret"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	login(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionToken("secret"), cookies[0].Value)

	rec = httptest.NewRecorder()
	LogoutHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestHealthHandler(t *testing.T) {
	f := newFixture(t, "town")

	rec := httptest.NewRecorder()
	HealthHandler(f.pipeline, f.frames, f.manager, true, f.log)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[healthStatus](t, rec)
	assert.Equal(t, "ok", st.Status)
	assert.True(t, st.Camera)
	assert.True(t, st.Detector)
	assert.Zero(t, st.Viewers)
	assert.Zero(t, st.DroppedFrames)
}
