package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"blockcam/internal/catalog"
	"blockcam/internal/config"
	"blockcam/internal/dto"
	"blockcam/internal/logger"
	"blockcam/internal/service/ai"
	"blockcam/internal/service/camera"
	"blockcam/internal/service/registry"
	"blockcam/internal/service/storage"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	dets  []dto.DetectionResult
	err   error
	calls int
}

func (f *fakeDetector) Detect(ctx context.Context, img image.Image) ([]dto.DetectionResult, error) {
	f.calls++
	return f.dets, f.err
}
func (f *fakeDetector) Labels() []string { return []string{"house", "cars"} }
func (f *fakeDetector) Close() error     { return nil }

// whiteKey makes light pixels transparent.
type whiteKey struct {
	err error
	all bool
}

func (w whiteKey) Remove(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if w.err != nil {
		return nil, w.err
	}
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		if w.all || out.Pix[i+1] > 128 {
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
	pipeline *Pipeline
	store    *storage.Store
	history  *registry.History
	detector *fakeDetector
}

func newFixture(t *testing.T, gameName string, remover whiteKey, frames FrameSource) *fixture {
	t.Helper()
	cfg := &config.Config{
		OutputDirectory:     t.TempDir(),
		ConfidenceThreshold: 0.3,
		CropPadding:         10,
		PreviewX:            400,
		PreviewY:            50,
		PreviewWidth:        300,
		PreviewHeight:       300,
		GuideWidthRatio:     0.85,
		GuideHeightRatio:    0.70,
	}
	log := logger.NewDiscard()

	cat, err := catalog.Load("")
	require.NoError(t, err)
	game, err := cat.Game(gameName)
	require.NoError(t, err)

	store, err := storage.NewStore(cfg, log)
	require.NoError(t, err)
	history := registry.NewHistory(registry.New(game.Labels()), game.Name, nil, nil, log)
	det := &fakeDetector{dets: []dto.DetectionResult{
		{Label: "house", Confidence: 0.95, X: 0, Y: 0, Width: 10, Height: 10},
		{Label: "cars", Confidence: 0.8, X: 30, Y: 20, Width: 30, Height: 30},
	}}

	p := NewPipeline(cfg, game, det, remover, store, history, frames, log)
	p.now = func() time.Time { return time.Unix(1700000000, 0) }
	return &fixture{pipeline: p, store: store, history: history, detector: det}
}

func TestPipeline_DetectMode(t *testing.T) {
	f := newFixture(t, "town", whiteKey{}, fakeFrames{img: scene()})

	res, err := f.pipeline.Capture(context.Background(), "cars", false)
	require.NoError(t, err)

	assert.Equal(t, catalog.ModeDetect, res.Mode)
	assert.True(t, res.Trimmed)
	assert.Equal(t, "trimmed_cars.png", res.File.Name)
	require.NotNil(t, res.Detection)
	assert.Equal(t, "cars", res.Detection.Label)
	assert.NotEmpty(t, res.ID)

	// (30,20)-(60,50) of a 100x80 frame stretched over 300x300 at (400,50)
	require.NotNil(t, res.PreviewBox)
	assert.InDelta(t, 490, res.PreviewBox.X1, 1e-9)
	assert.InDelta(t, 125, res.PreviewBox.Y1, 1e-9)
	assert.InDelta(t, 580, res.PreviewBox.X2, 1e-9)
	assert.InDelta(t, 237.5, res.PreviewBox.Y2, 1e-9)
	assert.Equal(t, "cars をみつけた！", SuccessMessage(res))

	out, err := imaging.Open(res.File.Path)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(30, 30), out.Bounds().Size())

	assert.FileExists(t, filepath.Join(f.store.Dir(), "result_cars.png"))
	assert.NoFileExists(t, filepath.Join(f.store.Dir(), "temp_capture_cars.jpg"))

	p, ok := f.history.Get("cars")
	assert.True(t, ok)
	assert.Equal(t, res.File.Path, p)
}

func TestPipeline_AlreadyCaptured(t *testing.T) {
	f := newFixture(t, "town", whiteKey{}, fakeFrames{img: scene()})

	_, err := f.pipeline.Capture(context.Background(), "cars", false)
	require.NoError(t, err)

	_, err = f.pipeline.Capture(context.Background(), "cars", false)
	assert.ErrorIs(t, err, ErrAlreadyCaptured)
	assert.Equal(t, 1, f.detector.calls)

	_, err = f.pipeline.Capture(context.Background(), "cars", true)
	assert.NoError(t, err)
	assert.Equal(t, 2, f.detector.calls)
}

func TestPipeline_ConcurrentCapturesRecordOnce(t *testing.T) {
	f := newFixture(t, "town", whiteKey{}, fakeFrames{img: scene()})

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		refused   atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pipeline.Capture(context.Background(), "cars", false)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrAlreadyCaptured):
				refused.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(7), refused.Load())
	assert.Equal(t, 1, f.detector.calls)
}

func TestPipeline_DetectFailures(t *testing.T) {
	tests := []struct {
		name    string
		dets    []dto.DetectionResult
		detErr  error
		remover whiteKey
		label   string
		wantErr error
		message string
	}{
		{name: "nothing", label: "cars", wantErr: ai.ErrNothingDetected, message: "なにもみつけられなかったよ..."},
		{name: "wrong object", label: "cars", dets: []dto.DetectionResult{{Label: "house", Confidence: 0.9, Width: 5, Height: 5}}, wantErr: ai.ErrWrongObject, message: "うーん、ちがうものみたい？ もういちど！"},
		{name: "low confidence", label: "cars", dets: []dto.DetectionResult{{Label: "cars", Confidence: 0.1, Width: 5, Height: 5}}, wantErr: ai.ErrWrongObject},
		{name: "detector error", label: "cars", detErr: errors.New("onnx"), wantErr: ErrDetection, message: "エラー！うまくしらべられなかった..."},
		{name: "box outside frame", label: "cars", dets: []dto.DetectionResult{{Label: "cars", Confidence: 0.9, X: 500, Y: 500, Width: 5, Height: 5}}, wantErr: ErrInvalidCrop, message: "エラー: クロップ範囲が無効です"},
		{name: "remover error", label: "cars", dets: []dto.DetectionResult{{Label: "cars", Confidence: 0.9, X: 30, Y: 20, Width: 30, Height: 30}}, remover: whiteKey{err: errors.New("rembg down")}, wantErr: ErrBackgroundRemoval, message: "エラー！ はいけいをけせなかった..."},
		{name: "unknown category", label: "Japan", wantErr: catalog.ErrUnknownCategory, message: "エラー: 不明なブロックです"},
		{name: "no category", label: "", wantErr: ErrNoCategory, message: "エラー: フラッグが選択されていません"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "town", tt.remover, fakeFrames{img: scene()})
			f.detector.dets = tt.dets
			f.detector.err = tt.detErr

			_, err := f.pipeline.Capture(context.Background(), tt.label, false)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.message != "" {
				assert.Equal(t, tt.message, Message(err))
			}
			assert.Empty(t, f.history.Captured())

			entries, err := os.ReadDir(f.store.Dir())
			require.NoError(t, err)
			for _, e := range entries {
				assert.NotContains(t, e.Name(), storage.TempPrefix)
			}
		})
	}
}

func TestPipeline_TrimFallback(t *testing.T) {
	f := newFixture(t, "town", whiteKey{all: true}, fakeFrames{img: scene()})

	res, err := f.pipeline.Capture(context.Background(), "cars", false)
	require.NoError(t, err)
	assert.False(t, res.Trimmed)
	assert.Equal(t, "result_cars.png", res.File.Name)
	assert.NoFileExists(t, filepath.Join(f.store.Dir(), "trimmed_cars.png"))
}

func TestPipeline_NoDetector(t *testing.T) {
	f := newFixture(t, "town", whiteKey{}, fakeFrames{img: scene()})
	f.pipeline.detector = nil

	_, err := f.pipeline.Capture(context.Background(), "house", false)
	assert.ErrorIs(t, err, ai.ErrNotInitialized)
}

func TestPipeline_NoFrame(t *testing.T) {
	f := newFixture(t, "town", whiteKey{}, fakeFrames{})

	_, err := f.pipeline.Capture(context.Background(), "cars", false)
	assert.ErrorIs(t, err, camera.ErrNoFrame)
	assert.Equal(t, "カメラがうごいてないみたい...", Message(err))

	f.pipeline.frames = nil
	_, err = f.pipeline.Capture(context.Background(), "cars", false)
	assert.ErrorIs(t, err, camera.ErrNoFrame)
}

func TestPipeline_GuideMode(t *testing.T) {
	frame := imaging.New(640, 480, color.NRGBA{B: 255, A: 255})
	f := newFixture(t, "flags", whiteKey{}, fakeFrames{img: frame})

	res, err := f.pipeline.Capture(context.Background(), "Japan", false)
	require.NoError(t, err)
	assert.Equal(t, catalog.ModeGuide, res.Mode)
	assert.Equal(t, "guide_cropped_Japan_1700000000.png", res.File.Name)
	assert.Nil(t, res.Detection)
	assert.Zero(t, f.detector.calls)
	assert.Equal(t, "Japan をほぞんしたよ！", SuccessMessage(res))

	out, err := imaging.Open(res.File.Path)
	require.NoError(t, err)
	// guide (423,95)-(677,305) on a stretched 300x300 area maps to (49,72)-(590,408)
	assert.Equal(t, image.Pt(541, 336), out.Bounds().Size())
}

func TestPipeline_GuideModeFit(t *testing.T) {
	frame := imaging.New(640, 480, color.NRGBA{B: 255, A: 255})
	f := newFixture(t, "flags", whiteKey{}, fakeFrames{img: frame})
	f.pipeline.fit = true

	l, err := f.pipeline.Layout(640, 480)
	require.NoError(t, err)
	assert.Equal(t, 225.0, l.DisplayH)
	assert.Equal(t, 37.0, l.PasteY)

	res, err := f.pipeline.Capture(context.Background(), "Sweden", false)
	require.NoError(t, err)
	out, err := imaging.Open(res.File.Path)
	require.NoError(t, err)
	// guide rows 95..305 sit 8 and 218 px below the letterboxed frame top at y=87
	assert.Equal(t, image.Pt(541, 448), out.Bounds().Size())
}

func TestMessage_Default(t *testing.T) {
	assert.Equal(t, "エラー が はっせい しました", Message(errors.New("disk on fire")))
	assert.Equal(t, "できた！", Message(nil))
	assert.Equal(t, "もう とったよ！ とりなおすなら けしてからね", Message(ErrAlreadyCaptured))
}
