package ai

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"blockcam/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func det(label string, conf float64, x, y, w, h int) dto.DetectionResult {
	return dto.DetectionResult{Label: label, Confidence: conf, X: x, Y: y, Width: w, Height: h}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name    string
		dets    []dto.DetectionResult
		want    string
		wantErr error
		conf    float64
	}{
		{name: "empty", dets: nil, want: "cars", wantErr: ErrNothingDetected},
		{name: "wrong label", dets: []dto.DetectionResult{det("house", 0.9, 0, 0, 1, 1)}, want: "cars", wantErr: ErrWrongObject},
		{name: "below threshold", dets: []dto.DetectionResult{det("cars", 0.29, 0, 0, 1, 1)}, want: "cars", wantErr: ErrWrongObject},
		{name: "at threshold", dets: []dto.DetectionResult{det("cars", 0.3, 0, 0, 1, 1)}, want: "cars", conf: 0.3},
		{
			name: "highest matching wins",
			dets: []dto.DetectionResult{
				det("cars", 0.5, 0, 0, 1, 1),
				det("house", 0.95, 0, 0, 1, 1),
				det("cars", 0.8, 0, 0, 1, 1),
			},
			want: "cars",
			conf: 0.8,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectBest(tt.dets, tt.want, DefaultConfidenceThreshold)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Label)
			assert.Equal(t, tt.conf, got.Confidence)
		})
	}
}

func TestSelectBest_DoesNotReorderInput(t *testing.T) {
	dets := []dto.DetectionResult{det("cars", 0.4, 0, 0, 1, 1), det("cars", 0.9, 0, 0, 1, 1)}
	_, err := SelectBest(dets, "cars", 0.3)
	require.NoError(t, err)
	assert.Equal(t, 0.4, dets[0].Confidence)
}

func TestClassLabel(t *testing.T) {
	labels := []string{"house", "", "cars"}
	assert.Equal(t, "house", ClassLabel(labels, 0))
	assert.Equal(t, "cars", ClassLabel(labels, 2))
	assert.Equal(t, "unknown1", ClassLabel(labels, 1))
	assert.Equal(t, "unknown7", ClassLabel(labels, 7))
	assert.Equal(t, "unknown-1", ClassLabel(labels, -1))
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("house\n\ncars \n\n"), 0644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"house", "", "cars"}, labels)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0644))
	_, err = LoadLabels(empty)
	assert.Error(t, err)

	_, err = LoadLabels(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestMissingLabels(t *testing.T) {
	assert.Equal(t, []string{"Japan"}, MissingLabels([]string{"house", "cars"}, []string{"house", "Japan"}))
	assert.Empty(t, MissingLabels([]string{"house", "cars"}, []string{"cars"}))
}

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	assert.Equal(t, 1.0, IoU(a, a))
	assert.Equal(t, 0.0, IoU(a, image.Rect(20, 20, 30, 30)))
	assert.InDelta(t, 50.0/150.0, IoU(a, image.Rect(5, 0, 15, 10)), 1e-9)
}

func TestNMS(t *testing.T) {
	dets := []dto.DetectionResult{
		det("cars", 0.6, 1, 1, 10, 10),
		det("cars", 0.9, 0, 0, 10, 10),
		det("house", 0.7, 0, 0, 10, 10),
		det("cars", 0.5, 50, 50, 10, 10),
	}
	kept := NMS(dets, 0.45)
	require.Len(t, kept, 3)
	assert.Equal(t, 0.9, kept[0].Confidence)
	assert.Equal(t, "house", kept[1].Label)
	assert.Equal(t, 50, kept[2].X)
}

func TestDecodeYOLO(t *testing.T) {
	// two classes, three boxes; rows are cx, cy, w, h, score0, score1
	output := []float32{
		100, 200, 300,
		100, 200, 300,
		20, 40, 10,
		20, 40, 10,
		0.9, 0.1, 0.05,
		0.2, 0.6, 0.1,
	}
	got, err := DecodeYOLO(output, 2, 3, 0.3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].ClassID)
	assert.InDelta(t, 0.9, got[0].Confidence, 1e-6)
	assert.Equal(t, 90.0, got[0].Box.X1)
	assert.Equal(t, 110.0, got[0].Box.Y2)
	assert.Equal(t, 1, got[1].ClassID)
	assert.Equal(t, 180.0, got[1].Box.X1)

	_, err = DecodeYOLO(output[:5], 2, 3, 0.3)
	assert.Error(t, err)
	_, err = DecodeYOLO(output, 0, 3, 0.3)
	assert.Error(t, err)
}

func TestLetterbox(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	layout, input, err := Letterbox(img, 32)
	require.NoError(t, err)
	assert.Equal(t, 32.0, layout.DisplayW)
	assert.Equal(t, 16.0, layout.DisplayH)
	assert.Equal(t, 8.0, layout.PasteY)
	require.Len(t, input, 3*32*32)

	plane := 32 * 32
	// top padding row
	assert.InDelta(t, 114.0/255.0, input[0], 1e-6)
	// centre pixel is red
	centre := 16*32 + 16
	assert.InDelta(t, 1.0, input[centre], 0.01)
	assert.InDelta(t, 0.0, input[plane+centre], 0.01)
	assert.InDelta(t, 0.0, input[2*plane+centre], 0.01)

	_, _, err = Letterbox(image.NewRGBA(image.Rect(0, 0, 0, 0)), 32)
	assert.Error(t, err)
}
