// Package dnn runs SSD style Caffe/TensorFlow models through the OpenCV DNN module.
package dnn

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"blockcam/internal/config"
	"blockcam/internal/dto"
	"blockcam/internal/logger"
	"blockcam/internal/service/ai"

	"gocv.io/x/gocv"
)

// Detector implements ai.Detector on a gocv DNN network.
type Detector struct {
	net        gocv.Net
	labels     []string
	threshold  float64
	nms        float64
	inputSize  int
	modelPath  string
	configPath string
	logger     *logger.Logger
	mu         sync.Mutex
}

// NewDetector loads the network and its labels.
func NewDetector(cfg *config.Config, log *logger.Logger) (*Detector, error) {
	labels, err := ai.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	d := &Detector{
		labels:     labels,
		threshold:  cfg.ConfidenceThreshold,
		nms:        cfg.NMSThreshold,
		inputSize:  300,
		modelPath:  cfg.ModelPath,
		configPath: cfg.ModelConfigPath,
		logger:     log,
	}
	if err := d.initializeNet(); err != nil {
		return nil, err
	}
	return d, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (d *Detector) initializeNet() error {
	if _, err := os.Stat(d.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", d.modelPath)
	}

	if d.configPath != "" {
		if _, err := os.Stat(d.configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", d.configPath)
		}
	}

	net := gocv.ReadNet(d.modelPath, d.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	d.net = net
	d.logger.Info("Detection network initialized: %s", d.modelPath)
	return nil
}

// Labels returns the class labels indexed by class ID.
func (d *Detector) Labels() []string {
	return d.labels
}

// Detect runs the network on the frame and returns the boxes above the threshold.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]dto.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.net.Empty() {
		return nil, ai.ErrNotInitialized
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("converted image is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	cols, rows := float32(mat.Cols()), float32(mat.Rows())
	origin := img.Bounds().Min
	frame := image.Rect(0, 0, mat.Cols(), mat.Rows())

	var results []dto.DetectionResult

	// Each row is [batch_id, class_id, confidence, x1, y1, x2, y2] with normalised corners.
	reshaped := output.Reshape(1, output.Total()/7)
	defer reshaped.Close()
	for i := 0; i < reshaped.Rows(); i++ {
		confidence := float64(reshaped.GetFloatAt(i, 2))
		if confidence < d.threshold {
			continue
		}
		classID := int(reshaped.GetFloatAt(i, 1))
		r := image.Rect(
			int(reshaped.GetFloatAt(i, 3)*cols),
			int(reshaped.GetFloatAt(i, 4)*rows),
			int(reshaped.GetFloatAt(i, 5)*cols),
			int(reshaped.GetFloatAt(i, 6)*rows),
		).Intersect(frame)
		if r.Empty() {
			continue
		}
		results = append(results, dto.FromRect(ai.ClassLabel(d.labels, classID), confidence, r.Add(origin)))
	}

	results = ai.NMS(results, d.nms)
	for _, r := range results {
		d.logger.Info("Detected %s (%.2f)", r.Label, r.Confidence)
	}
	return results, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	return d.net.Close()
}
