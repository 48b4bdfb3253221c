// Package onnx runs YOLOv8 style ONNX exports through onnxruntime.
package onnx

import (
	"context"
	"fmt"
	"image"
	"sync"

	"blockcam/internal/config"
	"blockcam/internal/dto"
	"blockcam/internal/logger"
	"blockcam/internal/preview"
	"blockcam/internal/service/ai"

	ort "github.com/yalue/onnxruntime_go"
)

// Detector implements ai.Detector on an onnxruntime session.
type Detector struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	labels       []string
	size         int
	boxes        int
	threshold    float64
	nms          float64
	logger       *logger.Logger
	mu           sync.Mutex
}

// NewDetector loads the model at cfg.ModelPath with labels from cfg.LabelsPath.
func NewDetector(cfg *config.Config, log *logger.Logger) (*Detector, error) {
	labels, err := ai.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	if cfg.ONNXLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.ONNXLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	size := cfg.ONNXInputSize
	boxes := AnchorCount(size)

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(labels)), int64(boxes)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{"images"}, []string{"output0"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	log.Info("ONNX detector loaded: %s (%d labels, input %d)", cfg.ModelPath, len(labels), size)

	return &Detector{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		labels:       labels,
		size:         size,
		boxes:        boxes,
		threshold:    cfg.ConfidenceThreshold,
		nms:          cfg.NMSThreshold,
		logger:       log,
	}, nil
}

// AnchorCount is the number of output boxes a YOLOv8 head emits for a
// square input of the given size (strides 8, 16 and 32).
func AnchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		n += (size / stride) * (size / stride)
	}
	return n
}

// Labels returns the class labels in model order.
func (d *Detector) Labels() []string {
	return d.labels
}

// Detect letterboxes the frame, runs the model and maps boxes back to frame pixels.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]dto.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	layout, input, err := ai.Letterbox(img, d.size)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	copy(d.inputTensor.GetData(), input)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	candidates, err := ai.DecodeYOLO(d.outputTensor.GetData(), len(d.labels), d.boxes, d.threshold)
	if err != nil {
		return nil, err
	}

	results := make([]dto.DetectionResult, 0, len(candidates))
	for _, c := range candidates {
		r, err := preview.ToFrame(c.Box, layout, bounds.Dx(), bounds.Dy())
		if err != nil {
			continue
		}
		r = r.Add(bounds.Min)
		results = append(results, dto.FromRect(ai.ClassLabel(d.labels, c.ClassID), c.Confidence, r))
	}

	results = ai.NMS(results, d.nms)
	for _, r := range results {
		d.logger.Info("Detected %s (%.2f)", r.Label, r.Confidence)
	}
	return results, nil
}

// Close releases the session and tensors.
func (d *Detector) Close() error {
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.outputTensor != nil {
		d.outputTensor.Destroy()
	}
	if d.session != nil {
		d.session.Destroy()
	}
	return ort.DestroyEnvironment()
}
