// Package ai holds the object detector abstraction shared by the gocv and
// onnxruntime backends, plus the backend-independent post-processing.
package ai

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"slices"
	"sort"
	"strings"

	"blockcam/internal/dto"
)

// DefaultConfidenceThreshold is the minimum confidence a box needs to be picked.
const DefaultConfidenceThreshold = 0.3

var (
	ErrNotInitialized  = errors.New("detection network not initialized")
	ErrNothingDetected = errors.New("nothing detected")
	ErrWrongObject     = errors.New("detected objects do not match")
)

// Detector finds labelled boxes in a frame.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]dto.DetectionResult, error)
	Labels() []string
	Close() error
}

// SelectBest returns the most confident detection labelled expected whose
// confidence reaches threshold. When nothing qualifies it reports
// ErrWrongObject if the frame had any detection, ErrNothingDetected otherwise.
func SelectBest(detections []dto.DetectionResult, expected string, threshold float64) (dto.DetectionResult, error) {
	if len(detections) == 0 {
		return dto.DetectionResult{}, ErrNothingDetected
	}

	sorted := slices.Clone(detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	for _, d := range sorted {
		if d.Confidence < threshold {
			continue
		}
		if d.Label == expected {
			return d, nil
		}
	}
	return dto.DetectionResult{}, fmt.Errorf("%w: expected %s, best was %s (%.2f)", ErrWrongObject, expected, sorted[0].Label, sorted[0].Confidence)
}

// ClassLabel maps a model class ID to its label, falling back to "unknown<id>".
func ClassLabel(labels []string, classID int) string {
	if classID >= 0 && classID < len(labels) && labels[classID] != "" {
		return labels[classID]
	}
	return fmt.Sprintf("unknown%d", classID)
}

// LoadLabels reads one label per line; blank lines keep their index.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

// MissingLabels returns the wanted labels the model cannot emit.
func MissingLabels(model, wanted []string) []string {
	var missing []string
	for _, w := range wanted {
		if !slices.Contains(model, w) {
			missing = append(missing, w)
		}
	}
	return missing
}
