// Package device opens local capture devices through OpenCV.
package device

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"blockcam/internal/service/camera"

	"gocv.io/x/gocv"
)

// Device is a camera.Source backed by a gocv VideoCapture.
type Device struct {
	index  int
	webcam *gocv.VideoCapture
	mat    gocv.Mat
	mu     sync.Mutex
	closed bool
}

// Open opens the capture device with the given index, optionally asking for
// a frame size (0 keeps the driver default).
func Open(index, width, height int) (*Device, error) {
	webcam, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("camera %d did not open", index)
	}
	if width > 0 && height > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &Device{index: index, webcam: webcam, mat: gocv.NewMat()}, nil
}

// Opener adapts Open to camera.OpenFunc.
func Opener(width, height int) camera.OpenFunc {
	return func(index int) (camera.Source, error) {
		return Open(index, width, height)
	}
}

// Name implements camera.Source.
func (d *Device) Name() string {
	return fmt.Sprintf("camera%d", d.index)
}

// Read grabs one frame.
func (d *Device) Read() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, camera.ErrSourceDone
	}
	if ok := d.webcam.Read(&d.mat); !ok {
		return nil, errors.New("device read failed")
	}
	if d.mat.Empty() {
		return nil, camera.ErrNoFrame
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.mat.Close()
	return d.webcam.Close()
}

// Probe returns the indexes in [0, limit) that open and deliver a frame.
func Probe(limit int) []int {
	var found []int
	for i := 0; i < limit; i++ {
		d, err := Open(i, 0, 0)
		if err != nil {
			continue
		}
		if _, err := d.Read(); err == nil {
			found = append(found, i)
		}
		d.Close()
	}
	return found
}
