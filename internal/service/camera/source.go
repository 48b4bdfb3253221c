// Package camera reads frames from a capture device off the request path
// and keeps the most recent one for the capture pipeline.
package camera

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"blockcam/internal/logger"
)

var (
	ErrNoFrame    = errors.New("no frame available")
	ErrNoCamera   = errors.New("no camera could be opened")
	ErrSourceDone = errors.New("camera source closed")
)

// Source yields frames from one camera.
type Source interface {
	Read() (image.Image, error)
	Name() string
	Close() error
}

// OpenFunc opens the camera with the given device index.
type OpenFunc func(index int) (Source, error)

// OpenFirst tries each index in order and returns the first camera that opens.
func OpenFirst(indexes []int, open OpenFunc, log *logger.Logger) (Source, error) {
	var failures []string
	for _, idx := range indexes {
		src, err := open(idx)
		if err != nil {
			log.Warning("Camera %d unavailable: %v", idx, err)
			failures = append(failures, fmt.Sprintf("%d: %v", idx, err))
			continue
		}
		log.Info("Camera %d opened (%s)", idx, src.Name())
		return src, nil
	}
	return nil, fmt.Errorf("%w (tried %s)", ErrNoCamera, strings.Join(failures, "; "))
}
