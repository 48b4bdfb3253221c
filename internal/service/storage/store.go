package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"blockcam/internal/config"
	"blockcam/internal/logger"

	"github.com/disintegration/imaging"
)

const (
	TempPrefix    = "temp_capture_"
	ResultPrefix  = "result_"
	TrimmedPrefix = "trimmed_"
	GuidePrefix   = "guide_cropped_"

	// TempMaxAge is how long a raw frame may stay on disk before the janitor removes it.
	TempMaxAge = 5 * time.Minute
	// JPEGQuality is used for raw frames.
	JPEGQuality = 95
)

// Kind is the stage of the pipeline a file was written by.
type Kind string

const (
	KindTemp    Kind = "temp"
	KindResult  Kind = "result"
	KindTrimmed Kind = "trimmed"
	KindGuide   Kind = "guide"
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotStored   = errors.New("not a stored capture file")
)

// File is a file written to the output directory.
type File struct {
	Name string
	Path string
	Size int64
}

// Store writes pipeline images to the output directory and keeps it tidy.
type Store struct {
	dir          string
	maxSizeBytes int64
	interval     time.Duration
	logger       *logger.Logger
	mu           sync.Mutex
	now          func() time.Time
}

// NewStore creates the output directory when needed.
func NewStore(cfg *config.Config, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.OutputDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	interval := time.Duration(cfg.JanitorInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &Store{
		dir:          cfg.OutputDirectory,
		maxSizeBytes: cfg.MaxOutputSizeMB * 1024 * 1024,
		interval:     interval,
		logger:       log,
		now:          time.Now,
	}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// MaxSizeBytes returns the configured size budget of the output directory.
func (s *Store) MaxSizeBytes() int64 {
	return s.maxSizeBytes
}

// SaveTemp writes the raw frame as temp_capture_<label>.jpg.
func (s *Store) SaveTemp(label string, img image.Image) (File, error) {
	return s.save(TempPrefix+label+".jpg", img)
}

// SaveResult writes the background-removed crop as result_<label>.png.
func (s *Store) SaveResult(label string, img image.Image) (File, error) {
	return s.save(ResultPrefix+label+".png", img)
}

// SaveTrimmed writes the final trimmed image as trimmed_<label>.png.
func (s *Store) SaveTrimmed(label string, img image.Image) (File, error) {
	return s.save(TrimmedPrefix+label+".png", img)
}

// SaveGuide writes a guide-mode crop as guide_cropped_<label>_<unix>.png.
func (s *Store) SaveGuide(label string, img image.Image, at time.Time) (File, error) {
	return s.save(fmt.Sprintf("%s%s_%d.png", GuidePrefix, label, at.Unix()), img)
}

func (s *Store) save(name string, img image.Image) (File, error) {
	if err := validateName(name); err != nil {
		return File{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return File{}, fmt.Errorf("failed to create %s: %w", name, err)
	}

	format := imaging.PNG
	opts := []imaging.EncodeOption{}
	if strings.HasSuffix(name, ".jpg") {
		format = imaging.JPEG
		opts = append(opts, imaging.JPEGQuality(JPEGQuality))
	}

	if err := imaging.Encode(f, img, format, opts...); err != nil {
		f.Close()
		os.Remove(tmp)
		return File{}, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return File{}, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return File{}, fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	return File{Name: name, Path: path, Size: info.Size()}, nil
}

// Path resolves a bare file name inside the output directory.
func (s *Store) Path(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Remove deletes a file; a missing file is not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// RemoveCategory removes the stored files of the given labels.
func (s *Store) RemoveCategory(labels ...string) (int, error) {
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[l] = true
	}
	return s.removeWhere(func(st Stored) bool { return want[st.Label] })
}

func (s *Store) removeWhere(match func(Stored) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		st, err := ParseFilename(e.Name())
		if err != nil || !match(st) {
			continue
		}
		if err := s.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// DirSize returns the total size of the files in the output directory.
func (s *Store) DirSize() (int64, error) {
	var size int64
	err := filepath.WalkDir(s.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure output directory: %w", err)
	}
	return size, nil
}

// Run starts a ticker loop that sweeps the output directory until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(); err != nil {
				s.logger.Error("Output sweep failed: %v", err)
			}
		}
	}
}

// Sweep removes raw frames older than TempMaxAge and warns when the
// directory is over its size budget.
func (s *Store) Sweep() (int, error) {
	s.mu.Lock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	cutoff := s.now().Add(-TempMaxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := s.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			s.logger.Warning("Could not remove stale frame %s: %v", e.Name(), err)
			continue
		}
		removed++
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Info("Removed %d stale raw frames", removed)
	}

	if s.maxSizeBytes > 0 {
		size, err := s.DirSize()
		if err != nil {
			return removed, err
		}
		if size > s.maxSizeBytes {
			s.logger.Warning("Output directory %s is %d MB, over the %d MB limit", s.dir, size/(1024*1024), s.maxSizeBytes/(1024*1024))
		}
	}
	return removed, nil
}

// Stored is what a stored file name says about its contents.
type Stored struct {
	Kind      Kind
	Label     string
	Timestamp time.Time // zero unless the name carries one
}

// ParseFilename recovers kind, label and timestamp from a stored file name.
func ParseFilename(name string) (Stored, error) {
	base := filepath.Base(name)
	switch {
	case strings.HasPrefix(base, TempPrefix) && strings.HasSuffix(base, ".jpg"):
		return stored(KindTemp, strings.TrimSuffix(strings.TrimPrefix(base, TempPrefix), ".jpg"), time.Time{}, name)
	case strings.HasPrefix(base, GuidePrefix) && strings.HasSuffix(base, ".png"):
		rest := strings.TrimSuffix(strings.TrimPrefix(base, GuidePrefix), ".png")
		i := strings.LastIndex(rest, "_")
		if i <= 0 {
			return Stored{}, fmt.Errorf("%w: %s", ErrNotStored, name)
		}
		unix, err := strconv.ParseInt(rest[i+1:], 10, 64)
		if err != nil {
			return Stored{}, fmt.Errorf("%w: %s", ErrNotStored, name)
		}
		return stored(KindGuide, rest[:i], time.Unix(unix, 0), name)
	case strings.HasPrefix(base, TrimmedPrefix) && strings.HasSuffix(base, ".png"):
		return stored(KindTrimmed, strings.TrimSuffix(strings.TrimPrefix(base, TrimmedPrefix), ".png"), time.Time{}, name)
	case strings.HasPrefix(base, ResultPrefix) && strings.HasSuffix(base, ".png"):
		return stored(KindResult, strings.TrimSuffix(strings.TrimPrefix(base, ResultPrefix), ".png"), time.Time{}, name)
	}
	return Stored{}, fmt.Errorf("%w: %s", ErrNotStored, name)
}

func stored(kind Kind, label string, ts time.Time, name string) (Stored, error) {
	if label == "" {
		return Stored{}, fmt.Errorf("%w: %s", ErrNotStored, name)
	}
	return Stored{Kind: kind, Label: label, Timestamp: ts}, nil
}

func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
