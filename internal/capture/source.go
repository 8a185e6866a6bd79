package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	_ "golang.org/x/image/tiff"
)

// ErrCaptureUnavailable is returned when a source has no frame to offer.
// The scan cycle that asked is abandoned and retried on the next tick.
var ErrCaptureUnavailable = errors.New("capture: source unavailable")

// Source produces frozen snapshots.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Close() error
}

// Static serves the same in-memory image every cycle.
type Static struct {
	mu  sync.RWMutex
	img image.Image
}

// NewStatic returns a source serving img. A nil image is unavailable.
func NewStatic(img image.Image) *Static {
	return &Static{img: img}
}

// Set replaces the served image.
func (s *Static) Set(img image.Image) {
	s.mu.Lock()
	s.img = img
	s.mu.Unlock()
}

// Snapshot copies the current image.
func (s *Static) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	img := s.img
	s.mu.RUnlock()
	if img == nil || img.Bounds().Empty() {
		return nil, ErrCaptureUnavailable
	}
	return NewSnapshot(img, time.Now()), nil
}

// Close is a no-op.
func (s *Static) Close() error {
	return nil
}

// ImageFile serves a still image from disk (PNG, JPEG or TIFF), decoding
// it again whenever the file's modification time changes.
type ImageFile struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	img     image.Image
}

// OpenImageFile loads path and returns a source for it.
func OpenImageFile(path string) (*ImageFile, error) {
	f := &ImageFile{path: path}
	if _, err := f.current(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the watched file.
func (f *ImageFile) Path() string {
	return f.path
}

// Snapshot returns a copy of the latest decoded image.
func (f *ImageFile) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := f.current()
	if err != nil {
		return nil, err
	}
	return NewSnapshot(img, time.Now()), nil
}

func (f *ImageFile) current() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	if f.img != nil && info.ModTime().Equal(f.modTime) {
		return f.img, nil
	}

	img, err := decodeFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	f.img = img
	f.modTime = info.ModTime()
	return img, nil
}

// Close is a no-op.
func (f *ImageFile) Close() error {
	return nil
}

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
