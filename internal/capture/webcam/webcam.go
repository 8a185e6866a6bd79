// Package webcam captures frames from a camera through OpenCV. It lives
// apart from package capture so that nothing else needs cgo.
package webcam

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"grid-decoder/internal/capture"
)

// Webcam is a capture.Source backed by gocv.VideoCapture.
type Webcam struct {
	mu     sync.Mutex
	device string
	vc     *gocv.VideoCapture
	frame  gocv.Mat
}

// Open opens a camera by index ("0") or by file/stream name.
func Open(device string, width, height int) (*Webcam, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", capture.ErrCaptureUnavailable, device, err)
	}
	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &Webcam{device: device, vc: vc, frame: gocv.NewMat()}, nil
}

// Snapshot grabs the next frame and copies it into a snapshot.
func (w *Webcam) Snapshot(ctx context.Context) (*capture.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.vc == nil {
		return nil, fmt.Errorf("%w: %s closed", capture.ErrCaptureUnavailable, w.device)
	}
	if ok := w.vc.Read(&w.frame); !ok || w.frame.Empty() {
		return nil, fmt.Errorf("%w: no frame from %s", capture.ErrCaptureUnavailable, w.device)
	}
	img, err := matToImage(w.frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", capture.ErrCaptureUnavailable, w.device, err)
	}
	return capture.NewSnapshot(img, time.Now()), nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.vc == nil {
		return nil
	}
	w.frame.Close()
	err := w.vc.Close()
	w.vc = nil
	return err
}

// matToImage converts an 8-bit frame to RGBA, one horizontal stripe per
// CPU. Grey and BGRA frames go through BGR first.
func matToImage(mat gocv.Mat) (*image.RGBA, error) {
	switch mat.Type() {
	case gocv.MatTypeCV8UC3:
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC4:
		code := gocv.ColorGrayToBGR
		if mat.Channels() == 4 {
			code = gocv.ColorBGRAToBGR
		}
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(mat, &bgr, code)
		mat = bgr
	default:
		return nil, fmt.Errorf("unsupported frame type %v with %d channels", mat.Type(), mat.Channels())
	}

	h := mat.Rows()
	w := mat.Cols()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := img.Stride

	numWorkers := runtime.NumCPU()
	rowsPerWorker := (h + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for worker := 0; worker < numWorkers; worker++ {
		startY := worker * rowsPerWorker
		endY := min(startY+rowsPerWorker, h)
		if startY >= h {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			for y := yStart; y < yEnd; y++ {
				rowOffset := y * stride
				for x := 0; x < w; x++ {
					pixOffset := rowOffset + x*4
					img.Pix[pixOffset+0] = mat.GetUCharAt(y, x*3+2)
					img.Pix[pixOffset+1] = mat.GetUCharAt(y, x*3+1)
					img.Pix[pixOffset+2] = mat.GetUCharAt(y, x*3+0)
					img.Pix[pixOffset+3] = 255
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return img, nil
}
