// Package scanner runs the capture, sample, decode cycle for one
// configured scanner and publishes the results.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"grid-decoder/internal/calibrate"
	"grid-decoder/internal/capture"
	"grid-decoder/internal/config"
	"grid-decoder/internal/keystone"
	"grid-decoder/internal/palette"
	"grid-decoder/internal/probe"
	"grid-decoder/internal/store"
	"grid-decoder/internal/tiles"
)

// EventType identifies engine events.
type EventType int

const (
	// EventPublished fires with a *Result after a new matrix is published.
	EventPublished EventType = iota
	// EventCalibrated fires with the new palette.Palette.
	EventCalibrated
	// EventAborted fires with the error of a cycle that published nothing.
	EventAborted
	// EventReloaded fires after settings are reloaded, with the reload
	// error or nil.
	EventReloaded
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Result describes one published matrix.
type Result struct {
	ID     string        `json:"id"`
	Cycle  int64         `json:"cycle"`
	At     time.Time     `json:"at"`
	Matrix *tiles.Matrix `json:"matrix"`
}

// Engine owns the state of one scanner: corners, palette, probes and the
// published matrix.
type Engine struct {
	cfg    *config.Config
	source capture.Source
	store  store.Store

	controller *keystone.Controller
	calibrator *calibrate.Calibrator
	grid       *probe.Grid
	decoder    *tiles.Decoder

	cycleMu sync.Mutex
	cycles  atomic.Int64
	last    atomic.Pointer[capture.Snapshot]

	mu          sync.RWMutex
	palette     palette.Palette
	calibrating bool
	listeners   map[EventType][]EventListener
}

// New builds an engine from cfg. The store may be nil, in which case
// settings are neither loaded nor saved.
func New(cfg *config.Config, src capture.Source, st store.Store) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	dict, err := cfg.Dictionary()
	if err != nil {
		return nil, err
	}
	controller, err := keystone.NewController(cfg.Surface.Corners, cfg.NudgeStep)
	if err != nil {
		return nil, fmt.Errorf("initial corners: %w", err)
	}
	grid, err := probe.New(cfg.Probes())
	if err != nil {
		return nil, err
	}
	decoder, err := tiles.NewDecoder(dict, cfg.Grid.NumX, cfg.Grid.NumY)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		source:     src,
		store:      st,
		controller: controller,
		calibrator: calibrate.New(cfg.Calibration.Positions, cfg.Grid.Scale, cfg.Calibration.Radius),
		grid:       grid,
		decoder:    decoder,
		palette:    cfg.Palette.Clone(),
		listeners:  make(map[EventType][]EventListener),
	}, nil
}

// Controller returns the corner editor.
func (e *Engine) Controller() *keystone.Controller {
	return e.controller
}

// Calibrator returns the sample position editor.
func (e *Engine) Calibrator() *calibrate.Calibrator {
	return e.calibrator
}

// Dictionary returns the tile dictionary.
func (e *Engine) Dictionary() *tiles.Dictionary {
	return e.decoder.Dictionary()
}

// Matrix returns the latest published matrix. It is never nil.
func (e *Engine) Matrix() *tiles.Matrix {
	return e.decoder.Matrix()
}

// Classes returns the latest probe classifications.
func (e *Engine) Classes() probe.Classes {
	return e.grid.Classes()
}

// Probes returns the latest probe readings.
func (e *Engine) Probes() []probe.Probe {
	return e.grid.Probes()
}

// Palette returns the palette in use.
func (e *Engine) Palette() palette.Palette {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.palette
}

// LastSnapshot returns the frame of the latest cycle whose capture
// succeeded.
func (e *Engine) LastSnapshot() (*capture.Snapshot, bool) {
	snap := e.last.Load()
	return snap, snap != nil
}

// Cycles returns the number of cycles started.
func (e *Engine) Cycles() int64 {
	return e.cycles.Load()
}

// Surface returns the surface for the current corners.
func (e *Engine) Surface() *keystone.Surface {
	return keystone.NewSurface(e.controller.Mapping(), e.cfg.Surface.Height, e.cfg.Surface.RayLength)
}

// SetCalibrating switches calibration mode. While it is on, cycles
// re-sample the palette instead of decoding.
func (e *Engine) SetCalibrating(on bool) {
	e.mu.Lock()
	e.calibrating = on
	e.mu.Unlock()
	if on {
		e.calibrator.SetHeight(e.cfg.Surface.Height + 2*e.cfg.Grid.Height)
	}
}

// Calibrating reports whether calibration mode is on.
func (e *Engine) Calibrating() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.calibrating
}

// On registers an event listener for the specified event type.
func (e *Engine) On(event EventType, listener EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], listener)
}

// OnPublish registers a listener for published results.
func (e *Engine) OnPublish(fn func(*Result)) {
	e.On(EventPublished, func(data interface{}) {
		fn(data.(*Result))
	})
}

// Emit triggers all listeners for the specified event type.
func (e *Engine) Emit(event EventType, data interface{}) {
	e.mu.RLock()
	listeners := e.listeners[event]
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Cycle runs one capture, sample, decode, publish pass. Cycles never
// overlap. When the capture fails every probe is reset to out of bounds
// and the published matrix is left alone. In calibration mode the cycle
// updates the palette instead and returns a nil Result; unresolved
// sample positions are reported in the error but do not stop the rest.
func (e *Engine) Cycle(ctx context.Context) (*Result, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	n := e.cycles.Add(1)
	snap, err := e.source.Snapshot(ctx)
	if err != nil {
		e.grid.Reset()
		err = fmt.Errorf("cycle %d: %w", n, err)
		e.Emit(EventAborted, err)
		return nil, err
	}
	e.last.Store(snap)
	surface := e.Surface()

	if e.Calibrating() {
		next, err := e.calibrator.Calibrate(snap, surface, e.Palette())
		e.mu.Lock()
		e.palette = next
		e.mu.Unlock()
		e.Emit(EventCalibrated, next)
		return nil, err
	}

	if err := e.grid.SampleAll(ctx, snap, surface, e.Palette()); err != nil {
		e.grid.Reset()
		err = fmt.Errorf("cycle %d: %w", n, err)
		e.Emit(EventAborted, err)
		return nil, err
	}
	m, err := e.decoder.Decode(e.grid.Classes())
	if err != nil {
		return nil, err
	}

	res := &Result{ID: uuid.NewString(), Cycle: n, At: snap.Taken(), Matrix: m}
	e.Emit(EventPublished, res)
	return res, nil
}

// Run drives cycles every refresh interval until ctx is done. Cycle
// errors are logged and the next tick tries again.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.GetRefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.Cycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				var missing *calibrate.MissingSampleTargetError
				if errors.As(err, &missing) {
					Logf("scanner: calibration: %v", err)
					continue
				}
				Logf("scanner: %v", err)
			}
		}
	}
}

// Reload reads corners and sample positions back from the store. A bad
// entry does not stop the other one from loading: every failure is
// returned joined and EventReloaded fires either way.
func (e *Engine) Reload() error {
	if e.store == nil {
		return nil
	}
	err := e.reload()
	e.Emit(EventReloaded, err)
	return err
}

func (e *Engine) reload() error {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	var errs []error
	if err := e.controller.Load(e.store); err != nil {
		errs = append(errs, err)
	}
	if err := e.calibrator.Load(e.store); err != nil {
		errs = append(errs, err)
	} else if err := e.applyScale(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// applyScale re-spaces the probes from the stored marker scale when the
// configuration derives spacing from it.
func (e *Engine) applyScale() error {
	if e.cfg.Grid.Spacing > 0 {
		return nil
	}
	scale := e.calibrator.Scale()
	if scale <= 0 {
		return nil
	}
	spacing := 2 * scale
	if spacing == e.grid.Config().Spacing {
		return nil
	}
	Logf("scanner: probe spacing %v from stored scale %v", spacing, scale)
	return e.grid.SetSpacing(spacing)
}

// Save writes corners and sample positions to the store.
func (e *Engine) Save() error {
	if e.store == nil {
		return nil
	}
	if err := e.controller.Save(e.store); err != nil {
		return err
	}
	return e.calibrator.Save(e.store)
}
