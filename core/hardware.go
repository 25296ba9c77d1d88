// core/hardware.go
package core

import (
	"errors"

	"github.com/cdav1990/overwatch-mission-core/model"
)

var (
	// ErrUnknownCamera indicates a camera ID absent from the catalog.
	ErrUnknownCamera = errors.New("unknown camera")
	// ErrUnknownLens indicates a lens ID absent from the catalog.
	ErrUnknownLens = errors.New("unknown lens")
	// ErrNoCameraSelected indicates a lens change without a camera.
	ErrNoCameraSelected = errors.New("no camera selected")
	// ErrLensIncompatible indicates a lens the selected camera cannot mount.
	ErrLensIncompatible = errors.New("lens incompatible with selected camera")
	// ErrFStopUnavailable indicates an f-stop the selected lens does not offer.
	ErrFStopUnavailable = errors.New("f-stop not offered by selected lens")
)

// HardwareCatalog is the lookup surface the cascade rules need; the kb
// package provides the concrete store.
type HardwareCatalog interface {
	Camera(id string) (*model.Camera, bool)
	Lens(id string) (*model.Lens, bool)
}

// HardwareField identifies one dependent field of the payload
// configuration.
type HardwareField int

const (
	FieldCamera HardwareField = iota
	FieldLens
	FieldFStop
)

// hardwareDependents is the explicit dependency table for cascading
// invalidation: changing a field clears every field listed for it.
// camera -> lens -> f-stop.
var hardwareDependents = map[HardwareField][]HardwareField{
	FieldCamera: {FieldLens, FieldFStop},
	FieldLens:   {FieldFStop},
}

// invalidate clears the dependents of the changed field on a copy of cfg.
func invalidate(cfg model.HardwareConfig, changed HardwareField) model.HardwareConfig {
	for _, dep := range hardwareDependents[changed] {
		switch dep {
		case FieldLens:
			cfg.LensID = ""
		case FieldFStop:
			cfg.FStop = 0
		}
	}
	return cfg
}

// ApplyCameraChange selects a new camera body. The dependent lens and
// f-stop are cleared; the caller re-selects a lens from
// LensesForCamera. Returns the previous config unchanged on error.
func ApplyCameraChange(cat HardwareCatalog, cfg model.HardwareConfig, cameraID string) (model.HardwareConfig, error) {
	if _, ok := cat.Camera(cameraID); !ok {
		return cfg, ErrUnknownCamera
	}
	next := invalidate(cfg, FieldCamera)
	next.CameraID = cameraID
	return next, nil
}

// ApplyLensChange selects a lens for the current camera. The available
// f-stop set is recomputed from the lens; when the previously selected
// f-stop is no longer offered, it resets to the lowest (widest) value.
func ApplyLensChange(cat HardwareCatalog, cfg model.HardwareConfig, lensID string) (model.HardwareConfig, error) {
	if cfg.CameraID == "" {
		return cfg, ErrNoCameraSelected
	}
	cam, ok := cat.Camera(cfg.CameraID)
	if !ok {
		return cfg, ErrUnknownCamera
	}
	lens, ok := cat.Lens(lensID)
	if !ok {
		return cfg, ErrUnknownLens
	}
	if !mountable(cam, lensID) {
		return cfg, ErrLensIncompatible
	}

	next := invalidate(cfg, FieldLens)
	next.LensID = lensID
	if len(lens.FStops) > 0 {
		if containsFStop(lens.FStops, cfg.FStop) {
			next.FStop = cfg.FStop
		} else {
			next.FStop = lens.FStops[0]
		}
	}
	return next, nil
}

// ApplyFStopChange selects an f-stop offered by the current lens.
func ApplyFStopChange(cat HardwareCatalog, cfg model.HardwareConfig, fstop float64) (model.HardwareConfig, error) {
	if cfg.LensID == "" {
		return cfg, ErrUnknownLens
	}
	lens, ok := cat.Lens(cfg.LensID)
	if !ok {
		return cfg, ErrUnknownLens
	}
	if !containsFStop(lens.FStops, fstop) {
		return cfg, ErrFStopUnavailable
	}
	cfg.FStop = fstop
	return cfg, nil
}

// mountable reports whether the camera can mount the lens. A camera
// with no lens list accepts any lens.
func mountable(cam *model.Camera, lensID string) bool {
	if len(cam.LensIDs) == 0 {
		return true
	}
	for _, id := range cam.LensIDs {
		if id == lensID {
			return true
		}
	}
	return false
}

func containsFStop(fstops []float64, f float64) bool {
	for _, v := range fstops {
		if v == f {
			return true
		}
	}
	return false
}

// GroundSampleDistanceCM returns the ground sample distance, in
// centimetres per pixel, for the camera/lens pair at the given altitude.
func GroundSampleDistanceCM(cam *model.Camera, lens *model.Lens, altitudeM float64) float64 {
	if cam == nil || lens == nil || lens.FocalLengthMM <= 0 || cam.ImageWidthPx <= 0 {
		return 0
	}
	return cam.SensorWidthMM * altitudeM * 100 / (lens.FocalLengthMM * float64(cam.ImageWidthPx))
}

// FootprintM returns the ground footprint (width, height) in metres of a
// single frame at the given altitude.
func FootprintM(cam *model.Camera, lens *model.Lens, altitudeM float64) (widthM, heightM float64) {
	if cam == nil || lens == nil || lens.FocalLengthMM <= 0 {
		return 0, 0
	}
	return cam.SensorWidthMM * altitudeM / lens.FocalLengthMM,
		cam.SensorHeightMM * altitudeM / lens.FocalLengthMM
}
