package kb

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cdav1990/overwatch-mission-core/model"
)

var (
	// ErrCameraExists indicates a camera ID is already registered.
	ErrCameraExists = errors.New("camera already exists")
	// ErrCameraNotFound indicates a requested camera is not in the catalog.
	ErrCameraNotFound = errors.New("camera not found")
	// ErrLensExists indicates a lens ID is already registered.
	ErrLensExists = errors.New("lens already exists")
	// ErrLensNotFound indicates a requested lens is not in the catalog.
	ErrLensNotFound = errors.New("lens not found")
)

// KnowledgeBase is an in-memory, thread-safe hardware catalog of camera
// bodies and lenses. It backs the payload-configuration cascade: the
// selected camera constrains the lens set, the lens constrains the
// f-stop set.
type KnowledgeBase struct {
	mu sync.RWMutex

	cameras map[string]*model.Camera
	lenses  map[string]*model.Lens
}

// NewKnowledgeBase constructs an empty catalog.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		cameras: make(map[string]*model.Camera),
		lenses:  make(map[string]*model.Lens),
	}
}

// AddLens registers a lens. F-stops are kept sorted ascending so the
// first entry is always the widest aperture.
func (kb *KnowledgeBase) AddLens(l *model.Lens) error {
	if l == nil || l.ID == "" {
		return fmt.Errorf("lens requires an ID")
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.lenses[l.ID]; exists {
		return fmt.Errorf("%w: %q", ErrLensExists, l.ID)
	}
	sort.Float64s(l.FStops)
	kb.lenses[l.ID] = l
	return nil
}

// AddCamera registers a camera body. Every referenced lens must already
// be in the catalog.
func (kb *KnowledgeBase) AddCamera(c *model.Camera) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("camera requires an ID")
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.cameras[c.ID]; exists {
		return fmt.Errorf("%w: %q", ErrCameraExists, c.ID)
	}
	for _, lensID := range c.LensIDs {
		if _, ok := kb.lenses[lensID]; !ok {
			return fmt.Errorf("%w: %q referenced by camera %q", ErrLensNotFound, lensID, c.ID)
		}
	}
	kb.cameras[c.ID] = c
	return nil
}

// Camera returns the camera with the given ID. Implements the catalog
// interface consumed by the cascade rules in core.
func (kb *KnowledgeBase) Camera(id string) (*model.Camera, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	c, ok := kb.cameras[id]
	return c, ok
}

// Lens returns the lens with the given ID.
func (kb *KnowledgeBase) Lens(id string) (*model.Lens, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	l, ok := kb.lenses[id]
	return l, ok
}

// ListCameras returns all cameras sorted by ID.
func (kb *KnowledgeBase) ListCameras() []*model.Camera {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	out := make([]*model.Camera, 0, len(kb.cameras))
	for _, c := range kb.cameras {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListLenses returns all lenses sorted by ID.
func (kb *KnowledgeBase) ListLenses() []*model.Lens {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return kb.sortedLensesLocked()
}

func (kb *KnowledgeBase) sortedLensesLocked() []*model.Lens {
	out := make([]*model.Lens, 0, len(kb.lenses))
	for _, l := range kb.lenses {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LensesForCamera returns the lenses mountable on the given camera, in
// the camera's declared order. A camera with no lens list mounts every
// lens in the catalog.
func (kb *KnowledgeBase) LensesForCamera(cameraID string) ([]*model.Lens, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	cam, ok := kb.cameras[cameraID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCameraNotFound, cameraID)
	}
	if len(cam.LensIDs) == 0 {
		return kb.sortedLensesLocked(), nil
	}

	out := make([]*model.Lens, 0, len(cam.LensIDs))
	for _, id := range cam.LensIDs {
		if l, ok := kb.lenses[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// FStopsForLens returns the ascending f-stop set of the given lens.
func (kb *KnowledgeBase) FStopsForLens(lensID string) ([]float64, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	l, ok := kb.lenses[lensID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLensNotFound, lensID)
	}
	out := make([]float64, len(l.FStops))
	copy(out, l.FStops)
	return out, nil
}

// hardware database YAML shapes - unexported so the on-disk format can
// evolve independently of the model types.
type hardwareYAML struct {
	Cameras []cameraYAML `yaml:"cameras"`
	Lenses  []lensYAML   `yaml:"lenses"`
}

type cameraYAML struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Brand          string   `yaml:"brand"`
	SensorWidthMM  float64  `yaml:"sensor_width_mm"`
	SensorHeightMM float64  `yaml:"sensor_height_mm"`
	ImageWidthPx   int      `yaml:"image_width_px"`
	ImageHeightPx  int      `yaml:"image_height_px"`
	LensIDs        []string `yaml:"lens_ids"`
}

type lensYAML struct {
	ID            string    `yaml:"id"`
	Name          string    `yaml:"name"`
	FocalLengthMM float64   `yaml:"focal_length_mm"`
	FStops        []float64 `yaml:"fstops"`
}

// LoadHardware populates the catalog from a YAML hardware database.
// Lenses are registered before cameras so camera lens references
// resolve regardless of document order.
func (kb *KnowledgeBase) LoadHardware(r io.Reader) error {
	var payload hardwareYAML
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return fmt.Errorf("LoadHardware: decode failed: %w", err)
	}

	for _, l := range payload.Lenses {
		if err := kb.AddLens(&model.Lens{
			ID:            l.ID,
			Name:          l.Name,
			FocalLengthMM: l.FocalLengthMM,
			FStops:        l.FStops,
		}); err != nil {
			return fmt.Errorf("LoadHardware: %w", err)
		}
	}
	for _, c := range payload.Cameras {
		if err := kb.AddCamera(&model.Camera{
			ID:             c.ID,
			Name:           c.Name,
			Brand:          c.Brand,
			SensorWidthMM:  c.SensorWidthMM,
			SensorHeightMM: c.SensorHeightMM,
			ImageWidthPx:   c.ImageWidthPx,
			ImageHeightPx:  c.ImageHeightPx,
			LensIDs:        c.LensIDs,
		}); err != nil {
			return fmt.Errorf("LoadHardware: %w", err)
		}
	}
	return nil
}
