// internal/sim/state/state.go
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cdav1990/overwatch-mission-core/core"
	"github.com/cdav1990/overwatch-mission-core/internal/logging"
	"github.com/cdav1990/overwatch-mission-core/kb"
	"github.com/cdav1990/overwatch-mission-core/model"
)

// Re-export hardware sentinel errors so callers can depend on state.*
// instead of core.*/kb.* directly if they want to.
var (
	// ErrCameraNotFound indicates a camera ID absent from the catalog.
	ErrCameraNotFound = core.ErrUnknownCamera
	// ErrLensNotFound indicates a lens ID absent from the catalog.
	ErrLensNotFound = core.ErrUnknownLens
	// ErrLensIncompatible indicates a lens the selected camera cannot mount.
	ErrLensIncompatible = core.ErrLensIncompatible
	// ErrFStopUnavailable indicates an f-stop the selected lens does not offer.
	ErrFStopUnavailable = core.ErrFStopUnavailable
	// ErrNoCameraSelected indicates a lens change without a camera selected.
	ErrNoCameraSelected = core.ErrNoCameraSelected

	// ErrNoMission indicates an operation that requires a loaded mission.
	ErrNoMission = errors.New("no mission loaded")
	// ErrMissionExists indicates a mission is already loaded.
	ErrMissionExists = errors.New("mission already loaded")
	// ErrInvalidMission indicates mission input that failed validation.
	ErrInvalidMission = errors.New("invalid mission")
	// ErrSegmentNotFound indicates a referenced path segment is missing.
	ErrSegmentNotFound = errors.New("path segment not found")
	// ErrWaypointNotFound indicates a referenced waypoint is missing.
	ErrWaypointNotFound = errors.New("waypoint not found")
	// ErrGCPNotFound indicates a referenced ground control point is missing.
	ErrGCPNotFound = errors.New("ground control point not found")
	// ErrObjectNotFound indicates a referenced scene object is missing.
	ErrObjectNotFound = errors.New("scene object not found")
	// ErrInvalidWaypoint indicates waypoint input that failed validation.
	ErrInvalidWaypoint = errors.New("invalid waypoint")
	// ErrInvalidSegment indicates segment input that failed validation.
	ErrInvalidSegment = errors.New("invalid segment")
	// ErrInvalidGCP indicates GCP input that failed validation.
	ErrInvalidGCP = errors.New("invalid ground control point")
	// ErrInvalidObject indicates scene-object input that failed validation.
	ErrInvalidObject = errors.New("invalid scene object")
	// ErrAlreadyDrawing indicates a polygon draft is already open.
	ErrAlreadyDrawing = errors.New("polygon drawing already in progress")
	// ErrNotDrawing indicates no polygon draft is open.
	ErrNotDrawing = errors.New("no polygon drawing in progress")
	// ErrPolygonTooSmall indicates fewer than three drawn vertices.
	ErrPolygonTooSmall = errors.New("polygon needs at least three vertices")
	// ErrSimulationActive indicates the simulation is already running.
	ErrSimulationActive = errors.New("simulation already running")
	// ErrSimulationInactive indicates no simulation run is active.
	ErrSimulationInactive = errors.New("simulation not running")
)

// MissionMetricsRecorder receives entity-count and tick updates for
// Prometheus-friendly gauges.
type MissionMetricsRecorder interface {
	SetMissionCounts(waypoints, segments, gcps, sceneObjects int)
	RecordSimTick(phase core.Phase)
}

// MissionSnapshot captures a consistent view of the mission aggregate
// and transient simulation state.
//
// Mission and its substructures are owned by MissionState; callers MUST
// treat them as read-only.
type MissionSnapshot struct {
	Mission          *model.Mission
	Progress         core.Progress
	SimulationActive bool
	Drawing          bool
	DraftVertices    int
}

// MissionState is the single mutation point for the mission aggregate,
// the polygon-drawing workflow, the hardware configuration, and
// simulation control. All operations are synchronous and atomic under a
// coarse lock: they either fully apply or return a sentinel error with
// state untouched.
type MissionState struct {
	mu sync.RWMutex

	// hardware is the camera/lens catalog backing the config cascade.
	hardware *kb.KnowledgeBase

	mission *model.Mission

	// stepper is non-nil only while a simulation run is active. It
	// walks a path flattened at StartSimulation time; edits made during
	// a run apply to the next run (last write wins, no merge).
	stepper         *core.Stepper
	speedMultiplier float64

	drawing       bool
	draftVertices []model.LocalCoord
	draftAltitude float64

	log     logging.Logger
	metrics MissionMetricsRecorder
}

// Option customises MissionState construction.
type Option func(*MissionState)

// WithMetricsRecorder attaches an optional recorder for entity counts
// and simulation ticks.
func WithMetricsRecorder(m MissionMetricsRecorder) Option {
	return func(s *MissionState) {
		s.metrics = m
	}
}

// NewMissionState constructs an empty store over the given hardware
// catalog.
func NewMissionState(hardware *kb.KnowledgeBase, log logging.Logger, opts ...Option) *MissionState {
	if log == nil {
		log = logging.Noop()
	}
	s := &MissionState{
		hardware:        hardware,
		speedMultiplier: 1,
		log:             log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// HardwareKB exposes the hardware catalog for read-side lookups.
func (s *MissionState) HardwareKB() *kb.KnowledgeBase {
	return s.hardware
}

// ---- Mission lifecycle ----

// CreateMission starts a fresh mission with stock defaults. Fails when
// a mission is already loaded; clear it first.
func (s *MissionState) CreateMission(name string, origin model.Origin, takeoff model.LocalCoord) (*model.Mission, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidMission)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission != nil {
		return nil, ErrMissionExists
	}
	m := &model.Mission{
		ID:               uuid.NewString(),
		Name:             name,
		Origin:           origin,
		TakeoffPoint:     takeoff,
		DefaultSpeedMS:   5,
		DefaultAltitudeM: 40,
		Safety:           model.DefaultSafetyParams(),
		CreatedAt:        time.Now().UTC(),
	}
	s.mission = m
	s.updateMetricsLocked()
	s.log.Info(context.Background(), "mission created",
		logging.String("mission_id", m.ID),
		logging.String("name", m.Name),
	)
	return m.Clone(), nil
}

// LoadMission replaces the current mission with a fully-formed one
// (e.g. from the YAML loader). Rejected while a simulation is active.
func (s *MissionState) LoadMission(m *model.Mission) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("%w: mission with ID is required", ErrInvalidMission)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.simActiveLocked() {
		return ErrSimulationActive
	}
	s.mission = m
	s.stepper = nil
	s.resetDraftLocked()
	s.updateMetricsLocked()
	return nil
}

// ClearMission stops any active run and drops the mission. Idempotent.
func (s *MissionState) ClearMission() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mission = nil
	s.stepper = nil
	s.resetDraftLocked()
	s.updateMetricsLocked()
}

// Snapshot returns a coherent view of mission and simulation state.
// The mission is a deep copy: later edits never touch a handed-out
// snapshot, so callers may read it without holding the store lock.
func (s *MissionState) Snapshot() *MissionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &MissionSnapshot{
		Mission:          s.mission.Clone(),
		SimulationActive: s.simActiveLocked(),
		Drawing:          s.drawing,
		DraftVertices:    len(s.draftVertices),
	}
	if s.stepper != nil {
		snap.Progress = s.stepper.Progress()
	}
	return snap
}

// Mission returns a deep copy of the loaded mission, or ErrNoMission.
func (s *MissionState) Mission() (*model.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mission == nil {
		return nil, ErrNoMission
	}
	return s.mission.Clone(), nil
}

// ---- Waypoint CRUD ----

// AddWaypoint appends a waypoint to the given segment. A blank ID is
// filled with a generated UUID.
func (s *MissionState) AddWaypoint(segmentID string, wp *model.Waypoint) (*model.Waypoint, error) {
	if err := validateWaypoint(wp); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return nil, ErrNoMission
	}
	seg := s.mission.Segment(segmentID)
	if seg == nil {
		return nil, ErrSegmentNotFound
	}
	if wp.ID == "" {
		wp.ID = uuid.NewString()
	} else if _, existing := s.mission.Waypoint(wp.ID); existing != nil {
		return nil, fmt.Errorf("%w: duplicate ID %q", ErrInvalidWaypoint, wp.ID)
	}
	seg.Waypoints = append(seg.Waypoints, wp)
	s.updateMetricsLocked()
	return wp.Clone(), nil
}

// UpdateWaypoint replaces the waypoint with the same ID.
func (s *MissionState) UpdateWaypoint(wp *model.Waypoint) error {
	if err := validateWaypoint(wp); err != nil {
		return err
	}
	if wp.ID == "" {
		return fmt.Errorf("%w: ID is required", ErrInvalidWaypoint)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	seg, _ := s.mission.Waypoint(wp.ID)
	if seg == nil {
		return ErrWaypointNotFound
	}
	for i, existing := range seg.Waypoints {
		if existing.ID == wp.ID {
			seg.Waypoints[i] = wp
			return nil
		}
	}
	return ErrWaypointNotFound
}

// MoveWaypoint updates only a waypoint's position.
func (s *MissionState) MoveWaypoint(id string, pos model.LocalCoord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	_, wp := s.mission.Waypoint(id)
	if wp == nil {
		return ErrWaypointNotFound
	}
	wp.Position = pos
	return nil
}

// DeleteWaypoint removes a waypoint from its segment.
func (s *MissionState) DeleteWaypoint(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	seg, _ := s.mission.Waypoint(id)
	if seg == nil {
		return ErrWaypointNotFound
	}
	for i, wp := range seg.Waypoints {
		if wp.ID == id {
			seg.Waypoints = append(seg.Waypoints[:i], seg.Waypoints[i+1:]...)
			s.updateMetricsLocked()
			return nil
		}
	}
	return ErrWaypointNotFound
}

func validateWaypoint(wp *model.Waypoint) error {
	if wp == nil {
		return fmt.Errorf("%w: waypoint is nil", ErrInvalidWaypoint)
	}
	if wp.HoldTimeSec < 0 {
		return fmt.Errorf("%w: hold time must be non-negative", ErrInvalidWaypoint)
	}
	return nil
}

// ---- Segment CRUD ----

// AddSegment appends a path segment to the mission. An empty type
// defaults to straight; waypoint IDs are filled as needed.
func (s *MissionState) AddSegment(seg *model.PathSegment) (*model.PathSegment, error) {
	if seg == nil {
		return nil, fmt.Errorf("%w: segment is nil", ErrInvalidSegment)
	}
	if seg.Type == "" {
		seg.Type = model.PathStraight
	}
	switch seg.Type {
	case model.PathStraight, model.PathBezier, model.PathGrid, model.PathPolygon:
	default:
		return nil, fmt.Errorf("%w: unknown path type %q", ErrInvalidSegment, seg.Type)
	}
	for _, wp := range seg.Waypoints {
		if err := validateWaypoint(wp); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return nil, ErrNoMission
	}
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	} else if s.mission.Segment(seg.ID) != nil {
		return nil, fmt.Errorf("%w: duplicate ID %q", ErrInvalidSegment, seg.ID)
	}
	for _, wp := range seg.Waypoints {
		if wp.ID == "" {
			wp.ID = uuid.NewString()
		}
	}
	s.mission.Segments = append(s.mission.Segments, seg)
	s.updateMetricsLocked()
	return seg.Clone(), nil
}

// AddGridSegment generates a lawnmower survey segment over the given
// bounds and appends it to the mission.
func (s *MissionState) AddGridSegment(name string, bounds core.GridBounds, spacingM, altitudeM, speedMS float64) (*model.PathSegment, error) {
	wps, err := core.GenerateGridWaypoints(bounds, spacingM, altitudeM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSegment, err)
	}
	return s.AddSegment(&model.PathSegment{
		Name:      name,
		Type:      model.PathGrid,
		Waypoints: wps,
		SpeedMS:   speedMS,
	})
}

// UpdateSegment replaces the name, type, and speed of an existing
// segment; its waypoints are untouched.
func (s *MissionState) UpdateSegment(id, name string, pathType model.PathType, speedMS float64) error {
	switch pathType {
	case model.PathStraight, model.PathBezier, model.PathGrid, model.PathPolygon:
	default:
		return fmt.Errorf("%w: unknown path type %q", ErrInvalidSegment, pathType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	seg := s.mission.Segment(id)
	if seg == nil {
		return ErrSegmentNotFound
	}
	seg.Name = name
	seg.Type = pathType
	seg.SpeedMS = speedMS
	return nil
}

// DeleteSegment removes a segment and its waypoints.
func (s *MissionState) DeleteSegment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	for i, seg := range s.mission.Segments {
		if seg.ID == id {
			s.mission.Segments = append(s.mission.Segments[:i], s.mission.Segments[i+1:]...)
			s.updateMetricsLocked()
			return nil
		}
	}
	return ErrSegmentNotFound
}

// ---- Ground control points ----

// AddGCP registers a ground control point.
func (s *MissionState) AddGCP(g *model.GroundControlPoint) (*model.GroundControlPoint, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: gcp is nil", ErrInvalidGCP)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return nil, ErrNoMission
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	} else if s.findGCPLocked(g.ID) >= 0 {
		return nil, fmt.Errorf("%w: duplicate ID %q", ErrInvalidGCP, g.ID)
	}
	s.mission.GCPs = append(s.mission.GCPs, g)
	s.updateMetricsLocked()
	return g.Clone(), nil
}

// UpdateGCP replaces the GCP with the same ID.
func (s *MissionState) UpdateGCP(g *model.GroundControlPoint) error {
	if g == nil || g.ID == "" {
		return fmt.Errorf("%w: gcp with ID is required", ErrInvalidGCP)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	i := s.findGCPLocked(g.ID)
	if i < 0 {
		return ErrGCPNotFound
	}
	s.mission.GCPs[i] = g
	return nil
}

// DeleteGCP removes a ground control point.
func (s *MissionState) DeleteGCP(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	i := s.findGCPLocked(id)
	if i < 0 {
		return ErrGCPNotFound
	}
	s.mission.GCPs = append(s.mission.GCPs[:i], s.mission.GCPs[i+1:]...)
	s.updateMetricsLocked()
	return nil
}

func (s *MissionState) findGCPLocked(id string) int {
	for i, g := range s.mission.GCPs {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// ---- Scene objects ----

// AddSceneObject places an authored object in the scene. Box objects
// must have positive dimensions; model objects must carry an asset
// reference.
func (s *MissionState) AddSceneObject(o *model.SceneObject) (*model.SceneObject, error) {
	if err := validateSceneObject(o); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return nil, ErrNoMission
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	} else if s.findObjectLocked(o.ID) >= 0 {
		return nil, fmt.Errorf("%w: duplicate ID %q", ErrInvalidObject, o.ID)
	}
	if o.Color == "" {
		o.Color = "#cccccc"
	}
	s.mission.SceneObjects = append(s.mission.SceneObjects, o)
	s.updateMetricsLocked()
	return o.Clone(), nil
}

// AddSceneObjects applies a batch (e.g. from an import) atomically:
// either every object is added or none is.
func (s *MissionState) AddSceneObjects(objs []*model.SceneObject) error {
	for _, o := range objs {
		if err := validateSceneObject(o); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	for _, o := range objs {
		if o.ID != "" && s.findObjectLocked(o.ID) >= 0 {
			return fmt.Errorf("%w: duplicate ID %q", ErrInvalidObject, o.ID)
		}
	}
	for _, o := range objs {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if o.Color == "" {
			o.Color = "#cccccc"
		}
		// The store keeps its own copy; the caller's slice stays
		// detached from later edits.
		s.mission.SceneObjects = append(s.mission.SceneObjects, o.Clone())
	}
	s.updateMetricsLocked()
	return nil
}

// UpdateSceneObject replaces the object with the same ID.
func (s *MissionState) UpdateSceneObject(o *model.SceneObject) error {
	if err := validateSceneObject(o); err != nil {
		return err
	}
	if o.ID == "" {
		return fmt.Errorf("%w: ID is required", ErrInvalidObject)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	i := s.findObjectLocked(o.ID)
	if i < 0 {
		return ErrObjectNotFound
	}
	s.mission.SceneObjects[i] = o
	return nil
}

// DeleteSceneObject removes an object from the scene.
func (s *MissionState) DeleteSceneObject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	i := s.findObjectLocked(id)
	if i < 0 {
		return ErrObjectNotFound
	}
	s.mission.SceneObjects = append(s.mission.SceneObjects[:i], s.mission.SceneObjects[i+1:]...)
	s.updateMetricsLocked()
	return nil
}

func (s *MissionState) findObjectLocked(id string) int {
	for i, o := range s.mission.SceneObjects {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func validateSceneObject(o *model.SceneObject) error {
	if o == nil {
		return fmt.Errorf("%w: object is nil", ErrInvalidObject)
	}
	switch o.Kind {
	case model.SceneObjectBox, "":
		if o.WidthM <= 0 || o.LengthM <= 0 || o.HeightM <= 0 {
			return fmt.Errorf("%w: box dimensions must be positive", ErrInvalidObject)
		}
	case model.SceneObjectModel:
		if o.AssetRef == "" {
			return fmt.Errorf("%w: model object requires an asset reference", ErrInvalidObject)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidObject, o.Kind)
	}
	if o.Kind == "" {
		o.Kind = model.SceneObjectBox
	}
	return nil
}

// ---- Polygon drawing workflow ----

// BeginPolygon opens a polygon draft at the given flight altitude.
func (s *MissionState) BeginPolygon(altitudeM float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return ErrNoMission
	}
	if s.drawing {
		return ErrAlreadyDrawing
	}
	s.drawing = true
	s.draftVertices = nil
	s.draftAltitude = altitudeM
	return nil
}

// AddPolygonVertex appends a vertex to the open draft. The vertex
// altitude is forced to the draft altitude; the returned count is the
// draft size after the append.
func (s *MissionState) AddPolygonVertex(v model.LocalCoord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return 0, ErrNoMission
	}
	if !s.drawing {
		return 0, ErrNotDrawing
	}
	v.Z = s.draftAltitude
	s.draftVertices = append(s.draftVertices, v)
	return len(s.draftVertices), nil
}

// CompletePolygon closes the draft into a new polygon path segment.
// Fails with ErrPolygonTooSmall (draft kept open) below three vertices.
func (s *MissionState) CompletePolygon(name string) (*model.PathSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return nil, ErrNoMission
	}
	if !s.drawing {
		return nil, ErrNotDrawing
	}
	if len(s.draftVertices) < 3 {
		return nil, ErrPolygonTooSmall
	}

	seg := &model.PathSegment{
		ID:   uuid.NewString(),
		Name: name,
		Type: model.PathPolygon,
	}
	for _, v := range s.draftVertices {
		seg.Waypoints = append(seg.Waypoints, &model.Waypoint{
			ID:       uuid.NewString(),
			Position: v,
		})
	}
	s.mission.Segments = append(s.mission.Segments, seg)
	s.resetDraftLocked()
	s.updateMetricsLocked()
	return seg.Clone(), nil
}

// CancelPolygon discards the open draft.
func (s *MissionState) CancelPolygon() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.drawing {
		return ErrNotDrawing
	}
	s.resetDraftLocked()
	return nil
}

func (s *MissionState) resetDraftLocked() {
	s.drawing = false
	s.draftVertices = nil
	s.draftAltitude = 0
}

// ---- Hardware configuration ----

// SetCamera selects a camera body; the dependent lens and f-stop are
// cleared per the cascade rules.
func (s *MissionState) SetCamera(cameraID string) (model.HardwareConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return model.HardwareConfig{}, ErrNoMission
	}
	next, err := core.ApplyCameraChange(s.hardware, s.mission.Hardware, cameraID)
	if err != nil {
		return s.mission.Hardware, err
	}
	s.mission.Hardware = next
	return next, nil
}

// SetLens selects a lens; the f-stop set is recomputed and the f-stop
// reset to the widest value when the previous one is no longer valid.
func (s *MissionState) SetLens(lensID string) (model.HardwareConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return model.HardwareConfig{}, ErrNoMission
	}
	next, err := core.ApplyLensChange(s.hardware, s.mission.Hardware, lensID)
	if err != nil {
		return s.mission.Hardware, err
	}
	s.mission.Hardware = next
	return next, nil
}

// SetFStop selects an f-stop offered by the current lens.
func (s *MissionState) SetFStop(fstop float64) (model.HardwareConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return model.HardwareConfig{}, ErrNoMission
	}
	next, err := core.ApplyFStopChange(s.hardware, s.mission.Hardware, fstop)
	if err != nil {
		return s.mission.Hardware, err
	}
	s.mission.Hardware = next
	return next, nil
}

// ---- Simulation control ----

// StartSimulation flattens the mission's segments into a flight path
// and begins a run. The path is snapshotted at start: later edits apply
// to the next run.
func (s *MissionState) StartSimulation() (core.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mission == nil {
		return core.Progress{}, ErrNoMission
	}
	if s.simActiveLocked() {
		return s.stepper.Progress(), ErrSimulationActive
	}

	path, err := core.BuildFlightPath(s.mission)
	if err != nil {
		return core.Progress{}, fmt.Errorf("start simulation: %w", err)
	}
	stepper := core.NewStepper(path)
	if err := stepper.SetSpeedMultiplier(s.speedMultiplier); err != nil {
		return core.Progress{}, err
	}
	prog := stepper.Start()
	if prog.Phase == core.PhaseIdle {
		// Degenerate path (fewer than two points) completes immediately.
		s.stepper = nil
		return prog, nil
	}
	s.stepper = stepper
	s.log.Info(context.Background(), "simulation started",
		logging.String("mission_id", s.mission.ID),
		logging.Int("path_points", path.Len()),
		logging.Float64("speed_multiplier", s.speedMultiplier),
	)
	return prog, nil
}

// StopSimulation aborts the active run and zeroes progress.
func (s *MissionState) StopSimulation() (core.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.simActiveLocked() {
		return core.Progress{}, ErrSimulationInactive
	}
	prog := s.stepper.Stop()
	s.stepper = nil
	return prog, nil
}

// SetSpeedMultiplier adjusts the simulation speed factor, applying it
// immediately to an active run.
func (s *MissionState) SetSpeedMultiplier(m float64) error {
	if m <= 0 {
		return fmt.Errorf("speed multiplier must be positive, got %v", m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.speedMultiplier = m
	if s.stepper != nil {
		return s.stepper.SetSpeedMultiplier(m)
	}
	return nil
}

// Scrub repositions the active run on the timeline. Scrubs and ticks
// are serialized by the store lock; whichever lands last wins.
func (s *MissionState) Scrub(targetIndex int, legProgress float64) (core.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.simActiveLocked() {
		return core.Progress{}, ErrSimulationInactive
	}
	prog, err := s.stepper.SeekTo(targetIndex, legProgress)
	if errors.Is(err, core.ErrNotRunning) {
		return prog, ErrSimulationInactive
	}
	if prog.Done {
		s.stepper = nil
	}
	return prog, err
}

// SimTick advances the active run by dtSec seconds. It is a cheap no-op
// when no run is active. A recovered stepper panic force-stops the run
// and is returned so the tick driver can log it; state is not corrupted.
func (s *MissionState) SimTick(dtSec float64) (core.Progress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.simActiveLocked() {
		return core.Progress{}, false, nil
	}

	prog, err := s.stepper.Step(dtSec)
	if s.metrics != nil {
		s.metrics.RecordSimTick(prog.Phase)
	}
	if err != nil {
		s.stepper = nil
		s.log.Error(context.Background(), "simulation tick failed; run stopped", logging.Err(err))
		return prog, false, err
	}
	if prog.Phase == core.PhaseIdle {
		s.stepper = nil
		s.log.Info(context.Background(), "simulation completed",
			logging.String("mission_id", s.mission.ID),
		)
		return prog, false, nil
	}
	return prog, true, nil
}

// Progress returns the active run's snapshot, or a zero progress when
// no run is active.
func (s *MissionState) Progress() core.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stepper == nil {
		return core.Progress{}
	}
	return s.stepper.Progress()
}

// SimulationActive reports whether a run is in flight.
func (s *MissionState) SimulationActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simActiveLocked()
}

func (s *MissionState) simActiveLocked() bool {
	return s.stepper != nil && s.stepper.CurrentPhase() != core.PhaseIdle
}

// updateMetricsLocked pushes entity counts to the recorder. Caller must
// hold s.mu.
func (s *MissionState) updateMetricsLocked() {
	if s.metrics == nil {
		return
	}
	if s.mission == nil {
		s.metrics.SetMissionCounts(0, 0, 0, 0)
		return
	}
	s.metrics.SetMissionCounts(
		s.mission.WaypointCount(),
		len(s.mission.Segments),
		len(s.mission.GCPs),
		len(s.mission.SceneObjects),
	)
}
