package model

import "time"

// LocalCoord is a position in metres, East-North-Up, relative to the
// mission takeoff origin. It is a value type: updates construct a new
// value rather than mutating in place.
type LocalCoord struct {
	X float64 // east
	Y float64 // north
	Z float64 // up
}

// EngineCoord is a position in the render engine's Y-up frame.
type EngineCoord struct {
	X float64
	Y float64
	Z float64
}

// CameraOrientation is a gimbal attitude target in degrees.
type CameraOrientation struct {
	PitchDeg float64 // negative pitches look down
	RollDeg  float64
}

// Waypoint is an ordered point on a path segment. HoldTimeSec > 0 pauses
// the drone at the waypoint; Camera, when set, is the gimbal target
// transitioned to during the hold.
type Waypoint struct {
	ID          string
	Position    LocalCoord
	HoldTimeSec float64
	Camera      *CameraOrientation
}

// Clone returns a deep copy of the waypoint.
func (wp *Waypoint) Clone() *Waypoint {
	if wp == nil {
		return nil
	}
	out := *wp
	if wp.Camera != nil {
		cam := *wp.Camera
		out.Camera = &cam
	}
	return &out
}

// PathType tags how a segment's waypoints are expanded into a flyable path.
type PathType string

const (
	PathStraight PathType = "straight"
	PathBezier   PathType = "bezier"
	PathGrid     PathType = "grid"
	PathPolygon  PathType = "polygon"
)

// PathSegment is an ordered sequence of waypoints owned by a mission.
// SpeedMS of 0 means "use the mission default speed".
type PathSegment struct {
	ID        string
	Name      string
	Type      PathType
	Waypoints []*Waypoint
	SpeedMS   float64
}

// Clone returns a deep copy of the segment and its waypoints.
func (s *PathSegment) Clone() *PathSegment {
	if s == nil {
		return nil
	}
	out := *s
	out.Waypoints = make([]*Waypoint, len(s.Waypoints))
	for i, wp := range s.Waypoints {
		out.Waypoints[i] = wp.Clone()
	}
	return &out
}

// GroundControlPoint is a surveyed reference point anchoring the local scene.
type GroundControlPoint struct {
	ID       string
	Name     string
	Position LocalCoord
	Surveyed bool
}

// Clone returns a copy of the ground control point.
func (g *GroundControlPoint) Clone() *GroundControlPoint {
	if g == nil {
		return nil
	}
	out := *g
	return &out
}

// SafetyParams bound where and how the mission may fly.
type SafetyParams struct {
	MinAltitudeM    float64
	MaxAltitudeM    float64
	GeofenceRadiusM float64
	ClimbSpeedMS    float64
	ReturnAltitudeM float64
}

// DefaultSafetyParams returns the stock safety envelope for a new mission.
func DefaultSafetyParams() SafetyParams {
	return SafetyParams{
		MinAltitudeM:    2,
		MaxAltitudeM:    120,
		GeofenceRadiusM: 500,
		ClimbSpeedMS:    2.5,
		ReturnAltitudeM: 30,
	}
}

// HardwareConfig is the selected payload configuration. LensID and FStop
// are dependent fields: changing CameraID invalidates both, changing
// LensID recomputes the valid f-stop set.
type HardwareConfig struct {
	DroneID      string
	CameraID     string
	LensID       string
	FStop        float64
	ISO          int
	ShutterSpeed string
}

// Origin is the geodetic anchor of the mission's ENU frame.
type Origin struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// Mission is the aggregate root: takeoff point, defaults, path segments,
// ground control points, scene objects, and safety/hardware parameters.
// Missions live in memory for the session; export is the only
// serialization surface.
type Mission struct {
	ID               string
	Name             string
	Origin           Origin
	TakeoffPoint     LocalCoord
	DefaultSpeedMS   float64
	DefaultAltitudeM float64
	Segments         []*PathSegment
	GCPs             []*GroundControlPoint
	SceneObjects     []*SceneObject
	Safety           SafetyParams
	Hardware         HardwareConfig
	CreatedAt        time.Time
}

// Clone returns a deep copy of the mission. Readers hold clones so that
// in-place edits through the state store never touch a handed-out graph.
func (m *Mission) Clone() *Mission {
	if m == nil {
		return nil
	}
	out := *m
	out.Segments = make([]*PathSegment, len(m.Segments))
	for i, s := range m.Segments {
		out.Segments[i] = s.Clone()
	}
	out.GCPs = make([]*GroundControlPoint, len(m.GCPs))
	for i, g := range m.GCPs {
		out.GCPs[i] = g.Clone()
	}
	out.SceneObjects = make([]*SceneObject, len(m.SceneObjects))
	for i, o := range m.SceneObjects {
		out.SceneObjects[i] = o.Clone()
	}
	return &out
}

// Segment returns the segment with the given ID, or nil.
func (m *Mission) Segment(id string) *PathSegment {
	for _, s := range m.Segments {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Waypoint returns the waypoint with the given ID and its owning
// segment, or (nil, nil).
func (m *Mission) Waypoint(id string) (*PathSegment, *Waypoint) {
	for _, s := range m.Segments {
		for _, wp := range s.Waypoints {
			if wp.ID == id {
				return s, wp
			}
		}
	}
	return nil, nil
}

// WaypointCount returns the total number of waypoints across segments.
func (m *Mission) WaypointCount() int {
	n := 0
	for _, s := range m.Segments {
		n += len(s.Waypoints)
	}
	return n
}
