// Package api exposes the mission store over HTTP/JSON, with a
// WebSocket stream for per-tick telemetry.
package api

import (
	"time"

	"github.com/cdav1990/overwatch-mission-core/core"
	"github.com/cdav1990/overwatch-mission-core/model"
)

// Wire types. The JSON shapes are the API contract; the model package
// stays free of serialization tags.

type coordJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type originJSON struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltM   float64 `json:"alt_m"`
}

type cameraOrientationJSON struct {
	PitchDeg float64 `json:"pitch_deg"`
	RollDeg  float64 `json:"roll_deg"`
}

type waypointJSON struct {
	ID          string                 `json:"id,omitempty"`
	Position    coordJSON              `json:"position"`
	HoldTimeSec float64                `json:"hold_time_sec,omitempty"`
	Camera      *cameraOrientationJSON `json:"camera,omitempty"`
}

type segmentJSON struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Waypoints []waypointJSON `json:"waypoints,omitempty"`
	SpeedMS   float64        `json:"speed_ms,omitempty"`
}

type gcpJSON struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name"`
	Position coordJSON `json:"position"`
	Surveyed bool      `json:"surveyed,omitempty"`
}

type sceneObjectJSON struct {
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	Position   coordJSON         `json:"position"`
	WidthM     float64           `json:"width_m,omitempty"`
	LengthM    float64           `json:"length_m,omitempty"`
	HeightM    float64           `json:"height_m,omitempty"`
	HeadingDeg float64           `json:"heading_deg,omitempty"`
	Color      string            `json:"color,omitempty"`
	AssetRef   string            `json:"asset_ref,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type hardwareJSON struct {
	DroneID      string  `json:"drone_id,omitempty"`
	CameraID     string  `json:"camera_id,omitempty"`
	LensID       string  `json:"lens_id,omitempty"`
	FStop        float64 `json:"fstop,omitempty"`
	ISO          int     `json:"iso,omitempty"`
	ShutterSpeed string  `json:"shutter_speed,omitempty"`
}

type missionJSON struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Origin           originJSON        `json:"origin"`
	TakeoffPoint     coordJSON         `json:"takeoff_point"`
	DefaultSpeedMS   float64           `json:"default_speed_ms"`
	DefaultAltitudeM float64           `json:"default_altitude_m"`
	Hardware         hardwareJSON      `json:"hardware"`
	Segments         []segmentJSON     `json:"segments"`
	GCPs             []gcpJSON         `json:"gcps"`
	SceneObjects     []sceneObjectJSON `json:"scene_objects"`
	CreatedAt        time.Time         `json:"created_at"`
}

type progressJSON struct {
	Phase          string    `json:"phase"`
	SegmentID      string    `json:"segment_id,omitempty"`
	TargetIndex    int       `json:"target_index"`
	LegProgress    float64   `json:"leg_progress"`
	Position       coordJSON `json:"position"`
	HeadingDeg     float64   `json:"heading_deg"`
	CameraPitchDeg float64   `json:"camera_pitch_deg"`
	CameraRollDeg  float64   `json:"camera_roll_deg"`
	Done           bool      `json:"done"`
}

type snapshotJSON struct {
	Mission          *missionJSON `json:"mission"`
	Progress         progressJSON `json:"progress"`
	SimulationActive bool         `json:"simulation_active"`
	Drawing          bool         `json:"drawing"`
	DraftVertices    int          `json:"draft_vertices"`
}

// Request bodies.

type createMissionRequest struct {
	Name    string     `json:"name"`
	Origin  originJSON `json:"origin"`
	Takeoff coordJSON  `json:"takeoff_point"`
}

type gridSegmentRequest struct {
	Name      string  `json:"name"`
	MinX      float64 `json:"min_x"`
	MinY      float64 `json:"min_y"`
	MaxX      float64 `json:"max_x"`
	MaxY      float64 `json:"max_y"`
	SpacingM  float64 `json:"spacing_m"`
	AltitudeM float64 `json:"altitude_m"`
	SpeedMS   float64 `json:"speed_ms,omitempty"`
}

type beginPolygonRequest struct {
	AltitudeM float64 `json:"altitude_m"`
}

type polygonVertexRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type completePolygonRequest struct {
	Name string `json:"name"`
}

type selectHardwareRequest struct {
	CameraID string  `json:"camera_id,omitempty"`
	LensID   string  `json:"lens_id,omitempty"`
	FStop    float64 `json:"fstop,omitempty"`
}

type speedRequest struct {
	Multiplier float64 `json:"multiplier"`
}

type scrubRequest struct {
	TargetIndex int     `json:"target_index"`
	LegProgress float64 `json:"leg_progress"`
}

// Converters.

func coordToJSON(c model.LocalCoord) coordJSON { return coordJSON{X: c.X, Y: c.Y, Z: c.Z} }

func coordFromJSON(c coordJSON) model.LocalCoord { return model.LocalCoord{X: c.X, Y: c.Y, Z: c.Z} }

func originFromJSON(o originJSON) model.Origin {
	return model.Origin{LatDeg: o.LatDeg, LonDeg: o.LonDeg, AltM: o.AltM}
}

func waypointToJSON(wp *model.Waypoint) waypointJSON {
	out := waypointJSON{
		ID:          wp.ID,
		Position:    coordToJSON(wp.Position),
		HoldTimeSec: wp.HoldTimeSec,
	}
	if wp.Camera != nil {
		out.Camera = &cameraOrientationJSON{PitchDeg: wp.Camera.PitchDeg, RollDeg: wp.Camera.RollDeg}
	}
	return out
}

func waypointFromJSON(in waypointJSON) *model.Waypoint {
	wp := &model.Waypoint{
		ID:          in.ID,
		Position:    coordFromJSON(in.Position),
		HoldTimeSec: in.HoldTimeSec,
	}
	if in.Camera != nil {
		wp.Camera = &model.CameraOrientation{PitchDeg: in.Camera.PitchDeg, RollDeg: in.Camera.RollDeg}
	}
	return wp
}

func segmentToJSON(seg *model.PathSegment) segmentJSON {
	out := segmentJSON{
		ID:      seg.ID,
		Name:    seg.Name,
		Type:    string(seg.Type),
		SpeedMS: seg.SpeedMS,
	}
	for _, wp := range seg.Waypoints {
		out.Waypoints = append(out.Waypoints, waypointToJSON(wp))
	}
	return out
}

func segmentFromJSON(in segmentJSON) *model.PathSegment {
	seg := &model.PathSegment{
		ID:      in.ID,
		Name:    in.Name,
		Type:    model.PathType(in.Type),
		SpeedMS: in.SpeedMS,
	}
	for _, wp := range in.Waypoints {
		seg.Waypoints = append(seg.Waypoints, waypointFromJSON(wp))
	}
	return seg
}

func gcpToJSON(g *model.GroundControlPoint) gcpJSON {
	return gcpJSON{ID: g.ID, Name: g.Name, Position: coordToJSON(g.Position), Surveyed: g.Surveyed}
}

func gcpFromJSON(in gcpJSON) *model.GroundControlPoint {
	return &model.GroundControlPoint{ID: in.ID, Name: in.Name, Position: coordFromJSON(in.Position), Surveyed: in.Surveyed}
}

func objectToJSON(o *model.SceneObject) sceneObjectJSON {
	return sceneObjectJSON{
		ID:         o.ID,
		Name:       o.Name,
		Kind:       string(o.Kind),
		Position:   coordToJSON(o.Position),
		WidthM:     o.WidthM,
		LengthM:    o.LengthM,
		HeightM:    o.HeightM,
		HeadingDeg: o.HeadingDeg,
		Color:      o.Color,
		AssetRef:   o.AssetRef,
		Metadata:   o.Metadata,
	}
}

func objectFromJSON(in sceneObjectJSON) *model.SceneObject {
	return &model.SceneObject{
		ID:         in.ID,
		Name:       in.Name,
		Kind:       model.SceneObjectKind(in.Kind),
		Position:   coordFromJSON(in.Position),
		WidthM:     in.WidthM,
		LengthM:    in.LengthM,
		HeightM:    in.HeightM,
		HeadingDeg: in.HeadingDeg,
		Color:      in.Color,
		AssetRef:   in.AssetRef,
		Metadata:   in.Metadata,
	}
}

func hardwareToJSON(h model.HardwareConfig) hardwareJSON {
	return hardwareJSON{
		DroneID:      h.DroneID,
		CameraID:     h.CameraID,
		LensID:       h.LensID,
		FStop:        h.FStop,
		ISO:          h.ISO,
		ShutterSpeed: h.ShutterSpeed,
	}
}

func missionToJSON(m *model.Mission) *missionJSON {
	if m == nil {
		return nil
	}
	out := &missionJSON{
		ID:               m.ID,
		Name:             m.Name,
		Origin:           originJSON{LatDeg: m.Origin.LatDeg, LonDeg: m.Origin.LonDeg, AltM: m.Origin.AltM},
		TakeoffPoint:     coordToJSON(m.TakeoffPoint),
		DefaultSpeedMS:   m.DefaultSpeedMS,
		DefaultAltitudeM: m.DefaultAltitudeM,
		Hardware:         hardwareToJSON(m.Hardware),
		Segments:         []segmentJSON{},
		GCPs:             []gcpJSON{},
		SceneObjects:     []sceneObjectJSON{},
		CreatedAt:        m.CreatedAt,
	}
	for _, seg := range m.Segments {
		out.Segments = append(out.Segments, segmentToJSON(seg))
	}
	for _, g := range m.GCPs {
		out.GCPs = append(out.GCPs, gcpToJSON(g))
	}
	for _, o := range m.SceneObjects {
		out.SceneObjects = append(out.SceneObjects, objectToJSON(o))
	}
	return out
}

func progressToJSON(p core.Progress) progressJSON {
	return progressJSON{
		Phase:          p.Phase.String(),
		SegmentID:      p.SegmentID,
		TargetIndex:    p.TargetIndex,
		LegProgress:    p.LegProgress,
		Position:       coordToJSON(p.Position),
		HeadingDeg:     p.HeadingDeg,
		CameraPitchDeg: p.CameraPitchDeg,
		CameraRollDeg:  p.CameraRollDeg,
		Done:           p.Done,
	}
}
