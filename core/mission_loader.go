// core/mission_loader.go
package core

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cdav1990/overwatch-mission-core/model"
)

// MissionSummary is a small summary of what was loaded from YAML.
// It's mainly useful for logging from main().
type MissionSummary struct {
	SegmentIDs    []string
	WaypointCount int
	GCPCount      int
	ObjectCount   int
}

// internal YAML shapes - unexported so we're free to evolve them.
type missionYAML struct {
	ID               string            `yaml:"id"`
	Name             string            `yaml:"name"`
	Origin           originYAML        `yaml:"origin"`
	Takeoff          coordYAML         `yaml:"takeoff"`
	DefaultSpeedMS   float64           `yaml:"default_speed_ms"`
	DefaultAltitudeM float64           `yaml:"default_altitude_m"`
	Safety           *safetyYAML       `yaml:"safety"`
	Hardware         hardwareYAML      `yaml:"hardware"`
	Segments         []segmentYAML     `yaml:"segments"`
	GCPs             []gcpYAML         `yaml:"gcps"`
	SceneObjects     []sceneObjectYAML `yaml:"scene_objects"`
}

type originYAML struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
	Alt float64 `yaml:"alt"`
}

type coordYAML struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type safetyYAML struct {
	MinAltitudeM    float64 `yaml:"min_altitude_m"`
	MaxAltitudeM    float64 `yaml:"max_altitude_m"`
	GeofenceRadiusM float64 `yaml:"geofence_radius_m"`
	ClimbSpeedMS    float64 `yaml:"climb_speed_ms"`
	ReturnAltitudeM float64 `yaml:"return_altitude_m"`
}

type hardwareYAML struct {
	DroneID  string  `yaml:"drone_id"`
	CameraID string  `yaml:"camera_id"`
	LensID   string  `yaml:"lens_id"`
	FStop    float64 `yaml:"fstop"`
}

type segmentYAML struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type"` // straight | bezier | grid | polygon
	SpeedMS   float64        `yaml:"speed_ms"`
	Waypoints []waypointYAML `yaml:"waypoints"`
}

type waypointYAML struct {
	ID       string      `yaml:"id"`
	Position coordYAML   `yaml:"position"`
	HoldSec  float64     `yaml:"hold_sec"`
	Camera   *cameraYAML `yaml:"camera"`
}

type cameraYAML struct {
	PitchDeg float64 `yaml:"pitch_deg"`
	RollDeg  float64 `yaml:"roll_deg"`
}

type gcpYAML struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Position coordYAML `yaml:"position"`
	Surveyed bool      `yaml:"surveyed"`
}

type sceneObjectYAML struct {
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name"`
	Kind       string            `yaml:"kind"`
	Position   coordYAML         `yaml:"position"`
	WidthM     float64           `yaml:"width_m"`
	LengthM    float64           `yaml:"length_m"`
	HeightM    float64           `yaml:"height_m"`
	HeadingDeg float64           `yaml:"heading_deg"`
	Color      string            `yaml:"color"`
	AssetRef   string            `yaml:"asset_ref"`
	Metadata   map[string]string `yaml:"metadata"`
}

// LoadMission reads a mission definition from YAML. It fails on
// structural errors and unknown path types; missing IDs are filled with
// generated UUIDs, and a missing safety block gets the stock defaults.
func LoadMission(r io.Reader) (*model.Mission, *MissionSummary, error) {
	var payload missionYAML
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("LoadMission: decode failed: %w", err)
	}

	if strings.TrimSpace(payload.Name) == "" {
		return nil, nil, fmt.Errorf("LoadMission: mission name is required")
	}

	m := &model.Mission{
		ID:               orUUID(payload.ID),
		Name:             payload.Name,
		Origin:           model.Origin{LatDeg: payload.Origin.Lat, LonDeg: payload.Origin.Lon, AltM: payload.Origin.Alt},
		TakeoffPoint:     coord(payload.Takeoff),
		DefaultSpeedMS:   payload.DefaultSpeedMS,
		DefaultAltitudeM: payload.DefaultAltitudeM,
		Safety:           model.DefaultSafetyParams(),
		Hardware: model.HardwareConfig{
			DroneID:  payload.Hardware.DroneID,
			CameraID: payload.Hardware.CameraID,
			LensID:   payload.Hardware.LensID,
			FStop:    payload.Hardware.FStop,
		},
		CreatedAt: time.Now().UTC(),
	}
	if m.DefaultSpeedMS <= 0 {
		m.DefaultSpeedMS = 5
	}
	if m.DefaultAltitudeM <= 0 {
		m.DefaultAltitudeM = 40
	}
	if payload.Safety != nil {
		m.Safety = model.SafetyParams{
			MinAltitudeM:    payload.Safety.MinAltitudeM,
			MaxAltitudeM:    payload.Safety.MaxAltitudeM,
			GeofenceRadiusM: payload.Safety.GeofenceRadiusM,
			ClimbSpeedMS:    payload.Safety.ClimbSpeedMS,
			ReturnAltitudeM: payload.Safety.ReturnAltitudeM,
		}
	}

	summary := &MissionSummary{}
	for i, segY := range payload.Segments {
		seg, err := segmentFromYAML(segY)
		if err != nil {
			return nil, nil, fmt.Errorf("LoadMission: segment[%d]: %w", i, err)
		}
		m.Segments = append(m.Segments, seg)
		summary.SegmentIDs = append(summary.SegmentIDs, seg.ID)
		summary.WaypointCount += len(seg.Waypoints)
	}

	for _, g := range payload.GCPs {
		m.GCPs = append(m.GCPs, &model.GroundControlPoint{
			ID:       orUUID(g.ID),
			Name:     g.Name,
			Position: coord(g.Position),
			Surveyed: g.Surveyed,
		})
	}
	summary.GCPCount = len(m.GCPs)

	for i, o := range payload.SceneObjects {
		kind := model.SceneObjectKind(o.Kind)
		if kind == "" {
			kind = model.SceneObjectBox
		}
		if kind != model.SceneObjectBox && kind != model.SceneObjectModel {
			return nil, nil, fmt.Errorf("LoadMission: scene_objects[%d]: unknown kind %q", i, o.Kind)
		}
		m.SceneObjects = append(m.SceneObjects, &model.SceneObject{
			ID:         orUUID(o.ID),
			Name:       o.Name,
			Kind:       kind,
			Position:   coord(o.Position),
			WidthM:     o.WidthM,
			LengthM:    o.LengthM,
			HeightM:    o.HeightM,
			HeadingDeg: o.HeadingDeg,
			Color:      o.Color,
			AssetRef:   o.AssetRef,
			Metadata:   o.Metadata,
		})
	}
	summary.ObjectCount = len(m.SceneObjects)

	return m, summary, nil
}

func segmentFromYAML(segY segmentYAML) (*model.PathSegment, error) {
	pathType, err := pathTypeFromString(segY.Type)
	if err != nil {
		return nil, err
	}
	seg := &model.PathSegment{
		ID:      orUUID(segY.ID),
		Name:    segY.Name,
		Type:    pathType,
		SpeedMS: segY.SpeedMS,
	}
	for _, wpY := range segY.Waypoints {
		wp := &model.Waypoint{
			ID:          orUUID(wpY.ID),
			Position:    coord(wpY.Position),
			HoldTimeSec: wpY.HoldSec,
		}
		if wpY.Camera != nil {
			wp.Camera = &model.CameraOrientation{
				PitchDeg: wpY.Camera.PitchDeg,
				RollDeg:  wpY.Camera.RollDeg,
			}
		}
		seg.Waypoints = append(seg.Waypoints, wp)
	}
	return seg, nil
}

// pathTypeFromString maps the YAML "type" string to our PathType tags.
// Empty defaults to straight; anything unrecognized is an error rather
// than a silent fallback, since the tag changes flight geometry.
func pathTypeFromString(s string) (model.PathType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "straight", "line":
		return model.PathStraight, nil
	case "bezier", "curve":
		return model.PathBezier, nil
	case "grid", "survey":
		return model.PathGrid, nil
	case "polygon", "perimeter":
		return model.PathPolygon, nil
	default:
		return "", fmt.Errorf("unknown path type %q", s)
	}
}

func coord(c coordYAML) model.LocalCoord {
	return model.LocalCoord{X: c.X, Y: c.Y, Z: c.Z}
}

func orUUID(id string) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return uuid.NewString()
}
