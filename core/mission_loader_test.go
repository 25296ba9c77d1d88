package core

import (
	"strings"
	"testing"

	"github.com/cdav1990/overwatch-mission-core/model"
)

const sampleMissionYAML = `
id: demo-1
name: Facade Survey
origin:
  lat: 37.7749
  lon: -122.4194
  alt: 12
takeoff: {x: 0, y: 0, z: 0}
default_speed_ms: 6
default_altitude_m: 45
safety:
  min_altitude_m: 5
  max_altitude_m: 100
  geofence_radius_m: 300
  climb_speed_ms: 2.5
  return_altitude_m: 35
hardware:
  drone_id: freefly-astro
  camera_id: ixm100
  lens_id: rsm80
  fstop: 5.6
segments:
  - id: approach
    name: Approach
    type: straight
    waypoints:
      - id: wp1
        position: {x: 0, y: 0, z: 30}
      - id: wp2
        position: {x: 40, y: 0, z: 30}
        hold_sec: 2
        camera: {pitch_deg: -45}
  - id: orbit
    type: polygon
    speed_ms: 3
    waypoints:
      - position: {x: 40, y: 10, z: 30}
      - position: {x: 60, y: 10, z: 30}
      - position: {x: 50, y: 30, z: 30}
gcps:
  - id: gcp-a
    name: Pad corner
    position: {x: -5, y: -5, z: 0}
    surveyed: true
scene_objects:
  - name: Generator shed
    kind: box
    position: {x: 20, y: -15, z: 0}
    width_m: 4
    length_m: 6
    height_m: 3
    color: "#888888"
`

func TestLoadMission_FullDocument(t *testing.T) {
	m, summary, err := LoadMission(strings.NewReader(sampleMissionYAML))
	if err != nil {
		t.Fatalf("LoadMission: %v", err)
	}

	if m.ID != "demo-1" || m.Name != "Facade Survey" {
		t.Fatalf("identity not loaded: %q %q", m.ID, m.Name)
	}
	if m.Origin.LatDeg != 37.7749 || m.Origin.AltM != 12 {
		t.Fatalf("origin not loaded: %+v", m.Origin)
	}
	if m.DefaultSpeedMS != 6 || m.DefaultAltitudeM != 45 {
		t.Fatalf("defaults not loaded: %v %v", m.DefaultSpeedMS, m.DefaultAltitudeM)
	}
	if m.Safety.GeofenceRadiusM != 300 || m.Safety.ClimbSpeedMS != 2.5 {
		t.Fatalf("safety not loaded: %+v", m.Safety)
	}
	if m.Hardware.CameraID != "ixm100" || m.Hardware.FStop != 5.6 {
		t.Fatalf("hardware not loaded: %+v", m.Hardware)
	}

	if len(m.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(m.Segments))
	}
	if m.Segments[0].Type != model.PathStraight || m.Segments[1].Type != model.PathPolygon {
		t.Fatalf("segment types: %v %v", m.Segments[0].Type, m.Segments[1].Type)
	}
	if m.Segments[1].SpeedMS != 3 {
		t.Fatalf("segment speed override not loaded: %v", m.Segments[1].SpeedMS)
	}

	wp2 := m.Segments[0].Waypoints[1]
	if wp2.HoldTimeSec != 2 || wp2.Camera == nil || wp2.Camera.PitchDeg != -45 {
		t.Fatalf("waypoint hold/camera not loaded: %+v", wp2)
	}

	// Waypoints without IDs get generated ones.
	for _, wp := range m.Segments[1].Waypoints {
		if wp.ID == "" {
			t.Fatalf("waypoint ID not generated")
		}
	}

	if len(m.GCPs) != 1 || !m.GCPs[0].Surveyed {
		t.Fatalf("gcps not loaded: %+v", m.GCPs)
	}
	if len(m.SceneObjects) != 1 || m.SceneObjects[0].Kind != model.SceneObjectBox {
		t.Fatalf("scene objects not loaded: %+v", m.SceneObjects)
	}

	if summary.WaypointCount != 5 || summary.GCPCount != 1 || summary.ObjectCount != 1 {
		t.Fatalf("summary wrong: %+v", summary)
	}
	if len(summary.SegmentIDs) != 2 || summary.SegmentIDs[0] != "approach" {
		t.Fatalf("summary segment ids wrong: %+v", summary.SegmentIDs)
	}
}

func TestLoadMission_Defaults(t *testing.T) {
	m, _, err := LoadMission(strings.NewReader("name: Minimal\n"))
	if err != nil {
		t.Fatalf("LoadMission: %v", err)
	}
	if m.ID == "" {
		t.Fatalf("mission ID not generated")
	}
	if m.DefaultSpeedMS != 5 || m.DefaultAltitudeM != 40 {
		t.Fatalf("stock defaults not applied: %v %v", m.DefaultSpeedMS, m.DefaultAltitudeM)
	}
	if m.Safety != model.DefaultSafetyParams() {
		t.Fatalf("safety defaults not applied: %+v", m.Safety)
	}
}

func TestLoadMission_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing name", "id: x\n"},
		{"bad yaml", "name: [unclosed\n"},
		{"unknown path type", "name: X\nsegments:\n  - id: s\n    type: spiral\n"},
		{"unknown object kind", "name: X\nscene_objects:\n  - name: o\n    kind: sphere\n"},
	}
	for _, tc := range cases {
		if _, _, err := LoadMission(strings.NewReader(tc.doc)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
