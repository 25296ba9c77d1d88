// core/path.go
package core

import (
	"errors"
	"fmt"

	"github.com/cdav1990/overwatch-mission-core/model"
)

const (
	// minSpeedMS is the floor applied to resolved leg speeds so that
	// interpolation never divides by a non-positive speed.
	minSpeedMS = 0.1

	// bezierSamplesPerSpan controls how densely curved segments are
	// flattened into straight legs.
	bezierSamplesPerSpan = 16
)

// ErrInvalidGrid indicates grid generation parameters that cannot
// produce a lawnmower pattern.
var ErrInvalidGrid = errors.New("invalid grid parameters")

// PathPoint is one flattened point of a mission's flyable path.
// WaypointID is empty for sampled intermediate points of curved
// segments; hold and camera apply only at real waypoints.
type PathPoint struct {
	SegmentID   string
	WaypointID  string
	Position    model.LocalCoord
	HoldTimeSec float64
	Camera      *model.CameraOrientation

	// SpeedMS is the resolved traversal speed for the leg arriving at
	// this point (segment override, else mission default, floored at
	// minSpeedMS).
	SpeedMS float64
}

// FlightPath is the ordered, flattened traversal of a mission's
// segments, ready for the simulation stepper.
type FlightPath struct {
	Points []PathPoint
}

// Len returns the number of path points.
func (fp *FlightPath) Len() int { return len(fp.Points) }

// BuildFlightPath flattens a mission's segments, in order, into a
// single flyable path. Segments with no waypoints are skipped.
func BuildFlightPath(m *model.Mission) (*FlightPath, error) {
	if m == nil {
		return nil, errors.New("mission is nil")
	}

	fp := &FlightPath{}
	for _, seg := range m.Segments {
		if len(seg.Waypoints) == 0 {
			continue
		}
		speed := resolveSpeed(seg, m)
		switch seg.Type {
		case model.PathBezier:
			appendBezier(fp, seg, speed)
		case model.PathPolygon:
			appendVerbatim(fp, seg, speed)
			// Close the loop with an anonymous copy of the first vertex.
			first := seg.Waypoints[0]
			fp.Points = append(fp.Points, PathPoint{
				SegmentID: seg.ID,
				Position:  first.Position,
				SpeedMS:   speed,
			})
		case model.PathStraight, model.PathGrid:
			appendVerbatim(fp, seg, speed)
		default:
			return nil, fmt.Errorf("segment %q has unknown path type %q", seg.ID, seg.Type)
		}
	}
	return fp, nil
}

func resolveSpeed(seg *model.PathSegment, m *model.Mission) float64 {
	speed := seg.SpeedMS
	if speed <= 0 {
		speed = m.DefaultSpeedMS
	}
	if speed < minSpeedMS {
		speed = minSpeedMS
	}
	return speed
}

func appendVerbatim(fp *FlightPath, seg *model.PathSegment, speed float64) {
	for _, wp := range seg.Waypoints {
		fp.Points = append(fp.Points, PathPoint{
			SegmentID:   seg.ID,
			WaypointID:  wp.ID,
			Position:    wp.Position,
			HoldTimeSec: wp.HoldTimeSec,
			Camera:      wp.Camera,
			SpeedMS:     speed,
		})
	}
}

// appendBezier treats the segment's waypoints as the control polygon of
// a single Bézier curve and flattens it with De Casteljau sampling.
// Only the endpoints keep their waypoint identity, hold, and camera.
func appendBezier(fp *FlightPath, seg *model.PathSegment, speed float64) {
	wps := seg.Waypoints
	if len(wps) < 3 {
		// A curve needs at least one interior control point; fall back
		// to straight legs.
		appendVerbatim(fp, seg, speed)
		return
	}

	ctrl := make([]model.LocalCoord, len(wps))
	for i, wp := range wps {
		ctrl[i] = wp.Position
	}

	first, last := wps[0], wps[len(wps)-1]
	fp.Points = append(fp.Points, PathPoint{
		SegmentID:   seg.ID,
		WaypointID:  first.ID,
		Position:    first.Position,
		HoldTimeSec: first.HoldTimeSec,
		Camera:      first.Camera,
		SpeedMS:     speed,
	})

	samples := bezierSamplesPerSpan * (len(wps) - 1)
	for i := 1; i < samples; i++ {
		t := float64(i) / float64(samples)
		fp.Points = append(fp.Points, PathPoint{
			SegmentID: seg.ID,
			Position:  deCasteljau(ctrl, t),
			SpeedMS:   speed,
		})
	}

	fp.Points = append(fp.Points, PathPoint{
		SegmentID:   seg.ID,
		WaypointID:  last.ID,
		Position:    last.Position,
		HoldTimeSec: last.HoldTimeSec,
		Camera:      last.Camera,
		SpeedMS:     speed,
	})
}

// deCasteljau evaluates the Bézier curve with the given control points
// at parameter t in [0,1].
func deCasteljau(ctrl []model.LocalCoord, t float64) model.LocalCoord {
	pts := make([]model.LocalCoord, len(ctrl))
	copy(pts, ctrl)
	for level := len(pts) - 1; level > 0; level-- {
		for i := 0; i < level; i++ {
			pts[i] = Lerp(pts[i], pts[i+1], t)
		}
	}
	return pts[0]
}

// GridBounds is the axis-aligned survey area for grid generation, in
// local ENU metres.
type GridBounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// GenerateGridWaypoints produces a serpentine lawnmower pattern over
// bounds at the given altitude: rows run east-west, stepping north by
// spacingM, with alternating direction so consecutive rows connect at
// the near end.
func GenerateGridWaypoints(bounds GridBounds, spacingM, altitudeM float64) ([]*model.Waypoint, error) {
	if spacingM <= 0 {
		return nil, fmt.Errorf("%w: spacing must be positive, got %v", ErrInvalidGrid, spacingM)
	}
	if bounds.MaxX <= bounds.MinX || bounds.MaxY <= bounds.MinY {
		return nil, fmt.Errorf("%w: degenerate bounds %+v", ErrInvalidGrid, bounds)
	}

	var wps []*model.Waypoint
	reverse := false
	for y := bounds.MinY; y <= bounds.MaxY+1e-9; y += spacingM {
		startX, endX := bounds.MinX, bounds.MaxX
		if reverse {
			startX, endX = endX, startX
		}
		wps = append(wps,
			&model.Waypoint{Position: model.LocalCoord{X: startX, Y: y, Z: altitudeM}},
			&model.Waypoint{Position: model.LocalCoord{X: endX, Y: y, Z: altitudeM}},
		)
		reverse = !reverse
	}
	return wps, nil
}
