package core

import (
	"math"
	"testing"

	"github.com/cdav1990/overwatch-mission-core/model"
)

// threeWaypointPath builds the Scenario-A style path: three waypoints in
// a straight line, 50 m legs, 5 m/s, no holds.
func threeWaypointPath() *FlightPath {
	return &FlightPath{Points: []PathPoint{
		{SegmentID: "seg1", WaypointID: "wp1", Position: model.LocalCoord{X: 0, Z: 30}, SpeedMS: 5},
		{SegmentID: "seg1", WaypointID: "wp2", Position: model.LocalCoord{X: 50, Z: 30}, SpeedMS: 5},
		{SegmentID: "seg1", WaypointID: "wp3", Position: model.LocalCoord{X: 100, Z: 30}, SpeedMS: 5},
	}}
}

func TestStepper_StartInitializesRun(t *testing.T) {
	s := NewStepper(threeWaypointPath())
	p := s.Start()

	if p.Phase != PhaseRunning {
		t.Fatalf("phase after Start = %v, want running", p.Phase)
	}
	if p.TargetIndex != 1 {
		t.Fatalf("target index after Start = %d, want 1", p.TargetIndex)
	}
	if p.Position != (model.LocalCoord{X: 0, Z: 30}) {
		t.Fatalf("position after Start = %+v, want first path point", p.Position)
	}
	if p.HeadingDeg != 90 {
		t.Fatalf("heading after Start = %v, want 90 (due east)", p.HeadingDeg)
	}
}

func TestStepper_ScenarioA_AdvancesThroughTargetsAndStops(t *testing.T) {
	s := NewStepper(threeWaypointPath())
	s.Start()

	// 50 m at 5 m/s = 10 s per leg. 4 s in: still on leg 1.
	p, err := s.Step(4)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if p.TargetIndex != 1 || math.Abs(p.LegProgress-0.4) > 1e-9 {
		t.Fatalf("after 4s: target=%d progress=%v, want 1/0.4", p.TargetIndex, p.LegProgress)
	}
	if math.Abs(p.Position.X-20) > 1e-9 {
		t.Fatalf("after 4s: x=%v, want 20", p.Position.X)
	}

	// 8 s more: 6 s finish leg 1, 2 s carry into leg 2.
	p, err = s.Step(8)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if p.TargetIndex != 2 || math.Abs(p.LegProgress-0.2) > 1e-9 {
		t.Fatalf("after 12s: target=%d progress=%v, want 2/0.2", p.TargetIndex, p.LegProgress)
	}
	if math.Abs(p.Position.X-60) > 1e-9 {
		t.Fatalf("after 12s: x=%v, want 60", p.Position.X)
	}

	// Past the end: run completes and goes idle at the final point.
	p, err = s.Step(10)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if p.Phase != PhaseIdle || !p.Done {
		t.Fatalf("after full traversal: phase=%v done=%v, want idle/true", p.Phase, p.Done)
	}
	if p.Position != (model.LocalCoord{X: 100, Z: 30}) {
		t.Fatalf("final position = %+v, want last waypoint", p.Position)
	}

	// Further ticks are no-ops.
	p2, err := s.Step(5)
	if err != nil {
		t.Fatalf("Step after completion: %v", err)
	}
	if p2.Position != p.Position || p2.Phase != PhaseIdle {
		t.Fatalf("stepper moved after completion: %+v", p2)
	}
}

func TestStepper_ProgressAlwaysBounded(t *testing.T) {
	s := NewStepper(threeWaypointPath())
	s.Start()
	for i := 0; i < 200; i++ {
		p, err := s.Step(0.173)
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		if p.LegProgress < 0 || p.LegProgress > 1 {
			t.Fatalf("tick %d: leg progress %v out of [0,1]", i, p.LegProgress)
		}
		if p.HeadingDeg < 0 || p.HeadingDeg >= 360 {
			t.Fatalf("tick %d: heading %v out of [0,360)", i, p.HeadingDeg)
		}
	}
}

func TestStepper_ScenarioB_HoldWithCameraTransition(t *testing.T) {
	path := &FlightPath{Points: []PathPoint{
		{SegmentID: "seg1", WaypointID: "wp1", Position: model.LocalCoord{Z: 30}, SpeedMS: 5},
		{
			SegmentID:   "seg1",
			WaypointID:  "wp2",
			Position:    model.LocalCoord{X: 10, Z: 30},
			SpeedMS:     5,
			HoldTimeSec: 2,
			Camera:      &model.CameraOrientation{PitchDeg: -45},
		},
		{SegmentID: "seg1", WaypointID: "wp3", Position: model.LocalCoord{X: 20, Z: 30}, SpeedMS: 5},
	}}
	s := NewStepper(path)
	s.Start()

	// Leg takes 2 s; arrive exactly and transition to holding.
	p, err := s.Step(2)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if p.Phase != PhaseHolding {
		t.Fatalf("phase at hold waypoint = %v, want holding", p.Phase)
	}
	if p.TargetIndex != 1 {
		t.Fatalf("holding should not advance the target index, got %d", p.TargetIndex)
	}

	// Transition window is min(2s, hold/2) = 1 s. Half-way through it
	// the pitch should be half-way to -45.
	p, err = s.Step(0.5)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if math.Abs(p.CameraPitchDeg-(-22.5)) > 1e-9 {
		t.Fatalf("pitch mid-transition = %v, want -22.5", p.CameraPitchDeg)
	}

	// At 1 s the transition is complete; the hold continues.
	p, err = s.Step(0.5)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if math.Abs(p.CameraPitchDeg-(-45)) > 1e-9 {
		t.Fatalf("pitch after transition = %v, want -45", p.CameraPitchDeg)
	}
	if p.Phase != PhaseHolding {
		t.Fatalf("hold ended early: phase %v", p.Phase)
	}

	// Remaining 1 s of hold elapses, then movement resumes.
	p, err = s.Step(1.5)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if p.Phase != PhaseRunning || p.TargetIndex != 2 {
		t.Fatalf("after hold: phase=%v target=%d, want running/2", p.Phase, p.TargetIndex)
	}
	// 0.5 s of travel at 5 m/s into the 10 m leg.
	if math.Abs(p.LegProgress-0.25) > 1e-9 {
		t.Fatalf("leftover time not carried into next leg: progress %v", p.LegProgress)
	}
}

func TestStepper_ShortHoldStillReachesCameraTarget(t *testing.T) {
	path := &FlightPath{Points: []PathPoint{
		{WaypointID: "wp1", Position: model.LocalCoord{}, SpeedMS: 5},
		{
			WaypointID:  "wp2",
			Position:    model.LocalCoord{X: 5},
			SpeedMS:     5,
			HoldTimeSec: 0.4,
			Camera:      &model.CameraOrientation{PitchDeg: -30, RollDeg: 10},
		},
		{WaypointID: "wp3", Position: model.LocalCoord{X: 10}, SpeedMS: 5},
	}}
	s := NewStepper(path)
	s.Start()

	p, err := s.Step(1.5)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if p.Phase != PhaseRunning {
		t.Fatalf("expected run to resume, phase %v", p.Phase)
	}
	if p.CameraPitchDeg != -30 || p.CameraRollDeg != 10 {
		t.Fatalf("camera did not settle at hold target: pitch=%v roll=%v", p.CameraPitchDeg, p.CameraRollDeg)
	}
}

func TestStepper_ScenarioC_CoincidentWaypoints(t *testing.T) {
	path := &FlightPath{Points: []PathPoint{
		{WaypointID: "wp1", Position: model.LocalCoord{X: 10, Y: 10, Z: 30}, SpeedMS: 5},
		{WaypointID: "wp2", Position: model.LocalCoord{X: 10, Y: 10, Z: 30}, SpeedMS: 5},
		{WaypointID: "wp3", Position: model.LocalCoord{X: 40, Y: 10, Z: 30}, SpeedMS: 5},
	}}
	s := NewStepper(path)
	s.Start()

	p, err := s.Step(0.001)
	if err != nil {
		t.Fatalf("Step over degenerate leg: %v", err)
	}
	// The zero-length leg is crossed instantly, without consuming time.
	if p.TargetIndex != 2 {
		t.Fatalf("degenerate leg not skipped: target %d", p.TargetIndex)
	}
	if p.LegProgress < 0 || p.LegProgress > 1 {
		t.Fatalf("leg progress %v out of bounds after degenerate leg", p.LegProgress)
	}
}

func TestStepper_SpeedMultiplierScalesAdvance(t *testing.T) {
	s := NewStepper(threeWaypointPath())
	s.Start()
	if err := s.SetSpeedMultiplier(4); err != nil {
		t.Fatalf("SetSpeedMultiplier: %v", err)
	}

	// 1 s at 4x = 4 s simulated = 20 m of the 50 m leg.
	p, err := s.Step(1)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if math.Abs(p.LegProgress-0.4) > 1e-9 {
		t.Fatalf("progress with 4x multiplier = %v, want 0.4", p.LegProgress)
	}

	if err := s.SetSpeedMultiplier(0); err == nil {
		t.Fatalf("zero multiplier must be rejected")
	}
	if err := s.SetSpeedMultiplier(-1); err == nil {
		t.Fatalf("negative multiplier must be rejected")
	}
}

func TestStepper_StopZeroesProgress(t *testing.T) {
	s := NewStepper(threeWaypointPath())
	s.Start()
	if _, err := s.Step(3); err != nil {
		t.Fatalf("Step: %v", err)
	}

	p := s.Stop()
	if p.Phase != PhaseIdle || p.TargetIndex != 0 || p.LegProgress != 0 || p.Done {
		t.Fatalf("Stop left residual progress: %+v", p)
	}
	if p.Position != (model.LocalCoord{}) {
		t.Fatalf("Stop should zero the position, got %+v", p.Position)
	}
}

func TestStepper_SeekToScrubsRun(t *testing.T) {
	s := NewStepper(threeWaypointPath())

	if _, err := s.SeekTo(1, 0.5); err != ErrNotRunning {
		t.Fatalf("SeekTo while idle: err = %v, want ErrNotRunning", err)
	}

	s.Start()
	p, err := s.SeekTo(2, 0.5)
	if err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	if p.TargetIndex != 2 || p.LegProgress != 0.5 {
		t.Fatalf("SeekTo landed at %d/%v, want 2/0.5", p.TargetIndex, p.LegProgress)
	}
	if math.Abs(p.Position.X-75) > 1e-9 {
		t.Fatalf("SeekTo position x=%v, want 75", p.Position.X)
	}

	// Out-of-range values clamp instead of failing.
	p, err = s.SeekTo(99, 7)
	if err != nil {
		t.Fatalf("SeekTo clamp: %v", err)
	}
	if p.Phase != PhaseIdle || !p.Done {
		t.Fatalf("seek to the very end should complete the run, got %+v", p)
	}
}

func TestStepper_PanicDuringStepForcesIdle(t *testing.T) {
	s := NewStepper(threeWaypointPath())
	s.Start()

	// Corrupt the path mid-run; the next index access panics and must
	// be contained rather than crashing the tick driver.
	s.path.Points = nil

	p, err := s.Step(1)
	if err == nil {
		t.Fatalf("expected an error from the recovered panic")
	}
	if p.Phase != PhaseIdle {
		t.Fatalf("panic must force the stepper to idle, got %v", p.Phase)
	}

	// The stepper stays usable for a fresh run.
	s.path = threeWaypointPath()
	p = s.Start()
	if p.Phase != PhaseRunning {
		t.Fatalf("stepper unusable after recovered panic: %v", p.Phase)
	}
}

func TestStepper_EmptyAndSinglePointPaths(t *testing.T) {
	s := NewStepper(&FlightPath{})
	p := s.Start()
	if p.Phase != PhaseIdle || !p.Done {
		t.Fatalf("empty path should complete immediately, got %+v", p)
	}

	s = NewStepper(&FlightPath{Points: []PathPoint{
		{WaypointID: "only", Position: model.LocalCoord{X: 5, Z: 10}, SpeedMS: 5},
	}})
	p = s.Start()
	if p.Phase != PhaseIdle || !p.Done {
		t.Fatalf("single-point path should complete immediately, got %+v", p)
	}
	if p.Position != (model.LocalCoord{X: 5, Z: 10}) {
		t.Fatalf("single-point path should park at the point, got %+v", p.Position)
	}
}
