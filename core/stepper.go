// core/stepper.go
package core

import (
	"errors"
	"fmt"

	"github.com/cdav1990/overwatch-mission-core/model"
)

const (
	// legEpsilon is the leg distance below which two consecutive path
	// points are treated as coincident: progress jumps straight to 1 so
	// interpolation never divides by a near-zero distance.
	legEpsilon = 1e-6

	// maxCameraTransitionSec caps how long a gimbal transition at a
	// hold waypoint may take.
	maxCameraTransitionSec = 2.0
)

// ErrNotRunning indicates a control operation that requires an active
// simulation run.
var ErrNotRunning = errors.New("stepper is not running")

// Phase is the stepper's state-machine phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseHolding
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseHolding:
		return "holding"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Progress is a per-tick snapshot of the simulated drone state.
type Progress struct {
	Phase          Phase
	SegmentID      string
	TargetIndex    int
	LegProgress    float64
	Position       model.LocalCoord
	HeadingDeg     float64
	CameraPitchDeg float64
	CameraRollDeg  float64

	// Done reports that the run reached the final path point (as
	// opposed to being stopped or never started).
	Done bool
}

// Stepper advances a drone avatar along a flattened flight path.
//
// The state machine: Idle -> Running on Start; Running -> Holding when a
// leg completes at a waypoint with positive hold time; Holding -> Running
// when the hold elapses; Running/Holding -> Idle at the final point or on
// Stop. Reaching legProgress == 1 triggers either a hold transition or an
// advance to the next leg, never both in the same instant.
//
// Stepper is not safe for concurrent use; the owning store serializes
// access (one logical tick per rendered frame).
type Stepper struct {
	path       *FlightPath
	multiplier float64

	phase       Phase
	targetIndex int
	legProgress float64
	pos         model.LocalCoord
	heading     float64
	completed   bool

	holdRemaining float64

	camPitch, camRoll         float64
	camFromPitch, camFromRoll float64
	camTransitionTotal        float64
	camTransitionElapsed      float64
}

// NewStepper constructs an idle stepper over the given path with a unit
// speed multiplier.
func NewStepper(path *FlightPath) *Stepper {
	return &Stepper{path: path, multiplier: 1}
}

// SetSpeedMultiplier adjusts the simulation speed factor. The factor
// scales elapsed time, so holds shorten along with legs.
func (s *Stepper) SetSpeedMultiplier(m float64) error {
	if m <= 0 {
		return fmt.Errorf("speed multiplier must be positive, got %v", m)
	}
	s.multiplier = m
	return nil
}

// SpeedMultiplier returns the current speed factor.
func (s *Stepper) SpeedMultiplier() float64 { return s.multiplier }

// CurrentPhase returns the state-machine phase.
func (s *Stepper) CurrentPhase() Phase { return s.phase }

// Start initializes the run: position at the first path point, target
// index 1, phase Running. A path with fewer than two points completes
// immediately.
func (s *Stepper) Start() Progress {
	s.reset()
	if s.path == nil || s.path.Len() == 0 {
		s.completed = true
		return s.progress()
	}
	s.pos = s.path.Points[0].Position
	if s.path.Len() < 2 {
		s.completed = true
		return s.progress()
	}
	s.phase = PhaseRunning
	s.targetIndex = 1
	if h, ok := HeadingDeg(s.path.Points[0].Position, s.path.Points[1].Position); ok {
		s.heading = h
	}
	return s.progress()
}

// Stop aborts the run and zeroes all transient progress state.
func (s *Stepper) Stop() Progress {
	s.reset()
	return s.progress()
}

// SeekTo scrubs the active run to the given target index and leg
// progress, both clamped to valid ranges. Any in-progress hold or
// camera transition is cancelled. Concurrent ticks and scrubs follow
// last-write-wins ordering; there is no merge.
func (s *Stepper) SeekTo(targetIndex int, legProgress float64) (Progress, error) {
	if s.phase == PhaseIdle {
		return s.progress(), ErrNotRunning
	}
	if targetIndex < 1 {
		targetIndex = 1
	}
	if max := s.path.Len() - 1; targetIndex > max {
		targetIndex = max
	}
	if legProgress < 0 {
		legProgress = 0
	} else if legProgress > 1 {
		legProgress = 1
	}

	s.phase = PhaseRunning
	s.holdRemaining = 0
	s.camTransitionTotal = 0
	s.camTransitionElapsed = 0
	s.targetIndex = targetIndex
	s.legProgress = legProgress

	cur := s.path.Points[targetIndex-1]
	tgt := s.path.Points[targetIndex]
	s.pos = Lerp(cur.Position, tgt.Position, legProgress)
	if h, ok := HeadingDeg(cur.Position, tgt.Position); ok {
		s.heading = h
	}
	if legProgress >= 1 {
		s.arriveAtTarget()
	}
	return s.progress(), nil
}

// Step advances the simulation by dtSec seconds of wall time, scaled by
// the speed multiplier. Time left over at a leg boundary carries into
// the next leg or hold. Any panic during the step is contained: the run
// is force-stopped to Idle and the panic is returned as an error so the
// tick driver keeps running.
func (s *Stepper) Step(dtSec float64) (prog Progress, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.reset()
			prog = s.progress()
			err = fmt.Errorf("simulation step failed: %v", r)
		}
	}()

	if s.phase == PhaseIdle {
		return s.progress(), nil
	}
	if dtSec < 0 {
		dtSec = 0
	}

	remaining := dtSec * s.multiplier
	for remaining > 0 && s.phase != PhaseIdle {
		switch s.phase {
		case PhaseHolding:
			remaining = s.stepHold(remaining)
		case PhaseRunning:
			remaining = s.stepLeg(remaining)
		}
	}
	return s.progress(), nil
}

// Progress returns the current snapshot without advancing time.
func (s *Stepper) Progress() Progress { return s.progress() }

// stepHold consumes hold time, driving the camera transition, and
// returns the unconsumed budget.
func (s *Stepper) stepHold(budget float64) float64 {
	step := budget
	if step > s.holdRemaining {
		step = s.holdRemaining
	}
	s.holdRemaining -= step
	s.advanceCamera(step)

	if s.holdRemaining <= 1e-9 {
		s.settleCamera()
		s.advanceTarget()
	}
	return budget - step
}

// stepLeg advances legProgress along the current leg and returns the
// unconsumed budget.
func (s *Stepper) stepLeg(budget float64) float64 {
	cur := s.path.Points[s.targetIndex-1]
	tgt := s.path.Points[s.targetIndex]

	legDist := Distance(cur.Position, tgt.Position)
	if legDist < legEpsilon {
		// Coincident waypoints: arrive instantly, consuming no time.
		s.legProgress = 1
	} else {
		advance := tgt.SpeedMS * budget / legDist
		needed := 1 - s.legProgress
		if advance >= needed {
			budget -= needed * legDist / tgt.SpeedMS
			s.legProgress = 1
		} else {
			s.legProgress += advance
			budget = 0
		}
	}

	s.pos = Lerp(cur.Position, tgt.Position, s.legProgress)
	if h, ok := HeadingDeg(cur.Position, tgt.Position); ok {
		s.heading = h
	}

	if s.legProgress >= 1 {
		s.arriveAtTarget()
	}
	return budget
}

// arriveAtTarget handles reaching legProgress == 1: exactly one of a
// hold transition or an advance to the next leg.
func (s *Stepper) arriveAtTarget() {
	tgt := s.path.Points[s.targetIndex]
	if tgt.HoldTimeSec > 0 {
		s.phase = PhaseHolding
		s.holdRemaining = tgt.HoldTimeSec
		if tgt.Camera != nil {
			total := tgt.HoldTimeSec / 2
			if total > maxCameraTransitionSec {
				total = maxCameraTransitionSec
			}
			s.camFromPitch = s.camPitch
			s.camFromRoll = s.camRoll
			s.camTransitionTotal = total
			s.camTransitionElapsed = 0
		}
		return
	}
	s.advanceTarget()
}

// advanceTarget moves to the next leg, or completes the run at the
// final path point.
func (s *Stepper) advanceTarget() {
	if s.targetIndex >= s.path.Len()-1 {
		final := s.path.Points[s.path.Len()-1].Position
		s.reset()
		s.pos = final
		s.completed = true
		return
	}
	s.phase = PhaseRunning
	s.targetIndex++
	s.legProgress = 0
}

// advanceCamera interpolates pitch/roll toward the hold waypoint's
// camera target across the capped transition window.
func (s *Stepper) advanceCamera(dt float64) {
	tgt := s.path.Points[s.targetIndex]
	if tgt.Camera == nil || s.camTransitionTotal <= 0 {
		return
	}
	s.camTransitionElapsed += dt
	t := s.camTransitionElapsed / s.camTransitionTotal
	if t > 1 {
		t = 1
	}
	s.camPitch = s.camFromPitch + (tgt.Camera.PitchDeg-s.camFromPitch)*t
	s.camRoll = s.camFromRoll + (tgt.Camera.RollDeg-s.camFromRoll)*t
}

// settleCamera snaps the gimbal to the hold target when the hold ends,
// covering holds shorter than the transition window.
func (s *Stepper) settleCamera() {
	tgt := s.path.Points[s.targetIndex]
	if tgt.Camera == nil {
		return
	}
	s.camPitch = tgt.Camera.PitchDeg
	s.camRoll = tgt.Camera.RollDeg
	s.camTransitionTotal = 0
	s.camTransitionElapsed = 0
}

func (s *Stepper) reset() {
	s.phase = PhaseIdle
	s.targetIndex = 0
	s.legProgress = 0
	s.pos = model.LocalCoord{}
	s.heading = 0
	s.camPitch = 0
	s.camRoll = 0
	s.completed = false
	s.holdRemaining = 0
	s.camTransitionTotal = 0
	s.camTransitionElapsed = 0
}

func (s *Stepper) progress() Progress {
	p := Progress{
		Phase:          s.phase,
		TargetIndex:    s.targetIndex,
		LegProgress:    s.legProgress,
		Position:       s.pos,
		HeadingDeg:     s.heading,
		CameraPitchDeg: s.camPitch,
		CameraRollDeg:  s.camRoll,
		Done:           s.completed,
	}
	if s.phase != PhaseIdle && s.path != nil && s.targetIndex < s.path.Len() {
		p.SegmentID = s.path.Points[s.targetIndex].SegmentID
	}
	return p
}
