// Command simulator runs a mission file to completion without the API
// server, printing per-tick progress. Useful for validating mission
// YAML and timing estimates before flying.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cdav1990/overwatch-mission-core/core"
	"github.com/cdav1990/overwatch-mission-core/internal/logging"
	sim "github.com/cdav1990/overwatch-mission-core/internal/sim/state"
	"github.com/cdav1990/overwatch-mission-core/kb"
	"github.com/cdav1990/overwatch-mission-core/timectrl"
)

func main() {
	missionPath := flag.String("mission", "configs/mission_example.yaml", "mission YAML to fly")
	hardwarePath := flag.String("hardware", "configs/hardware.yaml", "YAML hardware catalog")
	tick := flag.Duration("tick", 500*time.Millisecond, "tick interval (sim time per step)")
	speed := flag.Float64("speed", 1.0, "simulation speed multiplier")
	maxDuration := flag.Duration("max-duration", 30*time.Minute, "abort if the mission has not completed by this much sim time")
	quiet := flag.Bool("quiet", false, "only print the summary line")
	flag.Parse()

	catalog := kb.NewKnowledgeBase()
	if f, err := os.Open(*hardwarePath); err == nil {
		if err := catalog.LoadHardware(f); err != nil {
			fmt.Fprintf(os.Stderr, "warning: hardware catalog %q: %v\n", *hardwarePath, err)
		}
		f.Close()
	}

	f, err := os.Open(*missionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open mission %q: %v\n", *missionPath, err)
		os.Exit(1)
	}
	mission, summary, err := core.LoadMission(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load mission %q: %v\n", *missionPath, err)
		os.Exit(1)
	}
	fmt.Printf("Loaded mission %q: %d segments, %d waypoints, %d scene objects\n",
		mission.Name, len(summary.SegmentIDs), summary.WaypointCount, summary.ObjectCount)

	state := sim.NewMissionState(catalog, logging.Noop())
	if err := state.LoadMission(mission); err != nil {
		fmt.Fprintf(os.Stderr, "install mission: %v\n", err)
		os.Exit(1)
	}
	if err := state.SetSpeedMultiplier(*speed); err != nil {
		fmt.Fprintf(os.Stderr, "set speed: %v\n", err)
		os.Exit(1)
	}

	prog, err := state.StartSimulation()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start simulation: %v\n", err)
		os.Exit(1)
	}
	if prog.Done {
		fmt.Println("Mission has no flyable path; nothing to simulate.")
		return
	}

	start := time.Now().UTC()
	tc := timectrl.NewTimeController(start, *tick, timectrl.Accelerated)

	ticks := 0
	completed := false
	tc.AddListener(func(simTime time.Time, dt time.Duration) {
		if completed {
			return
		}
		p, active, err := state.SimTick(dt.Seconds())
		if err != nil {
			fmt.Fprintf(os.Stderr, "tick error: %v\n", err)
			tc.Stop()
			return
		}
		ticks++
		if !*quiet {
			fmt.Printf("[%7.1fs] %-7s target=%2d leg=%4.0f%% pos=(%7.1f, %7.1f, %6.1f) hdg=%5.1f cam=%5.1f\n",
				simTime.Sub(start).Seconds(),
				p.Phase, p.TargetIndex, p.LegProgress*100,
				p.Position.X, p.Position.Y, p.Position.Z,
				p.HeadingDeg, p.CameraPitchDeg,
			)
		}
		if !active {
			completed = p.Done
			tc.Stop()
		}
	})

	done := tc.Start(*maxDuration)
	<-done

	simElapsed := time.Duration(ticks) * *tick
	if completed {
		fmt.Printf("Mission complete: %d ticks, %s sim time at %gx.\n", ticks, simElapsed, *speed)
		return
	}
	fmt.Fprintf(os.Stderr, "Mission did not complete within %s of sim time.\n", *maxDuration)
	os.Exit(1)
}
