package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cdav1990/overwatch-mission-core/core"
	"github.com/cdav1990/overwatch-mission-core/internal/api"
	"github.com/cdav1990/overwatch-mission-core/internal/geo"
	"github.com/cdav1990/overwatch-mission-core/internal/logging"
	"github.com/cdav1990/overwatch-mission-core/internal/observability"
	sim "github.com/cdav1990/overwatch-mission-core/internal/sim/state"
	"github.com/cdav1990/overwatch-mission-core/internal/telemetry"
	"github.com/cdav1990/overwatch-mission-core/kb"
	"github.com/cdav1990/overwatch-mission-core/model"
	"github.com/cdav1990/overwatch-mission-core/timectrl"
)

func main() {
	httpAddr := flag.String("http-addr", ":8080", "TCP address the mission API listens on")
	hardwarePath := flag.String("hardware", "configs/hardware.yaml", "Path to the YAML hardware catalog")
	missionPath := flag.String("mission", "", "Optional mission YAML to load at startup")
	assetsDir := flag.String("assets-dir", "data/assets", "Directory for uploaded 3D model assets")
	tick := flag.Duration("tick", 50*time.Millisecond, "Simulation tick interval")
	mqttBroker := flag.String("mqtt-broker", "", "Optional MQTT broker URL for telemetry (e.g. tcp://localhost:1883)")
	mqttClientID := flag.String("mqtt-client-id", "missiond", "MQTT client ID")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewAPICollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}

	catalog := kb.NewKnowledgeBase()
	loadHardware(log, catalog, *hardwarePath)

	state := sim.NewMissionState(
		catalog,
		log,
		sim.WithMetricsRecorder(collector),
	)
	loadMission(log, state, *missionPath)

	assets, err := geo.NewAssetStore(*assetsDir)
	if err != nil {
		log.Error(ctx, "failed to create asset store", logging.String("dir", *assetsDir), logging.Err(err))
		os.Exit(1)
	}

	telemetryMetrics := telemetry.NewMetrics()
	publisher := newPublisher(log, telemetryMetrics, *mqttBroker, *mqttClientID)
	defer publisher.Close()

	hub := api.NewHub(log, telemetryMetrics)
	server := api.NewServer(state, assets, hub, collector, log)

	httpSrv := &http.Server{
		Addr:    *httpAddr,
		Handler: server.Routes(),
	}
	go func() {
		log.Info(ctx, "starting mission API", logging.String("addr", *httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http server exited", logging.Err(err))
		}
	}()

	// The tick loop drives the stepper and fans progress out to the
	// WebSocket hub and the MQTT publisher.
	tc := timectrl.NewTimeController(time.Now().UTC(), *tick, timectrl.RealTime)
	tc.AddListener(func(simTime time.Time, dt time.Duration) {
		prog, active, err := state.SimTick(dt.Seconds())
		if err != nil {
			log.Error(ctx, "simulation tick failed", logging.Err(err))
			return
		}
		if !active && !prog.Done {
			return
		}
		m, merr := state.Mission()
		if merr != nil {
			return
		}
		sample := sampleFromProgress(m.ID, m.Origin, prog, simTime)
		hub.Broadcast(sample)
		if perr := publisher.Publish(ctx, sample); perr != nil {
			log.Debug(ctx, "telemetry publish failed", logging.Err(perr))
		}
	})
	tc.Start(0)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down missiond")
	tc.Stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	log.Info(ctx, telemetryMetrics.String())
}

func sampleFromProgress(missionID string, origin model.Origin, prog core.Progress, ts time.Time) telemetry.Sample {
	lat, lon, alt := core.ToGeodetic(origin, prog.Position)
	return telemetry.Sample{
		MissionID:      missionID,
		Timestamp:      ts,
		Phase:          prog.Phase.String(),
		SegmentID:      prog.SegmentID,
		TargetIndex:    prog.TargetIndex,
		LegProgress:    prog.LegProgress,
		X:              prog.Position.X,
		Y:              prog.Position.Y,
		Z:              prog.Position.Z,
		LatDeg:         lat,
		LonDeg:         lon,
		AltM:           alt,
		HeadingDeg:     prog.HeadingDeg,
		CameraPitchDeg: prog.CameraPitchDeg,
		CameraRollDeg:  prog.CameraRollDeg,
		Done:           prog.Done,
	}
}

func newPublisher(log logging.Logger, metrics *telemetry.Metrics, broker, clientID string) telemetry.Publisher {
	if broker == "" {
		return telemetry.NoopPublisher{}
	}
	pub, err := telemetry.NewMQTTPublisher(telemetry.MQTTConfig{
		BrokerURL: broker,
		ClientID:  clientID,
	}, log, metrics)
	if err != nil {
		log.Warn(context.Background(), "mqtt unavailable; telemetry publishing disabled",
			logging.String("broker", broker),
			logging.Err(err),
		)
		return telemetry.NoopPublisher{}
	}
	return pub
}

func loadHardware(log logging.Logger, catalog *kb.KnowledgeBase, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		log.Warn(context.Background(), "skipping hardware catalog load", logging.String("path", path), logging.Err(err))
		return
	}
	defer f.Close()

	if err := catalog.LoadHardware(f); err != nil {
		log.Warn(context.Background(), "failed to parse hardware catalog", logging.String("path", path), logging.Err(err))
		return
	}
	log.Info(context.Background(), "loaded hardware catalog",
		logging.String("path", path),
		logging.Int("cameras", len(catalog.ListCameras())),
		logging.Int("lenses", len(catalog.ListLenses())),
	)
}

func loadMission(log logging.Logger, state *sim.MissionState, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		log.Warn(context.Background(), "skipping mission load", logging.String("path", path), logging.Err(err))
		return
	}
	defer f.Close()

	m, summary, err := core.LoadMission(f)
	if err != nil {
		log.Error(context.Background(), "failed to load mission", logging.String("path", path), logging.Err(err))
		os.Exit(1)
	}
	if err := state.LoadMission(m); err != nil {
		log.Error(context.Background(), "failed to install mission", logging.Err(err))
		os.Exit(1)
	}
	log.Info(context.Background(), "loaded mission",
		logging.String("path", path),
		logging.String("mission_id", m.ID),
		logging.Int("segments", len(summary.SegmentIDs)),
		logging.Int("waypoints", summary.WaypointCount),
	)
}
