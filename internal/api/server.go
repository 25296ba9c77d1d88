package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cdav1990/overwatch-mission-core/core"
	"github.com/cdav1990/overwatch-mission-core/internal/geo"
	"github.com/cdav1990/overwatch-mission-core/internal/logging"
	"github.com/cdav1990/overwatch-mission-core/internal/observability"
	sim "github.com/cdav1990/overwatch-mission-core/internal/sim/state"
	"github.com/cdav1990/overwatch-mission-core/model"
)

// maxImportBytes bounds uploaded import files (GeoJSON, KML, glTF).
const maxImportBytes = 64 << 20

// Server exposes the mission store over HTTP/JSON.
type Server struct {
	state     *sim.MissionState
	assets    *geo.AssetStore
	hub       *Hub
	collector *observability.APICollector
	log       logging.Logger
}

// NewServer wires the API over the given store. assets, hub, and
// collector may be nil; the matching features degrade gracefully.
func NewServer(st *sim.MissionState, assets *geo.AssetStore, hub *Hub, collector *observability.APICollector, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{
		state:     st,
		assets:    assets,
		hub:       hub,
		collector: collector,
		log:       log,
	}
}

// Hub returns the telemetry hub, if one is attached.
func (s *Server) Hub() *Hub { return s.hub }

// Routes builds the full handler: API routes, health, metrics, and the
// telemetry WebSocket, wrapped with request-ID and tracing middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "POST /api/v1/mission", s.createMission)
	s.handle(mux, "GET /api/v1/mission", s.getMission)
	s.handle(mux, "DELETE /api/v1/mission", s.clearMission)

	s.handle(mux, "POST /api/v1/segments", s.addSegment)
	s.handle(mux, "POST /api/v1/segments/grid", s.addGridSegment)
	s.handle(mux, "PATCH /api/v1/segments/{id}", s.updateSegment)
	s.handle(mux, "DELETE /api/v1/segments/{id}", s.deleteSegment)
	s.handle(mux, "POST /api/v1/segments/{id}/waypoints", s.addWaypoint)

	s.handle(mux, "PATCH /api/v1/waypoints/{id}", s.updateWaypoint)
	s.handle(mux, "PUT /api/v1/waypoints/{id}/position", s.moveWaypoint)
	s.handle(mux, "DELETE /api/v1/waypoints/{id}", s.deleteWaypoint)

	s.handle(mux, "POST /api/v1/gcps", s.addGCP)
	s.handle(mux, "PATCH /api/v1/gcps/{id}", s.updateGCP)
	s.handle(mux, "DELETE /api/v1/gcps/{id}", s.deleteGCP)

	s.handle(mux, "POST /api/v1/objects", s.addObject)
	s.handle(mux, "PATCH /api/v1/objects/{id}", s.updateObject)
	s.handle(mux, "DELETE /api/v1/objects/{id}", s.deleteObject)

	s.handle(mux, "POST /api/v1/polygon/begin", s.beginPolygon)
	s.handle(mux, "POST /api/v1/polygon/vertices", s.addPolygonVertex)
	s.handle(mux, "POST /api/v1/polygon/complete", s.completePolygon)
	s.handle(mux, "POST /api/v1/polygon/cancel", s.cancelPolygon)

	s.handle(mux, "GET /api/v1/hardware/cameras", s.listCameras)
	s.handle(mux, "GET /api/v1/hardware/cameras/{id}/lenses", s.listLensesForCamera)
	s.handle(mux, "GET /api/v1/hardware/lenses/{id}/fstops", s.listFStops)
	s.handle(mux, "PUT /api/v1/hardware/camera", s.selectCamera)
	s.handle(mux, "PUT /api/v1/hardware/lens", s.selectLens)
	s.handle(mux, "PUT /api/v1/hardware/fstop", s.selectFStop)

	s.handle(mux, "POST /api/v1/simulation/start", s.startSimulation)
	s.handle(mux, "POST /api/v1/simulation/stop", s.stopSimulation)
	s.handle(mux, "PUT /api/v1/simulation/speed", s.setSpeed)
	s.handle(mux, "POST /api/v1/simulation/scrub", s.scrub)
	s.handle(mux, "GET /api/v1/simulation/progress", s.getProgress)

	s.handle(mux, "GET /api/v1/export/geojson", s.exportGeoJSON)
	s.handle(mux, "POST /api/v1/import", s.importFile)

	if s.hub != nil {
		mux.Handle("GET /api/v1/telemetry/ws", s.hub)
	}
	if s.collector != nil {
		mux.Handle("GET /metrics", s.collector.Handler())
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok\n")
	})

	return otelhttp.NewHandler(s.requestID(mux), "missiond.api")
}

// handle registers a handler with the metrics middleware bound to the
// route pattern.
func (s *Server) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	if s.collector != nil {
		mux.Handle(pattern, s.collector.Middleware(pattern, fn))
		return
	}
	mux.Handle(pattern, fn)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := logging.EnsureRequestID(r.Context())
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ---- Mission ----

func (s *Server) createMission(w http.ResponseWriter, r *http.Request) {
	var req createMissionRequest
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.state.CreateMission(req.Name, originFromJSON(req.Origin), coordFromJSON(req.Takeoff))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, missionToJSON(m))
}

func (s *Server) getMission(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	if snap.Mission == nil {
		s.writeError(w, r, sim.ErrNoMission)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshotJSON{
		Mission:          missionToJSON(snap.Mission),
		Progress:         progressToJSON(snap.Progress),
		SimulationActive: snap.SimulationActive,
		Drawing:          snap.Drawing,
		DraftVertices:    snap.DraftVertices,
	})
}

func (s *Server) clearMission(w http.ResponseWriter, r *http.Request) {
	s.state.ClearMission()
	w.WriteHeader(http.StatusNoContent)
}

// ---- Segments ----

func (s *Server) addSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentJSON
	if !s.decode(w, r, &req) {
		return
	}
	seg, err := s.state.AddSegment(segmentFromJSON(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, segmentToJSON(seg))
}

func (s *Server) addGridSegment(w http.ResponseWriter, r *http.Request) {
	var req gridSegmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	bounds := core.GridBounds{MinX: req.MinX, MinY: req.MinY, MaxX: req.MaxX, MaxY: req.MaxY}
	seg, err := s.state.AddGridSegment(req.Name, bounds, req.SpacingM, req.AltitudeM, req.SpeedMS)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, segmentToJSON(seg))
}

func (s *Server) updateSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentJSON
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.state.UpdateSegment(r.PathValue("id"), req.Name, model.PathType(req.Type), req.SpeedMS); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteSegment(w http.ResponseWriter, r *http.Request) {
	if err := s.state.DeleteSegment(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- Waypoints ----

func (s *Server) addWaypoint(w http.ResponseWriter, r *http.Request) {
	var req waypointJSON
	if !s.decode(w, r, &req) {
		return
	}
	wp, err := s.state.AddWaypoint(r.PathValue("id"), waypointFromJSON(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, waypointToJSON(wp))
}

func (s *Server) updateWaypoint(w http.ResponseWriter, r *http.Request) {
	var req waypointJSON
	if !s.decode(w, r, &req) {
		return
	}
	req.ID = r.PathValue("id")
	if err := s.state.UpdateWaypoint(waypointFromJSON(req)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveWaypoint(w http.ResponseWriter, r *http.Request) {
	var req coordJSON
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.state.MoveWaypoint(r.PathValue("id"), coordFromJSON(req)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteWaypoint(w http.ResponseWriter, r *http.Request) {
	if err := s.state.DeleteWaypoint(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- GCPs ----

func (s *Server) addGCP(w http.ResponseWriter, r *http.Request) {
	var req gcpJSON
	if !s.decode(w, r, &req) {
		return
	}
	g, err := s.state.AddGCP(gcpFromJSON(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, gcpToJSON(g))
}

func (s *Server) updateGCP(w http.ResponseWriter, r *http.Request) {
	var req gcpJSON
	if !s.decode(w, r, &req) {
		return
	}
	req.ID = r.PathValue("id")
	if err := s.state.UpdateGCP(gcpFromJSON(req)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteGCP(w http.ResponseWriter, r *http.Request) {
	if err := s.state.DeleteGCP(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- Scene objects ----

func (s *Server) addObject(w http.ResponseWriter, r *http.Request) {
	var req sceneObjectJSON
	if !s.decode(w, r, &req) {
		return
	}
	o, err := s.state.AddSceneObject(objectFromJSON(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, objectToJSON(o))
}

func (s *Server) updateObject(w http.ResponseWriter, r *http.Request) {
	var req sceneObjectJSON
	if !s.decode(w, r, &req) {
		return
	}
	req.ID = r.PathValue("id")
	if err := s.state.UpdateSceneObject(objectFromJSON(req)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteObject(w http.ResponseWriter, r *http.Request) {
	if err := s.state.DeleteSceneObject(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- Polygon workflow ----

func (s *Server) beginPolygon(w http.ResponseWriter, r *http.Request) {
	var req beginPolygonRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.state.BeginPolygon(req.AltitudeM); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addPolygonVertex(w http.ResponseWriter, r *http.Request) {
	var req polygonVertexRequest
	if !s.decode(w, r, &req) {
		return
	}
	n, err := s.state.AddPolygonVertex(coordFromJSON(coordJSON{X: req.X, Y: req.Y}))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"vertices": n})
}

func (s *Server) completePolygon(w http.ResponseWriter, r *http.Request) {
	var req completePolygonRequest
	if !s.decode(w, r, &req) {
		return
	}
	seg, err := s.state.CompletePolygon(req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, segmentToJSON(seg))
}

func (s *Server) cancelPolygon(w http.ResponseWriter, r *http.Request) {
	if err := s.state.CancelPolygon(); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- Hardware ----

func (s *Server) listCameras(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state.HardwareKB().ListCameras())
}

func (s *Server) listLensesForCamera(w http.ResponseWriter, r *http.Request) {
	lenses, err := s.state.HardwareKB().LensesForCamera(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lenses)
}

func (s *Server) listFStops(w http.ResponseWriter, r *http.Request) {
	fstops, err := s.state.HardwareKB().FStopsForLens(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fstops)
}

func (s *Server) selectCamera(w http.ResponseWriter, r *http.Request) {
	var req selectHardwareRequest
	if !s.decode(w, r, &req) {
		return
	}
	cfg, err := s.state.SetCamera(req.CameraID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hardwareToJSON(cfg))
}

func (s *Server) selectLens(w http.ResponseWriter, r *http.Request) {
	var req selectHardwareRequest
	if !s.decode(w, r, &req) {
		return
	}
	cfg, err := s.state.SetLens(req.LensID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hardwareToJSON(cfg))
}

func (s *Server) selectFStop(w http.ResponseWriter, r *http.Request) {
	var req selectHardwareRequest
	if !s.decode(w, r, &req) {
		return
	}
	cfg, err := s.state.SetFStop(req.FStop)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hardwareToJSON(cfg))
}

// ---- Simulation ----

func (s *Server) startSimulation(w http.ResponseWriter, r *http.Request) {
	prog, err := s.state.StartSimulation()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progressToJSON(prog))
}

func (s *Server) stopSimulation(w http.ResponseWriter, r *http.Request) {
	prog, err := s.state.StopSimulation()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progressToJSON(prog))
}

func (s *Server) setSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.state.SetSpeedMultiplier(req.Multiplier); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) scrub(w http.ResponseWriter, r *http.Request) {
	var req scrubRequest
	if !s.decode(w, r, &req) {
		return
	}
	prog, err := s.state.Scrub(req.TargetIndex, req.LegProgress)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progressToJSON(prog))
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, progressToJSON(s.state.Progress()))
}

// ---- Geo ----

func (s *Server) exportGeoJSON(w http.ResponseWriter, r *http.Request) {
	m, err := s.state.Mission()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fc, err := geo.ExportSceneObjects(m.Origin, m.SceneObjects)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", m.Name+".geojson"))
	if err := geo.WriteGeoJSON(w, fc); err != nil {
		s.log.Error(r.Context(), "write geojson export", logging.Err(err))
	}
}

// importFile accepts an uploaded file as the raw request body, with the
// original filename in the "filename" query parameter.
func (s *Server) importFile(w http.ResponseWriter, r *http.Request) {
	m, err := s.state.Mission()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Errorf("filename query parameter is required"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := geo.ImportFile(r.Context(), m.Origin, filename, data, s.assets, s.log)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(res.Objects) > 0 {
		if err := s.state.AddSceneObjects(res.Objects); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	out := make([]sceneObjectJSON, 0, len(res.Objects))
	for _, o := range res.Objects {
		out = append(out, objectToJSON(o))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"objects":          out,
		"skipped_features": res.SkippedFeatures,
	})
}

// ---- Helpers ----

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error(context.Background(), "encode response", logging.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Err(err),
		)
	}
	s.writeJSONError(w, status, err)
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
