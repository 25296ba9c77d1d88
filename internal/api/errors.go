package api

import (
	"errors"
	"net/http"

	"github.com/cdav1990/overwatch-mission-core/core"
	"github.com/cdav1990/overwatch-mission-core/internal/geo"
	sim "github.com/cdav1990/overwatch-mission-core/internal/sim/state"
)

// httpStatusFor maps store and exporter errors onto HTTP status codes.
// Unrecognized errors are treated as internal.
func httpStatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, sim.ErrNoMission),
		errors.Is(err, sim.ErrSegmentNotFound),
		errors.Is(err, sim.ErrWaypointNotFound),
		errors.Is(err, sim.ErrGCPNotFound),
		errors.Is(err, sim.ErrObjectNotFound),
		errors.Is(err, sim.ErrCameraNotFound),
		errors.Is(err, sim.ErrLensNotFound):
		return http.StatusNotFound

	case errors.Is(err, sim.ErrInvalidMission),
		errors.Is(err, sim.ErrInvalidWaypoint),
		errors.Is(err, sim.ErrInvalidSegment),
		errors.Is(err, sim.ErrInvalidGCP),
		errors.Is(err, sim.ErrInvalidObject),
		errors.Is(err, sim.ErrNoCameraSelected),
		errors.Is(err, sim.ErrLensIncompatible),
		errors.Is(err, sim.ErrFStopUnavailable),
		errors.Is(err, core.ErrInvalidGrid),
		errors.Is(err, geo.ErrUnsupportedFormat):
		return http.StatusBadRequest

	case errors.Is(err, sim.ErrMissionExists),
		errors.Is(err, sim.ErrAlreadyDrawing),
		errors.Is(err, sim.ErrNotDrawing),
		errors.Is(err, sim.ErrPolygonTooSmall),
		errors.Is(err, sim.ErrSimulationActive),
		errors.Is(err, sim.ErrSimulationInactive),
		errors.Is(err, geo.ErrNoSceneObjects):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
