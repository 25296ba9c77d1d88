// core/frame.go
package core

import (
	"math"

	"github.com/cdav1990/overwatch-mission-core/model"
)

// earthRadiusM is the mean Earth radius used by the small-tangent-plane
// geodetic conversion (metres).
const earthRadiusM = 6371000.0

// ToEngine maps an ENU local coordinate into the render engine's Y-up
// frame: (x, y, z) -> (x, z, -y). Total over all finite inputs.
func ToEngine(p model.LocalCoord) model.EngineCoord {
	return model.EngineCoord{X: p.X, Y: p.Z, Z: -p.Y}
}

// FromEngine maps an engine-frame coordinate back to ENU:
// (x, y, z) -> (x, -z, y). Inverse of ToEngine.
func FromEngine(p model.EngineCoord) model.LocalCoord {
	return model.LocalCoord{X: p.X, Y: -p.Z, Z: p.Y}
}

// Add returns a + b.
func Add(a, b model.LocalCoord) model.LocalCoord {
	return model.LocalCoord{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

// Sub returns a - b.
func Sub(a, b model.LocalCoord) model.LocalCoord {
	return model.LocalCoord{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

// Scale returns p scaled by s.
func Scale(p model.LocalCoord, s float64) model.LocalCoord {
	return model.LocalCoord{X: p.X * s, Y: p.Y * s, Z: p.Z * s}
}

// Dot returns the dot product of a and b.
func Dot(a, b model.LocalCoord) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Norm returns the Euclidean norm of p.
func Norm(p model.LocalCoord) float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Distance returns the straight-line distance between two points.
func Distance(a, b model.LocalCoord) float64 {
	return Norm(Sub(a, b))
}

// Lerp returns the linear blend a + t*(b-a). t is not clamped.
func Lerp(a, b model.LocalCoord, t float64) model.LocalCoord {
	return model.LocalCoord{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// HeadingDeg returns the compass heading, in [0, 360) degrees, of the
// horizontal direction from a to b. North is 0, east is 90. The second
// return is false when the leg has no horizontal extent, in which case
// callers should keep their previous heading.
func HeadingDeg(a, b model.LocalCoord) (float64, bool) {
	de := b.X - a.X
	dn := b.Y - a.Y
	if de == 0 && dn == 0 {
		return 0, false
	}
	deg := math.Atan2(de, dn) * 180.0 / math.Pi
	return NormalizeHeading(deg), true
}

// NormalizeHeading wraps a heading in degrees into [0, 360).
func NormalizeHeading(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// Mod can yield 360 for inputs like -1e-15.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// ToGeodetic converts an ENU local coordinate into WGS84 degrees and
// metres using a small-tangent-plane approximation around the origin.
// Adequate for mission-scale distances (a few kilometres).
func ToGeodetic(origin model.Origin, p model.LocalCoord) (latDeg, lonDeg, altM float64) {
	latRad := origin.LatDeg * math.Pi / 180.0
	latDeg = origin.LatDeg + (p.Y/earthRadiusM)*180.0/math.Pi
	lonDeg = origin.LonDeg + (p.X/(earthRadiusM*math.Cos(latRad)))*180.0/math.Pi
	altM = origin.AltM + p.Z
	return latDeg, lonDeg, altM
}

// FromGeodetic converts WGS84 degrees/metres into the ENU frame anchored
// at origin. Inverse of ToGeodetic under the same approximation.
func FromGeodetic(origin model.Origin, latDeg, lonDeg, altM float64) model.LocalCoord {
	latRad := origin.LatDeg * math.Pi / 180.0
	return model.LocalCoord{
		X: (lonDeg - origin.LonDeg) * math.Pi / 180.0 * earthRadiusM * math.Cos(latRad),
		Y: (latDeg - origin.LatDeg) * math.Pi / 180.0 * earthRadiusM,
		Z: altM - origin.AltM,
	}
}
