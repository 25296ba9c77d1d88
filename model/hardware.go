package model

// Camera is a payload camera body from the hardware database.
type Camera struct {
	ID             string
	Name           string
	Brand          string
	SensorWidthMM  float64
	SensorHeightMM float64
	ImageWidthPx   int
	ImageHeightPx  int

	// LensIDs enumerates the lenses mountable on this body.
	LensIDs []string
}

// Lens is a payload lens from the hardware database. FStops is kept
// sorted ascending; the first entry is the widest aperture.
type Lens struct {
	ID            string
	Name          string
	FocalLengthMM float64
	FStops        []float64
}
