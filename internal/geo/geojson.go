// Package geo converts between the mission's local ENU scene and
// geo-referenced interchange formats.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/cdav1990/overwatch-mission-core/core"
	"github.com/cdav1990/overwatch-mission-core/model"
)

var (
	// ErrNoSceneObjects indicates an export attempted on an empty scene.
	ErrNoSceneObjects = errors.New("no scene objects to export")
	// ErrUnsupportedFormat indicates an import file type with no handler.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ExportSceneObjects renders the scene objects as a GeoJSON feature
// collection of points, geo-referenced against the mission origin.
// Local metric dimensions travel as feature properties so a re-import
// can rebuild the objects.
func ExportSceneObjects(origin model.Origin, objs []*model.SceneObject) (*geojson.FeatureCollection, error) {
	if len(objs) == 0 {
		return nil, ErrNoSceneObjects
	}

	fc := geojson.NewFeatureCollection()
	for _, o := range objs {
		lat, lon, alt := core.ToGeodetic(origin, o.Position)
		f := geojson.NewFeature(orb.Point{lon, lat})
		f.ID = o.ID
		f.Properties = geojson.Properties{
			"id":          o.ID,
			"name":        o.Name,
			"kind":        string(o.Kind),
			"altitude_m":  alt,
			"width_m":     o.WidthM,
			"length_m":    o.LengthM,
			"height_m":    o.HeightM,
			"heading_deg": o.HeadingDeg,
			"color":       o.Color,
		}
		if o.AssetRef != "" {
			f.Properties["asset_ref"] = o.AssetRef
		}
		if len(o.Metadata) > 0 {
			f.Properties["metadata"] = o.Metadata
		}
		fc.Append(f)
	}
	return fc, nil
}

// WriteGeoJSON serializes a feature collection to w.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

// ParseSceneObjects reads a GeoJSON document and rebuilds scene objects
// from its point features, converting coordinates back into the local
// frame of the given origin. Non-point features are skipped and counted
// in the returned skip total.
func ParseSceneObjects(origin model.Origin, data []byte) ([]*model.SceneObject, int, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, fmt.Errorf("parse geojson: %w", err)
	}

	var objs []*model.SceneObject
	skipped := 0
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			skipped++
			continue
		}
		alt := f.Properties.MustFloat64("altitude_m", 0)
		pos := core.FromGeodetic(origin, pt.Lat(), pt.Lon(), alt)

		kind := model.SceneObjectKind(f.Properties.MustString("kind", string(model.SceneObjectBox)))
		o := &model.SceneObject{
			ID:         f.Properties.MustString("id", ""),
			Name:       f.Properties.MustString("name", ""),
			Kind:       kind,
			Position:   pos,
			WidthM:     f.Properties.MustFloat64("width_m", 1),
			LengthM:    f.Properties.MustFloat64("length_m", 1),
			HeightM:    f.Properties.MustFloat64("height_m", 1),
			HeadingDeg: f.Properties.MustFloat64("heading_deg", 0),
			Color:      f.Properties.MustString("color", ""),
			AssetRef:   f.Properties.MustString("asset_ref", ""),
			Metadata:   metadataProperty(f.Properties["metadata"]),
		}
		objs = append(objs, o)
	}
	return objs, skipped, nil
}

// metadataProperty coerces a parsed "metadata" property into string
// pairs. JSON decoding yields map[string]any; an export that never
// round-tripped through JSON still carries map[string]string.
func metadataProperty(v any) map[string]string {
	switch md := v.(type) {
	case map[string]string:
		if len(md) == 0 {
			return nil
		}
		out := make(map[string]string, len(md))
		for k, val := range md {
			out[k] = val
		}
		return out
	case map[string]any:
		if len(md) == 0 {
			return nil
		}
		out := make(map[string]string, len(md))
		for k, val := range md {
			if s, ok := val.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}
