package geo

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cdav1990/overwatch-mission-core/internal/logging"
	"github.com/cdav1990/overwatch-mission-core/model"
)

var testOrigin = model.Origin{LatDeg: 37.7749, LonDeg: -122.4194, AltM: 10}

func sampleObjects() []*model.SceneObject {
	return []*model.SceneObject{
		{
			ID: "obj-1", Name: "shed", Kind: model.SceneObjectBox,
			Position: model.LocalCoord{X: 100, Y: 50, Z: 0},
			WidthM:   4, LengthM: 6, HeightM: 3,
			HeadingDeg: 45, Color: "#ff8800",
			Metadata: map[string]string{"owner": "ops", "zone": "north"},
		},
		{
			ID: "obj-2", Name: "tower", Kind: model.SceneObjectModel,
			Position: model.LocalCoord{X: -30, Y: 200, Z: 5},
			WidthM:   1, LengthM: 1, HeightM: 1,
			AssetRef: "deadbeef.glb",
		},
	}
}

func TestExportSceneObjects_Empty(t *testing.T) {
	if _, err := ExportSceneObjects(testOrigin, nil); !errors.Is(err, ErrNoSceneObjects) {
		t.Fatalf("empty scene: err = %v, want ErrNoSceneObjects", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	fc, err := ExportSceneObjects(testOrigin, sampleObjects())
	if err != nil {
		t.Fatalf("ExportSceneObjects: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("feature count = %d", len(fc.Features))
	}

	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, fc); err != nil {
		t.Fatalf("WriteGeoJSON: %v", err)
	}

	objs, skipped, err := ParseSceneObjects(testOrigin, buf.Bytes())
	if err != nil {
		t.Fatalf("ParseSceneObjects: %v", err)
	}
	if skipped != 0 || len(objs) != 2 {
		t.Fatalf("parsed %d objects, %d skipped", len(objs), skipped)
	}

	want := sampleObjects()
	for i, got := range objs {
		w := want[i]
		if got.ID != w.ID || got.Name != w.Name || got.Kind != w.Kind {
			t.Fatalf("object %d identity: %+v", i, got)
		}
		// Positions survive the geodetic round trip to within a metre
		// over small extents.
		dx := got.Position.X - w.Position.X
		dy := got.Position.Y - w.Position.Y
		dz := got.Position.Z - w.Position.Z
		if math.Abs(dx) > 1 || math.Abs(dy) > 1 || math.Abs(dz) > 1 {
			t.Fatalf("object %d position drift: got %+v want %+v", i, got.Position, w.Position)
		}
		if got.WidthM != w.WidthM || got.HeightM != w.HeightM || got.HeadingDeg != w.HeadingDeg {
			t.Fatalf("object %d dimensions: %+v", i, got)
		}
		if got.AssetRef != w.AssetRef {
			t.Fatalf("object %d asset ref: %q", i, got.AssetRef)
		}
		if len(got.Metadata) != len(w.Metadata) {
			t.Fatalf("object %d metadata count: %+v", i, got.Metadata)
		}
		for k, v := range w.Metadata {
			if got.Metadata[k] != v {
				t.Fatalf("object %d metadata[%q] = %q, want %q", i, k, got.Metadata[k], v)
			}
		}
	}
}

func TestExportCarriesMetadataProperty(t *testing.T) {
	objs := []*model.SceneObject{{
		ID: "obj1", Name: "shed", Kind: model.SceneObjectBox,
		WidthM: 2, LengthM: 2, HeightM: 2,
		Metadata: map[string]string{"owner": "ops"},
	}}
	fc, err := ExportSceneObjects(testOrigin, objs)
	if err != nil {
		t.Fatalf("ExportSceneObjects: %v", err)
	}
	md, ok := fc.Features[0].Properties["metadata"].(map[string]string)
	if !ok || md["owner"] != "ops" {
		t.Fatalf("metadata property = %#v", fc.Features[0].Properties["metadata"])
	}

	// Objects without metadata stay free of the property.
	fc, err = ExportSceneObjects(testOrigin, []*model.SceneObject{{
		ID: "obj2", Kind: model.SceneObjectBox, WidthM: 1, LengthM: 1, HeightM: 1,
	}})
	if err != nil {
		t.Fatalf("ExportSceneObjects: %v", err)
	}
	if _, present := fc.Features[0].Properties["metadata"]; present {
		t.Fatalf("empty metadata must not emit a property")
	}
}

func TestParseSceneObjects_SkipsNonPoints(t *testing.T) {
	doc := `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.4194, 37.7749]},
     "properties": {"name": "p1"}},
    {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[-122.4, 37.7], [-122.5, 37.8]]},
     "properties": {"name": "line"}}
  ]
}`
	objs, skipped, err := ParseSceneObjects(testOrigin, []byte(doc))
	if err != nil {
		t.Fatalf("ParseSceneObjects: %v", err)
	}
	if len(objs) != 1 || skipped != 1 {
		t.Fatalf("objects = %d, skipped = %d", len(objs), skipped)
	}
	if objs[0].Name != "p1" || objs[0].Kind != model.SceneObjectBox {
		t.Fatalf("defaults not applied: %+v", objs[0])
	}
}

func TestImportFile_GeoJSON(t *testing.T) {
	fc, err := ExportSceneObjects(testOrigin, sampleObjects())
	if err != nil {
		t.Fatalf("ExportSceneObjects: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, fc); err != nil {
		t.Fatalf("WriteGeoJSON: %v", err)
	}

	res, err := ImportFile(context.Background(), testOrigin, "scene.geojson", buf.Bytes(), nil, logging.Noop())
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if len(res.Objects) != 2 {
		t.Fatalf("imported %d objects", len(res.Objects))
	}
}

func TestImportFile_KMLAcceptedNotApplied(t *testing.T) {
	res, err := ImportFile(context.Background(), testOrigin, "area.kml", []byte("<kml/>"), nil, logging.Noop())
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if len(res.Objects) != 0 {
		t.Fatalf("kml must not produce objects, got %d", len(res.Objects))
	}
}

func TestImportFile_ModelAsset(t *testing.T) {
	dir := t.TempDir()
	store, err := NewAssetStore(dir)
	if err != nil {
		t.Fatalf("NewAssetStore: %v", err)
	}

	payload := []byte{0x67, 0x6c, 0x54, 0x46} // glTF magic
	res, err := ImportFile(context.Background(), testOrigin, "crane.glb", payload, store, logging.Noop())
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if len(res.Objects) != 1 {
		t.Fatalf("imported %d objects", len(res.Objects))
	}
	o := res.Objects[0]
	if o.Kind != model.SceneObjectModel || o.Name != "crane" {
		t.Fatalf("model object: %+v", o)
	}
	if filepath.Ext(o.AssetRef) != ".glb" {
		t.Fatalf("asset ref = %q", o.AssetRef)
	}

	// The stored file carries a generated name, not the upload name.
	if o.AssetRef == "crane.glb" {
		t.Fatalf("asset ref must be a generated name")
	}
	data, err := os.ReadFile(store.Path(o.AssetRef))
	if err != nil {
		t.Fatalf("stored asset unreadable: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("stored asset corrupted")
	}
}

func TestImportFile_Unsupported(t *testing.T) {
	if _, err := ImportFile(context.Background(), testOrigin, "scan.xyz", nil, nil, logging.Noop()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}
