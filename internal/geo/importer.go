package geo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cdav1990/overwatch-mission-core/internal/logging"
	"github.com/cdav1990/overwatch-mission-core/model"
)

// AssetStore persists uploaded 3D model files under a base directory
// with generated names, so scene objects can reference them without
// trusting client-supplied paths.
type AssetStore struct {
	baseDir string
}

// NewAssetStore creates the base directory if needed.
func NewAssetStore(baseDir string) (*AssetStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &AssetStore{baseDir: baseDir}, nil
}

// Store writes data under a fresh UUID filename keeping the original
// extension, and returns the reference to record on the scene object.
func (a *AssetStore) Store(data []byte, ext string) (string, error) {
	name := uuid.NewString() + strings.ToLower(ext)
	path := filepath.Join(a.baseDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}
	return name, nil
}

// Path resolves an asset reference to its on-disk location.
func (a *AssetStore) Path(ref string) string {
	return filepath.Join(a.baseDir, filepath.Base(ref))
}

// ImportResult describes what an import produced.
type ImportResult struct {
	// Objects holds scene objects ready to add to the mission. Empty for
	// formats that are accepted but not applied (KML).
	Objects []*model.SceneObject
	// SkippedFeatures counts GeoJSON features with unsupported geometry.
	SkippedFeatures int
}

// ImportFile dispatches an uploaded file by extension.
//
//	.geojson/.json  parsed into scene objects
//	.kml            accepted and logged, not applied
//	.glb/.gltf      stored in the asset store, one model object returned
//
// Anything else fails with ErrUnsupportedFormat.
func ImportFile(ctx context.Context, origin model.Origin, filename string, data []byte, assets *AssetStore, log logging.Logger) (*ImportResult, error) {
	if log == nil {
		log = logging.Noop()
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".geojson", ".json":
		objs, skipped, err := ParseSceneObjects(origin, data)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			log.Warn(ctx, "geojson import skipped non-point features",
				logging.String("file", filename),
				logging.Int("skipped", skipped),
			)
		}
		return &ImportResult{Objects: objs, SkippedFeatures: skipped}, nil

	case ".kml":
		log.Warn(ctx, "kml import accepted but not applied",
			logging.String("file", filename),
			logging.Int("bytes", len(data)),
		)
		return &ImportResult{}, nil

	case ".glb", ".gltf":
		if assets == nil {
			return nil, fmt.Errorf("%w: no asset store configured for %s", ErrUnsupportedFormat, ext)
		}
		ref, err := assets.Store(data, ext)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(filename), ext)
		return &ImportResult{Objects: []*model.SceneObject{{
			Name:     name,
			Kind:     model.SceneObjectModel,
			AssetRef: ref,
		}}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}
