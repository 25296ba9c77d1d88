package model

// SceneObjectKind distinguishes authored box primitives from imported
// 3D model assets.
type SceneObjectKind string

const (
	SceneObjectBox   SceneObjectKind = "box"
	SceneObjectModel SceneObjectKind = "model"
)

// SceneObject is a user-authored object placed in the local scene:
// either a box primitive with dimensions and color, or an imported
// GLB/GLTF model referenced through AssetRef.
type SceneObject struct {
	ID         string
	Name       string
	Kind       SceneObjectKind
	Position   LocalCoord
	WidthM     float64
	LengthM    float64
	HeightM    float64
	HeadingDeg float64
	Color      string // hex, e.g. "#ff8800"
	AssetRef   string // set for Kind == SceneObjectModel
	Metadata   map[string]string
}

// Clone returns a deep copy of the scene object, including its metadata map.
func (o *SceneObject) Clone() *SceneObject {
	if o == nil {
		return nil
	}
	out := *o
	if o.Metadata != nil {
		out.Metadata = make(map[string]string, len(o.Metadata))
		for k, v := range o.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
