package state

import (
	"errors"
	"testing"

	"github.com/cdav1990/overwatch-mission-core/model"
)

func TestSceneObjectCRUD(t *testing.T) {
	s := newTestState(t)

	o, err := s.AddSceneObject(&model.SceneObject{
		Name:     "shed",
		Kind:     model.SceneObjectBox,
		Position: model.LocalCoord{X: 10, Y: 20},
		WidthM:   4, LengthM: 6, HeightM: 3,
	})
	if err != nil {
		t.Fatalf("AddSceneObject: %v", err)
	}
	if o.ID == "" {
		t.Fatalf("blank ID not filled")
	}
	if o.Color != "#cccccc" {
		t.Fatalf("default color = %q", o.Color)
	}

	if _, err := s.AddSceneObject(&model.SceneObject{Kind: model.SceneObjectBox, WidthM: 0, LengthM: 1, HeightM: 1}); !errors.Is(err, ErrInvalidObject) {
		t.Fatalf("zero width: err = %v", err)
	}
	if _, err := s.AddSceneObject(&model.SceneObject{Kind: model.SceneObjectModel}); !errors.Is(err, ErrInvalidObject) {
		t.Fatalf("model without asset: err = %v", err)
	}
	if _, err := s.AddSceneObject(&model.SceneObject{Kind: "sphere", WidthM: 1, LengthM: 1, HeightM: 1}); !errors.Is(err, ErrInvalidObject) {
		t.Fatalf("unknown kind: err = %v", err)
	}

	o2 := &model.SceneObject{ID: o.ID, Name: "shed-2", Kind: model.SceneObjectBox, WidthM: 5, LengthM: 6, HeightM: 3, Color: "#ff0000"}
	if err := s.UpdateSceneObject(o2); err != nil {
		t.Fatalf("UpdateSceneObject: %v", err)
	}
	m, _ := s.Mission()
	if m.SceneObjects[0].Name != "shed-2" || m.SceneObjects[0].WidthM != 5 {
		t.Fatalf("update not applied: %+v", m.SceneObjects[0])
	}
	if err := s.UpdateSceneObject(&model.SceneObject{ID: "ghost", Kind: model.SceneObjectBox, WidthM: 1, LengthM: 1, HeightM: 1}); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("update ghost: err = %v", err)
	}

	if err := s.DeleteSceneObject(o.ID); err != nil {
		t.Fatalf("DeleteSceneObject: %v", err)
	}
	if err := s.DeleteSceneObject(o.ID); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("delete twice: err = %v", err)
	}
}

func TestAddSceneObjects_Atomic(t *testing.T) {
	s := newTestState(t)

	if _, err := s.AddSceneObject(&model.SceneObject{ID: "obj-1", Kind: model.SceneObjectBox, WidthM: 1, LengthM: 1, HeightM: 1}); err != nil {
		t.Fatalf("AddSceneObject: %v", err)
	}

	batch := []*model.SceneObject{
		{Kind: model.SceneObjectBox, WidthM: 2, LengthM: 2, HeightM: 2},
		{ID: "obj-1", Kind: model.SceneObjectBox, WidthM: 3, LengthM: 3, HeightM: 3},
	}
	if err := s.AddSceneObjects(batch); !errors.Is(err, ErrInvalidObject) {
		t.Fatalf("duplicate in batch: err = %v", err)
	}
	m, _ := s.Mission()
	if len(m.SceneObjects) != 1 {
		t.Fatalf("failed batch must not add objects, got %d", len(m.SceneObjects))
	}

	ok := []*model.SceneObject{
		{Kind: model.SceneObjectBox, WidthM: 2, LengthM: 2, HeightM: 2},
		{Name: "tower", Kind: model.SceneObjectModel, AssetRef: "assets/tower.glb"},
	}
	if err := s.AddSceneObjects(ok); err != nil {
		t.Fatalf("AddSceneObjects: %v", err)
	}
	m, _ = s.Mission()
	if len(m.SceneObjects) != 3 {
		t.Fatalf("batch add count = %d, want 3", len(m.SceneObjects))
	}
	for _, o := range m.SceneObjects {
		if o.ID == "" {
			t.Fatalf("batch object missing ID: %+v", o)
		}
	}
}
