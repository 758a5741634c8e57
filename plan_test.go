package quill

import (
	"errors"
	"reflect"
	"testing"
)

type PlanRecord struct {
	ID       string `quill:"id"`
	Note     string `quill:"note,optional"`
	Skipped  int    `quill:"-"`
	Ptr      *int
	internal int
}

type planWrapper struct {
	PlanRecord
}

type planTagged struct {
	PlanRecord `quill:"record"`
}

type planTuple struct {
	Tuple
	A string
	B int
}

type planDup struct {
	A int `quill:"x"`
	B int `quill:"x"`
}

func TestPlanFor_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		typ   reflect.Type
		shape shape
	}{
		{"record", reflect.TypeFor[PlanRecord](), shapeRecord},
		{"unit", reflect.TypeFor[struct{}](), shapeUnit},
		{"unexported only", reflect.TypeFor[struct{ a int }](), shapeUnit},
		{"newtype", reflect.TypeFor[planWrapper](), shapeNewtype},
		{"tagged embed", reflect.TypeFor[planTagged](), shapeRecord},
		{"tuple", reflect.TypeFor[planTuple](), shapeTuple},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planFor(tt.typ)
			if err != nil {
				t.Fatalf("planFor() error: %v", err)
			}
			if plan.shape != tt.shape {
				t.Errorf("shape = %d, want %d", plan.shape, tt.shape)
			}
		})
	}
}

func TestPlanFor_Fields(t *testing.T) {
	plan, err := planFor(reflect.TypeFor[PlanRecord]())
	if err != nil {
		t.Fatalf("planFor() error: %v", err)
	}

	want := []struct {
		name     string
		optional bool
	}{
		{"id", false},
		{"note", true},
		{"ptr", true},
	}
	if len(plan.fields) != len(want) {
		t.Fatalf("fields = %+v, want %d", plan.fields, len(want))
	}
	for i, w := range want {
		if plan.fields[i].name != w.name || plan.fields[i].optional != w.optional {
			t.Errorf("fields[%d] = %+v, want %+v", i, plan.fields[i], w)
		}
	}
	if plan.typeName != "PlanRecord" {
		t.Errorf("typeName = %q", plan.typeName)
	}
}

func TestPlanFor_Cached(t *testing.T) {
	a, _ := planFor(reflect.TypeFor[PlanRecord]())
	b, _ := planFor(reflect.TypeFor[PlanRecord]())
	if a != b {
		t.Error("planFor() should return the cached plan")
	}
}

func TestPlanFor_DuplicateNames(t *testing.T) {
	_, err := planFor(reflect.TypeFor[planDup]())
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("planFor() error = %v, want ErrUnsupportedType", err)
	}

	_, err = Marshal(planDup{})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Marshal() error = %v, want ErrUnsupportedType", err)
	}
}

func TestScanStruct(t *testing.T) {
	spec := scanStruct(reflect.TypeFor[PlanRecord]())
	if spec.TypeName != "PlanRecord" {
		t.Errorf("TypeName = %q", spec.TypeName)
	}
	if len(spec.Fields) != 4 {
		t.Fatalf("len(Fields) = %d, want 4 exported fields", len(spec.Fields))
	}
	if spec.Fields[0].Tags[tagName] != "id" {
		t.Errorf("Tags = %v", spec.Fields[0].Tags)
	}
	if !sameLayout(spec, reflect.TypeFor[PlanRecord]()) {
		t.Error("sameLayout() should accept scanned metadata")
	}
	if sameLayout(spec, reflect.TypeFor[planTuple]()) {
		t.Error("sameLayout() should reject another type")
	}
}

func TestTaggedEmbed_EncodesAsRecord(t *testing.T) {
	data, err := Marshal(planTagged{PlanRecord{ID: "a"}})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := "---\nrecord: \n  id: a\n  note: \"\"\n  ptr: ~"
	if string(data) != want {
		t.Errorf("Marshal() = %q, want %q", data, want)
	}
}
