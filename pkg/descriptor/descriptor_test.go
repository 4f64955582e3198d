// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/invowk/imagekit/pkg/cueutil"
)

func TestNew_NormalizesValues(t *testing.T) {
	t.Parallel()

	d, err := New(KindGeneric, map[string]any{
		"int":    42,
		"uint":   uint16(7),
		"float":  float32(1.5),
		"nested": map[any]any{"k": "v"},
		"list":   []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if v, _ := d.Get("int"); v != int64(42) {
		t.Errorf("int = %#v, want int64(42)", v)
	}
	if v, _ := d.Get("uint"); v != int64(7) {
		t.Errorf("uint = %#v, want int64(7)", v)
	}
	if v, _ := d.Get("float"); v != float64(1.5) {
		t.Errorf("float = %#v, want float64(1.5)", v)
	}
	nested := d.Descriptor("nested")
	if nested == nil || nested.String("k") != "v" {
		t.Fatalf("nested = %v", nested)
	}
	if nested.Parent() != d {
		t.Error("nested descriptor must point at its parent")
	}
	if !equalValues(d.List("list"), []any{"a", "b"}) {
		t.Errorf("list = %v", d.List("list"))
	}

	// plain maps are inserted in ascending key order
	if want := []string{"float", "int", "list", "nested", "uint"}; !slices.Equal(d.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", d.Keys(), want)
	}
}

func TestNew_OrderedKeepsKeyOrder(t *testing.T) {
	t.Parallel()

	d := MustNew(KindGeneric, Ordered{{"z", int64(1)}, {"a", int64(2)}, {"m", int64(3)}})
	if want := []string{"z", "a", "m"}; !slices.Equal(d.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", d.Keys(), want)
	}

	var seen []string
	for k := range d.All() {
		seen = append(seen, k)
	}
	if !slices.Equal(seen, d.Keys()) {
		t.Errorf("All() order = %v, want %v", seen, d.Keys())
	}
}

func TestNew_ChildKinds(t *testing.T) {
	t.Parallel()

	d := MustNew(KindImage, Ordered{
		{"name", "img"},
		{"version", "1.0"},
		{"from", "registry/base:1"},
		{"labels", []any{Ordered{{"name", "a"}, {"value", "b"}}}},
		{"run", Ordered{{"workdir", "/home"}}},
		{"modules", Ordered{{"install", []any{Ordered{{"name", "m"}}}}}},
	})

	if k := d.List("labels")[0].(*Descriptor).Kind(); k != KindLabel {
		t.Errorf("labels kind = %s, want %s", k, KindLabel)
	}
	if k := d.Descriptor("run").Kind(); k != KindRun {
		t.Errorf("run kind = %s, want %s", k, KindRun)
	}
	install := d.Descriptor("modules").List("install")[0].(*Descriptor)
	if install.Kind() != KindInstall {
		t.Errorf("install kind = %s, want %s", install.Kind(), KindInstall)
	}
}

func TestNew_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind Kind
		doc  any
	}{
		{"image without from", KindImage, map[string]any{"name": "img", "version": "1"}},
		{"unknown key", KindModule, map[string]any{"name": "m", "bogus": true}},
		{"nested unknown key", KindModule, map[string]any{"name": "m", "labels": []any{map[string]any{"name": "a", "value": "b", "x": 1}}}},
		{"wrong port type", KindModule, map[string]any{"name": "m", "ports": []any{map[string]any{"value": "http"}}}},
		{"bad md5", KindArtifact, map[string]any{"md5": "nothex"}},
		{"non string key", KindGeneric, map[any]any{1: "x"}},
		{"not a mapping", KindGeneric, []any{"x"}},
		{"unknown kind", Kind("nope"), map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.kind, tt.doc, WithSource("test.yaml"))
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("New() error = %v, want ErrSchema", err)
			}
			var se *SchemaError
			if !errors.As(err, &se) || se.Source != "test.yaml" {
				t.Errorf("expected SchemaError with source, got %v", err)
			}
		})
	}
}

func TestNew_SchemaErrorCarriesPath(t *testing.T) {
	t.Parallel()

	_, err := New(KindModule, map[string]any{"name": "m", "run": map[string]any{"workdir": 5}})
	var verr *cueutil.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("New() error = %v, want *cueutil.ValidationError", err)
	}
	if !strings.Contains(verr.Error(), "run.workdir") {
		t.Errorf("error %q should name run.workdir", verr.Error())
	}
}

func TestNew_RebuildsDescriptorWithNewKind(t *testing.T) {
	t.Parallel()

	g := MustNew(KindGeneric, Ordered{{"name", "img"}, {"version", "1"}, {"from", "base"}, {"run", Ordered{{"user", "root"}}}})
	img, err := New(KindImage, g)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if img.Kind() != KindImage || img.Descriptor("run").Kind() != KindRun {
		t.Errorf("kinds not reassigned: %s, %s", img.Kind(), img.Descriptor("run").Kind())
	}
	if img.Descriptor("run") == g.Descriptor("run") {
		t.Error("rebuilt descriptor must not share children")
	}
}

func TestDescriptor_SetDelete(t *testing.T) {
	t.Parallel()

	d := MustNew(KindGeneric, Ordered{{"a", int64(1)}})
	if err := d.Set("b", map[string]any{"c": 2}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := d.Set("a", "replaced"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if want := []string{"a", "b"}; !slices.Equal(d.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", d.Keys(), want)
	}
	if err := d.Set("bad", struct{}{}); !errors.Is(err, ErrSchema) {
		t.Errorf("Set() error = %v, want ErrSchema", err)
	}

	d.Delete("a")
	d.Delete("missing")
	if d.Has("a") || d.Len() != 1 {
		t.Errorf("after Delete: keys = %v", d.Keys())
	}
}

func TestDescriptor_Name(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value any
		want  string
	}{
		{"jdk", "jdk"},
		{int64(1), "1"},
		{float64(2.5), "2.5"},
		{nil, ""},
	}

	for _, tt := range tests {
		d := MustNew(KindGeneric, Ordered{{"name", tt.value}})
		if got := d.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}

func TestDescriptor_EqualAndClone(t *testing.T) {
	t.Parallel()

	a := MustNew(KindGeneric, Ordered{{"x", int64(1)}, {"y", []any{Ordered{{"z", "v"}}}}})
	b := MustNew(KindModule, Ordered{{"name", "m"}})
	c := MustNew(KindGeneric, Ordered{{"y", []any{Ordered{{"z", "v"}}}}, {"x", float64(1)}})

	if !a.Equal(c) {
		t.Error("key order and numeric representation must not affect equality")
	}
	if a.Equal(b) {
		t.Error("different documents must not be equal")
	}

	clone := a.Clone()
	if !clone.Equal(a) || clone.Parent() != nil {
		t.Fatal("clone must equal the original and have no parent")
	}
	clone.List("y")[0].(*Descriptor).Delete("z")
	if !a.Equal(c) {
		t.Error("modifying the clone changed the original")
	}
}

func TestDescriptor_Encoding(t *testing.T) {
	t.Parallel()

	d := MustNew(KindGeneric, Ordered{{"name", "x"}, {"b", []any{int64(1)}}, {"a", Ordered{{"z", true}}}})

	js, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if want := `{"name":"x","b":[1],"a":{"z":true}}`; string(js) != want {
		t.Errorf("MarshalJSON() = %s, want %s", js, want)
	}

	y, err := d.YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	out := string(y)
	iName, iB, iA := strings.Index(out, "name: x"), strings.Index(out, "b:"), strings.Index(out, "a:")
	if iName < 0 || iB < iName || iA < iB {
		t.Errorf("YAML() lost key order:\n%s", out)
	}
	if !strings.Contains(out, "z: true") {
		t.Errorf("YAML() missing nested value:\n%s", out)
	}
}

func TestKind_Validate(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds() {
		if err := k.Validate(); err != nil {
			t.Errorf("Kinds() returned invalid kind %s: %v", k, err)
		}
		if def := k.Schema().Definition; def != "" && !schema.HasDefinition(def) {
			t.Errorf("kind %s references missing definition %s", k, def)
		}
	}

	err := Kind("bogus").Validate()
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("Validate() error = %v, want ErrInvalidKind", err)
	}
}

func TestIsOverrideMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target, source Kind
		want           bool
	}{
		{KindImage, KindModule, false},
		{KindModule, KindModule, false},
		{KindOverrides, KindImage, true},
		{KindImage, KindOverrides, true},
		{KindGeneric, KindGeneric, false},
	}

	for _, tt := range tests {
		if got := isOverrideMerge(tt.target, tt.source); got != tt.want {
			t.Errorf("isOverrideMerge(%s, %s) = %v, want %v", tt.target, tt.source, got, tt.want)
		}
	}
}
