// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/invowk/imagekit/pkg/descriptor"
)

const imageYAML = `name: test/image
version: 1.0
from: registry.example.com/base:1
description: Test image
labels:
  - name: maintainer
    value: someone
run:
  user: 185
  cmd:
    - run.sh
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	t.Parallel()

	d, err := LoadFile(writeFile(t, "image.yaml", imageYAML), descriptor.KindImage)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	want := []string{"name", "version", "from", "description", "labels", "run"}
	if !slices.Equal(d.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", d.Keys(), want)
	}
	if v, _ := d.Get("version"); v != float64(1.0) {
		t.Errorf("version = %#v, want 1.0", v)
	}
	if d.Descriptor("run").Kind() != descriptor.KindRun {
		t.Error("run section must be a Run descriptor")
	}
	if !strings.HasSuffix(d.Source(), "image.yaml") {
		t.Errorf("Source() = %q", d.Source())
	}
}

func TestLoadFile_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		file    string
		content string
	}{
		{"module.yml", "name: jdk\nversion: '11'\nenvs:\n  - name: JAVA_HOME\n    value: /usr/lib/jvm\n"},
		{"module.json", `{
			// comments and trailing commas are accepted
			"name": "jdk",
			"version": "11",
			"envs": [{"name": "JAVA_HOME", "value": "/usr/lib/jvm",},],
		}`},
		{"module.toml", "name = \"jdk\"\nversion = \"11\"\n\n[[envs]]\nname = \"JAVA_HOME\"\nvalue = \"/usr/lib/jvm\"\n"},
		{"module.cue", "name: \"jdk\"\nversion: \"11\"\nenvs: [{name: \"JAVA_HOME\", value: \"/usr/lib/jvm\"}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			t.Parallel()

			d, err := LoadFile(writeFile(t, tt.file, tt.content), descriptor.KindModule)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if d.Name() != "jdk" || d.String("version") != "11" {
				t.Errorf("name/version = %q/%q", d.Name(), d.String("version"))
			}
			envs := d.List("envs")
			if len(envs) != 1 {
				t.Fatalf("envs = %v", envs)
			}
			env := envs[0].(*descriptor.Descriptor)
			if env.Kind() != descriptor.KindEnv || env.String("value") != "/usr/lib/jvm" {
				t.Errorf("env = %v (%s)", env.Map(), env.Kind())
			}
		})
	}
}

func TestLoadFile_JSONKeepsOrder(t *testing.T) {
	t.Parallel()

	d, err := LoadFile(writeFile(t, "o.json", `{"z": 1, "a": [1, 2.5], "m": {"y": null, "b": true}}`), descriptor.KindGeneric)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if want := []string{"z", "a", "m"}; !slices.Equal(d.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", d.Keys(), want)
	}
	if v, _ := d.Get("z"); v != int64(1) {
		t.Errorf("z = %#v, want int64(1)", v)
	}
	if want := []string{"y", "b"}; !slices.Equal(d.Descriptor("m").Keys(), want) {
		t.Errorf("m keys = %v, want %v", d.Descriptor("m").Keys(), want)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), descriptor.KindImage)
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("LoadFile() error = %v, want os.ErrNotExist", err)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFile(writeFile(t, "image.ini", "x=1"), descriptor.KindImage)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("LoadFile() error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFile(writeFile(t, "image.yaml", "name: [unclosed"), descriptor.KindImage)
		if !errors.Is(err, ErrParse) {
			t.Errorf("LoadFile() error = %v, want ErrParse", err)
		}
	})

	t.Run("duplicate key", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFile(writeFile(t, "m.yaml", "name: a\nname: b\n"), descriptor.KindModule)
		if !errors.Is(err, ErrParse) || !strings.Contains(err.Error(), "duplicate key") {
			t.Errorf("LoadFile() error = %v, want duplicate key", err)
		}
	})

	t.Run("not a mapping", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFile(writeFile(t, "m.yaml", "- a\n- b\n"), descriptor.KindModule)
		if !errors.Is(err, ErrParse) {
			t.Errorf("LoadFile() error = %v, want ErrParse", err)
		}
	})

	t.Run("schema violation", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFile(writeFile(t, "image.yaml", "name: img\nversion: 1\n"), descriptor.KindImage)
		if !errors.Is(err, descriptor.ErrSchema) {
			t.Errorf("LoadFile() error = %v, want ErrSchema", err)
		}
	})
}

func TestParseYAML_MergeKeys(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte("base: &base\n  a: 1\n  b: 2\nderived:\n  <<: *base\n  b: 3\n"), FormatYAML, "anchors.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	d := descriptor.MustNew(descriptor.KindGeneric, doc)
	derived := d.Descriptor("derived")
	if v, _ := derived.Get("a"); v != int64(1) {
		t.Errorf("a = %#v, want 1", v)
	}
	if v, _ := derived.Get("b"); v != int64(3) {
		t.Errorf("b = %#v, want 3 (explicit keys win)", v)
	}
}

// nestedAliases builds a document whose every level repeats the previous
// anchor ten times.
func nestedAliases(levels int) string {
	var sb strings.Builder
	sb.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= levels; i++ {
		fmt.Fprintf(&sb, "l%d: &l%d [", i, i)
		for j := range 10 {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "*l%d", i-1)
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}

func TestParseYAML_ExcessiveAliasing(t *testing.T) {
	t.Parallel()

	for _, format := range []Format{FormatYAML, FormatJSON} {
		data := nestedAliases(8)
		if format == FormatJSON {
			// Flow style is also what lenient JSON input reaches the walker as.
			data = "{" + strings.ReplaceAll(strings.TrimSpace(data), "\n", ", ") + "}"
		}
		_, err := Parse([]byte(data), format, "laughs")
		if !errors.Is(err, ErrParse) || !errors.Is(err, errExcessiveAliasing) {
			t.Errorf("Parse(%s) error = %v, want excessive aliasing", format, err)
		}
	}

	_, err := ParseOverride(nestedAliases(8))
	if !errors.Is(err, errExcessiveAliasing) {
		t.Errorf("ParseOverride() error = %v, want excessive aliasing", err)
	}

	_, err = Parse([]byte("a: &a [x, *a]\n"), FormatYAML, "self")
	if !errors.Is(err, ErrParse) || !strings.Contains(err.Error(), "contains itself") {
		t.Errorf("Parse(self reference) error = %v, want anchor containing itself", err)
	}
}

func TestParseYAML_ModerateAliasing(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(nestedAliases(2)), FormatYAML, "aliases.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	d := descriptor.MustNew(descriptor.KindGeneric, doc)
	if got := len(d.List("l2")); got != 10 {
		t.Errorf("len(l2) = %d, want 10", got)
	}
}

func TestParseJSON_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"duplicate key":  `{"name": "a", "name": "b"}`,
		"trailing value": `{"name": "a"} {"name": "b"}`,
		"unclosed":       `{"name": "a"`,
		"not a mapping":  `["a", "b"]`,
	}
	for name, data := range tests {
		if _, err := Parse([]byte(data), FormatJSON, name); !errors.Is(err, ErrParse) {
			t.Errorf("%s: Parse() error = %v, want ErrParse", name, err)
		}
	}
}

func TestParseJSON_Values(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte("\t{\n\t\"s\": \"yes\",\n\t\"n\": 12,\n\t\"f\": 1.5,\n\t\"e\": \"a\\u00e9\\n\", // note\n}\n\t"), FormatJSON, "v.json")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	d := descriptor.MustNew(descriptor.KindGeneric, doc)
	if got := d.String("s"); got != "yes" {
		t.Errorf("s = %q, want the string yes", got)
	}
	if v, _ := d.Get("n"); v != int64(12) {
		t.Errorf("n = %#v, want int64(12)", v)
	}
	if v, _ := d.Get("f"); v != 1.5 {
		t.Errorf("f = %#v, want 1.5", v)
	}
	if got := d.String("e"); got != "a\u00e9\n" {
		t.Errorf("e = %q", got)
	}
}

func TestParseOverride(t *testing.T) {
	t.Parallel()

	t.Run("inline yaml", func(t *testing.T) {
		t.Parallel()
		d, err := ParseOverride("{run: {user: root}, description: overridden}")
		if err != nil {
			t.Fatalf("ParseOverride() error = %v", err)
		}
		if d.Kind() != descriptor.KindOverrides || d.Source() != InlineSource {
			t.Errorf("kind/source = %s/%s", d.Kind(), d.Source())
		}
		if d.String("description") != "overridden" {
			t.Errorf("description = %q", d.String("description"))
		}
	})

	t.Run("file", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "overrides.yaml", "version: '2.0'\n")
		d, err := ParseOverride(path)
		if err != nil {
			t.Fatalf("ParseOverride() error = %v", err)
		}
		if d.Source() != path || d.String("version") != "2.0" {
			t.Errorf("source/version = %s/%s", d.Source(), d.String("version"))
		}
	})

	t.Run("invalid inline", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseOverride("bogus: true"); !errors.Is(err, descriptor.ErrSchema) {
			t.Errorf("ParseOverride() error = %v, want ErrSchema", err)
		}
	})
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"a.json": FormatJSON,
		"a.toml": FormatTOML,
		"a.cue":  FormatCUE,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
}
