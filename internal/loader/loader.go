// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/invowk/imagekit/pkg/cueutil"
	"github.com/invowk/imagekit/pkg/descriptor"
)

const (
	// FormatYAML is a YAML document.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON document; comments and trailing commas are allowed.
	FormatJSON Format = "json"
	// FormatTOML is a TOML document.
	FormatTOML Format = "toml"
	// FormatCUE is a CUE document evaluated to concrete data.
	FormatCUE Format = "cue"

	// InlineSource is the source name of inline override documents.
	InlineSource = "<inline>"
)

var (
	// ErrUnsupportedFormat is returned for files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported descriptor format")

	// ErrParse is the sentinel error wrapped by ParseError.
	ErrParse = errors.New("failed to parse descriptor")
)

type (
	// Format is a descriptor document format.
	Format string

	// ParseError is returned when a document is not well-formed.
	ParseError struct {
		Source string
		Format Format
		Err    error
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s document %s: %v", e.Format, e.Source, e.Err)
}

// Unwrap returns ErrParse and the decoder error.
func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("%w: %s (expected .yaml, .yml, .json, .toml or .cue)", ErrUnsupportedFormat, path)
	}
}

// LoadFile reads path and builds a descriptor of the given kind.
func LoadFile(path string, kind descriptor.Kind) (*descriptor.Descriptor, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	return Load(data, format, kind, path)
}

// Load parses data and builds a descriptor of the given kind. source names the
// document in error messages.
func Load(data []byte, format Format, kind descriptor.Kind, source string) (*descriptor.Descriptor, error) {
	doc, err := Parse(data, format, source)
	if err != nil {
		return nil, err
	}
	return descriptor.New(kind, doc, descriptor.WithSource(source))
}

// ParseOverride reads a command line override. An argument naming an existing
// file is loaded from that file; anything else is parsed as an inline YAML
// (or JSON) document.
func ParseOverride(arg string) (*descriptor.Descriptor, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return LoadFile(arg, descriptor.KindOverrides)
	}
	return Load([]byte(arg), FormatYAML, descriptor.KindOverrides, InlineSource)
}

// Parse decodes data into a document tree suitable for descriptor.New.
func Parse(data []byte, format Format, source string) (any, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, source); err != nil {
		return nil, err
	}

	var (
		doc any
		err error
	)
	switch format {
	case FormatYAML:
		doc, err = parseYAML(data)
	case FormatJSON:
		doc, err = parseJSON(data)
	case FormatTOML:
		doc, err = parseTOML(data)
	case FormatCUE:
		return parseCUE(data, source)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, &ParseError{Source: source, Format: format, Err: err}
	}
	if doc == nil {
		return descriptor.Ordered{}, nil
	}
	if _, ok := doc.(descriptor.Ordered); !ok {
		if _, ok := doc.(map[string]any); !ok {
			return nil, &ParseError{Source: source, Format: format, Err: fmt.Errorf("document must be a mapping, got %T", doc)}
		}
	}
	return doc, nil
}

// parseJSON decodes lenient JSON keeping object key order. JSON is a subset
// of YAML, so the document goes through the YAML node walk once comments and
// trailing commas are removed.
func parseJSON(data []byte) (any, error) {
	return parseYAML(bytes.TrimSpace(jsonc.ToJSON(data)))
}

// parseYAML decodes YAML keeping mapping key order.
func parseYAML(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	w := &nodeWalker{expanding: map[*yaml.Node]bool{}}
	return w.fromNode(&root)
}

// errExcessiveAliasing guards against documents whose aliases expand
// exponentially ("billion laughs").
var errExcessiveAliasing = errors.New("document contains excessive aliasing")

// nodeWalker converts a yaml.Node tree into descriptor values. It counts
// visited nodes the way yaml.v3 does when decoding into values, and applies
// the same alias ratio limit.
type nodeWalker struct {
	decoded    int
	aliased    int
	aliasDepth int
	expanding  map[*yaml.Node]bool
}

// allowedAliasRatio mirrors yaml.v3: small documents may consist almost
// entirely of aliases, large ones only up to 10%.
func allowedAliasRatio(decoded int) float64 {
	switch {
	case decoded <= 400_000:
		return 0.99
	case decoded >= 4_000_000:
		return 0.10
	default:
		return 0.99 - 0.89*(float64(decoded-400_000)/3_600_000)
	}
}

func (w *nodeWalker) visit() error {
	w.decoded++
	if w.aliasDepth > 0 {
		w.aliased++
	}
	if w.aliased > 100 && w.decoded > 1000 && float64(w.aliased)/float64(w.decoded) > allowedAliasRatio(w.decoded) {
		return errExcessiveAliasing
	}
	return nil
}

func (w *nodeWalker) fromNode(n *yaml.Node) (any, error) {
	if err := w.visit(); err != nil {
		return nil, err
	}

	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return w.fromNode(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: unknown anchor %q", n.Line, n.Value)
		}
		if w.expanding[n.Alias] {
			return nil, fmt.Errorf("line %d: anchor %q value contains itself", n.Line, n.Value)
		}
		w.expanding[n.Alias] = true
		w.aliasDepth++
		v, err := w.fromNode(n.Alias)
		w.aliasDepth--
		delete(w.expanding, n.Alias)
		return v, err
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := w.fromNode(c)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.MappingNode:
		return w.fromMapping(n)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func (w *nodeWalker) fromMapping(n *yaml.Node) (descriptor.Ordered, error) {
	doc := make(descriptor.Ordered, 0, len(n.Content)/2)
	seen := map[string]bool{}
	var merged []descriptor.Field

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
		}

		// "<<: *anchor" merge keys; explicit keys take precedence.
		if k.ShortTag() == "!!merge" {
			inherited, err := w.fromNode(v)
			if err != nil {
				return nil, err
			}
			ordered, ok := inherited.(descriptor.Ordered)
			if !ok {
				return nil, fmt.Errorf("line %d: merge key requires a mapping", k.Line)
			}
			merged = append(merged, ordered...)
			continue
		}

		if seen[k.Value] {
			return nil, fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		seen[k.Value] = true

		value, err := w.fromNode(v)
		if err != nil {
			return nil, err
		}
		doc = append(doc, descriptor.Field{Key: k.Value, Value: value})
	}

	for _, f := range merged {
		if !seen[f.Key] {
			seen[f.Key] = true
			doc = append(doc, f)
		}
	}
	return doc, nil
}

func parseTOML(data []byte) (any, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return plainTOML(doc), nil
}

// plainTOML replaces TOML date and time values with their text form.
func plainTOML(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, elem := range v {
			v[k] = plainTOML(elem)
		}
		return v
	case []any:
		for i, elem := range v {
			v[i] = plainTOML(elem)
		}
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case toml.LocalDate, toml.LocalTime, toml.LocalDateTime:
		return fmt.Sprint(v)
	default:
		return v
	}
}

func parseCUE(data []byte, source string) (any, error) {
	doc, err := cueutil.Decode(data, cueutil.WithFilename(source))
	if err != nil {
		return nil, &ParseError{Source: source, Format: FormatCUE, Err: err}
	}
	return doc, nil
}
