package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ErrManifest is returned when a route table does not satisfy a manifest.
var ErrManifest = errors.New("route manifest not satisfied")

// Pattern is the dispatch pattern a manifest expects for a message type.
type Pattern int

const (
	// PatternPublish expects at least MinHandlers bindings.
	PatternPublish Pattern = iota
	// PatternSend expects exactly one binding.
	PatternSend
	// PatternRequest expects at most one binding.
	PatternRequest
)

func (p Pattern) String() string {
	switch p {
	case PatternPublish:
		return "publish"
	case PatternSend:
		return "send"
	case PatternRequest:
		return "request"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

// ParsePattern returns the pattern named s.
func ParsePattern(s string) (Pattern, error) {
	switch s {
	case "publish":
		return PatternPublish, nil
	case "send":
		return PatternSend, nil
	case "request":
		return PatternRequest, nil
	default:
		return 0, fmt.Errorf("unknown pattern %q", s)
	}
}

// RouteSpec is one route declared in a manifest.
type RouteSpec struct {
	// MessageType names the message type as reflect.Type.String prints it,
	// e.g. "*orders.OrderPlaced", or qualified by import path.
	MessageType string
	Pattern     Pattern
	MinHandlers int
}

// Manifest is the declarative description of the routes an application
// expects, loaded from HCL:
//
//	table {
//	  policy = "strict"
//	}
//
//	route "*orders.PlaceOrder" {
//	  pattern = "send"
//	}
//
//	route "*orders.OrderPlaced" {
//	  pattern      = "publish"
//	  min_handlers = 2
//	}
//
//	state = {
//	  origin = "billing"
//	}
//
// Verify checks a built table against it at startup, so wiring mistakes
// surface before the first dispatch.
type Manifest struct {
	Policy Policy
	Routes []RouteSpec
	State  map[string]any
}

// hclManifestFile represents the top-level structure of a manifest file for
// decoding.
type hclManifestFile struct {
	Table  *hclTable   `hcl:"table,block"`
	Routes []*hclRoute `hcl:"route,block"`
	State  cty.Value   `hcl:"state,optional"`
}

type hclTable struct {
	Policy *string `hcl:"policy,optional"`
}

type hclRoute struct {
	MessageType string `hcl:"message_type,label"`
	Pattern     string `hcl:"pattern"`
	MinHandlers *int   `hcl:"min_handlers,optional"`
}

// LoadManifest reads and decodes the HCL manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	slog.Debug("Loading route manifest.", "path", path)

	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decodeManifest(file, path)
}

// ParseManifest decodes an HCL manifest from src. filename is used in
// diagnostics only.
func ParseManifest(src []byte, filename string) (*Manifest, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decodeManifest(file, filename)
}

func decodeManifest(file *hcl.File, filename string) (*Manifest, error) {
	var parsed hclManifestFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	m := &Manifest{}
	if parsed.Table != nil && parsed.Table.Policy != nil {
		p, err := ParsePolicy(*parsed.Table.Policy)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", filename, err)
		}
		m.Policy = p
	}

	seen := make(map[string]bool, len(parsed.Routes))
	for _, r := range parsed.Routes {
		if seen[r.MessageType] {
			return nil, fmt.Errorf("manifest %s: route %q declared twice", filename, r.MessageType)
		}
		seen[r.MessageType] = true

		p, err := ParsePattern(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: route %q: %w", filename, r.MessageType, err)
		}
		spec := RouteSpec{MessageType: r.MessageType, Pattern: p}
		if r.MinHandlers != nil {
			if p != PatternPublish {
				return nil, fmt.Errorf("manifest %s: route %q: min_handlers only applies to publish", filename, r.MessageType)
			}
			if *r.MinHandlers < 0 {
				return nil, fmt.Errorf("manifest %s: route %q: min_handlers must not be negative", filename, r.MessageType)
			}
			spec.MinHandlers = *r.MinHandlers
		}
		m.Routes = append(m.Routes, spec)
	}

	state, err := stateFromCty(parsed.State)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: state: %w", filename, err)
	}
	m.State = state

	return m, nil
}

// stateFromCty converts the manifest's state object into plain Go values:
// string, int64, float64, bool or nil.
func stateFromCty(v cty.Value) (map[string]any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, errors.New("must be known")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("must be an object, got %s", ty.FriendlyName())
	}

	out := make(map[string]any, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		key := k.AsString()
		gv, err := goValue(ev)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = gv
	}
	return out, nil
}

func goValue(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		var i int64
		if err := gocty.FromCtyValue(v, &i); err == nil {
			return i, nil
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", v.Type().FriendlyName())
	}
}

// TableOptions returns the table options the manifest configures.
func (m *Manifest) TableOptions() []TableOption {
	return []TableOption{WithPolicy(m.Policy)}
}

// Verify checks every declared route against t. All violations are reported
// together; the error matches ErrManifest.
//
// A declared name refers to a message type either as reflect.Type.String
// prints it ("*orders.OrderPlaced") or qualified by import path
// ("*example.com/shop/orders.OrderPlaced"). A name that refers to more than
// one type in t is a violation.
func (m *Manifest) Verify(t *Table) error {
	byName := make(map[string][]reflect.Type)
	for _, mt := range t.MessageTypes() {
		byName[mt.String()] = append(byName[mt.String()], mt)
		if q := qualifiedName(mt); q != mt.String() {
			byName[q] = append(byName[q], mt)
		}
	}

	var errs []error
	for _, spec := range m.Routes {
		types := byName[spec.MessageType]
		if len(types) > 1 {
			errs = append(errs, fmt.Errorf("route %s: name matches %d message types, qualify it with the import path, e.g. %q",
				spec.MessageType, len(types), qualifiedName(types[0])))
			continue
		}
		n := 0
		if len(types) == 1 {
			n = t.Route(types[0]).Len()
		}

		switch spec.Pattern {
		case PatternSend:
			if n != 1 {
				errs = append(errs, fmt.Errorf("route %s: send requires exactly one handler, found %d", spec.MessageType, n))
			}
		case PatternRequest:
			if n > 1 {
				errs = append(errs, fmt.Errorf("route %s: request allows at most one handler, found %d", spec.MessageType, n))
			}
		case PatternPublish:
			if n < spec.MinHandlers {
				errs = append(errs, fmt.Errorf("route %s: publish requires at least %d handlers, found %d", spec.MessageType, spec.MinHandlers, n))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrManifest, errors.Join(errs...))
	}
	return nil
}

// qualifiedName returns "*importpath.Name" for a pointer to a named type and
// the plain type string otherwise.
func qualifiedName(t reflect.Type) string {
	if t.Kind() != reflect.Pointer {
		return t.String()
	}
	e := t.Elem()
	if e.Name() == "" || e.PkgPath() == "" {
		return t.String()
	}
	return "*" + e.PkgPath() + "." + e.Name()
}

// SeedState returns a before-routing hook that copies the manifest's state
// into every envelope.
//
//	d := relay.New(table, factory, relay.WithBeforeRouting(manifest.SeedState()))
func (m *Manifest) SeedState() BeforeRoutingFunc {
	keys := make([]string, 0, len(m.State))
	for k := range m.State {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return func(ctx context.Context, env *Envelope) context.Context {
		for _, k := range keys {
			env.SetState(k, m.State[k])
		}
		return ctx
	}
}
