package relay

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when raw input is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// Inspector parses a raw document once so that discriminators and the
// decoder can query it without unmarshaling.
type Inspector interface {
	Inspect(raw []byte) (View, error)
}

// View is an inspected document.
//
// Get returns the value at a gjson path such as "payload.lines.0.sku", and
// false when nothing is there. The empty path addresses the whole document.
// Result.Raw holds the value's raw JSON, including quotes for strings.
type View interface {
	Get(path string) (gjson.Result, bool)
}

// JSONInspector returns the Inspector for JSON documents.
func JSONInspector() Inspector {
	return jsonInspector{}
}

type jsonInspector struct{}

func (jsonInspector) Inspect(raw []byte) (View, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return document{root: gjson.ParseBytes(raw)}, nil
}

type document struct {
	root gjson.Result
}

func (d document) Get(path string) (gjson.Result, bool) {
	if path == "" {
		return d.root, true
	}
	r := d.root.Get(path)
	return r, r.Exists()
}

// stringAt returns the string at path, or false when the value is missing or
// of another JSON type.
func stringAt(v View, path string) (string, bool) {
	r, ok := v.Get(path)
	if !ok || r.Type != gjson.String {
		return "", false
	}
	return r.Str, true
}
