// Package definition holds the declarative catalog that drives entity
// synchronization: the value key variants the evaluator understands, the
// group, device and entity records, and the static panel catalog itself.
package definition

import (
	"context"

	"github.com/zorak1103/visonic-bridge/internal/config"
)

// Commander is the slice of the panel transport that lambda values and
// entities need: issuing commands and checking connectivity.
type Commander interface {
	SendCommand(ctx context.Context, platform, action string, args map[string]any) error
	Connected() bool
}

// Transform rewrites a resolved value. Transforms run inside the evaluator's
// failure boundary, so a panic surfaces as a logged nil rather than taking
// the sync pass down.
type Transform func(value any) any

// LambdaContext is the bundle passed to Lambda values.
type LambdaContext struct {
	API        Commander
	Config     *config.Config
	DeviceData any
	AllData    map[string]any
	Value      any
}

// Key marks the value variants the evaluator resolves against live data.
// Anything that is not a Key (and not a map) evaluates to itself.
type Key interface {
	defKey()
}

// DeviceData resolves a dotted key relative to the group's data path.
type DeviceData struct {
	Key       string
	Transform Transform
	IfNone    any
}

// AllData resolves a dotted key against the full panel snapshot.
type AllData struct {
	Key       string
	Transform Transform
	IfNone    any
}

// ConfigData resolves a key from the bridge configuration.
type ConfigData struct {
	Key       string
	Transform Transform
	IfNone    any
}

// ConfigOption resolves a key from the runtime option overrides.
type ConfigOption struct {
	Key       string
	Transform Transform
	IfNone    any
}

// PathIndex yields the Nth path segment counted from the right, selector
// suffix stripped. Index 1 is the last segment.
type PathIndex struct {
	Index int
}

// Lambda computes a value from the full evaluation context. A returned error
// or a panic is logged and yields nil.
type Lambda struct {
	Fn func(LambdaContext) (any, error)
}

func (DeviceData) defKey()   {}
func (AllData) defKey()      {}
func (ConfigData) defKey()   {}
func (ConfigOption) defKey() {}
func (PathIndex) defKey()    {}
func (Lambda) defKey()       {}

// Truthy reports whether a value counts as set: nil, false, zero numbers,
// empty strings and empty containers do not.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}
