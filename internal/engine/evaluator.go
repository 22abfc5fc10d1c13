package engine

import (
	"log/slog"
	"strings"

	"github.com/zorak1103/visonic-bridge/internal/datapath"
	"github.com/zorak1103/visonic-bridge/internal/definition"
)

// Evaluate resolves a definition value against the current snapshot, with
// dataPath anchoring any device-relative keys. Evaluation never fails: a
// broken transform or lambda is logged and yields nil.
func (m *Manager) Evaluate(defValue any, dataPath string) any {
	return m.evaluate(defValue, dataPath, nil, false)
}

// EvaluateWith is Evaluate with an entity value handed to lambda variants.
// Platform entities use it for value-dependent definitions such as state
// mapping.
func (m *Manager) EvaluateWith(defValue any, dataPath string, entityValue any) any {
	return m.evaluate(defValue, dataPath, entityValue, false)
}

func (m *Manager) evaluate(defValue any, dataPath string, entityValue any, dropNil bool) any {
	var result any

	switch def := defValue.(type) {
	case map[string]any:
		resultMap := make(map[string]any, len(def))
		for key, value := range def {
			entry := m.evaluate(value, dataPath, entityValue, false)
			if dropNil && entry == nil {
				continue
			}
			resultMap[key] = entry
		}
		return resultMap

	case definition.DeviceData:
		deviceData := datapath.Resolve(dataPath, m.snapshot())
		result = m.resolveDataKey(def.Key, def.Transform, def.IfNone, deviceData, dataPath)

	case definition.AllData:
		result = m.resolveDataKey(def.Key, def.Transform, def.IfNone, m.snapshot(), dataPath)

	case definition.ConfigData:
		value, _ := m.cfg.Data(def.Key)
		result = m.finishDataKey(value, def.Transform, def.IfNone, dataPath)

	case definition.ConfigOption:
		value, _ := m.cfg.Option(def.Key)
		result = m.finishDataKey(value, def.Transform, def.IfNone, dataPath)

	case definition.PathIndex:
		segments := strings.Split(dataPath, ".")
		if def.Index < 1 || def.Index > len(segments) {
			slog.Error("Path index out of range", "index", def.Index, "data_path", dataPath)
			return nil
		}
		result = datapath.StripSelector(segments[len(segments)-def.Index])

	case definition.Lambda:
		result = m.callLambda(def, dataPath, entityValue)

	default:
		result = defValue
	}

	if s, ok := result.(string); ok && s != "" && dataPath != "" {
		result = datapath.SubstitutePlaceholders(s, dataPath)
	}
	return result
}

// resolveDataKey resolves a dotted key within data and applies the
// transform and fallback.
func (m *Manager) resolveDataKey(key string, transform definition.Transform, ifNone any, data any, dataPath string) any {
	result := datapath.Resolve(key, data)
	return m.finishDataKey(result, transform, ifNone, dataPath)
}

// finishDataKey applies a transform to a non-nil result, then the fallback
// to a nil one.
func (m *Manager) finishDataKey(result any, transform definition.Transform, ifNone any, dataPath string) any {
	if transform != nil && result != nil {
		result = m.applyTransform(transform, result, dataPath)
	}
	if result == nil && ifNone != nil {
		result = ifNone
	}
	return result
}

// applyTransform runs a transform inside the failure boundary.
func (m *Manager) applyTransform(transform definition.Transform, value any, dataPath string) (result any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Error processing definition entry", "data_path", dataPath, "panic", r)
			result = nil
		}
	}()
	return transform(value)
}

// callLambda runs a lambda value inside the failure boundary.
func (m *Manager) callLambda(def definition.Lambda, dataPath string, entityValue any) (result any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Error processing definition entry", "data_path", dataPath, "panic", r)
			result = nil
		}
	}()

	value, err := def.Fn(definition.LambdaContext{
		API:        m.api,
		Config:     m.cfg,
		DeviceData: datapath.Resolve(dataPath, m.snapshot()),
		AllData:    m.snapshot(),
		Value:      entityValue,
	})
	if err != nil {
		slog.Error("Error processing definition entry", "data_path", dataPath, "error", err)
		return nil
	}
	return value
}
