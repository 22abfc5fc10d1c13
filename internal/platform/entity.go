// Package platform holds the entity types the bridge exposes: sensors,
// binary sensors, switches, buttons, selects, numbers and the partition
// alarm panels. Entities receive their state from the sync engine via
// dispatch signals and issue panel commands through the transport.
package platform

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/zorak1103/visonic-bridge/internal/definition"
	"github.com/zorak1103/visonic-bridge/internal/engine"
)

// textUnknown marks a restored value whose source has not reported yet.
const textUnknown = "unknown"

// Evaluator resolves definition values against the live snapshot. The sync
// engine implements it.
type Evaluator interface {
	Evaluate(defValue any, dataPath string) any
	EvaluateWith(defValue any, dataPath string, entityValue any) any
}

// Entity is the shared state and behavior of all platform entities.
type Entity struct {
	api        definition.Commander
	evaluator  Evaluator
	definition definition.EntityDefinition
	uniqueID   string
	deviceID   string

	mu         sync.Mutex
	value      any
	attributes map[string]any
	extraData  map[string]any
}

func newEntity(api definition.Commander, evaluator Evaluator, def definition.EntityDefinition, uniqueID, deviceID string, value any, attributes, extraData map[string]any) *Entity {
	return &Entity{
		api:        api,
		evaluator:  evaluator,
		definition: def,
		uniqueID:   uniqueID,
		deviceID:   deviceID,
		value:      value,
		attributes: attributes,
		extraData:  extraData,
	}
}

// UniqueID returns the entity's unique id.
func (e *Entity) UniqueID() string {
	return e.uniqueID
}

// DeviceID returns the identifier of the device the entity belongs to.
func (e *Entity) DeviceID() string {
	return e.deviceID
}

// Name resolves the entity's display name.
func (e *Entity) Name() string {
	name := e.evaluateDef(e.definition.Name)
	if name == nil {
		return ""
	}
	return fmt.Sprint(name)
}

// Value returns the current state value.
func (e *Entity) Value() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Attributes returns a copy of the current state attributes.
func (e *Entity) Attributes() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyMap(e.attributes)
}

// ExtraData returns a copy of the entity's command parameters, never nil.
func (e *Entity) ExtraData() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.extraData == nil {
		return map[string]any{}
	}
	return copyMap(e.extraData)
}

// Available reports whether the entity has a usable value. Restored
// entities stay unavailable until the panel reports their source.
func (e *Entity) Available() bool {
	return strings.ToLower(fmt.Sprint(e.Value())) != textUnknown
}

// DataPath returns the snapshot path this entity was created from.
func (e *Entity) DataPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if path, ok := e.extraData["data_path"].(string); ok {
		return path
	}
	return ""
}

// applyUpdate folds a sync engine update into the entity. On/off values
// the panel has already confirmed optimistically are left alone, string
// forms of the current value do not count as changes, attributes merge and
// extra data replaces wholesale.
func (e *Entity) applyUpdate(update engine.UpdateEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if (e.value == "on" && definition.Truthy(update.Value)) ||
		(e.value == "off" && !definition.Truthy(update.Value)) {
		return
	}

	asString := fmt.Sprint(update.Value)
	if !(e.value == update.Value || e.value == asString || e.value == strings.ToLower(asString)) {
		slog.Debug("Updating entity", "unique_id", e.uniqueID, "old", e.value, "new", update.Value)
		e.value = update.Value
	}

	if len(update.Attributes) > 0 {
		if e.attributes == nil {
			e.attributes = map[string]any{}
		}
		for key, value := range update.Attributes {
			e.attributes[key] = value
		}
	}
	if len(update.ExtraData) > 0 {
		e.extraData = update.ExtraData
	}
}

// setValue replaces the value directly, for optimistic command handling.
func (e *Entity) setValue(value any) {
	e.mu.Lock()
	e.value = value
	e.mu.Unlock()
}

// evaluateDef resolves a definition value anchored at this entity's data
// path.
func (e *Entity) evaluateDef(defValue any) any {
	return e.evaluator.Evaluate(defValue, e.DataPath())
}

// processArgs substitutes bracketed argument values from the entity's
// extra data, so a definition can write "[zone_id]" and have the stored
// zone filled in at command time.
func (e *Entity) processArgs(args map[string]any) map[string]any {
	extraData := e.ExtraData()
	result := make(map[string]any, len(args))
	for name, value := range args {
		if s, ok := value.(string); ok && strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			result[name] = extraData[s[1:len(s)-1]]
			continue
		}
		result[name] = value
	}
	return result
}

// definitionFor finds an entity definition in the catalog by its group uid
// and key, for entities restored from the store.
func definitionFor(groups []definition.GroupDefinition, groupUID, key string) (definition.EntityDefinition, bool) {
	for _, group := range groups {
		if group.UID != groupUID {
			continue
		}
		for _, def := range group.Entities {
			if def.Key == key {
				return def, true
			}
		}
	}
	return definition.EntityDefinition{}, false
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for key, value := range m {
		result[key] = value
	}
	return result
}
