package platform

import (
	"log/slog"
	"sync"

	"github.com/zorak1103/visonic-bridge/internal/definition"
	"github.com/zorak1103/visonic-bridge/internal/dispatch"
	"github.com/zorak1103/visonic-bridge/internal/engine"
	"github.com/zorak1103/visonic-bridge/internal/registry"
)

var platforms = []string{
	definition.PlatformAlarm,
	definition.PlatformBinarySensor,
	definition.PlatformButton,
	definition.PlatformNumber,
	definition.PlatformSelect,
	definition.PlatformSensor,
	definition.PlatformSwitch,
}

// Manager hosts the live platform entities. It listens for register events
// from the sync engine, builds the matching entity type and keeps each
// entity subscribed to its update and remove signals.
type Manager struct {
	api        definition.Commander
	evaluator  Evaluator
	dispatcher *dispatch.Dispatcher
	groups     []definition.GroupDefinition
	optimistic bool

	mu       sync.RWMutex
	entities map[string]any
	cleanup  map[string][]func()
	unsub    []func()
}

// NewManager creates a platform manager and subscribes it to every
// platform's register signal.
func NewManager(api definition.Commander, evaluator Evaluator, dispatcher *dispatch.Dispatcher, groups []definition.GroupDefinition, optimistic bool) *Manager {
	m := &Manager{
		api:        api,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		groups:     groups,
		optimistic: optimistic,
		entities:   make(map[string]any),
		cleanup:    make(map[string][]func()),
	}

	for _, platform := range platforms {
		platform := platform
		m.unsub = append(m.unsub, dispatcher.Connect(engine.RegisterSignal(platform), func(payload any) {
			m.handleRegister(platform, payload)
		}))
	}
	return m
}

// Restore rebuilds entities persisted by a previous run, so the bridge
// exposes them before the first panel message arrives. Restored entities
// keep their last known value; definitions come from the catalog where the
// entity's provenance still matches one.
func (m *Manager) Restore(reg *registry.Registry) {
	for _, platform := range platforms {
		for _, record := range reg.EntitiesForPlatform(platform) {
			def, found := definitionFor(m.groups,
				stringField(record.ExtraData, "group_uid"),
				stringField(record.ExtraData, "key"))
			if !found {
				def = definition.EntityDefinition{
					Platform:       record.Platform,
					Key:            record.UniqueID,
					Name:           record.Name,
					Icon:           record.Icon,
					DeviceClass:    record.DeviceClass,
					EntityCategory: record.EntityCategory,
					Unit:           record.Unit,
				}
			}

			value := record.Value
			if value == nil {
				value = textUnknown
			}

			m.addEntity(platform, def, record.UniqueID, record.DeviceID, value, record.Attributes, record.ExtraData)
			slog.Debug("Restored entity", "unique_id", record.UniqueID, "platform", platform, "value", value)
		}
	}
}

// Close drops all entities and subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, unsubscribe := range m.unsub {
		unsubscribe()
	}
	for _, cleanups := range m.cleanup {
		for _, unsubscribe := range cleanups {
			unsubscribe()
		}
	}
	m.entities = make(map[string]any)
	m.cleanup = make(map[string][]func())
}

// Entity returns a live entity by unique id.
func (m *Manager) Entity(uniqueID string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entity, ok := m.entities[uniqueID]
	return entity, ok
}

// Alarm returns a live alarm entity by unique id.
func (m *Manager) Alarm(uniqueID string) (*Alarm, bool) {
	entity, ok := m.Entity(uniqueID)
	if !ok {
		return nil, false
	}
	alarm, ok := entity.(*Alarm)
	return alarm, ok
}

// Switch returns a live switch entity by unique id.
func (m *Manager) Switch(uniqueID string) (*Switch, bool) {
	entity, ok := m.Entity(uniqueID)
	if !ok {
		return nil, false
	}
	sw, ok := entity.(*Switch)
	return sw, ok
}

// Count returns the number of live entities.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// handleRegister builds an entity from a sync engine register event.
func (m *Manager) handleRegister(platform string, payload any) {
	event, ok := payload.(engine.RegisterEvent)
	if !ok {
		return
	}
	if event.Value == nil {
		slog.Error("Unable to add entity, value missing", "platform", platform, "unique_id", event.UniqueID)
		return
	}

	slog.Debug("Registering new entity", "platform", platform, "unique_id", event.UniqueID, "value", event.Value)
	m.addEntity(platform, event.Definition, event.UniqueID, event.Device.Identifier, event.Value, event.Attributes, event.ExtraData)
}

func (m *Manager) addEntity(platform string, def definition.EntityDefinition, uniqueID, deviceID string, value any, attributes, extraData map[string]any) {
	base := newEntity(m.api, m.evaluator, def, uniqueID, deviceID, value, attributes, extraData)

	var entity any
	switch platform {
	case definition.PlatformAlarm:
		entity = &Alarm{Entity: base}
	case definition.PlatformBinarySensor:
		entity = &BinarySensor{Entity: base}
	case definition.PlatformButton:
		entity = &Button{Entity: base}
	case definition.PlatformNumber:
		entity = &Number{Entity: base}
	case definition.PlatformSelect:
		entity = &Select{Entity: base}
	case definition.PlatformSensor:
		entity = &Sensor{Entity: base}
	case definition.PlatformSwitch:
		entity = &Switch{Entity: base, optimistic: m.optimistic}
	default:
		slog.Warn("Unknown platform", "platform", platform, "unique_id", uniqueID)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A re-register replaces the previous entity and its subscriptions.
	for _, unsubscribe := range m.cleanup[uniqueID] {
		unsubscribe()
	}

	m.entities[uniqueID] = entity
	m.cleanup[uniqueID] = []func(){
		m.dispatcher.Connect(engine.UpdateSignal(uniqueID), func(payload any) {
			if update, ok := payload.(engine.UpdateEvent); ok {
				base.applyUpdate(update)
			}
		}),
		m.dispatcher.Connect(engine.RemoveSignal(uniqueID), func(any) {
			m.removeEntity(uniqueID)
		}),
	}
}

func (m *Manager) removeEntity(uniqueID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, unsubscribe := range m.cleanup[uniqueID] {
		unsubscribe()
	}
	delete(m.cleanup, uniqueID)
	delete(m.entities, uniqueID)
	slog.Debug("Removed entity", "unique_id", uniqueID)
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if value, ok := m[key].(string); ok {
		return value
	}
	return ""
}
