// Package engine reconciles panel snapshots against the entity definition
// catalog: it expands group data paths, creates devices and entities on
// first sight, pushes value updates to registered entities and removes
// entities their definitions have retired.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/zorak1103/visonic-bridge/internal/config"
	"github.com/zorak1103/visonic-bridge/internal/datapath"
	"github.com/zorak1103/visonic-bridge/internal/definition"
	"github.com/zorak1103/visonic-bridge/internal/dispatch"
	"github.com/zorak1103/visonic-bridge/internal/registry"
)

// Domain namespaces device identities and dispatch signals.
const Domain = "visonic_powerlink"

// Manager owns the snapshot state and runs one sync pass per inbound panel
// message or connection state change. Passes are serialized; the transport
// and platform layers may call in from any goroutine.
type Manager struct {
	api        definition.Commander
	cfg        *config.Config
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	groups     []definition.GroupDefinition
	restore    bool

	// mu serializes sync passes; dataMu guards the snapshot fields read by
	// the evaluator from platform goroutines.
	mu          sync.Mutex
	dataMu      sync.RWMutex
	data        map[string]any
	running     bool
	initialised bool
}

// New creates a sync manager over the given catalog.
func New(api definition.Commander, cfg *config.Config, reg *registry.Registry, dispatcher *dispatch.Dispatcher, groups []definition.GroupDefinition) *Manager {
	return &Manager{
		api:        api,
		cfg:        cfg,
		registry:   reg,
		dispatcher: dispatcher,
		groups:     groups,
		restore:    cfg.Bridge.RestoreEntities,
		data:       make(map[string]any),
	}
}

// Start marks the manager running. Connection state changes arriving before
// Start (or after Shutdown) are ignored.
func (m *Manager) Start() {
	m.dataMu.Lock()
	m.running = true
	m.dataMu.Unlock()
}

// Shutdown stops the manager from reacting to connection state changes.
func (m *Manager) Shutdown() {
	m.dataMu.Lock()
	m.running = false
	m.dataMu.Unlock()
}

// Initialised reports whether a full panel message has been processed.
func (m *Manager) Initialised() bool {
	m.dataMu.RLock()
	defer m.dataMu.RUnlock()
	return m.initialised
}

// snapshot returns the current panel snapshot.
func (m *Manager) snapshot() map[string]any {
	m.dataMu.RLock()
	defer m.dataMu.RUnlock()
	return m.data
}

// HandleMessage ingests a full panel message: the connection flag is folded
// into the snapshot, every group is reconciled and the first pass flips the
// manager to steady state.
func (m *Manager) HandleMessage(data map[string]any) {
	if len(data) == 0 {
		return
	}
	data["api_connected"] = m.api.Connected()

	m.dataMu.Lock()
	m.data = data
	m.dataMu.Unlock()

	m.syncPass()

	m.dataMu.Lock()
	m.initialised = true
	m.dataMu.Unlock()
}

// HandleConnectionState folds a transport state change into the last
// snapshot and re-syncs, so connectivity entities reflect a dropped link
// without waiting for the next panel message. A published snapshot map is
// never mutated in place: readers that obtained it before the state change
// keep a consistent view, so the new flag goes into a replacement copy.
func (m *Manager) HandleConnectionState(connected bool) {
	m.dataMu.Lock()
	if !m.running {
		m.dataMu.Unlock()
		return
	}
	next := make(map[string]any, len(m.data)+1)
	for key, value := range m.data {
		next[key] = value
	}
	next["api_connected"] = connected
	m.data = next
	m.dataMu.Unlock()

	slog.Debug("Connection state changed", "connected", connected)
	m.syncPass()
}

// syncPass reconciles every catalog group against the current snapshot.
func (m *Manager) syncPass() {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	firstPass := !m.Initialised()

	for _, group := range m.groups {
		paths := []string{""}
		if group.DataPath != "" {
			paths = datapath.Expand(group.DataPath, group.ListIDKey, snapshot)
		}

		for _, path := range paths {
			if datapath.Resolve(path, snapshot) == nil {
				continue
			}
			if group.Filter != nil && !definition.Truthy(m.Evaluate(group.Filter, path)) {
				continue
			}

			device := m.syncDevice(group, path, firstPass)
			if device == nil {
				continue
			}
			for _, def := range group.Entities {
				m.syncEntity(group, def, device, path, firstPass)
			}
		}
	}
}

// syncDevice finds or creates the device one expanded path maps to.
func (m *Manager) syncDevice(group definition.GroupDefinition, path string, firstPass bool) *registry.Device {
	rawIdentifier := m.Evaluate(group.Device.Identifier, path)
	if rawIdentifier == nil {
		slog.Debug("Device identifier evaluated to nil", "group", group.UID, "data_path", path)
		return nil
	}
	identifier := datapath.Slugify(fmt.Sprint(rawIdentifier))

	device, found := m.registry.DeviceByIdentity(Domain, identifier)
	if found && (m.restore || !firstPass) {
		return device
	}

	record := registry.Device{
		Domain:       Domain,
		Identifier:   identifier,
		Name:         stringOr(m.Evaluate(group.Device.Name, path)),
		Manufacturer: stringOr(m.Evaluate(group.Device.Manufacturer, path)),
		Model:        stringOr(m.Evaluate(group.Device.Model, path)),
		Serial:       stringOr(m.Evaluate(group.Device.Serial, path)),
	}
	slog.Debug("Creating device", "name", record.Name, "model", record.Model, "identifier", identifier)
	return m.registry.UpsertDevice(record)
}

// syncEntity creates, updates or removes one entity for one device.
func (m *Manager) syncEntity(group definition.GroupDefinition, def definition.EntityDefinition, device *registry.Device, path string, firstPass bool) {
	uniqueID := fmt.Sprintf("%s_%s", device.Identifier, datapath.Slugify(def.Key))

	_, exists := m.registry.EntityForDevice(device.Identifier, uniqueID)
	if !exists || (!m.restore && firstPass) {
		m.registerEntity(group, def, device, path, uniqueID)
		return
	}

	filterPasses := def.Filter == nil || definition.Truthy(m.Evaluate(def.Filter, path))

	// The first pass after startup reconciles restored entities against
	// their current definitions.
	if firstPass && filterPasses {
		if def.Defunct {
			slog.Info("Removing retired entity", "unique_id", uniqueID)
			m.registry.RemoveEntity(uniqueID)
			m.dispatcher.Send(RemoveSignal(uniqueID), nil)
			return
		}
		m.registry.UpdateMetadata(uniqueID,
			stringOr(m.Evaluate(def.Name, path)),
			def.DeviceClass, def.EntityCategory, def.Icon, def.Unit)
	}

	if def.Value == nil || !filterPasses {
		return
	}

	value := m.Evaluate(def.Value, path)
	attributes := m.entityAttributes(def, path)
	extraData := map[string]any{}
	if def.ExtraData != nil {
		extraData = m.evaluate(def.ExtraData, path, nil, false).(map[string]any)
		m.addProvenance(extraData, group, def, path)
	}

	m.registry.UpdateState(uniqueID, value, attributes, extraData)
	m.dispatcher.Send(UpdateSignal(uniqueID), UpdateEvent{
		Value:      value,
		Attributes: attributes,
		ExtraData:  extraData,
	})
}

// registerEntity evaluates a new entity's initial state and announces it.
// Entities with a nil value or a failing filter are not created.
func (m *Manager) registerEntity(group definition.GroupDefinition, def definition.EntityDefinition, device *registry.Device, path, uniqueID string) {
	if def.Defunct {
		return
	}

	value := m.Evaluate(def.Value, path)
	if value == nil {
		return
	}
	if def.Filter != nil && !definition.Truthy(m.Evaluate(def.Filter, path)) {
		return
	}

	attributes := m.entityAttributes(def, path)
	extraData := map[string]any{}
	if def.ExtraData != nil {
		extraData = m.evaluate(def.ExtraData, path, nil, false).(map[string]any)
	}
	m.addProvenance(extraData, group, def, path)

	m.registry.UpsertEntity(registry.Entity{
		UniqueID:       uniqueID,
		DeviceID:       device.Identifier,
		Platform:       def.Platform,
		Name:           stringOr(m.Evaluate(def.Name, path)),
		DeviceClass:    def.DeviceClass,
		EntityCategory: def.EntityCategory,
		Icon:           def.Icon,
		Unit:           def.Unit,
		Value:          value,
		Attributes:     attributes,
		ExtraData:      extraData,
	})

	slog.Debug("Registering entity", "unique_id", uniqueID, "platform", def.Platform)
	m.dispatcher.Send(RegisterSignal(def.Platform), RegisterEvent{
		Device:     device,
		Definition: def,
		UniqueID:   uniqueID,
		DataPath:   path,
		Value:      value,
		Attributes: attributes,
		ExtraData:  extraData,
	})
}

// entityAttributes evaluates a definition's attribute map, dropping entries
// that resolve to nil.
func (m *Manager) entityAttributes(def definition.EntityDefinition, path string) map[string]any {
	if def.Attributes == nil {
		return map[string]any{}
	}
	return m.evaluate(def.Attributes, path, nil, true).(map[string]any)
}

// addProvenance records which definition produced an entity, so commands
// and diagnostics can trace it back.
func (m *Manager) addProvenance(extraData map[string]any, group definition.GroupDefinition, def definition.EntityDefinition, path string) {
	extraData["group_uid"] = group.UID
	extraData["key"] = def.Key
	extraData["data_path"] = path
}

// Diagnostics returns a point-in-time view of the manager for debugging.
// Personal panel data is anonymised in the copy; the live snapshot is left
// untouched.
func (m *Manager) Diagnostics() map[string]any {
	m.dataMu.RLock()
	defer m.dataMu.RUnlock()

	return map[string]any{
		"initialised":  m.initialised,
		"running":      m.running,
		"connected":    m.api.Connected(),
		"device_count": len(m.registry.Devices()),
		"entity_count": len(m.registry.Entities()),
		"data":         anonymise(m.data),
	}
}

// anonymiseReplacements masks the panel fields that identify an installation.
var anonymiseReplacements = map[string]any{
	"id":               "XXXXXX",
	"download_code":    "0000",
	"master_user_code": "0000",
	"device_id":        "000-0000",
}

func anonymise(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			if replacement, ok := anonymiseReplacements[key]; ok {
				switch item.(type) {
				case map[string]any, []any:
				default:
					out[key] = replacement
					continue
				}
			}
			out[key] = anonymise(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = anonymise(item)
		}
		return out
	default:
		return value
	}
}

func stringOr(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
