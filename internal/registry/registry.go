// Package registry tracks the devices and entities the sync engine has
// created, backed by a SQLite store so entities survive bridge restarts.
package registry

import (
	"log/slog"
	"sync"
)

// Device is a physical or logical unit entities attach to: the proxy, the
// panel, a partition or a zone.
type Device struct {
	Domain       string
	Identifier   string
	Name         string
	Manufacturer string
	Model        string
	Serial       string
}

// Entity is one synchronized entity with its registry metadata and last
// known state.
type Entity struct {
	UniqueID       string
	DeviceID       string
	Platform       string
	Name           string
	DeviceClass    string
	EntityCategory string
	Icon           string
	Unit           string

	Value      any
	Attributes map[string]any
	ExtraData  map[string]any
}

// Registry is the in-memory device and entity index. Mutations write
// through to the store when one is attached; store failures are logged and
// do not fail the sync pass.
type Registry struct {
	mu       sync.RWMutex
	store    *Store
	devices  map[string]*Device // keyed by domain/identifier
	entities map[string]*Entity // keyed by unique id
}

// New creates a registry, restoring any previously persisted devices and
// entities from the store. A nil store gives a purely in-memory registry.
func New(store *Store) (*Registry, error) {
	r := &Registry{
		store:    store,
		devices:  make(map[string]*Device),
		entities: make(map[string]*Entity),
	}

	if store != nil {
		devices, err := store.LoadDevices()
		if err != nil {
			return nil, err
		}
		for _, device := range devices {
			r.devices[deviceKey(device.Domain, device.Identifier)] = device
		}

		entities, err := store.LoadEntities()
		if err != nil {
			return nil, err
		}
		for _, entity := range entities {
			r.entities[entity.UniqueID] = entity
		}
	}
	return r, nil
}

func deviceKey(domain, identifier string) string {
	return domain + "/" + identifier
}

// DeviceByIdentity looks a device up by its (domain, identifier) pair.
func (r *Registry) DeviceByIdentity(domain, identifier string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[deviceKey(domain, identifier)]
	return device, ok
}

// UpsertDevice creates or refreshes a device and returns the stored record.
func (r *Registry) UpsertDevice(device Device) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := deviceKey(device.Domain, device.Identifier)
	stored := &device
	r.devices[key] = stored

	if r.store != nil {
		if err := r.store.SaveDevice(stored); err != nil {
			slog.Error("Failed to persist device", "identifier", device.Identifier, "error", err)
		}
	}
	return stored
}

// RemoveDevice deletes a device and every entity attached to it.
func (r *Registry) RemoveDevice(domain, identifier string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := deviceKey(domain, identifier)
	if _, ok := r.devices[key]; !ok {
		return false
	}
	delete(r.devices, key)

	for uniqueID, entity := range r.entities {
		if entity.DeviceID != identifier {
			continue
		}
		delete(r.entities, uniqueID)
		if r.store != nil {
			if err := r.store.DeleteEntity(uniqueID); err != nil {
				slog.Error("Failed to remove persisted entity", "unique_id", uniqueID, "error", err)
			}
		}
	}

	if r.store != nil {
		if err := r.store.DeleteDevice(domain, identifier); err != nil {
			slog.Error("Failed to remove persisted device", "identifier", identifier, "error", err)
		}
	}
	slog.Info("Removed device", "domain", domain, "identifier", identifier)
	return true
}

// EntityForDevice finds an entity by unique id, scoped to a device.
func (r *Registry) EntityForDevice(deviceID, uniqueID string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.entities[uniqueID]
	if !ok || entity.DeviceID != deviceID {
		return nil, false
	}
	return entity, true
}

// Entity finds an entity by unique id.
func (r *Registry) Entity(uniqueID string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.entities[uniqueID]
	return entity, ok
}

// UpsertEntity creates or replaces an entity record.
func (r *Registry) UpsertEntity(entity Entity) *Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := &entity
	r.entities[entity.UniqueID] = stored
	r.persistEntity(stored)
	return stored
}

// UpdateMetadata refreshes an entity's registry metadata from its current
// definition. Returns false if the entity is unknown.
func (r *Registry) UpdateMetadata(uniqueID, name, deviceClass, entityCategory, icon, unit string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.entities[uniqueID]
	if !ok {
		return false
	}
	entity.Name = name
	entity.DeviceClass = deviceClass
	entity.EntityCategory = entityCategory
	entity.Icon = icon
	entity.Unit = unit
	r.persistEntity(entity)
	return true
}

// UpdateState stores an entity's latest value, attributes and extra data.
func (r *Registry) UpdateState(uniqueID string, value any, attributes, extraData map[string]any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.entities[uniqueID]
	if !ok {
		return false
	}
	entity.Value = value
	entity.Attributes = attributes
	entity.ExtraData = extraData
	r.persistEntity(entity)
	return true
}

// RemoveEntity deletes an entity record.
func (r *Registry) RemoveEntity(uniqueID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entities, uniqueID)
	if r.store != nil {
		if err := r.store.DeleteEntity(uniqueID); err != nil {
			slog.Error("Failed to remove persisted entity", "unique_id", uniqueID, "error", err)
		}
	}
}

// EntitiesForPlatform returns all entities of one platform, for restoring
// at startup.
func (r *Registry) EntitiesForPlatform(platform string) []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Entity
	for _, entity := range r.entities {
		if entity.Platform == platform {
			result = append(result, entity)
		}
	}
	return result
}

// Devices returns all known devices.
func (r *Registry) Devices() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Device, 0, len(r.devices))
	for _, device := range r.devices {
		result = append(result, device)
	}
	return result
}

// Entities returns all known entities.
func (r *Registry) Entities() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Entity, 0, len(r.entities))
	for _, entity := range r.entities {
		result = append(result, entity)
	}
	return result
}

// persistEntity writes through to the store. Caller holds the lock.
func (r *Registry) persistEntity(entity *Entity) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveEntity(entity); err != nil {
		slog.Error("Failed to persist entity", "unique_id", entity.UniqueID, "error", err)
	}
}
