package engine

import (
	"fmt"

	"github.com/zorak1103/visonic-bridge/internal/definition"
	"github.com/zorak1103/visonic-bridge/internal/registry"
)

// RegisterSignal is the dispatch signal a platform listens on for new
// entities of its kind.
func RegisterSignal(platform string) string {
	return fmt.Sprintf("%s_register_%s_entity", Domain, platform)
}

// UpdateSignal is the per-entity dispatch signal carrying state updates.
func UpdateSignal(uniqueID string) string {
	return fmt.Sprintf("%s_%s", Domain, uniqueID)
}

// RemoveSignal is the per-entity dispatch signal announcing removal.
func RemoveSignal(uniqueID string) string {
	return fmt.Sprintf("%s_remove_%s", Domain, uniqueID)
}

// RegisterEvent announces a newly created entity with its initial state.
type RegisterEvent struct {
	Device     *registry.Device
	Definition definition.EntityDefinition
	UniqueID   string
	DataPath   string
	Value      any
	Attributes map[string]any
	ExtraData  map[string]any
}

// UpdateEvent carries one entity state update.
type UpdateEvent struct {
	Value      any
	Attributes map[string]any
	ExtraData  map[string]any
}
