package platform

import (
	"testing"

	"github.com/zorak1103/visonic-bridge/internal/config"
	"github.com/zorak1103/visonic-bridge/internal/definition"
	"github.com/zorak1103/visonic-bridge/internal/dispatch"
	"github.com/zorak1103/visonic-bridge/internal/engine"
	"github.com/zorak1103/visonic-bridge/internal/registry"
)

// harness wires a real sync engine, dispatcher and platform manager around
// a fake panel connection.
type harness struct {
	api      *fakeCommander
	engine   *engine.Manager
	platform *Manager
	registry *registry.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{
		Panel: config.PanelConfig{
			Host:        "alarm.local",
			Port:        8082,
			PinRequired: false,
		},
		Bridge: config.BridgeConfig{
			RestoreEntities:    true,
			OptimisticSwitches: true,
		},
	}

	reg, err := registry.New(nil)
	if err != nil {
		t.Fatalf("creating registry: %v", err)
	}

	api := &fakeCommander{connected: true}
	dispatcher := dispatch.New()
	eng := engine.New(api, cfg, reg, dispatcher, definition.Catalog())
	eng.Start()

	pm := NewManager(api, eng, dispatcher, definition.Catalog(), cfg.Bridge.OptimisticSwitches)
	t.Cleanup(pm.Close)

	return &harness{api: api, engine: eng, platform: pm, registry: reg}
}

// panelSnapshot mirrors a trimmed panel message with one armed-away
// partition and one magnet zone.
func panelSnapshot(partitionState string) map[string]any {
	return map[string]any{
		"panel": map[string]any{
			"id":                 "A56CC2",
			"hw_version":         "PowerMaster-10",
			"sw_version":         "JS702412",
			"eprom_version":      "16.302",
			"plink_sw_version":   "5.2.07",
			"datetime":           "2026-08-30 10:00:00",
			"partitions_enabled": true,
		},
		"partitions": map[string]any{
			"1": map[string]any{
				"State":            partitionState,
				"Ready":            true,
				"Bypass":           false,
				"Trouble":          false,
				"Partition Active": true,
			},
		},
		"devices": map[string]any{
			"2": map[string]any{
				"1": map[string]any{
					"name":         "Front Door",
					"device_model": "MC-302",
					"device_type":  "MAGNET",
					"last_event":   "closed",
					"bypass":       false,
				},
			},
		},
		"connections": map[string]any{"alarm": float64(1)},
		"version":     "1.0.2",
	}
}

func TestManager_RegistersEntitiesFromSyncPass(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.engine.HandleMessage(panelSnapshot("Disarmed"))

	if h.platform.Count() == 0 {
		t.Fatal("no entities registered")
	}

	if _, ok := h.platform.Alarm("a56cc2_partition_1_alarm"); !ok {
		t.Error("partition alarm not registered")
	}
	if _, ok := h.platform.Switch("a56cc2_2_1_bypass"); !ok {
		t.Error("zone bypass switch not registered")
	}

	entity, ok := h.platform.Entity("a56cc2_panel_arm_all_home")
	if !ok {
		t.Fatal("arm all home button not registered")
	}
	if _, ok := entity.(*Button); !ok {
		t.Errorf("arm_all_home registered as %T, want *Button", entity)
	}

	sensor, ok := h.platform.Entity("alarm_local_proxy_addon_version")
	if !ok {
		t.Fatal("addon version sensor not registered")
	}
	if got := sensor.(*Sensor).Value(); got != "1.0.2" {
		t.Errorf("addon version = %v, want 1.0.2", got)
	}
}

func TestManager_UpdatesFlowToEntities(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.engine.HandleMessage(panelSnapshot("Disarmed"))

	alarm, ok := h.platform.Alarm("a56cc2_partition_1_alarm")
	if !ok {
		t.Fatal("alarm not registered")
	}
	if got := alarm.State(); got != "disarmed" {
		t.Errorf("initial state = %q, want disarmed", got)
	}

	h.engine.HandleMessage(panelSnapshot("Armed Away"))

	if got := alarm.Value(); got != "Armed Away" {
		t.Errorf("alarm value = %v, want Armed Away", got)
	}
	if got := alarm.State(); got != "armed_away" {
		t.Errorf("alarm state = %q, want armed_away", got)
	}
}

func TestManager_RemoveSignalDropsEntity(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	// Seed a restored defunct entity, then let the first sync pass retire it.
	h.registry.UpsertDevice(registry.Device{Domain: engine.Domain, Identifier: "alarm_local_proxy"})
	h.registry.UpsertEntity(registry.Entity{
		UniqueID: "alarm_local_proxy_api_connection_status",
		DeviceID: "alarm_local_proxy",
		Platform: definition.PlatformBinarySensor,
		ExtraData: map[string]any{
			"group_uid": "connections",
			"key":       "api_connection_status",
			"data_path": "",
		},
	})
	h.platform.Restore(h.registry)

	if _, ok := h.platform.Entity("alarm_local_proxy_api_connection_status"); !ok {
		t.Fatal("restored entity missing before sync")
	}

	h.engine.HandleMessage(panelSnapshot("Disarmed"))

	if _, ok := h.platform.Entity("alarm_local_proxy_api_connection_status"); ok {
		t.Error("defunct entity should be dropped after first sync pass")
	}
}

func TestManager_RestoreFromRegistry(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.registry.UpsertEntity(registry.Entity{
		UniqueID:    "a56cc2_2_1_magnet_state",
		DeviceID:    "a56cc2_2_1",
		Platform:    definition.PlatformBinarySensor,
		Name:        "State",
		DeviceClass: definition.ClassOpening,
		Value:       true,
		ExtraData: map[string]any{
			"group_uid": "devices",
			"key":       "magnet_state",
			"data_path": "devices.2.1",
		},
	})
	h.registry.UpsertEntity(registry.Entity{
		UniqueID: "a56cc2_partition_1_trouble",
		DeviceID: "a56cc2_partition_1",
		Platform: definition.PlatformBinarySensor,
		// No stored value: unavailable until the panel reports.
	})

	h.platform.Restore(h.registry)

	magnet, ok := h.platform.Entity("a56cc2_2_1_magnet_state")
	if !ok {
		t.Fatal("magnet entity not restored")
	}
	if !magnet.(*BinarySensor).IsOn() {
		t.Error("restored magnet should be on")
	}

	trouble, ok := h.platform.Entity("a56cc2_partition_1_trouble")
	if !ok {
		t.Fatal("trouble entity not restored")
	}
	if trouble.(*BinarySensor).Available() {
		t.Error("entity restored without a value should be unavailable")
	}
}
