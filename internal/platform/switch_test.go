package platform

import (
	"context"
	"testing"
)

func TestSwitch_BypassCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.engine.HandleMessage(panelSnapshot("Disarmed"))

	sw, ok := h.platform.Switch("a56cc2_2_1_bypass")
	if !ok {
		t.Fatal("bypass switch not registered")
	}
	if sw.IsOn() {
		t.Fatal("bypass should start off")
	}

	if err := sw.TurnOn(context.Background()); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}

	sent := h.api.lastSent(t)
	if sent.platform != "switch" || sent.action != "turn_on" {
		t.Errorf("sent %s/%s, want switch/turn_on", sent.platform, sent.action)
	}
	if got := sent.args["type"]; got != "bypass" {
		t.Errorf("type arg = %v, want bypass", got)
	}
	if got := sent.args["zone_id"]; got != "1" {
		t.Errorf("zone_id arg = %v, want \"1\"", got)
	}

	// Optimistic mode flips local state before the panel confirms.
	if !sw.IsOn() {
		t.Error("optimistic switch should report on after TurnOn")
	}

	if err := sw.TurnOff(context.Background()); err != nil {
		t.Fatalf("TurnOff: %v", err)
	}
	if sent := h.api.lastSent(t); sent.action != "turn_off" {
		t.Errorf("action = %q, want turn_off", sent.action)
	}
	if sw.IsOn() {
		t.Error("optimistic switch should report off after TurnOff")
	}
}

func TestSwitch_NonOptimisticKeepsPanelState(t *testing.T) {
	t.Parallel()

	base := testEntity(false, map[string]any{"type": "bypass", "zone_id": "3"})
	sw := &Switch{Entity: base, optimistic: false}

	if err := sw.TurnOn(context.Background()); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}
	if sw.IsOn() {
		t.Error("non-optimistic switch must wait for the panel before flipping")
	}
}

func TestSwitch_IsOnForms(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name  string
		value any
		want  bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"string on", "on", true},
		{"string off", "off", false},
		{"unknown", "unknown", false},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sw := &Switch{Entity: testEntity(tt.value, nil)}
			if got := sw.IsOn(); got != tt.want {
				t.Errorf("IsOn() with %v = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
