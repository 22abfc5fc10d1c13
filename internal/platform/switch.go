package platform

import (
	"context"

	"github.com/zorak1103/visonic-bridge/internal/definition"
)

// Switch toggles a panel feature: zone bypass, chime or a pgm output. With
// optimistic mode on, the local state flips immediately and the next panel
// message confirms or corrects it.
type Switch struct {
	*Entity
	optimistic bool
}

// IsOn reports whether the switch is on.
func (s *Switch) IsOn() bool {
	value := s.Value()
	return value == true || value == "on"
}

// TurnOn sends the on command.
func (s *Switch) TurnOn(ctx context.Context) error {
	if err := s.api.SendCommand(ctx, definition.PlatformSwitch, "turn_on", s.ExtraData()); err != nil {
		return err
	}
	if s.optimistic {
		s.setValue(true)
	}
	return nil
}

// TurnOff sends the off command.
func (s *Switch) TurnOff(ctx context.Context) error {
	if err := s.api.SendCommand(ctx, definition.PlatformSwitch, "turn_off", s.ExtraData()); err != nil {
		return err
	}
	if s.optimistic {
		s.setValue(false)
	}
	return nil
}
