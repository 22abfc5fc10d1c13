package platform

import (
	"context"

	"github.com/zorak1103/visonic-bridge/internal/definition"
)

// Number is an entity holding a numeric setting.
type Number struct {
	*Entity
}

// MinValue returns the lower bound.
func (n *Number) MinValue() float64 {
	return n.definition.MinValue
}

// MaxValue returns the upper bound.
func (n *Number) MaxValue() float64 {
	return n.definition.MaxValue
}

// Step returns the value increment.
func (n *Number) Step() float64 {
	return n.definition.Step
}

// Unit returns the unit of measurement.
func (n *Number) Unit() string {
	return n.definition.Unit
}

// SetValue sends a new value to the panel.
func (n *Number) SetValue(ctx context.Context, value float64) error {
	args := n.ExtraData()
	args["value"] = value
	return n.api.SendCommand(ctx, definition.PlatformNumber, "set_value", args)
}
