package platform

import (
	"context"

	"github.com/zorak1103/visonic-bridge/internal/definition"
)

// Select is an entity with a fixed option list.
type Select struct {
	*Entity
}

// Options returns the selectable options.
func (s *Select) Options() []string {
	return s.definition.Options
}

// CurrentOption returns the selected option.
func (s *Select) CurrentOption() string {
	if value, ok := s.Value().(string); ok {
		return value
	}
	return ""
}

// SelectOption sends the chosen option to the panel.
func (s *Select) SelectOption(ctx context.Context, option string) error {
	args := s.ExtraData()
	args["option"] = option
	return s.api.SendCommand(ctx, definition.PlatformSelect, "select_option", args)
}
