package platform

import (
	"context"

	"github.com/zorak1103/visonic-bridge/internal/definition"
)

// Button fires a stateless panel request, such as arm-all across every
// partition.
type Button struct {
	*Entity
}

// Press sends the button's stored request.
func (b *Button) Press(ctx context.Context) error {
	return b.api.SendCommand(ctx, definition.PlatformButton, "press", b.ExtraData())
}
