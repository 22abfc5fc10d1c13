package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zorak1103/visonic-bridge/internal/definition"
	"github.com/zorak1103/visonic-bridge/internal/transport"
)

// ErrNotReady is returned when an arm command targets a partition that is
// not ready, typically because a zone is open.
var ErrNotReady = errors.New("partition is not ready to arm")

// ErrNoCommandArgs is returned when an alarm entity has no stored command
// parameters to arm with.
var ErrNoCommandArgs = errors.New("no command args in entity definition to allow arming")

// Alarm is a partition alarm panel. The raw partition status string is the
// entity value; State folds the in-flight arm and disarm flags in and maps
// it to the canonical alarm states.
type Alarm struct {
	*Entity

	flagMu           sync.Mutex
	armInProgress    bool
	disarmInProgress bool
}

// State returns the canonical alarm state. Reaching a settled state clears
// the matching in-flight flag.
func (a *Alarm) State() string {
	a.flagMu.Lock()
	status := map[string]any{
		"status":    a.Value(),
		"arming":    a.armInProgress,
		"disarming": a.disarmInProgress,
	}
	a.flagMu.Unlock()

	var state any = status
	if a.definition.StateMapping != nil {
		state = a.evaluator.EvaluateWith(a.definition.StateMapping, a.DataPath(), status)
	}
	mapped, _ := state.(string)

	a.flagMu.Lock()
	switch mapped {
	case transport.StateDisarmed:
		a.disarmInProgress = false
		a.armInProgress = false
	case transport.StateArmedHome, transport.StateArmedAway:
		a.armInProgress = false
	}
	a.flagMu.Unlock()

	return mapped
}

// IsReady reports whether the partition can be armed.
func (a *Alarm) IsReady() bool {
	if a.definition.IsReady == nil {
		return true
	}
	return definition.Truthy(a.evaluateDef(a.definition.IsReady))
}

// CodeArmRequired reports whether arm and disarm commands need a user code.
func (a *Alarm) CodeArmRequired() bool {
	return definition.Truthy(a.evaluateDef(a.definition.CodeArmRequired))
}

// CodeFormat returns the code entry format, or empty when no code is
// required.
func (a *Alarm) CodeFormat() string {
	if !a.CodeArmRequired() {
		return ""
	}
	return a.definition.CodeFormat
}

// Disarm sends the disarm command.
func (a *Alarm) Disarm(ctx context.Context, code string) error {
	return a.arm(ctx, "disarm", code)
}

// ArmHome sends the arm home command.
func (a *Alarm) ArmHome(ctx context.Context, code string) error {
	return a.arm(ctx, "arm_home", code)
}

// ArmAway sends the arm away command.
func (a *Alarm) ArmAway(ctx context.Context, code string) error {
	return a.arm(ctx, "arm_away", code)
}

// arm drives one arm or disarm transition. Commands that would not change
// the settled state are dropped; the in-flight flag is set before sending
// so State reports the transition immediately.
func (a *Alarm) arm(ctx context.Context, action, code string) error {
	args := a.ExtraData()
	if len(args) == 0 {
		return ErrNoCommandArgs
	}

	state := a.State()
	a.flagMu.Lock()
	switch {
	case action == "disarm" && state != transport.StateDisarmed:
		a.disarmInProgress = true
	case action != "disarm" && state == transport.StateDisarmed:
		a.armInProgress = true
	default:
		a.flagMu.Unlock()
		return nil
	}
	a.flagMu.Unlock()

	if code != "" {
		args["code"] = code
	}

	if !a.IsReady() {
		a.clearFlags()
		return fmt.Errorf("%w: partition %v", ErrNotReady, args["partition"])
	}
	return a.api.SendCommand(ctx, definition.PlatformAlarm, action, args)
}

func (a *Alarm) clearFlags() {
	a.flagMu.Lock()
	a.armInProgress = false
	a.disarmInProgress = false
	a.flagMu.Unlock()
}
