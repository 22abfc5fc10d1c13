package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// ArmMode values match the panel's arm state codes on the wire.
type ArmMode int

const (
	ArmModeDisarm           ArmMode = 0
	ArmModeExitDelayArmHome ArmMode = 1
	ArmModeExitDelayArmAway ArmMode = 2
	ArmModeEntryDelay       ArmMode = 3
	ArmModeArmHome          ArmMode = 4
	ArmModeArmAway          ArmMode = 5
	ArmModeWalkTest         ArmMode = 6
	ArmModeUserTest         ArmMode = 7
	ArmModeArmInstantHome   ArmMode = 14
	ArmModeArmInstantAway   ArmMode = 15
)

// Platform names, as used in command routing. These must mirror the
// platform tags in internal/definition, which imports this package for the
// arm modes and so cannot be imported back.
const (
	PlatformAlarm        = "alarm_control_panel"
	PlatformBinarySensor = "binary_sensor"
	PlatformButton       = "button"
	PlatformNumber       = "number"
	PlatformSelect       = "select"
	PlatformSensor       = "sensor"
	PlatformSwitch       = "switch"
)

// SendCommand encodes a platform action into the proxy's wire format and
// sends it. The args carry the entity's stashed command parameters: the
// partition and arm state codes for alarm entities, the zone or pgm id for
// switches, the raw request for buttons.
func (c *Client) SendCommand(ctx context.Context, platform, action string, args map[string]any) error {
	if !c.Connected() {
		slog.Warn("Command dropped, not connected to panel proxy", "platform", platform, "action", action)
		return ErrNotConnected
	}

	payload, err := commandPayload(platform, action, args)
	if err != nil {
		return err
	}
	if payload == nil {
		slog.Warn("Unknown command", "platform", platform, "action", action)
		return fmt.Errorf("unknown command %q for platform %q", action, platform)
	}

	slog.Debug("Sending command", "platform", platform, "action", action)
	return c.Send(ctx, payload)
}

// commandPayload builds the wire payload for one action. A nil result with
// nil error means the action has no wire encoding.
func commandPayload(platform, action string, args map[string]any) (map[string]any, error) {
	switch platform {
	case PlatformAlarm:
		return alarmPayload(action, args)
	case PlatformSwitch:
		return switchPayload(action, args)
	case PlatformButton:
		return buttonPayload(args)
	case PlatformSelect:
		return selectPayload(args)
	case PlatformNumber:
		return numberPayload(args)
	}
	return nil, nil
}

// alarmPayload encodes arm and disarm requests. The entity's args map the
// action name to an arm state code and carry the target partition; an
// optional user code rides along for panels that require one.
func alarmPayload(action string, args map[string]any) (map[string]any, error) {
	state, ok := args[action]
	if !ok {
		return nil, nil
	}
	partition, err := argInt(args, "partition")
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"request":   "arm",
		"partition": partition,
		"state":     state,
	}
	if code, ok := args["code"]; ok {
		payload["code"] = code
	}
	return payload, nil
}

// switchPayload encodes bypass, chime and pgm toggles. Bypass and chime
// address a zone, pgm addresses an output.
func switchPayload(action string, args map[string]any) (map[string]any, error) {
	switchType, _ := args["type"].(string)
	payload := map[string]any{
		"request": action,
		"type":    switchType,
	}

	switch switchType {
	case "bypass", "chime":
		zone, err := argInt(args, "zone_id")
		if err != nil {
			return nil, err
		}
		payload["zone"] = zone
	case "pgm":
		pgm, err := argInt(args, "pgm_id")
		if err != nil {
			return nil, err
		}
		payload["pgm_id"] = pgm
	default:
		return nil, nil
	}
	return payload, nil
}

// buttonPayload passes the entity's stashed request through. Arm buttons
// additionally carry their partition and state codes.
func buttonPayload(args map[string]any) (map[string]any, error) {
	request, ok := args["request"].(string)
	if !ok {
		return nil, nil
	}

	payload := map[string]any{"request": request}
	if request == "arm" {
		partition, err := argInt(args, "partition")
		if err != nil {
			return nil, err
		}
		payload["partition"] = partition
		payload["state"] = args["state"]
	}
	return payload, nil
}

func selectPayload(args map[string]any) (map[string]any, error) {
	option, ok := args["option"]
	if !ok {
		return nil, nil
	}
	return map[string]any{"request": "select_option", "option": option}, nil
}

func numberPayload(args map[string]any) (map[string]any, error) {
	value, ok := args["value"]
	if !ok {
		return nil, nil
	}
	return map[string]any{"request": "set_value", "value": value}, nil
}

// argInt extracts an integer argument, accepting the numeric and string
// forms that arrive via JSON and extra data substitution.
func argInt(args map[string]any, key string) (int, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("command argument %q missing", key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case ArmMode:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("command argument %q is not an integer: %w", key, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("command argument %q has unsupported type %T", key, raw)
}
