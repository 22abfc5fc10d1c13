package transport

// Canonical alarm panel states.
const (
	StateArming    = "arming"
	StateArmedAway = "armed_away"
	StateArmedHome = "armed_home"
	StateDisarmed  = "disarmed"
	StateDisarming = "disarming"
	StatePending   = "pending"
	StateTriggered = "triggered"
)

// AlarmStateFromStatus maps a partition's raw status payload to a canonical
// alarm state. The payload carries the panel's status string plus arming and
// disarming flags reported while a transition is in flight. Unknown status
// strings pass through unchanged so new panel firmware states stay visible.
func AlarmStateFromStatus(status map[string]any) string {
	text, _ := status["status"].(string)
	disarming, _ := status["disarming"].(bool)

	if disarming && text != "Disarmed" {
		return StateDisarming
	}

	switch text {
	case "ExitDelay_ArmHome", "ExitDelay_ArmAway":
		return StateArming
	case "EntryDelay":
		return StatePending
	case "Armed Home":
		return StateArmedHome
	case "Armed Away":
		return StateArmedAway
	case "Disarmed":
		return StateDisarmed
	case "Triggered":
		return StateTriggered
	}
	return text
}
