package definition

import (
	"fmt"
	"strings"

	"github.com/zorak1103/visonic-bridge/internal/datapath"
	"github.com/zorak1103/visonic-bridge/internal/transport"
)

// Catalog returns the entity groups the bridge synchronizes from panel
// snapshots: the proxy connection device, the panel itself, one device per
// active partition and one device per zone.
func Catalog() []GroupDefinition {
	return []GroupDefinition{
		connectionsGroup(),
		panelGroup(),
		partitionsGroup(),
		devicesGroup(),
	}
}

// connectionsGroup exposes the proxy add-on itself: connection health and
// the add-on version. The whole snapshot is the group's data.
func connectionsGroup() GroupDefinition {
	return GroupDefinition{
		UID:      "connections",
		DataPath: "",
		Device: DeviceDefinition{
			Identifier: ConfigData{Key: "host", Transform: func(v any) any {
				return fmt.Sprintf("%s_proxy", datapath.Slugify(fmt.Sprint(v)))
			}},
			Name: ConfigData{Key: "host", Transform: func(v any) any {
				return fmt.Sprintf("Proxy %s", datapath.Slugify(fmt.Sprint(v)))
			}},
			Manufacturer: "Visonic",
			Model:        "Proxy",
		},
		Entities: []EntityDefinition{
			{
				Platform:    PlatformBinarySensor,
				Key:         "api_connection_status",
				Name:        "Websocket Status",
				Value:       DeviceData{Key: "api_connected"},
				DeviceClass: ClassConnectivity,
				Defunct:     true,
			},
			{
				Platform: PlatformBinarySensor,
				Key:      "alarm_connection",
				Name:     "Alarm Connection",
				Value: DeviceData{Key: "connections.alarm", Transform: func(v any) any {
					return asFloat(v) > 0
				}},
				DeviceClass: ClassConnectivity,
			},
			{
				Platform:       PlatformSensor,
				Key:            "addon_version",
				Name:           "Addon Version",
				Value:          DeviceData{Key: "version"},
				EntityCategory: CategoryDiagnostic,
			},
		},
	}
}

// panelGroup exposes the panel device with its arm-all controls and
// diagnostic version sensors.
func panelGroup() GroupDefinition {
	return GroupDefinition{
		UID:      "panel",
		DataPath: "panel",
		Device: DeviceDefinition{
			Identifier: DeviceData{Key: "id", Transform: func(v any) any {
				return fmt.Sprintf("%v_panel", v)
			}},
			Name: DeviceData{Key: "id", Transform: func(v any) any {
				return fmt.Sprintf("Panel %v", v)
			}},
			Manufacturer: "Visonic",
			Model:        DeviceData{Key: "hw_version"},
		},
		Entities: []EntityDefinition{
			{
				Platform: PlatformButton,
				Key:      "arm_all_home",
				Name:     "Arm All Home",
				Value:    true,
				Filter:   DeviceData{Key: "partitions_enabled"},
				ExtraData: map[string]any{
					"request":   "arm",
					"partition": allPartitions,
					"state":     int(transport.ArmModeArmHome),
				},
			},
			{
				Platform: PlatformButton,
				Key:      "arm_all_away",
				Name:     "Arm All Away",
				Value:    true,
				Filter:   DeviceData{Key: "partitions_enabled"},
				ExtraData: map[string]any{
					"request":   "arm",
					"partition": allPartitions,
					"state":     int(transport.ArmModeArmAway),
				},
			},
			{
				Platform: PlatformButton,
				Key:      "disarm_all",
				Name:     "Disarm All",
				Value:    true,
				Filter:   DeviceData{Key: "partitions_enabled"},
				ExtraData: map[string]any{
					"request":   "arm",
					"partition": allPartitions,
					"state":     int(transport.ArmModeDisarm),
				},
			},
			{
				Platform:       PlatformSensor,
				Key:            "last_update",
				Name:           "Last Update",
				Value:          DeviceData{Key: "datetime"},
				EntityCategory: CategoryDiagnostic,
			},
			{
				Platform:       PlatformBinarySensor,
				Key:            "multiple_partitions",
				Name:           "Multiple Partitions",
				Value:          DeviceData{Key: "partitions_enabled"},
				EntityCategory: CategoryDiagnostic,
			},
			{
				Platform:       PlatformSensor,
				Key:            "eprom_version",
				Name:           "Eprom Version",
				Value:          DeviceData{Key: "eprom_version"},
				EntityCategory: CategoryDiagnostic,
			},
			{
				Platform:       PlatformSensor,
				Key:            "hardware_version",
				Name:           "Hardware Version",
				Value:          DeviceData{Key: "hw_version"},
				EntityCategory: CategoryDiagnostic,
			},
			{
				Platform:       PlatformSensor,
				Key:            "software_version",
				Name:           "Software Version",
				Value:          DeviceData{Key: "sw_version"},
				EntityCategory: CategoryDiagnostic,
			},
			{
				Platform:       PlatformSensor,
				Key:            "powerlink_sw_version",
				Name:           "Powerlink SW Version",
				Value:          DeviceData{Key: "plink_sw_version"},
				EntityCategory: CategoryDiagnostic,
			},
		},
	}
}

// partitionsGroup exposes one alarm panel device per active partition.
func partitionsGroup() GroupDefinition {
	return GroupDefinition{
		UID:      "partitions",
		DataPath: "partitions.[all]",
		Filter:   DeviceData{Key: "Partition Active"},
		Device: DeviceDefinition{
			Identifier: AllData{Key: "panel.id", Transform: func(v any) any {
				return fmt.Sprintf("%v_partition_[1]", v)
			}},
			Name:         "Partition [1]",
			Manufacturer: "Visonic",
			Model:        "Partition",
		},
		Entities: []EntityDefinition{
			{
				Platform: PlatformAlarm,
				Key:      "alarm",
				Name:     "Alarm",
				Value:    DeviceData{Key: "State"},
				IsReady:  DeviceData{Key: "Ready"},
				CodeArmRequired: Lambda{Fn: func(d LambdaContext) (any, error) {
					pin, _ := d.Config.Data("pin_required")
					return pin, nil
				}},
				CodeFormat: CodeFormatNumber,
				StateMapping: Lambda{Fn: func(d LambdaContext) (any, error) {
					status, ok := d.Value.(map[string]any)
					if !ok {
						return nil, fmt.Errorf("partition status is %T, expected map", d.Value)
					}
					return transport.AlarmStateFromStatus(status), nil
				}},
				ExtraData: map[string]any{
					"partition": "[1]",
					"arm_home":  int(transport.ArmModeArmHome),
					"arm_away":  int(transport.ArmModeArmAway),
					"disarm":    int(transport.ArmModeDisarm),
				},
			},
			{
				Platform: PlatformBinarySensor,
				Key:      "ready",
				Name:     "Ready",
				Value: DeviceData{Key: "Ready", Transform: func(v any) any {
					return !Truthy(v)
				}},
				DeviceClass: ClassProblem,
			},
			{
				Platform: PlatformBinarySensor,
				Key:      "bypass",
				Name:     "Bypass",
				Value:    DeviceData{Key: "Bypass"},
			},
			{
				Platform:    PlatformBinarySensor,
				Key:         "trouble",
				Name:        "Trouble",
				Value:       DeviceData{Key: "Trouble"},
				DeviceClass: ClassProblem,
			},
			{
				Platform: PlatformBinarySensor,
				Key:      "active",
				Name:     "Active",
				Value:    DeviceData{Key: "Partition Active"},
			},
		},
	}
}

// devicesGroup exposes one device per zone, keypad or output reported under
// devices.<type>.<id>.
func devicesGroup() GroupDefinition {
	return GroupDefinition{
		UID:      "devices",
		DataPath: "devices.[all].[all]",
		Device: DeviceDefinition{
			Identifier: AllData{Key: "panel.id", Transform: func(v any) any {
				return fmt.Sprintf("%v_[2]_[1]", v)
			}},
			Name:         DeviceData{Key: "name"},
			Manufacturer: "Visonic",
			Model:        DeviceData{Key: "device_model"},
		},
		Entities: []EntityDefinition{
			{
				Platform:       PlatformBinarySensor,
				Key:            "disarm_active",
				Name:           "Disarm Active",
				Value:          DeviceData{Key: "disarm_active"},
				EntityCategory: CategoryDiagnostic,
			},
			{
				Platform:       PlatformSensor,
				Key:            "disarm_active_delay",
				Name:           "Disarm Active Delay",
				Value:          DeviceData{Key: "disarm_active_delay_mins"},
				DeviceClass:    ClassDuration,
				Unit:           "min",
				EntityCategory: CategoryDiagnostic,
			},
			{
				Platform: PlatformBinarySensor,
				Key:      "magnet_state",
				Name:     "State",
				Value: DeviceData{Key: "last_event", Transform: func(v any) any {
					return v == "open"
				}},
				DeviceClass: ClassOpening,
				Filter: DeviceData{Key: "device_type", Transform: func(v any) any {
					return v == "MAGNET"
				}},
			},
			{
				Platform:    PlatformBinarySensor,
				Key:         "motion_state",
				Name:        "Motion",
				Value:       DeviceData{Key: "motion_detected"},
				DeviceClass: ClassMotion,
				Filter: DeviceData{Key: "device_type", Transform: func(v any) any {
					return v == "MOTION" || v == "CAMERA"
				}},
			},
			{
				Platform:       PlatformBinarySensor,
				Key:            "alarm_led",
				Name:           "Alarm Led",
				Value:          DeviceData{Key: "alarm_led"},
				EntityCategory: CategoryDiagnostic,
			},
			{
				Platform:    PlatformBinarySensor,
				Key:         "active_tamper_alert",
				Name:        "Active Tamper Alert",
				Value:       DeviceData{Key: "active_tamper"},
				DeviceClass: ClassTamper,
			},
			{
				Platform:    PlatformBinarySensor,
				Key:         "tamper_alert",
				Name:        "Tamper Alert",
				Value:       DeviceData{Key: "tamper_alert"},
				DeviceClass: ClassTamper,
			},
			{
				Platform:    PlatformBinarySensor,
				Key:         "tripped",
				Name:        "Tripped",
				Value:       DeviceData{Key: "tripped"},
				DeviceClass: ClassMotion,
			},
			{
				Platform: PlatformSensor,
				Key:      "temperature",
				Name:     "Temperature",
				Icon:     "mdi:home-thermometer",
				Value:    DeviceData{Key: "temperature"},
				Unit:     "°C",
			},
			{
				Platform: PlatformSensor,
				Key:      "brightness",
				Name:     "Brightness",
				Icon:     "mdi:brightness-4",
				Value: DeviceData{Key: "brightness", Transform: func(v any) any {
					return titleCase(fmt.Sprint(v))
				}},
			},
			{
				Platform: PlatformSensor,
				Key:      "partitions",
				Name:     "Partitions",
				Icon:     "mdi:home-lock",
				Filter:   DeviceData{Key: "partitions"},
				Value: DeviceData{Key: "partitions", Transform: func(v any) any {
					items, ok := v.([]any)
					if !ok {
						return v
					}
					parts := make([]string, 0, len(items))
					for _, item := range items {
						parts = append(parts, fmt.Sprint(item))
					}
					return strings.Join(parts, ",")
				}},
				EntityCategory: CategoryDiagnostic,
			},
			{
				Platform: PlatformSwitch,
				Key:      "bypass",
				Name:     "Bypass",
				Value:    DeviceData{Key: "bypass"},
				ExtraData: map[string]any{
					"type":    "bypass",
					"zone_id": "[1]",
				},
			},
			{
				Platform: PlatformSwitch,
				Key:      "pgm",
				Name:     "PGM",
				Value:    DeviceData{Key: "on"},
				ExtraData: map[string]any{
					"type":   "pgm",
					"pgm_id": "[1]",
				},
			},
		},
	}
}

// allPartitions is the panel's wildcard partition id for arm-all commands.
const allPartitions = 7

// asFloat converts the numeric forms JSON decoding produces.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
