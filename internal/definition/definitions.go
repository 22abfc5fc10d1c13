package definition

// Platform names for the entity types the bridge exposes.
const (
	PlatformAlarm        = "alarm_control_panel"
	PlatformBinarySensor = "binary_sensor"
	PlatformButton       = "button"
	PlatformNumber       = "number"
	PlatformSelect       = "select"
	PlatformSensor       = "sensor"
	PlatformSwitch       = "switch"
)

// Entity categories.
const (
	CategoryDiagnostic = "diagnostic"
)

// Device classes.
const (
	ClassConnectivity = "connectivity"
	ClassDuration     = "duration"
	ClassMotion       = "motion"
	ClassOpening      = "opening"
	ClassProblem      = "problem"
	ClassTamper       = "tamper"
)

// Alarm code formats.
const (
	CodeFormatNumber = "number"
	CodeFormatText   = "text"
)

// EntityDefinition describes one entity within a group. Fields typed any are
// evaluable: a Key variant, a nested map of evaluables, or a literal. String
// results may carry positional [N] placeholders that are filled from the
// expanded data path.
type EntityDefinition struct {
	Platform string
	Key      string
	Name     any

	// Value is the entity's state source. Nil means the definition carries
	// metadata only. Defunct marks an entity for removal instead.
	Value   any
	Defunct bool

	// Filter gates the entity: evaluated per device, the entity exists only
	// while the result is truthy.
	Filter any

	Icon           string
	DeviceClass    string
	EntityCategory string
	Unit           string

	// Attributes and ExtraData are maps of evaluables. Attribute entries
	// that evaluate to nil are dropped; extra data rides along unevaluated
	// for command dispatch.
	Attributes map[string]any
	ExtraData  map[string]any

	// Availability overrides the default connection-based availability.
	Availability any

	// Alarm control panel options.
	IsReady         any
	CodeArmRequired any
	CodeFormat      string
	StateMapping    any

	// Number options.
	MinValue float64
	MaxValue float64
	Step     float64

	// Select options.
	Options []string
}

// DeviceDefinition describes the device a group's entities attach to. All
// fields are evaluable.
type DeviceDefinition struct {
	Identifier   any
	Name         any
	Manufacturer any
	Model        any
	Serial       any
}

// GroupDefinition binds a region of the panel snapshot to a device and its
// entities. DataPath may contain [all] or literal-list wildcards; each
// expansion becomes one device.
type GroupDefinition struct {
	UID       string
	DataPath  string
	ListIDKey string
	Filter    any
	Device    DeviceDefinition
	Entities  []EntityDefinition
}
