package platform

// BinarySensor is a read-only on/off entity.
type BinarySensor struct {
	*Entity
}

// IsOn reports whether the sensor is on. Restored values arrive as the
// string "on".
func (b *BinarySensor) IsOn() bool {
	value := b.Value()
	return value == true || value == "on"
}
