package platform

// Sensor is a read-only value entity.
type Sensor struct {
	*Entity
}

// Unit returns the sensor's unit of measurement.
func (s *Sensor) Unit() string {
	return s.definition.Unit
}
