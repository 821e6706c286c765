package org

import "context"

// InMemoryUnits serves a fixed unit forest. Backs tests and the development
// mode of the API; production reads units from the pg store.
type InMemoryUnits struct {
	units []Unit
}

func NewInMemoryUnits(units ...Unit) *InMemoryUnits {
	return &InMemoryUnits{units: units}
}

func (s *InMemoryUnits) ListUnits(context.Context) ([]Unit, error) {
	out := make([]Unit, len(s.units))
	copy(out, s.units)
	return out, nil
}
