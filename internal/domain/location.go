package domain

import (
	"fmt"
	"strings"
)

// Location is a named point watched by the monitor.
type Location struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
}

// Validate requires a name and in-range coordinates.
func (l Location) Validate() error {
	switch {
	case strings.TrimSpace(l.Name) == "":
		return fmt.Errorf("%w: location name is required", ErrInvalidInput)
	case l.Coordinates.Lat < -90 || l.Coordinates.Lat > 90:
		return fmt.Errorf("%w: latitude out of range: %g", ErrInvalidInput, l.Coordinates.Lat)
	case l.Coordinates.Lon < -180 || l.Coordinates.Lon > 180:
		return fmt.Errorf("%w: longitude out of range: %g", ErrInvalidInput, l.Coordinates.Lon)
	}
	return nil
}
