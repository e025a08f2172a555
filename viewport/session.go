package viewport

import (
	"time"

	"github.com/google/uuid"
	"github.com/soniakeys/meeus/v3/julian"
)

// Location is the reference place of a session; the camera starts above it.
type Location struct {
	Lat  float64
	Lng  float64
	Name string
}

// Input is the birth record that starts a session. Date is informational:
// it is logged and shown, but never drives the time of day.
type Input struct {
	Date     time.Time
	Location Location
}

// Same reports whether in and o identify the same session.
func (in Input) Same(o Input) bool {
	return in.Date.Equal(o.Date) && in.Location == o.Location
}

// JulianDay returns the birth date as a Julian day, or 0 for an unknown date.
func (in Input) JulianDay() float64 {
	if in.Date.IsZero() {
		return 0
	}
	return julian.TimeToJD(in.Date.UTC())
}

// Session describes one Initialized period of a controller.
type Session struct {
	ID      uuid.UUID
	Input   Input
	Started time.Time
}

func newSession(in Input, now time.Time) *Session {
	return &Session{
		ID:      uuid.New(),
		Input:   in,
		Started: now,
	}
}
