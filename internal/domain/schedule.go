package domain

import "time"

type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusUpcoming  ScheduleStatus = "upcoming"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// DefaultScheduleType is applied when a business creates a schedule
// without naming the transport kind.
const DefaultScheduleType = "airline"

// Schedule is a business's published transportation offering: a route,
// its times, the listed per-seat price and the total seat capacity.
// Seat availability is never stored on the schedule; it is always derived
// from the booking requests referencing it.
type Schedule struct {
	ID            string
	BusinessID    string
	From          string
	To            string
	Type          string
	DepartureTime time.Time
	ArrivalTime   time.Time
	Price         float64
	Seats         int
	AircraftType  string
	Status        ScheduleStatus
	CreatedAt     time.Time
}

func (s ScheduleStatus) IsValid() bool {
	switch s {
	case ScheduleStatusActive, ScheduleStatusUpcoming, ScheduleStatusCompleted, ScheduleStatusCancelled:
		return true
	}
	return false
}

// Validate checks the schedule invariants a business must satisfy on
// create and full update.
func (s *Schedule) Validate() error {
	if s.BusinessID == "" {
		return ErrValidation("business_id is required")
	}
	if s.From == "" || s.To == "" {
		return ErrValidation("from and to are required")
	}
	if !s.ArrivalTime.After(s.DepartureTime) {
		return ErrValidation("arrival_time must be after departure_time")
	}
	if s.Seats < 1 {
		return ErrValidation("seats must be at least 1")
	}
	if s.Price < 0 {
		return ErrValidation("price must not be negative")
	}
	if s.Status != "" && !s.Status.IsValid() {
		return ErrValidation("unknown schedule status")
	}
	return nil
}
