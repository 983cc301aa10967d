package domain

import (
	"fmt"
	"time"
)

type RequestStatus string

const (
	RequestStatusPending     RequestStatus = "pending"
	RequestStatusNegotiating RequestStatus = "negotiating"
	RequestStatusAccepted    RequestStatus = "accepted"
	RequestStatusDeclined    RequestStatus = "declined"
	RequestStatusCompleted   RequestStatus = "completed"
	RequestStatusCancelled   RequestStatus = "cancelled"
)

// Decline reasons. A declined request keeps whether a business declined it
// or the expiry sweep did.
const (
	DeclineReasonManual  = "manual"
	DeclineReasonExpired = "expired"
)

// MaxSeatsPerRequest caps a single booking request regardless of how much
// capacity the schedule has left.
const MaxSeatsPerRequest = 10

// validTransitions is the request state machine. Accepted requests can
// still complete or cancel; declined, completed and cancelled are terminal.
var validTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:     {RequestStatusAccepted, RequestStatusDeclined, RequestStatusNegotiating},
	RequestStatusNegotiating: {RequestStatusAccepted, RequestStatusDeclined, RequestStatusNegotiating},
	RequestStatusAccepted:    {RequestStatusCompleted, RequestStatusCancelled},
	RequestStatusDeclined:    {},
	RequestStatusCompleted:   {},
	RequestStatusCancelled:   {},
}

func (s RequestStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s RequestStatus) IsTerminal() bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return true
	}
	return len(allowed) == 0
}

func ParseRequestStatus(raw string) (RequestStatus, error) {
	s := RequestStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown booking request status %q", raw)
	}
	return s, nil
}

// BookingRequest is a customer's proposal to buy seats on a Schedule.
// PriceOffered is the aggregate offer for SeatsRequested seats, not a
// per-seat rate; negotiation revises it while status is negotiating.
// SpecialRequests accumulates the note history: counter-offers append,
// they never overwrite.
type BookingRequest struct {
	ID              string
	ScheduleID      string
	CustomerID      string
	BusinessID      string
	SeatsRequested  int
	PriceOffered    float64
	SpecialRequests string
	Status          RequestStatus
	DeclineReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExpiryDeadline is the instant after which an unresolved request becomes
// eligible for automatic expiry.
func (r *BookingRequest) ExpiryDeadline(window time.Duration) time.Time {
	return r.CreatedAt.Add(window)
}

// ExpiryEligible reports whether the request can be auto-declined at now.
func (r *BookingRequest) ExpiryEligible(now time.Time, window time.Duration) bool {
	if r.Status != RequestStatusPending && r.Status != RequestStatusNegotiating {
		return false
	}
	return now.After(r.ExpiryDeadline(window))
}
