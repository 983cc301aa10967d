package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/kmateo04/travelmarket/internal/domain"
	"github.com/kmateo04/travelmarket/internal/kafka"
	"github.com/kmateo04/travelmarket/internal/repository"
	"github.com/sirupsen/logrus"
)

// Action names a lifecycle operation on a booking request.
type Action string

const (
	ActionAccept    Action = "accept"
	ActionDecline   Action = "decline"
	ActionNegotiate Action = "negotiate"
	ActionComplete  Action = "complete"
	ActionCancel    Action = "cancel"
	ActionExpire    Action = "expire"
)

type BookingUseCase interface {
	Submit(ctx context.Context, actor domain.Actor, input SubmitInput) (*domain.BookingRequest, error)
	Transition(ctx context.Context, actor domain.Actor, requestID string, action Action, input TransitionInput) (*domain.BookingRequest, error)
	Get(ctx context.Context, id string) (*domain.BookingRequest, error)
	ListByBusiness(ctx context.Context, businessID string) ([]domain.BookingRequest, error)
	Delete(ctx context.Context, id string) error
	AvailableSeats(ctx context.Context, scheduleID string) (int, error)
	ExpireOverdueRequests(ctx context.Context) ([]domain.BookingRequest, error)
}

// Cache provides the per-schedule lock that serializes seat accounting.
type Cache interface {
	AcquireScheduleLock(ctx context.Context, scheduleID string, ttl time.Duration) (bool, error)
	ReleaseScheduleLock(ctx context.Context, scheduleID string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	requests           repository.BookingRequestRepository
	schedules          repository.ScheduleRepository
	cache              Cache
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	expiryWindow       time.Duration
	lockTTL            time.Duration
	logger             *logrus.Logger
}

type SubmitInput struct {
	ScheduleID      string
	CustomerID      string
	SeatsRequested  int
	PriceOffered    float64
	SpecialRequests string
}

// TransitionInput carries the negotiate payload: a revised aggregate
// offer and an optional note. Other actions ignore it.
type TransitionInput struct {
	PriceOffered    float64
	SpecialRequests string
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithLockTTL(ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.lockTTL = ttl
	}
}

func NewBookingService(
	requests repository.BookingRequestRepository,
	schedules repository.ScheduleRepository,
	cache Cache,
	producer Producer,
	eventsTopic string,
	expiryWindow time.Duration,
	logger *logrus.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		requests:     requests,
		schedules:    schedules,
		cache:        cache,
		producer:     producer,
		eventsTopic:  eventsTopic,
		expiryWindow: expiryWindow,
		lockTTL:      10 * time.Second,
		logger:       logger,
	}
	if service.logger == nil {
		service.logger = logrus.New()
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.cache == nil {
		service.logger.Warn("booking service running without a schedule lock; concurrent submits against one schedule may race")
	}
	return service
}

// Submit validates and records a new booking request in state pending.
// Seats are reserved implicitly: the request row itself counts against
// capacity through the reserved-seat sum, the schedule row is untouched.
func (s *BookingService) Submit(ctx context.Context, actor domain.Actor, input SubmitInput) (*domain.BookingRequest, error) {
	if actor.Role != domain.RoleCustomer {
		return nil, domain.ErrForbidden
	}
	if input.SeatsRequested < 1 || input.SeatsRequested > domain.MaxSeatsPerRequest {
		return nil, domain.ErrInvalidSeatCount
	}
	if input.PriceOffered < 0 {
		return nil, domain.ErrValidation("price_offered must not be negative")
	}

	schedule, err := s.schedules.GetByID(ctx, input.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Status != domain.ScheduleStatusActive {
		return nil, domain.ErrScheduleInactive
	}

	unlock, err := s.lockSchedule(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	available, err := s.availableSeats(ctx, schedule)
	if err != nil {
		return nil, err
	}
	if input.SeatsRequested > available {
		return nil, domain.ErrSeatsUnavailable
	}

	request := &domain.BookingRequest{
		ScheduleID:      schedule.ID,
		CustomerID:      input.CustomerID,
		BusinessID:      schedule.BusinessID,
		SeatsRequested:  input.SeatsRequested,
		PriceOffered:    input.PriceOffered,
		SpecialRequests: input.SpecialRequests,
		Status:          domain.RequestStatusPending,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	s.publish(ctx, "request_submitted", request)
	return request, nil
}

// Transition applies one lifecycle action. Validation is all-or-nothing:
// the request is only written once every precondition has passed.
func (s *BookingService) Transition(ctx context.Context, actor domain.Actor, requestID string, action Action, input TransitionInput) (*domain.BookingRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}

	switch action {
	case ActionAccept:
		return s.accept(ctx, actor, request)
	case ActionDecline:
		return s.decline(ctx, actor, request, domain.DeclineReasonManual)
	case ActionNegotiate:
		return s.negotiate(ctx, actor, request, input)
	case ActionComplete:
		return s.finishAccepted(ctx, actor, request, domain.RequestStatusCompleted, "request_completed")
	case ActionCancel:
		return s.finishAccepted(ctx, actor, request, domain.RequestStatusCancelled, "request_cancelled")
	case ActionExpire:
		return s.expire(ctx, actor, request)
	default:
		return nil, fmt.Errorf("unknown action %q: %w", action, domain.ErrInvalidTransition)
	}
}

func (s *BookingService) accept(ctx context.Context, actor domain.Actor, request *domain.BookingRequest) (*domain.BookingRequest, error) {
	if actor.Role != domain.RoleBusiness {
		return nil, domain.ErrForbidden
	}
	if !request.Status.CanTransitionTo(domain.RequestStatusAccepted) {
		return nil, domain.ErrInvalidTransition
	}

	schedule, err := s.schedules.GetByID(ctx, request.ScheduleID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockSchedule(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// The request's own seats already count in the reserved sum, so the
	// recheck is that total reservations still fit the capacity. It can
	// fail after a racy submit or after the business shrank the schedule.
	reserved, err := s.requests.SumReservedSeats(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}
	if reserved > schedule.Seats {
		return nil, domain.ErrSeatsUnavailable
	}

	request.Status = domain.RequestStatusAccepted
	updated, err := s.requests.Update(ctx, request)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "request_accepted", updated)
	return updated, nil
}

func (s *BookingService) decline(ctx context.Context, actor domain.Actor, request *domain.BookingRequest, reason string) (*domain.BookingRequest, error) {
	if actor.Role != domain.RoleBusiness {
		return nil, domain.ErrForbidden
	}
	if !request.Status.CanTransitionTo(domain.RequestStatusDeclined) {
		return nil, domain.ErrInvalidTransition
	}

	request.Status = domain.RequestStatusDeclined
	request.DeclineReason = reason
	updated, err := s.requests.Update(ctx, request)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "request_declined", updated)
	return updated, nil
}

func (s *BookingService) negotiate(ctx context.Context, actor domain.Actor, request *domain.BookingRequest, input TransitionInput) (*domain.BookingRequest, error) {
	if actor.Role != domain.RoleBusiness {
		return nil, domain.ErrForbidden
	}
	if !request.Status.CanTransitionTo(domain.RequestStatusNegotiating) {
		return nil, domain.ErrInvalidTransition
	}
	if input.PriceOffered <= 0 {
		return nil, domain.ErrValidation("counter offer price must be positive")
	}

	request.SpecialRequests = appendOfferNote(request.SpecialRequests, input.PriceOffered, input.SpecialRequests, time.Now())
	request.PriceOffered = input.PriceOffered
	request.Status = domain.RequestStatusNegotiating
	updated, err := s.requests.Update(ctx, request)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "request_negotiated", updated)
	return updated, nil
}

func (s *BookingService) finishAccepted(ctx context.Context, actor domain.Actor, request *domain.BookingRequest, target domain.RequestStatus, eventType string) (*domain.BookingRequest, error) {
	if target == domain.RequestStatusCancelled {
		if actor.Role != domain.RoleBusiness && actor.Role != domain.RoleCustomer {
			return nil, domain.ErrForbidden
		}
	} else if actor.Role != domain.RoleBusiness {
		return nil, domain.ErrForbidden
	}
	if !request.Status.CanTransitionTo(target) {
		return nil, domain.ErrInvalidTransition
	}

	request.Status = target
	updated, err := s.requests.Update(ctx, request)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventType, updated)
	return updated, nil
}

func (s *BookingService) expire(ctx context.Context, actor domain.Actor, request *domain.BookingRequest) (*domain.BookingRequest, error) {
	if actor.Role != domain.RoleSystem {
		return nil, domain.ErrForbidden
	}
	if !request.ExpiryEligible(time.Now(), s.expiryWindow) {
		return nil, domain.ErrInvalidTransition
	}

	request.Status = domain.RequestStatusDeclined
	request.DeclineReason = domain.DeclineReasonExpired
	updated, err := s.requests.Update(ctx, request)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "request_expired", updated)
	return updated, nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*domain.BookingRequest, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *BookingService) ListByBusiness(ctx context.Context, businessID string) ([]domain.BookingRequest, error) {
	return s.requests.ListByBusiness(ctx, businessID)
}

func (s *BookingService) Delete(ctx context.Context, id string) error {
	return s.requests.Delete(ctx, id)
}

// AvailableSeats is the single authoritative availability computation:
// schedule capacity minus seats held by pending, negotiating and
// accepted requests.
func (s *BookingService) AvailableSeats(ctx context.Context, scheduleID string) (int, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return 0, err
	}
	return s.availableSeats(ctx, schedule)
}

func (s *BookingService) availableSeats(ctx context.Context, schedule *domain.Schedule) (int, error) {
	reserved, err := s.requests.SumReservedSeats(ctx, schedule.ID)
	if err != nil {
		return 0, err
	}
	return schedule.Seats - reserved, nil
}

// ExpireOverdueRequests bulk-declines every pending or negotiating
// request older than the expiry window. The worker calls it on a ticker.
func (s *BookingService) ExpireOverdueRequests(ctx context.Context) ([]domain.BookingRequest, error) {
	cutoff := time.Now().Add(-s.expiryWindow)
	expired, err := s.requests.ExpireOverdueBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	for i := range expired {
		s.publish(ctx, "request_expired", &expired[i])
	}
	return expired, nil
}

func (s *BookingService) lockSchedule(ctx context.Context, scheduleID string) (func(), error) {
	if s.cache == nil {
		return func() {}, nil
	}
	ok, err := s.cache.AcquireScheduleLock(ctx, scheduleID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrScheduleBusy
	}
	return func() { _ = s.cache.ReleaseScheduleLock(ctx, scheduleID) }, nil
}

// publish is best effort: a broker outage must never fail a transition
// that already committed.
func (s *BookingService) publish(ctx context.Context, eventType string, request *domain.BookingRequest) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.RequestEvent{
		Type:           eventType,
		RequestID:      request.ID,
		ScheduleID:     request.ScheduleID,
		CustomerID:     request.CustomerID,
		BusinessID:     request.BusinessID,
		SeatsRequested: request.SeatsRequested,
		PriceOffered:   request.PriceOffered,
		Status:         string(request.Status),
		DeclineReason:  request.DeclineReason,
		OccurredAt:     time.Now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, request.ID, event); err != nil {
		s.logger.WithError(err).WithField("request_id", request.ID).Warn("failed to publish request event")
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, request.ID, event); err != nil {
			s.logger.WithError(err).WithField("request_id", request.ID).Warn("failed to publish notification event")
		}
	}
}

// appendOfferNote threads each counter-offer into the note history.
// Earlier notes are always preserved.
func appendOfferNote(history string, price float64, note string, at time.Time) string {
	entry := fmt.Sprintf("[%s] counter offer: %.2f", at.Format(time.RFC3339), price)
	if note != "" {
		entry += " - " + note
	}
	if history == "" {
		return entry
	}
	return history + " | " + entry
}

var _ BookingUseCase = (*BookingService)(nil)
