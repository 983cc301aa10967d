package schedules

import (
	"context"
	"fmt"
	"time"

	"github.com/kmateo04/travelmarket/internal/domain"
	"github.com/kmateo04/travelmarket/internal/kafka"
	"github.com/kmateo04/travelmarket/internal/repository"
	"github.com/sirupsen/logrus"
)

type ScheduleUseCase interface {
	Create(ctx context.Context, schedule *domain.Schedule) error
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	ListByBusiness(ctx context.Context, businessID string) ([]domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) (*domain.Schedule, error)
	Delete(ctx context.Context, id string) error
}

// Cache holds per-business schedule lists. Reads go through it, every
// write invalidates.
type Cache interface {
	GetBusinessSchedules(ctx context.Context, businessID string) ([]domain.Schedule, error)
	SetBusinessSchedules(ctx context.Context, businessID string, schedules []domain.Schedule) error
	InvalidateBusinessSchedules(ctx context.Context, businessID string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type ScheduleService struct {
	schedules   repository.ScheduleRepository
	requests    repository.BookingRequestRepository
	tx          repository.TxRunner
	cache       Cache
	producer    Producer
	eventsTopic string
	logger      *logrus.Logger
}

func NewScheduleService(
	schedules repository.ScheduleRepository,
	requests repository.BookingRequestRepository,
	tx repository.TxRunner,
	cache Cache,
	producer Producer,
	eventsTopic string,
	logger *logrus.Logger,
) *ScheduleService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ScheduleService{
		schedules:   schedules,
		requests:    requests,
		tx:          tx,
		cache:       cache,
		producer:    producer,
		eventsTopic: eventsTopic,
		logger:      logger,
	}
}

func (s *ScheduleService) Create(ctx context.Context, schedule *domain.Schedule) error {
	if schedule.Type == "" {
		schedule.Type = domain.DefaultScheduleType
	}
	if schedule.Status == "" {
		schedule.Status = domain.ScheduleStatusActive
	}
	if err := schedule.Validate(); err != nil {
		return err
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return err
	}
	s.invalidate(ctx, schedule.BusinessID)
	return nil
}

func (s *ScheduleService) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *ScheduleService) ListByBusiness(ctx context.Context, businessID string) ([]domain.Schedule, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetBusinessSchedules(ctx, businessID); err == nil && cached != nil {
			return cached, nil
		}
	}

	schedules, err := s.schedules.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetBusinessSchedules(ctx, businessID, schedules)
	}
	return schedules, nil
}

// Update is a full replace of the mutable fields. Seat capacity may
// shrink below what is already reserved; accept-time rechecks in the
// booking engine catch that.
func (s *ScheduleService) Update(ctx context.Context, schedule *domain.Schedule) (*domain.Schedule, error) {
	current, err := s.schedules.GetByID(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}
	schedule.BusinessID = current.BusinessID
	if schedule.Type == "" {
		schedule.Type = current.Type
	}
	if schedule.Status == "" {
		schedule.Status = current.Status
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.schedules.Update(ctx, schedule)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated.BusinessID)
	return updated, nil
}

// Delete removes a schedule and resolves everything still referencing
// it: open requests are declined, accepted ones cancelled. Terminal
// requests stay as history. Resolution and the schedule delete commit
// in one transaction, so a failed resolution leaves the schedule and
// every request exactly as they were.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	schedule, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var resolved []resolvedRequest
	err = s.runInTx(ctx, func(schedules repository.ScheduleRepository, requests repository.BookingRequestRepository) error {
		resolved = resolved[:0]
		list, err := requests.ListBySchedule(ctx, id)
		if err != nil {
			return err
		}
		for i := range list {
			req := &list[i]
			var eventType string
			switch req.Status {
			case domain.RequestStatusPending, domain.RequestStatusNegotiating:
				req.Status = domain.RequestStatusDeclined
				req.DeclineReason = domain.DeclineReasonManual
				eventType = "request_declined"
			case domain.RequestStatusAccepted:
				req.Status = domain.RequestStatusCancelled
				eventType = "request_cancelled"
			default:
				continue
			}
			updated, err := requests.Update(ctx, req)
			if err != nil {
				return fmt.Errorf("resolve request %s: %w", req.ID, err)
			}
			resolved = append(resolved, resolvedRequest{request: updated, eventType: eventType})
		}
		return schedules.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	// Events only for changes that actually committed.
	for _, r := range resolved {
		s.publishResolved(ctx, r.request, r.eventType)
	}
	s.invalidate(ctx, schedule.BusinessID)
	return nil
}

type resolvedRequest struct {
	request   *domain.BookingRequest
	eventType string
}

func (s *ScheduleService) runInTx(ctx context.Context, fn func(repository.ScheduleRepository, repository.BookingRequestRepository) error) error {
	if s.tx != nil {
		return s.tx.RunInTx(ctx, fn)
	}
	return fn(s.schedules, s.requests)
}

func (s *ScheduleService) publishResolved(ctx context.Context, updated *domain.BookingRequest, eventType string) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.RequestEvent{
		Type:           eventType,
		RequestID:      updated.ID,
		ScheduleID:     updated.ScheduleID,
		CustomerID:     updated.CustomerID,
		BusinessID:     updated.BusinessID,
		SeatsRequested: updated.SeatsRequested,
		PriceOffered:   updated.PriceOffered,
		Status:         string(updated.Status),
		DeclineReason:  updated.DeclineReason,
		OccurredAt:     time.Now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, updated.ID, event); err != nil {
		s.logger.WithError(err).WithField("request_id", updated.ID).Warn("failed to publish cascade event")
	}
}

func (s *ScheduleService) invalidate(ctx context.Context, businessID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBusinessSchedules(ctx, businessID); err != nil {
		s.logger.WithError(err).WithField("business_id", businessID).Warn("failed to invalidate schedules cache")
	}
}

var _ ScheduleUseCase = (*ScheduleService)(nil)
