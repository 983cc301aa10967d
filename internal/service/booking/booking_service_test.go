package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kmateo04/travelmarket/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, req *domain.BookingRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id string) (*domain.BookingRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingRequest), args.Error(1)
}

func (m *MockRequestRepository) ListByBusiness(ctx context.Context, businessID string) ([]domain.BookingRequest, error) {
	args := m.Called(ctx, businessID)
	return args.Get(0).([]domain.BookingRequest), args.Error(1)
}

func (m *MockRequestRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]domain.BookingRequest, error) {
	args := m.Called(ctx, scheduleID)
	return args.Get(0).([]domain.BookingRequest), args.Error(1)
}

func (m *MockRequestRepository) Update(ctx context.Context, req *domain.BookingRequest) (*domain.BookingRequest, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingRequest), args.Error(1)
}

func (m *MockRequestRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRequestRepository) SumReservedSeats(ctx context.Context, scheduleID string) (int, error) {
	args := m.Called(ctx, scheduleID)
	return args.Int(0), args.Error(1)
}

func (m *MockRequestRepository) ExpireOverdueBefore(ctx context.Context, cutoff time.Time) ([]domain.BookingRequest, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]domain.BookingRequest), args.Error(1)
}

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) Create(ctx context.Context, s *domain.Schedule) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockScheduleRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) ListByBusiness(ctx context.Context, businessID string) ([]domain.Schedule, error) {
	args := m.Called(ctx, businessID)
	return args.Get(0).([]domain.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) Update(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireScheduleLock(ctx context.Context, scheduleID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, scheduleID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseScheduleLock(ctx context.Context, scheduleID string) error {
	args := m.Called(ctx, scheduleID)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func newTestService(requests *MockRequestRepository, schedules *MockScheduleRepository) *BookingService {
	return &BookingService{
		requests:     requests,
		schedules:    schedules,
		expiryWindow: 48 * time.Hour,
		lockTTL:      10 * time.Second,
		logger:       logrus.New(),
	}
}

func activeSchedule(id string, seats int) *domain.Schedule {
	return &domain.Schedule{
		ID:         id,
		BusinessID: "biz-1",
		From:       "Manila",
		To:         "Cebu",
		Seats:      seats,
		Price:      3500,
		Status:     domain.ScheduleStatusActive,
	}
}

var customer = domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}
var business = domain.Actor{ID: "biz-1", Role: domain.RoleBusiness}

func TestBookingService_Submit_Success(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	service := newTestService(requests, schedules)

	ctx := context.Background()
	schedules.On("GetByID", ctx, "sched-1").Return(activeSchedule("sched-1", 10), nil).Once()
	requests.On("SumReservedSeats", ctx, "sched-1").Return(0, nil).Once()
	requests.On("Create", ctx, mock.AnythingOfType("*domain.BookingRequest")).Return(nil).Once()

	request, err := service.Submit(ctx, customer, SubmitInput{
		ScheduleID:     "sched-1",
		CustomerID:     "cust-1",
		SeatsRequested: 10,
		PriceOffered:   35000,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, request.Status)
	assert.Equal(t, "biz-1", request.BusinessID)
	assert.Equal(t, 10, request.SeatsRequested)

	requests.AssertExpectations(t)
	schedules.AssertExpectations(t)
}

func TestBookingService_Submit_SeatsUnavailable(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	service := newTestService(requests, schedules)

	ctx := context.Background()
	schedules.On("GetByID", ctx, "sched-1").Return(activeSchedule("sched-1", 10), nil).Once()
	requests.On("SumReservedSeats", ctx, "sched-1").Return(10, nil).Once()

	_, err := service.Submit(ctx, customer, SubmitInput{
		ScheduleID:     "sched-1",
		CustomerID:     "cust-1",
		SeatsRequested: 1,
		PriceOffered:   3500,
	})

	assert.ErrorIs(t, err, domain.ErrSeatsUnavailable)
	requests.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBookingService_Submit_RetryAfterDecline(t *testing.T) {
	// Schedule with 5 seats: request A holds all 5, so B is rejected.
	// Once A is declined it stops counting, and B's retry goes through.
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	service := newTestService(requests, schedules)

	ctx := context.Background()
	schedules.On("GetByID", ctx, "sched-1").Return(activeSchedule("sched-1", 5), nil).Twice()
	requests.On("SumReservedSeats", ctx, "sched-1").Return(5, nil).Once()
	requests.On("SumReservedSeats", ctx, "sched-1").Return(0, nil).Once()
	requests.On("Create", ctx, mock.AnythingOfType("*domain.BookingRequest")).Return(nil).Once()

	input := SubmitInput{ScheduleID: "sched-1", CustomerID: "cust-2", SeatsRequested: 1, PriceOffered: 3500}

	_, err := service.Submit(ctx, customer, input)
	assert.ErrorIs(t, err, domain.ErrSeatsUnavailable)

	request, err := service.Submit(ctx, customer, input)
	assert.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, request.Status)
}

func TestBookingService_Submit_InvalidSeatCount(t *testing.T) {
	service := newTestService(&MockRequestRepository{}, &MockScheduleRepository{})
	ctx := context.Background()

	for _, seats := range []int{0, -3, 11} {
		_, err := service.Submit(ctx, customer, SubmitInput{
			ScheduleID:     "sched-1",
			CustomerID:     "cust-1",
			SeatsRequested: seats,
			PriceOffered:   100,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidSeatCount, "seats=%d", seats)
	}
}

func TestBookingService_Submit_ScheduleErrors(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	service := newTestService(requests, schedules)
	ctx := context.Background()

	schedules.On("GetByID", ctx, "missing").Return(nil, domain.ErrScheduleNotFound).Once()
	_, err := service.Submit(ctx, customer, SubmitInput{ScheduleID: "missing", CustomerID: "cust-1", SeatsRequested: 1})
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)

	cancelled := activeSchedule("sched-2", 10)
	cancelled.Status = domain.ScheduleStatusCancelled
	schedules.On("GetByID", ctx, "sched-2").Return(cancelled, nil).Once()
	_, err = service.Submit(ctx, customer, SubmitInput{ScheduleID: "sched-2", CustomerID: "cust-1", SeatsRequested: 1})
	assert.ErrorIs(t, err, domain.ErrScheduleInactive)
}

func TestBookingService_Submit_RequiresCustomer(t *testing.T) {
	service := newTestService(&MockRequestRepository{}, &MockScheduleRepository{})
	_, err := service.Submit(context.Background(), business, SubmitInput{ScheduleID: "sched-1", SeatsRequested: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestBookingService_Submit_LockContention(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	cache := &MockCache{}
	service := newTestService(requests, schedules)
	service.cache = cache

	ctx := context.Background()
	schedules.On("GetByID", ctx, "sched-1").Return(activeSchedule("sched-1", 10), nil).Once()
	cache.On("AcquireScheduleLock", ctx, "sched-1", 10*time.Second).Return(false, nil).Once()

	_, err := service.Submit(ctx, customer, SubmitInput{ScheduleID: "sched-1", CustomerID: "cust-1", SeatsRequested: 1})
	assert.ErrorIs(t, err, domain.ErrScheduleBusy)
	cache.AssertExpectations(t)
}

func TestBookingService_Submit_ReleasesLock(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	cache := &MockCache{}
	service := newTestService(requests, schedules)
	service.cache = cache

	ctx := context.Background()
	schedules.On("GetByID", ctx, "sched-1").Return(activeSchedule("sched-1", 10), nil).Once()
	cache.On("AcquireScheduleLock", ctx, "sched-1", 10*time.Second).Return(true, nil).Once()
	cache.On("ReleaseScheduleLock", ctx, "sched-1").Return(nil).Once()
	requests.On("SumReservedSeats", ctx, "sched-1").Return(0, nil).Once()
	requests.On("Create", ctx, mock.AnythingOfType("*domain.BookingRequest")).Return(nil).Once()

	_, err := service.Submit(ctx, customer, SubmitInput{ScheduleID: "sched-1", CustomerID: "cust-1", SeatsRequested: 2})
	assert.NoError(t, err)
	cache.AssertExpectations(t)
}

func pendingRequest(id string) *domain.BookingRequest {
	return &domain.BookingRequest{
		ID:             id,
		ScheduleID:     "sched-1",
		CustomerID:     "cust-1",
		BusinessID:     "biz-1",
		SeatsRequested: 3,
		PriceOffered:   1000,
		Status:         domain.RequestStatusPending,
		CreatedAt:      time.Now().Add(-time.Hour),
	}
}

func TestBookingService_Transition_Accept(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	service := newTestService(requests, schedules)

	ctx := context.Background()
	request := pendingRequest("req-1")
	requests.On("GetByID", ctx, "req-1").Return(request, nil).Once()
	schedules.On("GetByID", ctx, "sched-1").Return(activeSchedule("sched-1", 10), nil).Once()
	requests.On("SumReservedSeats", ctx, "sched-1").Return(3, nil).Once()
	requests.On("Update", ctx, mock.MatchedBy(func(r *domain.BookingRequest) bool {
		return r.Status == domain.RequestStatusAccepted
	})).Return(request, nil).Once()

	_, err := service.Transition(ctx, business, "req-1", ActionAccept, TransitionInput{})
	assert.NoError(t, err)
	requests.AssertExpectations(t)
}

func TestBookingService_Transition_AcceptRecheckFails(t *testing.T) {
	// The business shrank the schedule to fewer seats than are already
	// reserved, so the accept-time recheck refuses.
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	service := newTestService(requests, schedules)

	ctx := context.Background()
	requests.On("GetByID", ctx, "req-1").Return(pendingRequest("req-1"), nil).Once()
	schedules.On("GetByID", ctx, "sched-1").Return(activeSchedule("sched-1", 2), nil).Once()
	requests.On("SumReservedSeats", ctx, "sched-1").Return(3, nil).Once()

	_, err := service.Transition(ctx, business, "req-1", ActionAccept, TransitionInput{})
	assert.ErrorIs(t, err, domain.ErrSeatsUnavailable)
	requests.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestBookingService_Transition_Decline(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	service := newTestService(requests, schedules)

	ctx := context.Background()
	request := pendingRequest("req-1")
	requests.On("GetByID", ctx, "req-1").Return(request, nil).Once()
	requests.On("Update", ctx, mock.MatchedBy(func(r *domain.BookingRequest) bool {
		return r.Status == domain.RequestStatusDeclined && r.DeclineReason == domain.DeclineReasonManual
	})).Return(request, nil).Once()

	_, err := service.Transition(ctx, business, "req-1", ActionDecline, TransitionInput{})
	assert.NoError(t, err)
	requests.AssertExpectations(t)
}

func TestBookingService_Transition_Negotiate(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	service := newTestService(requests, schedules)

	ctx := context.Background()
	request := pendingRequest("req-1")
	request.SpecialRequests = "window seat please"

	var saved *domain.BookingRequest
	requests.On("GetByID", ctx, "req-1").Return(request, nil).Once()
	requests.On("Update", ctx, mock.AnythingOfType("*domain.BookingRequest")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.BookingRequest) }).
		Return(request, nil).Once()

	_, err := service.Transition(ctx, business, "req-1", ActionNegotiate, TransitionInput{PriceOffered: 900})
	assert.NoError(t, err)
	assert.Equal(t, domain.RequestStatusNegotiating, saved.Status)
	assert.Equal(t, 900.0, saved.PriceOffered)
	assert.Contains(t, saved.SpecialRequests, "window seat please")
	assert.Contains(t, saved.SpecialRequests, "counter offer: 900.00")
}

func TestBookingService_Transition_NegotiateKeepsNoteHistory(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	service := newTestService(requests, schedules)

	ctx := context.Background()
	request := pendingRequest("req-1")
	request.SpecialRequests = "original note"

	requests.On("GetByID", ctx, "req-1").Return(request, nil)
	requests.On("Update", ctx, mock.AnythingOfType("*domain.BookingRequest")).Return(request, nil)

	prevLen := len(request.SpecialRequests)
	for _, price := range []float64{900, 850, 820} {
		_, err := service.Transition(ctx, business, "req-1", ActionNegotiate, TransitionInput{PriceOffered: price})
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(request.SpecialRequests, "original note"))
		assert.GreaterOrEqual(t, len(request.SpecialRequests), prevLen)
		prevLen = len(request.SpecialRequests)
	}
	assert.Equal(t, 3, strings.Count(request.SpecialRequests, "counter offer"))
}

func TestBookingService_Transition_NegotiateRequiresPrice(t *testing.T) {
	requests := &MockRequestRepository{}
	service := newTestService(requests, &MockScheduleRepository{})

	ctx := context.Background()
	requests.On("GetByID", ctx, "req-1").Return(pendingRequest("req-1"), nil).Once()

	_, err := service.Transition(ctx, business, "req-1", ActionNegotiate, TransitionInput{})
	assert.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestBookingService_Transition_TerminalIsImmutable(t *testing.T) {
	requests := &MockRequestRepository{}
	service := newTestService(requests, &MockScheduleRepository{})
	ctx := context.Background()

	for _, status := range []domain.RequestStatus{
		domain.RequestStatusDeclined,
		domain.RequestStatusCompleted,
		domain.RequestStatusCancelled,
	} {
		request := pendingRequest("req-1")
		request.Status = status
		requests.On("GetByID", ctx, "req-1").Return(request, nil).Once()

		_, err := service.Transition(ctx, business, "req-1", ActionAccept, TransitionInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "status=%s", status)
		assert.Equal(t, status, request.Status)
	}
	requests.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestBookingService_Transition_CompleteAndCancel(t *testing.T) {
	requests := &MockRequestRepository{}
	service := newTestService(requests, &MockScheduleRepository{})
	ctx := context.Background()

	accepted := pendingRequest("req-1")
	accepted.Status = domain.RequestStatusAccepted
	requests.On("GetByID", ctx, "req-1").Return(accepted, nil).Once()
	requests.On("Update", ctx, mock.MatchedBy(func(r *domain.BookingRequest) bool {
		return r.Status == domain.RequestStatusCompleted
	})).Return(accepted, nil).Once()

	_, err := service.Transition(ctx, business, "req-1", ActionComplete, TransitionInput{})
	assert.NoError(t, err)

	// complete is not legal from pending
	requests.On("GetByID", ctx, "req-2").Return(pendingRequest("req-2"), nil).Once()
	_, err = service.Transition(ctx, business, "req-2", ActionComplete, TransitionInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// cancel is allowed for the customer too
	accepted2 := pendingRequest("req-3")
	accepted2.Status = domain.RequestStatusAccepted
	requests.On("GetByID", ctx, "req-3").Return(accepted2, nil).Once()
	requests.On("Update", ctx, mock.MatchedBy(func(r *domain.BookingRequest) bool {
		return r.Status == domain.RequestStatusCancelled
	})).Return(accepted2, nil).Once()

	_, err = service.Transition(ctx, customer, "req-3", ActionCancel, TransitionInput{})
	assert.NoError(t, err)
}

func TestBookingService_Transition_Expire(t *testing.T) {
	requests := &MockRequestRepository{}
	service := newTestService(requests, &MockScheduleRepository{})
	ctx := context.Background()

	fresh := pendingRequest("req-1")
	fresh.CreatedAt = time.Now().Add(-47*time.Hour - 59*time.Minute)
	requests.On("GetByID", ctx, "req-1").Return(fresh, nil).Once()
	_, err := service.Transition(ctx, domain.SystemActor, "req-1", ActionExpire, TransitionInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stale := pendingRequest("req-2")
	stale.CreatedAt = time.Now().Add(-48*time.Hour - time.Second)
	requests.On("GetByID", ctx, "req-2").Return(stale, nil).Once()
	requests.On("Update", ctx, mock.MatchedBy(func(r *domain.BookingRequest) bool {
		return r.Status == domain.RequestStatusDeclined && r.DeclineReason == domain.DeclineReasonExpired
	})).Return(stale, nil).Once()

	_, err = service.Transition(ctx, domain.SystemActor, "req-2", ActionExpire, TransitionInput{})
	assert.NoError(t, err)

	// only the system may expire
	stale2 := pendingRequest("req-3")
	stale2.CreatedAt = time.Now().Add(-72 * time.Hour)
	requests.On("GetByID", ctx, "req-3").Return(stale2, nil).Once()
	_, err = service.Transition(ctx, business, "req-3", ActionExpire, TransitionInput{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestBookingService_Transition_RequestNotFound(t *testing.T) {
	requests := &MockRequestRepository{}
	service := newTestService(requests, &MockScheduleRepository{})
	ctx := context.Background()

	requests.On("GetByID", ctx, "missing").Return(nil, domain.ErrRequestNotFound).Once()
	_, err := service.Transition(ctx, business, "missing", ActionAccept, TransitionInput{})
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestBookingService_AvailableSeats(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	service := newTestService(requests, schedules)
	ctx := context.Background()

	schedules.On("GetByID", ctx, "sched-1").Return(activeSchedule("sched-1", 20), nil)
	requests.On("SumReservedSeats", ctx, "sched-1").Return(12, nil)

	first, err := service.AvailableSeats(ctx, "sched-1")
	assert.NoError(t, err)
	assert.Equal(t, 8, first)

	// no intervening writes: the read is idempotent
	second, err := service.AvailableSeats(ctx, "sched-1")
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBookingService_ExpireOverdueRequests(t *testing.T) {
	requests := &MockRequestRepository{}
	schedules := &MockScheduleRepository{}
	producer := &MockProducer{}
	service := newTestService(requests, schedules)
	service.producer = producer
	service.eventsTopic = "booking-request-events"

	ctx := context.Background()
	expired := []domain.BookingRequest{
		{ID: "req-1", Status: domain.RequestStatusDeclined, DeclineReason: domain.DeclineReasonExpired},
		{ID: "req-2", Status: domain.RequestStatusDeclined, DeclineReason: domain.DeclineReasonExpired},
	}
	requests.On("ExpireOverdueBefore", ctx, mock.AnythingOfType("time.Time")).Return(expired, nil).Once()
	producer.On("Publish", ctx, "booking-request-events", mock.Anything, mock.Anything).Return(nil).Twice()

	got, err := service.ExpireOverdueRequests(ctx)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	producer.AssertExpectations(t)
}

func TestBookingService_PublishFailureDoesNotFailTransition(t *testing.T) {
	requests := &MockRequestRepository{}
	producer := &MockProducer{}
	service := newTestService(requests, &MockScheduleRepository{})
	service.producer = producer
	service.eventsTopic = "booking-request-events"

	ctx := context.Background()
	request := pendingRequest("req-1")
	requests.On("GetByID", ctx, "req-1").Return(request, nil).Once()
	requests.On("Update", ctx, mock.Anything).Return(request, nil).Once()
	producer.On("Publish", ctx, "booking-request-events", mock.Anything, mock.Anything).
		Return(errors.New("broker down")).Once()

	updated, err := service.Transition(ctx, business, "req-1", ActionDecline, TransitionInput{})
	assert.NoError(t, err)
	assert.NotNil(t, updated)
}
