package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kmateo04/travelmarket/internal/domain"
)

type BookingRequestRepository interface {
	Create(ctx context.Context, request *domain.BookingRequest) error
	GetByID(ctx context.Context, id string) (*domain.BookingRequest, error)
	ListByBusiness(ctx context.Context, businessID string) ([]domain.BookingRequest, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]domain.BookingRequest, error)
	Update(ctx context.Context, request *domain.BookingRequest) (*domain.BookingRequest, error)
	Delete(ctx context.Context, id string) error
	SumReservedSeats(ctx context.Context, scheduleID string) (int, error)
	ExpireOverdueBefore(ctx context.Context, cutoff time.Time) ([]domain.BookingRequest, error)
}

type PGBookingRequestRepository struct {
	db Querier
}

func NewBookingRequestRepository(db Querier) BookingRequestRepository {
	return &PGBookingRequestRepository{db: db}
}

const requestColumns = `id, schedule_id, customer_id, business_id, seats_requested, price_offered, special_requests, status, decline_reason, created_at, updated_at`

func (r *PGBookingRequestRepository) Create(ctx context.Context, req *domain.BookingRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = domain.RequestStatusPending
	}
	return r.db.QueryRow(ctx, `INSERT INTO booking_requests (id, schedule_id, customer_id, business_id, seats_requested, price_offered, special_requests, status, decline_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		req.ID, req.ScheduleID, req.CustomerID, req.BusinessID, req.SeatsRequested, req.PriceOffered, req.SpecialRequests, req.Status, req.DeclineReason).
		Scan(&req.CreatedAt, &req.UpdatedAt)
}

func (r *PGBookingRequestRepository) GetByID(ctx context.Context, id string) (*domain.BookingRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM booking_requests WHERE id=$1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *PGBookingRequestRepository) ListByBusiness(ctx context.Context, businessID string) ([]domain.BookingRequest, error) {
	return r.list(ctx, `SELECT `+requestColumns+` FROM booking_requests WHERE business_id=$1 ORDER BY created_at DESC`, businessID)
}

func (r *PGBookingRequestRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]domain.BookingRequest, error) {
	return r.list(ctx, `SELECT `+requestColumns+` FROM booking_requests WHERE schedule_id=$1 ORDER BY created_at`, scheduleID)
}

func (r *PGBookingRequestRepository) list(ctx context.Context, sql string, args ...any) ([]domain.BookingRequest, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]domain.BookingRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

func (r *PGBookingRequestRepository) Update(ctx context.Context, req *domain.BookingRequest) (*domain.BookingRequest, error) {
	row := r.db.QueryRow(ctx, `UPDATE booking_requests
		SET seats_requested=$1, price_offered=$2, special_requests=$3, status=$4, decline_reason=$5, updated_at=now()
		WHERE id=$6
		RETURNING `+requestColumns,
		req.SeatsRequested, req.PriceOffered, req.SpecialRequests, req.Status, req.DeclineReason, req.ID)
	updated, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *PGBookingRequestRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM booking_requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

// SumReservedSeats is the accounting aggregate behind every seat
// availability check: total seats held by requests that still count
// against capacity (pending, negotiating, accepted).
func (r *PGBookingRequestRepository) SumReservedSeats(ctx context.Context, scheduleID string) (int, error) {
	var sum int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(seats_requested), 0)
		FROM booking_requests
		WHERE schedule_id=$1 AND status IN ($2, $3, $4)`,
		scheduleID, domain.RequestStatusPending, domain.RequestStatusNegotiating, domain.RequestStatusAccepted).
		Scan(&sum)
	return sum, err
}

func (r *PGBookingRequestRepository) ExpireOverdueBefore(ctx context.Context, cutoff time.Time) ([]domain.BookingRequest, error) {
	rows, err := r.db.Query(ctx, `UPDATE booking_requests
		SET status=$1, decline_reason=$2, updated_at=now()
		WHERE status IN ($3, $4) AND created_at <= $5
		RETURNING `+requestColumns,
		domain.RequestStatusDeclined, domain.DeclineReasonExpired,
		domain.RequestStatusPending, domain.RequestStatusNegotiating, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.BookingRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *req)
	}
	return expired, rows.Err()
}

func scanRequest(row pgx.Row) (*domain.BookingRequest, error) {
	var req domain.BookingRequest
	if err := row.Scan(&req.ID, &req.ScheduleID, &req.CustomerID, &req.BusinessID, &req.SeatsRequested, &req.PriceOffered, &req.SpecialRequests, &req.Status, &req.DeclineReason, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	return &req, nil
}

var _ BookingRequestRepository = (*PGBookingRequestRepository)(nil)
