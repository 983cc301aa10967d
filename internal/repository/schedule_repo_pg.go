package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kmateo04/travelmarket/internal/domain"
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.Schedule) error
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	ListByBusiness(ctx context.Context, businessID string) ([]domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) (*domain.Schedule, error)
	Delete(ctx context.Context, id string) error
}

type PGScheduleRepository struct {
	db Querier
}

func NewScheduleRepository(db Querier) ScheduleRepository {
	return &PGScheduleRepository{db: db}
}

const scheduleColumns = `id, business_id, from_location, to_location, type, departure_time, arrival_time, price, seats, aircraft_type, status, created_at`

func (r *PGScheduleRepository) Create(ctx context.Context, s *domain.Schedule) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Type == "" {
		s.Type = domain.DefaultScheduleType
	}
	if s.Status == "" {
		s.Status = domain.ScheduleStatusActive
	}
	return r.db.QueryRow(ctx, `INSERT INTO schedules (id, business_id, from_location, to_location, type, departure_time, arrival_time, price, seats, aircraft_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		s.ID, s.BusinessID, s.From, s.To, s.Type, s.DepartureTime, s.ArrivalTime, s.Price, s.Seats, s.AircraftType, s.Status).
		Scan(&s.CreatedAt)
}

func (r *PGScheduleRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	row := r.db.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id=$1`, id)
	s, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *PGScheduleRepository) ListByBusiness(ctx context.Context, businessID string) ([]domain.Schedule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE business_id=$1 ORDER BY departure_time`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]domain.Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

func (r *PGScheduleRepository) Update(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	row := r.db.QueryRow(ctx, `UPDATE schedules
		SET from_location=$1, to_location=$2, type=$3, departure_time=$4, arrival_time=$5, price=$6, seats=$7, aircraft_type=$8, status=$9
		WHERE id=$10
		RETURNING `+scheduleColumns,
		s.From, s.To, s.Type, s.DepartureTime, s.ArrivalTime, s.Price, s.Seats, s.AircraftType, s.Status, s.ID)
	updated, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *PGScheduleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM schedules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var s domain.Schedule
	if err := row.Scan(&s.ID, &s.BusinessID, &s.From, &s.To, &s.Type, &s.DepartureTime, &s.ArrivalTime, &s.Price, &s.Seats, &s.AircraftType, &s.Status, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

var _ ScheduleRepository = (*PGScheduleRepository)(nil)
