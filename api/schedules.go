package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kmateo04/travelmarket/internal/domain"
	"github.com/kmateo04/travelmarket/internal/service/booking"
	"github.com/kmateo04/travelmarket/internal/service/schedules"
	"github.com/sirupsen/logrus"
)

type ScheduleHandler struct {
	service  schedules.ScheduleUseCase
	bookings booking.BookingUseCase
	logger   *logrus.Logger
}

type scheduleRequest struct {
	BusinessID    string    `json:"business_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Type          string    `json:"type"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	Price         float64   `json:"price"`
	Seats         int       `json:"seats"`
	AircraftType  string    `json:"aircraft_type"`
	Status        string    `json:"status"`
}

type scheduleResponse struct {
	ID             string    `json:"id"`
	BusinessID     string    `json:"business_id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	Type           string    `json:"type"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	Price          float64   `json:"price"`
	Seats          int       `json:"seats"`
	AircraftType   string    `json:"aircraft_type,omitempty"`
	Status         string    `json:"status"`
	AvailableSeats *int      `json:"available_seats,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewScheduleHandler(service schedules.ScheduleUseCase, bookings booking.BookingUseCase, logger *logrus.Logger) *ScheduleHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &ScheduleHandler{service: service, bookings: bookings, logger: logger}
}

func (h *ScheduleHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/business/:business_id", h.listByBusiness)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
}

func (h *ScheduleHandler) create(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule := req.toDomain("")
	if err := h.service.Create(c.Request.Context(), schedule); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toScheduleResponse(schedule, nil))
}

func (h *ScheduleHandler) listByBusiness(c *gin.Context) {
	list, err := h.service.ListByBusiness(c.Request.Context(), c.Param("business_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]scheduleResponse, 0, len(list))
	for i := range list {
		out = append(out, *toScheduleResponse(&list[i], nil))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ScheduleHandler) get(c *gin.Context) {
	id := c.Param("id")
	schedule, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	var available *int
	if h.bookings != nil {
		seats, err := h.bookings.AvailableSeats(c.Request.Context(), id)
		if err != nil {
			// The read still answers; the field is omitted, not faked.
			h.logger.WithError(err).WithField("schedule_id", id).Warn("failed to compute available seats")
		} else {
			available = &seats
		}
	}
	c.JSON(http.StatusOK, toScheduleResponse(schedule, available))
}

func (h *ScheduleHandler) update(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule := req.toDomain(c.Param("id"))
	updated, err := h.service.Update(c.Request.Context(), schedule)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toScheduleResponse(updated, nil))
}

func (h *ScheduleHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted successfully"})
}

func (r *scheduleRequest) toDomain(id string) *domain.Schedule {
	return &domain.Schedule{
		ID:            id,
		BusinessID:    r.BusinessID,
		From:          r.From,
		To:            r.To,
		Type:          r.Type,
		DepartureTime: r.DepartureTime,
		ArrivalTime:   r.ArrivalTime,
		Price:         r.Price,
		Seats:         r.Seats,
		AircraftType:  r.AircraftType,
		Status:        domain.ScheduleStatus(r.Status),
	}
}

func toScheduleResponse(s *domain.Schedule, available *int) *scheduleResponse {
	return &scheduleResponse{
		ID:             s.ID,
		BusinessID:     s.BusinessID,
		From:           s.From,
		To:             s.To,
		Type:           s.Type,
		DepartureTime:  s.DepartureTime,
		ArrivalTime:    s.ArrivalTime,
		Price:          s.Price,
		Seats:          s.Seats,
		AircraftType:   s.AircraftType,
		Status:         string(s.Status),
		AvailableSeats: available,
		CreatedAt:      s.CreatedAt,
	}
}
