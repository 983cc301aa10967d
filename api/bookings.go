package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kmateo04/travelmarket/internal/domain"
	"github.com/kmateo04/travelmarket/internal/service/booking"
)

type BookingRequestHandler struct {
	service booking.BookingUseCase
}

type submitRequest struct {
	ScheduleID      string  `json:"schedule_id"`
	CustomerID      string  `json:"customer_id"`
	SeatsRequested  int     `json:"seats_requested"`
	PriceOffered    float64 `json:"price_offered"`
	SpecialRequests string  `json:"special_requests"`
}

// statusUpdateRequest is the PATCH body: only the target status.
type statusUpdateRequest struct {
	Status string `json:"status"`
}

// updateRequest is the PUT body, the typed update command: exactly the
// mutable fields, no open-ended patching.
type updateRequest struct {
	Status          string  `json:"status"`
	PriceOffered    float64 `json:"price_offered"`
	SpecialRequests string  `json:"special_requests"`
}

type bookingRequestResponse struct {
	ID              string    `json:"id"`
	ScheduleID      string    `json:"schedule_id"`
	CustomerID      string    `json:"customer_id"`
	BusinessID      string    `json:"business_id"`
	SeatsRequested  int       `json:"seats_requested"`
	PriceOffered    float64   `json:"price_offered"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	Status          string    `json:"status"`
	DeclineReason   string    `json:"decline_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewBookingRequestHandler(service booking.BookingUseCase) *BookingRequestHandler {
	return &BookingRequestHandler{service: service}
}

func (h *BookingRequestHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.submit)
	router.GET("/business/:business_id", h.listByBusiness)
	router.GET("/:id", h.get)
	router.PATCH("/:id/status", h.updateStatus)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
}

func (h *BookingRequestHandler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := actorFromRequest(c, domain.Actor{ID: req.CustomerID, Role: domain.RoleCustomer})
	// The authenticated identity wins over whatever the body claims.
	if actor.Role == domain.RoleCustomer && actor.ID != "" {
		req.CustomerID = actor.ID
	}
	request, err := h.service.Submit(c.Request.Context(), actor, booking.SubmitInput{
		ScheduleID:      req.ScheduleID,
		CustomerID:      req.CustomerID,
		SeatsRequested:  req.SeatsRequested,
		PriceOffered:    req.PriceOffered,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingRequestResponse(request))
}

func (h *BookingRequestHandler) listByBusiness(c *gin.Context) {
	list, err := h.service.ListByBusiness(c.Request.Context(), c.Param("business_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]bookingRequestResponse, 0, len(list))
	for i := range list {
		out = append(out, *toBookingRequestResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *BookingRequestHandler) get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingRequestResponse(request))
}

func (h *BookingRequestHandler) updateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.transition(c, req.Status, booking.TransitionInput{})
}

func (h *BookingRequestHandler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.transition(c, req.Status, booking.TransitionInput{
		PriceOffered:    req.PriceOffered,
		SpecialRequests: req.SpecialRequests,
	})
}

func (h *BookingRequestHandler) transition(c *gin.Context, status string, input booking.TransitionInput) {
	action, ok := actionForStatus(status)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown target status"})
		return
	}

	fallback := domain.Actor{Role: domain.RoleBusiness}
	if action == booking.ActionExpire {
		fallback = domain.SystemActor
	}
	actor := actorFromRequest(c, fallback)

	updated, err := h.service.Transition(c.Request.Context(), actor, c.Param("id"), action, input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingRequestResponse(updated))
}

func (h *BookingRequestHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking request deleted successfully"})
}

// actionForStatus maps a requested target status onto a lifecycle action.
// "expired" is accepted so operators can force an overdue decline, but
// the engine still checks the caller and the request's age.
func actionForStatus(status string) (booking.Action, bool) {
	switch domain.RequestStatus(status) {
	case domain.RequestStatusAccepted:
		return booking.ActionAccept, true
	case domain.RequestStatusDeclined:
		return booking.ActionDecline, true
	case domain.RequestStatusNegotiating:
		return booking.ActionNegotiate, true
	case domain.RequestStatusCompleted:
		return booking.ActionComplete, true
	case domain.RequestStatusCancelled:
		return booking.ActionCancel, true
	}
	if status == "expired" {
		return booking.ActionExpire, true
	}
	return "", false
}

func toBookingRequestResponse(r *domain.BookingRequest) *bookingRequestResponse {
	return &bookingRequestResponse{
		ID:              r.ID,
		ScheduleID:      r.ScheduleID,
		CustomerID:      r.CustomerID,
		BusinessID:      r.BusinessID,
		SeatsRequested:  r.SeatsRequested,
		PriceOffered:    r.PriceOffered,
		SpecialRequests: r.SpecialRequests,
		Status:          string(r.Status),
		DeclineReason:   r.DeclineReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
