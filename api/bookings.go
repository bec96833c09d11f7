package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type bookingResponse struct {
	ID               string `json:"id"`
	BoatID           string `json:"boat_id"`
	RenterID         string `json:"renter_id"`
	OwnerID          string `json:"owner_id"`
	Start            string `json:"start"`
	End              string `json:"end"`
	Status           string `json:"status"`
	PaymentStatus    string `json:"payment_status"`
	SubtotalCents    int64  `json:"subtotal_cents"`
	ServiceFeeCents  int64  `json:"service_fee_cents"`
	TotalCents       int64  `json:"total_cents"`
	PaymentReference string `json:"payment_reference"`
	CreatedAt        string `json:"created_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:               b.ID,
		BoatID:           b.BoatID,
		RenterID:         b.RenterID,
		OwnerID:          b.OwnerID,
		Start:            b.Range.Start.Format(domain.DateFormat),
		End:              b.Range.End.Format(domain.DateFormat),
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		SubtotalCents:    b.SubtotalCents(),
		ServiceFeeCents:  b.ServiceFeeCents(),
		TotalCents:       b.TotalCents(),
		PaymentReference: b.PaymentReference,
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
	}
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id", h.get)
	router.POST("/:id/confirm", h.confirm)
	router.POST("/:id/cancel", h.cancel)
	router.POST("/:id/complete", h.complete)
}

func (h *BookingHandler) get(c *gin.Context) {
	if _, ok := mustActor(c); !ok {
		return
	}
	booking, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	h.transition(c, h.service.Confirm)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *BookingHandler) complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

func (h *BookingHandler) transition(c *gin.Context, op func(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	booking, err := op(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking))
}
