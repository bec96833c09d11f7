package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/identity"
	"github.com/sailingloc/boatbooking/internal/payment"
	"github.com/sailingloc/boatbooking/internal/service/reservation"
)

type ReservationHandler struct {
	service reservation.ReservationUseCase
}

func NewReservationHandler(service reservation.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.start)
	router.POST("/:id/identity", h.establishIdentity)
	router.POST("/:id/payment", h.pay)
}

type startReservationRequest struct {
	BoatID string `json:"boat_id" binding:"required"`
	Start  string `json:"start" binding:"required"`
	End    string `json:"end" binding:"required"`
}

type flowResponse struct {
	ID         string `json:"id"`
	BoatID     string `json:"boat_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	TotalCents int64  `json:"total_cents"`
	Step       string `json:"step"`
	BookingID  string `json:"booking_id,omitempty"`
}

func toFlowResponse(f *reservation.Flow) flowResponse {
	return flowResponse{
		ID:         f.ID,
		BoatID:     f.BoatID,
		Start:      f.Range.Start.Format(domain.DateFormat),
		End:        f.Range.End.Format(domain.DateFormat),
		TotalCents: f.TotalCents,
		Step:       string(f.Step),
		BookingID:  f.BookingID,
	}
}

func (h *ReservationHandler) start(c *gin.Context) {
	var req startReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := domain.ParseDateRange(req.Start, req.End)
	if err != nil {
		writeError(c, err)
		return
	}

	flow, err := h.service.Start(c.Request.Context(), reservation.StartInput{
		BoatID:       req.BoatID,
		Range:        r,
		SessionToken: bearerToken(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toFlowResponse(flow))
}

type identityRequest struct {
	Email      string                    `json:"email"`
	Password   string                    `json:"password"`
	NewAccount *identity.NewAccountInput `json:"new_account"`
}

func (h *ReservationHandler) establishIdentity(c *gin.Context) {
	var req identityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flow, err := h.service.EstablishIdentity(c.Request.Context(), c.Param("id"), reservation.IdentityInput{
		SessionToken: bearerToken(c),
		Email:        req.Email,
		Password:     req.Password,
		NewAccount:   req.NewAccount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlowResponse(flow))
}

type payRequest struct {
	Method string `json:"method" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

func (h *ReservationHandler) pay(c *gin.Context) {
	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flow, booking, err := h.service.Pay(c.Request.Context(), c.Param("id"), payment.Instrument{
		Method: req.Method,
		Token:  req.Token,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"flow":    toFlowResponse(flow),
		"booking": toBookingResponse(booking),
	})
}
