package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/payment"
	"github.com/sailingloc/boatbooking/internal/repository"
	bookingsvc "github.com/sailingloc/boatbooking/internal/service/booking"
)

// writeError maps the domain error taxonomy onto HTTP. Every response names
// the constraint that failed so the client can route the user: fix dates,
// fix fields, switch accounts, or retry later.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrBookingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "constraint": "not_found"})
		return
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "constraint": "validation", "field": verr.Field})
		return
	}

	var cerr *domain.ConflictError
	if errors.As(err, &cerr) {
		c.JSON(http.StatusConflict, gin.H{"error": cerr.Error(), "constraint": "date_overlap", "conflicts": cerr.Conflicts})
		return
	}

	var perr *domain.PolicyError
	if errors.As(err, &perr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": perr.Error(), "constraint": "policy", "rule": perr.Rule})
		return
	}

	var terr *domain.InvalidTransitionError
	if errors.As(err, &terr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      terr.Error(),
			"constraint": "invalid_transition",
			"from":       string(terr.From),
			"to":         string(terr.To),
		})
		return
	}

	var derr *payment.DeclinedError
	if errors.As(err, &derr) {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": derr.Error(), "constraint": "payment_declined"})
		return
	}

	var xerr *domain.CollaboratorError
	if errors.As(err, &xerr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": xerr.Error(), "constraint": "collaborator"})
		return
	}

	if errors.Is(err, bookingsvc.ErrBoatBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "constraint": "busy"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
