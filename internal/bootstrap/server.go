package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sailingloc/boatbooking/api"
	"github.com/sailingloc/boatbooking/config"
	"github.com/sailingloc/boatbooking/internal/identity"
	"go.uber.org/zap"
)

type Handlers struct {
	Boats        *api.BoatHandler
	Availability *api.AvailabilityHandler
	Bookings     *api.BookingHandler
	Reservations *api.ReservationHandler
}

// NewRouter wires every handler group. Booking transitions require an
// authenticated actor; reservation flows accept an optional session so an
// anonymous renter can start a flow before signing in.
func NewRouter(h Handlers, authority identity.Authority) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	requireAuth := api.Auth(authority, true)
	optionalAuth := api.Auth(authority, false)

	boats := router.Group("/boats")
	h.Boats.Register(boats)
	h.Availability.Register(boats, requireAuth)

	bookings := router.Group("/bookings", requireAuth)
	h.Bookings.Register(bookings)

	reservations := router.Group("/reservations", optionalAuth)
	h.Reservations.Register(reservations)

	return router
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, router *gin.Engine, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info("http server started", zap.String("address", cfg.HTTP.Address))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
