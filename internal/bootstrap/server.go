package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kmateo04/travelmarket/api"
	"github.com/kmateo04/travelmarket/config"
	"github.com/kmateo04/travelmarket/internal/service/booking"
	"github.com/kmateo04/travelmarket/internal/service/schedules"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Run starts the HTTP API server and blocks until the context is
// canceled or the server fails.
func Run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, scheduleSvc schedules.ScheduleUseCase, bookingSvc booking.BookingUseCase) error {
	router := NewRouter(cfg, logger, scheduleSvc, bookingSvc)

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.WithField("address", cfg.HTTP.Address).Info("http server started")

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

// NewRouter wires middleware and the REST surface. Split out of Run so
// handler tests can drive the full routing table in-process.
func NewRouter(cfg *config.Config, logger *logrus.Logger, scheduleSvc schedules.ScheduleUseCase, bookingSvc booking.BookingUseCase) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "X-Actor-Id", "X-Actor-Role"},
	}))

	scheduleHandler := api.NewScheduleHandler(scheduleSvc, bookingSvc, logger)
	scheduleHandler.Register(router.Group("/schedule"))

	bookingHandler := api.NewBookingRequestHandler(bookingSvc)
	bookingHandler.Register(router.Group("/booking-request"))

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFS("/swagger", http.Dir(cfg.HTTP.SwaggerDir))
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/travelmarket.swagger.json"),
		)))
	}

	return router
}
