package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/katikolakarthik/manvi/internal/service"
)

type Options struct {
	Payments service.PaymentService
	Orders   service.OrderService
	Health   HealthChecker
	Logger   *slog.Logger

	JWTSecret      string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		RequestID(),
		Logger(opts.Logger),
		Recovery(opts.Logger),
		corsMiddleware(opts.AllowedOrigins),
		ErrorHandler(opts.Logger),
		OptionalAuth(opts.JWTSecret),
	)
	r.NoRoute(notFound)

	r.GET("/health", healthHandler(opts.Health))

	throttle := RateLimit(opts.RateLimitRPS, opts.RateLimitBurst)
	payments := &paymentHandler{payments: opts.Payments}
	orders := &orderHandler{orders: opts.Orders}

	api := r.Group("/api")
	{
		pay := api.Group("/payments")
		pay.POST("/create-order", throttle, payments.createOrder)
		pay.POST("/validate-payment", throttle, payments.validatePayment)
		pay.GET("/order/:orderId", payments.fetchOrder)
		pay.GET("/user-payments", RequireAuth(), payments.listMine)

		admin := pay.Group("/admin", RequireAdmin())
		admin.GET("/all", payments.listAll)
		admin.POST("/refund", payments.refund)

		ord := api.Group("/orders")
		ord.POST("", throttle, orders.place)
		ord.GET("/:id", orders.get)
		ord.PUT("/:id/status", RequireAdmin(), orders.updateStatus)
	}
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// NewHTTPServer wraps the router with the timeouts used in production.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
