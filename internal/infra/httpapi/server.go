package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"calendar_quiz_funnel/internal/app"
	"calendar_quiz_funnel/internal/domain/payment"
)

// WebhookParser verifies and decodes a payment processor webhook delivery.
// A nil notification with a nil error means the event type is not relevant.
type WebhookParser interface {
	ParseNotification(body []byte, signatureHeader string) (*payment.Notification, error)
}

// Server is the funnel's HTTP surface.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	funnel     *app.FunnelService
	payments   *app.PaymentService
	webhooks   WebhookParser
	logger     *logrus.Logger
}

func NewServer(
	addr string,
	environment string,
	allowedOrigins []string,
	funnelSvc *app.FunnelService,
	paymentSvc *app.PaymentService,
	webhooks WebhookParser,
	logger *logrus.Logger,
) *Server {
	if environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Stripe-Signature")
	engine.Use(cors.New(corsConfig))

	s := &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		funnel:   funnelSvc,
		payments: paymentSvc,
		webhooks: webhooks,
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/api/questions", s.handleQuestions)

	api := s.engine.Group("/api/funnel")
	api.POST("", s.handleStart)
	api.GET("/:id", s.handleGet)
	api.POST("/:id/answers", s.handleAnswer)
	api.POST("/:id/email", s.handleEmail)
	api.POST("/:id/analyzer/ack", s.handleAnalyzerAck)
	api.POST("/:id/checkout", s.handleCheckout)
	api.POST("/:id/payment-intent", s.handlePaymentIntent)
	api.POST("/:id/resume", s.handleResume)
	api.POST("/:id/reset", s.handleReset)

	s.engine.POST("/api/stripe/webhook", s.handleWebhook)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
