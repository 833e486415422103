package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"calendar_quiz_funnel/internal/app"
	"calendar_quiz_funnel/internal/domain/catalog"
	"calendar_quiz_funnel/internal/domain/funnel"
	"calendar_quiz_funnel/internal/domain/payment"
	"calendar_quiz_funnel/internal/domain/quiz"
)

type answerRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

type purchaseRequest struct {
	Tier        string `json:"tier" binding:"required"`
	FriendEmail string `json:"friend_email"`
}

type templateView struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type analyzerView struct {
	Progress    float64 `json:"progress"`
	Phase       string  `json:"phase"`
	AwaitingAck bool    `json:"awaiting_ack"`
	Done        bool    `json:"done"`
}

type sessionView struct {
	ID         string            `json:"id"`
	Step       int               `json:"step"`
	StepName   string            `json:"step_name"`
	Answers    map[string]string `json:"answers"`
	Email      string            `json:"email,omitempty"`
	Template   *templateView     `json:"template,omitempty"`
	Paid       bool              `json:"paid"`
	Analyzer   *analyzerView     `json:"analyzer,omitempty"`
	LaunchDate string            `json:"launch_date,omitempty"`
}

func renderSession(sess *funnel.Session) sessionView {
	sess.Lock()
	defer sess.Unlock()

	view := sessionView{
		ID:       sess.ID,
		Step:     int(sess.Step),
		StepName: sess.Step.String(),
		Answers:  make(map[string]string, len(sess.Answers)),
		Email:    sess.Email,
		Paid:     sess.Paid,
	}
	for k, v := range sess.Answers {
		view.Answers[string(k)] = v
	}
	if t, ok := catalog.ByID(sess.TemplateID); ok {
		view.Template = &templateView{ID: t.ID, Type: t.Type, Name: t.Name, Description: t.Description}
	}
	if sess.Analyzer != nil {
		view.Analyzer = &analyzerView{
			Progress:    sess.Analyzer.Progress(),
			Phase:       sess.Analyzer.Phase(),
			AwaitingAck: sess.Analyzer.AwaitingAck(),
			Done:        sess.Analyzer.Done(),
		}
	}
	if sess.Step == funnel.StepConfirmation {
		view.LaunchDate = nextLaunchDate(time.Now()).Format("2006-01-02")
	}
	return view
}

// nextLaunchDate is the upcoming December 1st: the date the purchased
// calendar goes live and the confirmation screen counts down to.
func nextLaunchDate(now time.Time) time.Time {
	launch := time.Date(now.Year(), time.December, 1, 0, 0, 0, 0, time.UTC)
	if now.After(launch) {
		launch = launch.AddDate(1, 0, 0)
	}
	return launch
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleQuestions serves the quiz content surface: stable keys, prompts and
// the four option values per question.
func (s *Server) handleQuestions(c *gin.Context) {
	type questionView struct {
		Key     string   `json:"key"`
		Prompt  string   `json:"prompt"`
		Options []string `json:"options"`
	}
	questions := make([]questionView, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, questionView{Key: string(q.Key), Prompt: q.Prompt, Options: q.Options})
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (s *Server) handleStart(c *gin.Context) {
	sess := s.funnel.Start()
	c.JSON(http.StatusCreated, renderSession(sess))
}

func (s *Server) handleGet(c *gin.Context) {
	sess, err := s.funnel.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, renderSession(sess))
}

func (s *Server) handleAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key and value are required"})
		return
	}

	sess, err := s.funnel.SubmitAnswer(c.Param("id"), quiz.Key(req.Key), req.Value)
	if err != nil {
		s.renderError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, renderSession(sess))
}

func (s *Server) handleEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required", "field": "email"})
		return
	}

	sess, err := s.funnel.SubmitEmail(c.Request.Context(), c.Param("id"), req.Email)
	if err != nil {
		s.renderError(c, err, "email")
		return
	}
	c.JSON(http.StatusOK, renderSession(sess))
}

func (s *Server) handleAnalyzerAck(c *gin.Context) {
	sess, err := s.funnel.AcknowledgeAnalyzer(c.Param("id"))
	if err != nil {
		s.renderError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, renderSession(sess))
}

func (s *Server) handleCheckout(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tier is required", "field": "tier"})
		return
	}

	sess, err := s.funnel.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err, "")
		return
	}

	checkout, err := s.payments.StartCheckout(c.Request.Context(), sess, payment.Tier(req.Tier), req.FriendEmail)
	if err != nil {
		s.renderError(c, err, "friend_email")
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": checkout.ID, "url": checkout.URL})
}

func (s *Server) handlePaymentIntent(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tier is required", "field": "tier"})
		return
	}

	sess, err := s.funnel.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err, "")
		return
	}

	intent, err := s.payments.StartPaymentIntent(c.Request.Context(), sess, payment.Tier(req.Tier), req.FriendEmail)
	if err != nil {
		s.renderError(c, err, "friend_email")
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_intent_id": intent.ID, "client_secret": intent.ClientSecret})
}

func (s *Server) handleResume(c *gin.Context) {
	sess, err := s.funnel.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, renderSession(sess))
}

func (s *Server) handleReset(c *gin.Context) {
	s.funnel.Reset(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// handleWebhook receives the payment processor's signed events. The body
// must be read raw; the signature covers the exact bytes sent.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	notification, err := s.webhooks.ParseNotification(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		s.logger.Warnf("Webhook rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook signature verification failed"})
		return
	}
	if notification != nil {
		if err := s.payments.HandlePaymentSucceeded(c.Request.Context(), *notification); err != nil {
			s.logger.Errorf("Webhook reconciliation failed: %v", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// renderError maps service errors onto HTTP responses: field-level
// validation errors, blocking notices and collaborator failures.
func (s *Server) renderError(c *gin.Context, err error, field string) {
	switch {
	case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, app.ErrNothingToResume):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "email"})
	case errors.Is(err, app.ErrFriendEmailRequired),
		errors.Is(err, app.ErrFriendEmailInvalid),
		errors.Is(err, app.ErrFriendEmailSame):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": field})
	case errors.Is(err, app.ErrUnknownQuestion),
		errors.Is(err, app.ErrUnknownOption),
		errors.Is(err, app.ErrUnknownTier):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrAlreadyPurchased):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "already_purchased"})
	case errors.Is(err, funnel.ErrInvalidTransition),
		errors.Is(err, app.ErrQuizIncomplete),
		errors.Is(err, app.ErrAnalyzerNotWaiting):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrUserStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "something went wrong, please try again"})
	case errors.Is(err, app.ErrPaymentUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment is temporarily unavailable, please try again"})
	default:
		s.logger.Errorf("Unhandled error in HTTP handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
