package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"calendar_quiz_funnel/internal/domain/catalog"
	"calendar_quiz_funnel/internal/domain/funnel"
	"calendar_quiz_funnel/internal/domain/payment"
	"calendar_quiz_funnel/internal/domain/user"
	idb "calendar_quiz_funnel/internal/infra/database"
)

// Custom application-level errors for the payment service
var ErrUnknownTier = fmt.Errorf("unknown price tier")
var ErrFriendEmailRequired = fmt.Errorf("gift purchases need the recipient's email")
var ErrFriendEmailInvalid = fmt.Errorf("recipient email address is not valid")
var ErrFriendEmailSame = fmt.Errorf("recipient email must differ from your own")
var ErrPaymentUnavailable = fmt.Errorf("payment gateway unavailable")

const reconciliationBatchSize = 50

// PaymentService owns the paywall step: starting checkouts, reconciling the
// gateway's payment-succeeded signal into the user store and retrying
// confirmation writes that failed.
type PaymentService struct {
	users    user.Repository
	gateway  payment.Gateway
	prices   payment.PriceTable
	pending  payment.ReconciliationRepository
	notifier payment.Notifier // nil disables sale notifications
	baseURL  string
	logger   *logrus.Logger
}

func NewPaymentService(
	users user.Repository,
	gateway payment.Gateway,
	prices payment.PriceTable,
	pending payment.ReconciliationRepository,
	notifier payment.Notifier,
	baseURL string,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		users:    users,
		gateway:  gateway,
		prices:   prices,
		pending:  pending,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// validateTier resolves the selected tier and, for the gift tier, checks the
// recipient email. Validation failures block the purchase before any
// gateway call is issued.
func (s *PaymentService) validateTier(sess *funnel.Session, tier payment.Tier, friendEmail string) (payment.Price, error) {
	price, ok := s.prices[tier]
	if !ok {
		return payment.Price{}, ErrUnknownTier
	}
	if tier != payment.TierGift {
		return price, nil
	}

	friendEmail = strings.TrimSpace(friendEmail)
	if friendEmail == "" {
		return payment.Price{}, ErrFriendEmailRequired
	}
	if !ValidEmail(friendEmail) {
		return payment.Price{}, ErrFriendEmailInvalid
	}
	if strings.EqualFold(friendEmail, sess.Email) {
		return payment.Price{}, ErrFriendEmailSame
	}
	return price, nil
}

// StartPaymentIntent begins an embedded checkout for the session. The
// returned client secret is confirmed on the client; the metadata carries
// everything the webhook needs to reconcile.
func (s *PaymentService) StartPaymentIntent(ctx context.Context, sess *funnel.Session, tier payment.Tier, friendEmail string) (*payment.PaymentIntent, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.Step != funnel.StepPaywall {
		return nil, fmt.Errorf("%w: purchase at %s", funnel.ErrInvalidTransition, sess.Step)
	}
	price, err := s.validateTier(sess, tier, friendEmail)
	if err != nil {
		return nil, err
	}
	if tier == payment.TierGift {
		sess.FriendEmail = strings.TrimSpace(friendEmail)
	}

	req := payment.PaymentIntentRequest{
		AmountCents: price.AmountCents,
		Email:       sess.Email,
		TemplateID:  sess.TemplateID,
		FriendEmail: sess.FriendEmail,
		Answers:     sess.Answers.Clone(),
	}
	intent, err := s.gateway.CreatePaymentIntent(ctx, req)
	if err != nil {
		s.logger.Errorf("Failed to create payment intent for %s: %v", sess.Email, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	s.logger.Infof("Payment intent %s created for %s (tier %s)", intent.ID, sess.Email, tier)
	return intent, nil
}

// StartCheckout begins a hosted checkout for the session. The success URL
// carries the payment-success marker the resumption path looks for.
func (s *PaymentService) StartCheckout(ctx context.Context, sess *funnel.Session, tier payment.Tier, friendEmail string) (*payment.CheckoutSession, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.Step != funnel.StepPaywall {
		return nil, fmt.Errorf("%w: purchase at %s", funnel.ErrInvalidTransition, sess.Step)
	}
	price, err := s.validateTier(sess, tier, friendEmail)
	if err != nil {
		return nil, err
	}
	if tier == payment.TierGift {
		sess.FriendEmail = strings.TrimSpace(friendEmail)
	}

	req := payment.CheckoutRequest{
		PriceID:    price.PriceID,
		Email:      sess.Email,
		TemplateID: sess.TemplateID,
		SuccessURL: fmt.Sprintf("%s/?payment_success=true&session_id={CHECKOUT_SESSION_ID}&funnel=%s", s.baseURL, sess.ID),
		CancelURL:  fmt.Sprintf("%s/?payment_canceled=true&funnel=%s", s.baseURL, sess.ID),
	}
	checkout, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.logger.Errorf("Failed to create checkout session for %s: %v", sess.Email, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	s.logger.Infof("Checkout session %s created for %s (tier %s)", checkout.ID, sess.Email, tier)
	return checkout, nil
}

// HandlePaymentSucceeded reconciles a confirmed payment: the purchaser's
// record is marked paid and, for gift purchases, the recipient gets an
// upserted record pre-marked paid with the same template and a copy of the
// purchaser's answers. Failed writes are queued for the sweeper instead of
// being dropped; a notification missing its email or template id is skipped.
func (s *PaymentService) HandlePaymentSucceeded(ctx context.Context, n payment.Notification) error {
	if n.Email == "" || n.TemplateID == "" {
		s.logger.Warnf("Payment %s confirmed but metadata is incomplete (email=%q, template=%q); skipping reconciliation",
			n.ProviderRef, n.Email, n.TemplateID)
		return nil
	}

	purchaser := &payment.PendingReconciliation{
		ProviderRef: n.ProviderRef,
		Email:       n.Email,
		TemplateID:  n.TemplateID,
		Gift:        false,
		Answers:     n.Answers,
	}
	if err := s.applyReconciliation(ctx, purchaser); err != nil {
		s.enqueue(ctx, purchaser, err)
	} else {
		s.logger.Infof("User %s marked paid (payment %s)", n.Email, n.ProviderRef)
		s.notify(n.Email, n.TemplateID, false)
	}

	if n.FriendEmail != "" {
		friend := &payment.PendingReconciliation{
			ProviderRef: n.ProviderRef,
			Email:       n.FriendEmail,
			TemplateID:  n.TemplateID,
			Gift:        true,
			Answers:     n.Answers.Clone(),
		}
		if err := s.applyReconciliation(ctx, friend); err != nil {
			s.enqueue(ctx, friend, err)
		} else {
			s.logger.Infof("Gift calendar created for %s (payment %s)", n.FriendEmail, n.ProviderRef)
			s.notify(n.FriendEmail, n.TemplateID, true)
		}
	}
	return nil
}

// RetryPending replays queued confirmation writes. Entries that land are
// removed; the rest record another attempt and wait for the next sweep.
func (s *PaymentService) RetryPending(ctx context.Context) error {
	due, err := s.pending.ListDue(ctx, reconciliationBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending reconciliations: %w", err)
	}
	if len(due) == 0 {
		return nil
	}
	s.logger.Infof("Retrying %d pending reconciliation(s)", len(due))

	for _, p := range due {
		if err := s.applyReconciliation(ctx, p); err != nil {
			s.logger.Errorf("Reconciliation %d for %s failed again (attempt %d): %v", p.ID, p.Email, p.Attempts+1, err)
			if markErr := s.pending.MarkAttempt(ctx, p.ID); markErr != nil {
				s.logger.Errorf("Failed to record reconciliation attempt for %d: %v", p.ID, markErr)
			}
			continue
		}
		s.logger.Infof("Reconciliation %d for %s applied", p.ID, p.Email)
		if err := s.pending.MarkDone(ctx, p.ID); err != nil {
			s.logger.Errorf("Failed to remove applied reconciliation %d: %v", p.ID, err)
		}
	}
	return nil
}

// applyReconciliation performs the actual confirmation write. Gift
// recipients are upserted (they may have no record yet); purchasers are
// updated in place, falling back to an upsert if capture never persisted.
func (s *PaymentService) applyReconciliation(ctx context.Context, p *payment.PendingReconciliation) error {
	if p.Gift {
		return s.users.Upsert(ctx, &user.User{
			Email:              p.Email,
			Paid:               true,
			Gift:               true,
			CalendarTemplateID: sql.NullString{String: p.TemplateID, Valid: true},
			Answers:            p.Answers,
		})
	}

	err := s.users.MarkPaid(ctx, p.Email, p.TemplateID, false)
	if err == idb.ErrUserNotFound {
		return s.users.Upsert(ctx, &user.User{
			Email:              p.Email,
			Paid:               true,
			CalendarTemplateID: sql.NullString{String: p.TemplateID, Valid: true},
			Answers:            p.Answers,
		})
	}
	return err
}

func (s *PaymentService) enqueue(ctx context.Context, p *payment.PendingReconciliation, cause error) {
	s.logger.Errorf("Confirmation write for %s failed, queueing for retry: %v", p.Email, cause)
	if err := s.pending.Enqueue(ctx, p); err != nil {
		// The payment is financially complete but unrecorded; this log line
		// is the last trace of it, hence Error and the full payload.
		s.logger.Errorf("Could not queue reconciliation for %s (payment %s, template %s): %v",
			p.Email, p.ProviderRef, p.TemplateID, err)
	}
}

func (s *PaymentService) notify(email, templateID string, gift bool) {
	if s.notifier == nil {
		return
	}
	templateName := templateID
	if t, ok := catalog.ByID(templateID); ok {
		templateName = t.Name
	}
	if err := s.notifier.NotifyPurchase(email, templateName, gift); err != nil {
		s.logger.Warnf("Sale notification for %s failed: %v", email, err)
	}
}
