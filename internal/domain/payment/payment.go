package payment

import (
	"context"
	"time"

	"calendar_quiz_funnel/internal/domain/quiz"
)

// Tier is one of the paywall's price tiers.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
	TierGift     Tier = "gift"
)

// Price describes a tier: the charge amount, the processor's price id for
// hosted checkout and the share passed on as a donation.
type Price struct {
	Tier          Tier
	AmountCents   int64
	PriceID       string
	DonationCents int64
}

// PriceTable maps each selectable tier to its price.
type PriceTable map[Tier]Price

// NewPriceTable builds the fixed three-tier table with the configured
// processor price ids. Amounts and donation shares are build-time constants.
func NewPriceTable(standardPriceID, premiumPriceID, giftPriceID string) PriceTable {
	return PriceTable{
		TierStandard: {Tier: TierStandard, AmountCents: 399, PriceID: standardPriceID, DonationCents: 100},
		TierPremium:  {Tier: TierPremium, AmountCents: 699, PriceID: premiumPriceID, DonationCents: 400},
		TierGift:     {Tier: TierGift, AmountCents: 999, PriceID: giftPriceID, DonationCents: 500},
	}
}

// PaymentIntentRequest is the embedded-checkout variant: the client confirms
// the intent in place using the returned client secret.
type PaymentIntentRequest struct {
	AmountCents int64
	Email       string
	TemplateID  string
	FriendEmail string
	Answers     quiz.Answers
}

// PaymentIntent is the gateway's handle for an embedded payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// CheckoutRequest is the hosted-checkout variant: the user is redirected to
// the processor and returns via the success URL.
type CheckoutRequest struct {
	PriceID    string
	Email      string
	TemplateID string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the gateway's handle for a hosted checkout.
type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway is the payment processor collaborator. Implementations wrap the
// processor's SDK; the funnel never sees processor types directly.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// Notification is the reconciled payload of a payment-succeeded signal,
// carrying back the metadata attached when the payment was created.
type Notification struct {
	// ProviderRef is the processor-side id of the payment (intent or
	// checkout session). It doubles as the reconciliation idempotency key.
	ProviderRef string
	Email       string
	TemplateID  string
	FriendEmail string
	Answers     quiz.Answers
}

// PendingReconciliation is a paid-marking write that failed after a
// financially completed payment, queued for retry.
type PendingReconciliation struct {
	ID          int64
	ProviderRef string
	Email       string
	TemplateID  string
	Gift        bool
	Answers     quiz.Answers
	Attempts    int
	CreatedAt   time.Time
}

// ReconciliationRepository persists the retry queue for confirmation writes.
type ReconciliationRepository interface {
	// Enqueue stores a pending write. Idempotent per (provider ref, email).
	Enqueue(ctx context.Context, p *PendingReconciliation) error
	ListDue(ctx context.Context, limit int) ([]*PendingReconciliation, error)
	MarkDone(ctx context.Context, id int64) error
	MarkAttempt(ctx context.Context, id int64) error
}

// Notifier pushes a human-facing note about a confirmed sale. Optional; a
// nil notifier disables it.
type Notifier interface {
	NotifyPurchase(email, templateName string, gift bool) error
}
