package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar_quiz_funnel/internal/domain/catalog"
	"calendar_quiz_funnel/internal/domain/funnel"
	"calendar_quiz_funnel/internal/domain/payment"
	"calendar_quiz_funnel/internal/domain/user"
)

type fakeGateway struct {
	intentCalls   int
	checkoutCalls int
	lastIntent    payment.PaymentIntentRequest
	lastCheckout  payment.CheckoutRequest
	err           error
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, req payment.PaymentIntentRequest) (*payment.PaymentIntent, error) {
	g.intentCalls++
	g.lastIntent = req
	if g.err != nil {
		return nil, g.err
	}
	return &payment.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.checkoutCalls++
	g.lastCheckout = req
	if g.err != nil {
		return nil, g.err
	}
	return &payment.CheckoutSession{ID: "cs_test", URL: "https://pay.example/cs_test"}, nil
}

type fakeReconRepo struct {
	queue  []*payment.PendingReconciliation
	nextID int64
}

func (r *fakeReconRepo) Enqueue(_ context.Context, p *payment.PendingReconciliation) error {
	for _, q := range r.queue {
		if q.ProviderRef == p.ProviderRef && q.Email == p.Email {
			return nil
		}
	}
	r.nextID++
	stored := *p
	stored.ID = r.nextID
	r.queue = append(r.queue, &stored)
	return nil
}

func (r *fakeReconRepo) ListDue(_ context.Context, limit int) ([]*payment.PendingReconciliation, error) {
	if len(r.queue) > limit {
		return r.queue[:limit], nil
	}
	return r.queue, nil
}

func (r *fakeReconRepo) MarkDone(_ context.Context, id int64) error {
	for i, q := range r.queue {
		if q.ID == id {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeReconRepo) MarkAttempt(_ context.Context, id int64) error {
	for _, q := range r.queue {
		if q.ID == id {
			q.Attempts++
		}
	}
	return nil
}

type fakeNotifier struct {
	notes []string
}

func (n *fakeNotifier) NotifyPurchase(email, templateName string, gift bool) error {
	n.notes = append(n.notes, fmt.Sprintf("%s/%s/gift=%v", email, templateName, gift))
	return nil
}

func testPrices() payment.PriceTable {
	return payment.NewPriceTable("price_std", "price_prem", "price_gift")
}

func paywallSession(email string) *funnel.Session {
	sess := funnel.NewSession("sess-pay")
	sess.Step = funnel.StepPaywall
	sess.Email = email
	sess.TemplateID = catalog.Templates[0].ID
	sess.Answers = tieAnswers.Clone()
	return sess
}

func newTestPaymentService(repo *fakeUserRepo, gw *fakeGateway, pending *fakeReconRepo, notifier payment.Notifier) *PaymentService {
	return NewPaymentService(repo, gw, testPrices(), pending, notifier, "https://calendar.example/", testLogger())
}

func TestStartCheckoutStandardTier(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestPaymentService(newFakeUserRepo(), gw, &fakeReconRepo{}, nil)
	sess := paywallSession("buyer@x.com")

	checkout, err := svc.StartCheckout(context.Background(), sess, payment.TierStandard, "")
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/cs_test", checkout.URL)
	assert.Equal(t, "price_std", gw.lastCheckout.PriceID)
	assert.Equal(t, "buyer@x.com", gw.lastCheckout.Email)
	assert.Contains(t, gw.lastCheckout.SuccessURL, "payment_success=true")
	assert.Contains(t, gw.lastCheckout.SuccessURL, "funnel=sess-pay")
	assert.False(t, strings.Contains(gw.lastCheckout.SuccessURL, "//?"), "base URL trailing slash must be trimmed")
}

func TestStartCheckoutGiftValidation(t *testing.T) {
	cases := []struct {
		name        string
		friendEmail string
		want        error
	}{
		{"missing recipient", "", ErrFriendEmailRequired},
		{"malformed recipient", "not-an-email", ErrFriendEmailInvalid},
		{"own email", "buyer@x.com", ErrFriendEmailSame},
		{"own email different case", "BUYER@X.com", ErrFriendEmailSame},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{}
			svc := newTestPaymentService(newFakeUserRepo(), gw, &fakeReconRepo{}, nil)
			sess := paywallSession("buyer@x.com")

			_, err := svc.StartCheckout(context.Background(), sess, payment.TierGift, tc.friendEmail)
			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, gw.checkoutCalls, "validation failures must not reach the gateway")
		})
	}
}

func TestStartCheckoutUnknownTier(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestPaymentService(newFakeUserRepo(), gw, &fakeReconRepo{}, nil)
	sess := paywallSession("buyer@x.com")

	_, err := svc.StartCheckout(context.Background(), sess, payment.Tier("platinum"), "")
	assert.ErrorIs(t, err, ErrUnknownTier)
	assert.Zero(t, gw.checkoutCalls)
}

func TestStartCheckoutOnlyAtPaywall(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestPaymentService(newFakeUserRepo(), gw, &fakeReconRepo{}, nil)
	sess := funnel.NewSession("sess-early")

	_, err := svc.StartCheckout(context.Background(), sess, payment.TierStandard, "")
	assert.ErrorIs(t, err, funnel.ErrInvalidTransition)
	assert.Zero(t, gw.checkoutCalls)
}

func TestStartPaymentIntentGiftCarriesMetadata(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestPaymentService(newFakeUserRepo(), gw, &fakeReconRepo{}, nil)
	sess := paywallSession("buyer@x.com")

	intent, err := svc.StartPaymentIntent(context.Background(), sess, payment.TierGift, "friend@x.com")
	require.NoError(t, err)

	assert.Equal(t, "pi_test_secret", intent.ClientSecret)
	assert.Equal(t, int64(999), gw.lastIntent.AmountCents)
	assert.Equal(t, "buyer@x.com", gw.lastIntent.Email)
	assert.Equal(t, "friend@x.com", gw.lastIntent.FriendEmail)
	assert.Equal(t, sess.TemplateID, gw.lastIntent.TemplateID)
	assert.Len(t, gw.lastIntent.Answers, 7)
	assert.Equal(t, "friend@x.com", sess.FriendEmail)
}

func TestStartPaymentIntentGatewayFailure(t *testing.T) {
	gw := &fakeGateway{err: fmt.Errorf("processor down")}
	svc := newTestPaymentService(newFakeUserRepo(), gw, &fakeReconRepo{}, nil)
	sess := paywallSession("buyer@x.com")

	_, err := svc.StartPaymentIntent(context.Background(), sess, payment.TierStandard, "")
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
}

func TestHandlePaymentSucceededMarksPurchaserPaid(t *testing.T) {
	repo := newFakeUserRepo()
	tpl := catalog.Templates[0]
	repo.users["buyer@x.com"] = &user.User{Email: "buyer@x.com"}
	notifier := &fakeNotifier{}
	svc := newTestPaymentService(repo, &fakeGateway{}, &fakeReconRepo{}, notifier)

	err := svc.HandlePaymentSucceeded(context.Background(), payment.Notification{
		ProviderRef: "pi_1",
		Email:       "buyer@x.com",
		TemplateID:  tpl.ID,
	})
	require.NoError(t, err)

	buyer := repo.get("buyer@x.com")
	require.NotNil(t, buyer)
	assert.True(t, buyer.Paid)
	assert.False(t, buyer.Gift)
	require.Len(t, notifier.notes, 1)
	assert.Equal(t, fmt.Sprintf("buyer@x.com/%s/gift=false", tpl.Name), notifier.notes[0])
}

func TestHandlePaymentSucceededGiftCreatesBothRecords(t *testing.T) {
	repo := newFakeUserRepo()
	tpl := catalog.Templates[0]
	answers := tieAnswers.Clone()
	repo.users["buyer@x.com"] = &user.User{Email: "buyer@x.com"}
	notifier := &fakeNotifier{}
	svc := newTestPaymentService(repo, &fakeGateway{}, &fakeReconRepo{}, notifier)

	err := svc.HandlePaymentSucceeded(context.Background(), payment.Notification{
		ProviderRef: "pi_2",
		Email:       "buyer@x.com",
		TemplateID:  tpl.ID,
		FriendEmail: "friend@x.com",
		Answers:     answers,
	})
	require.NoError(t, err)

	buyer := repo.get("buyer@x.com")
	require.NotNil(t, buyer)
	assert.True(t, buyer.Paid)
	assert.False(t, buyer.Gift)

	friend := repo.get("friend@x.com")
	require.NotNil(t, friend)
	assert.True(t, friend.Paid)
	assert.True(t, friend.Gift)
	assert.Equal(t, tpl.ID, friend.CalendarTemplateID.String)
	assert.Equal(t, answers, friend.Answers, "recipient inherits the purchaser's answers")

	assert.Len(t, notifier.notes, 2)
}

func TestHandlePaymentSucceededSkipsIncompleteMetadata(t *testing.T) {
	repo := newFakeUserRepo()
	pending := &fakeReconRepo{}
	svc := newTestPaymentService(repo, &fakeGateway{}, pending, nil)

	err := svc.HandlePaymentSucceeded(context.Background(), payment.Notification{ProviderRef: "pi_3"})
	require.NoError(t, err)

	assert.Zero(t, repo.upserts)
	assert.Zero(t, repo.markPaids)
	assert.Empty(t, pending.queue)
}

func TestHandlePaymentSucceededUpsertsMissingPurchaser(t *testing.T) {
	repo := newFakeUserRepo()
	tpl := catalog.Templates[0]
	svc := newTestPaymentService(repo, &fakeGateway{}, &fakeReconRepo{}, nil)

	// Capture never persisted, so MarkPaid has nothing to update.
	err := svc.HandlePaymentSucceeded(context.Background(), payment.Notification{
		ProviderRef: "pi_4",
		Email:       "buyer@x.com",
		TemplateID:  tpl.ID,
		Answers:     tieAnswers.Clone(),
	})
	require.NoError(t, err)

	buyer := repo.get("buyer@x.com")
	require.NotNil(t, buyer)
	assert.True(t, buyer.Paid)
	assert.Equal(t, tpl.ID, buyer.CalendarTemplateID.String)
}

func TestHandlePaymentSucceededQueuesFailedWrites(t *testing.T) {
	repo := newFakeUserRepo()
	tpl := catalog.Templates[0]
	repo.users["buyer@x.com"] = &user.User{Email: "buyer@x.com"}
	repo.markPaidErr = fmt.Errorf("store down")
	repo.upsertErr = fmt.Errorf("store down")
	pending := &fakeReconRepo{}
	svc := newTestPaymentService(repo, &fakeGateway{}, pending, nil)

	err := svc.HandlePaymentSucceeded(context.Background(), payment.Notification{
		ProviderRef: "pi_5",
		Email:       "buyer@x.com",
		TemplateID:  tpl.ID,
		FriendEmail: "friend@x.com",
		Answers:     tieAnswers.Clone(),
	})
	require.NoError(t, err, "queued failures must not bounce the webhook")
	require.Len(t, pending.queue, 2)

	// The store recovers; the sweeper applies both writes and drains the queue.
	repo.markPaidErr = nil
	repo.upsertErr = nil
	require.NoError(t, svc.RetryPending(context.Background()))

	assert.Empty(t, pending.queue)
	assert.True(t, repo.get("buyer@x.com").Paid)
	friend := repo.get("friend@x.com")
	require.NotNil(t, friend)
	assert.True(t, friend.Paid)
	assert.True(t, friend.Gift)
}

func TestRetryPendingKeepsFailingEntries(t *testing.T) {
	repo := newFakeUserRepo()
	repo.upsertErr = fmt.Errorf("store down")
	pending := &fakeReconRepo{}
	require.NoError(t, pending.Enqueue(context.Background(), &payment.PendingReconciliation{
		ProviderRef: "pi_6",
		Email:       "friend@x.com",
		TemplateID:  catalog.Templates[0].ID,
		Gift:        true,
	}))
	svc := newTestPaymentService(repo, &fakeGateway{}, pending, nil)

	require.NoError(t, svc.RetryPending(context.Background()))

	require.Len(t, pending.queue, 1)
	assert.Equal(t, 1, pending.queue[0].Attempts)
}

func TestPriceTableAmounts(t *testing.T) {
	prices := testPrices()

	assert.Equal(t, int64(399), prices[payment.TierStandard].AmountCents)
	assert.Equal(t, int64(699), prices[payment.TierPremium].AmountCents)
	assert.Equal(t, int64(999), prices[payment.TierGift].AmountCents)
	for _, tier := range []payment.Tier{payment.TierStandard, payment.TierPremium, payment.TierGift} {
		price := prices[tier]
		assert.Positive(t, price.DonationCents)
		assert.Less(t, price.DonationCents, price.AmountCents)
	}
}
