package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	stripesdk "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"calendar_quiz_funnel/internal/domain/payment"
	"calendar_quiz_funnel/internal/domain/quiz"
)

// Adapter implements the payment.Gateway interface using the official
// stripe-go SDK.
type Adapter struct {
	api           *client.API
	webhookSecret string
}

func NewAdapter(secretKey, webhookSecret string) *Adapter {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Adapter{api: api, webhookSecret: webhookSecret}
}

// CreatePaymentIntent creates a PaymentIntent for embedded checkout. The
// funnel's reconciliation metadata rides along on the intent.
func (a *Adapter) CreatePaymentIntent(ctx context.Context, req payment.PaymentIntentRequest) (*payment.PaymentIntent, error) {
	params := &stripesdk.PaymentIntentParams{
		Params:       stripesdk.Params{Context: ctx},
		Amount:       stripesdk.Int64(req.AmountCents),
		Currency:     stripesdk.String(string(stripesdk.CurrencyUSD)),
		ReceiptEmail: stripesdk.String(req.Email),
		AutomaticPaymentMethods: &stripesdk.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripesdk.Bool(true),
		},
	}
	params.AddMetadata("email", req.Email)
	params.AddMetadata("calendar_template_id", req.TemplateID)
	params.AddMetadata("friend_email", req.FriendEmail)
	params.AddMetadata("answers", encodeAnswers(req.Answers))

	intent, err := a.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("error creating payment intent: %w", err)
	}
	return &payment.PaymentIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// CreateCheckoutSession creates a hosted checkout session for the given
// price id with success/cancel redirects.
func (a *Adapter) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	params := &stripesdk.CheckoutSessionParams{
		Params:        stripesdk.Params{Context: ctx},
		Mode:          stripesdk.String(string(stripesdk.CheckoutSessionModePayment)),
		CustomerEmail: stripesdk.String(req.Email),
		LineItems: []*stripesdk.CheckoutSessionLineItemParams{
			{
				Price:    stripesdk.String(req.PriceID),
				Quantity: stripesdk.Int64(1),
			},
		},
		SuccessURL: stripesdk.String(req.SuccessURL),
		CancelURL:  stripesdk.String(req.CancelURL),
	}
	params.AddMetadata("email", req.Email)
	params.AddMetadata("calendar_template_id", req.TemplateID)

	session, err := a.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("error creating checkout session: %w", err)
	}
	return &payment.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ParseNotification verifies the webhook signature and extracts the
// reconciliation payload. It returns (nil, nil) for event types the funnel
// does not care about.
func (a *Adapter) ParseNotification(body []byte, signatureHeader string) (*payment.Notification, error) {
	event, err := webhook.ConstructEvent(body, signatureHeader, a.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripesdk.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("error decoding payment intent event: %w", err)
		}
		return &payment.Notification{
			ProviderRef: intent.ID,
			Email:       intent.Metadata["email"],
			TemplateID:  intent.Metadata["calendar_template_id"],
			FriendEmail: intent.Metadata["friend_email"],
			Answers:     decodeAnswers(intent.Metadata["answers"]),
		}, nil

	case "checkout.session.completed":
		var session stripesdk.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("error decoding checkout session event: %w", err)
		}
		return &payment.Notification{
			ProviderRef: session.ID,
			Email:       session.Metadata["email"],
			TemplateID:  session.Metadata["calendar_template_id"],
		}, nil
	}

	return nil, nil
}

func encodeAnswers(answers quiz.Answers) string {
	if answers == nil {
		return ""
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return ""
	}
	return string(raw)
}

func decodeAnswers(raw string) quiz.Answers {
	if raw == "" {
		return nil
	}
	var answers quiz.Answers
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		// Malformed metadata loses the answer copy, not the payment.
		return nil
	}
	return answers
}
