// Package checkout creates hosted payment sessions and reads back their
// outcome. Payment state is confirmed on return from the provider; there
// is no webhook reconciliation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gymdesk/platform/internal/config"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured  = errors.New("checkout: provider not configured")
	ErrInvalidRequest = errors.New("checkout: invalid request")
)

// Request describes one line item to be paid.
type Request struct {
	PaymentID   string // Our payment row, echoed back as client reference
	Description string
	AmountCents int64 // Unit amount
	Quantity    int64
	Currency    string
	Email       string
	// Account is the connected account receiving the money. Empty
	// charges the platform account.
	Account  string
	Metadata map[string]string
}

// Session is a created hosted checkout.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Status is what the provider reports for a session.
type Status struct {
	ID          string
	Paid        bool
	Open        bool
	AmountTotal int64
	PaymentID   string
}

type Provider interface {
	CreateSession(ctx context.Context, req Request) (Session, error)
	SessionStatus(ctx context.Context, sessionID, account string) (Status, error)
}

// sessionAPI is the part of the Stripe client used here.
type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeProvider struct {
	sessions      sessionAPI
	currency      string
	returnBaseURL string
	log           *zap.SugaredLogger
}

// NewStripeProvider returns a Provider backed by Stripe Checkout. An
// empty secret key yields a provider that refuses every call.
func NewStripeProvider(cfg config.CheckoutConfig, log *zap.SugaredLogger) Provider {
	if cfg.SecretKey == "" {
		return disabledProvider{}
	}
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &stripeProvider{
		sessions:      sc.CheckoutSessions,
		currency:      strings.ToLower(cfg.Currency),
		returnBaseURL: strings.TrimRight(cfg.ReturnBaseURL, "/"),
		log:           log,
	}
}

func (p *stripeProvider) CreateSession(ctx context.Context, req Request) (Session, error) {
	if req.AmountCents <= 0 || req.Quantity <= 0 || req.PaymentID == "" {
		return Session{}, fmt.Errorf("%w: amount, quantity and payment id are required", ErrInvalidRequest)
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = p.currency
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(ReturnURL(p.returnBaseURL, true)),
		CancelURL:         stripe.String(ReturnURL(p.returnBaseURL, false)),
		ClientReferenceID: stripe.String(req.PaymentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(req.Quantity),
			},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata("payment_id", req.PaymentID)
	if req.Account != "" {
		params.SetStripeAccount(req.Account)
	}
	params.Context = ctx

	s, err := p.sessions.New(params)
	if err != nil {
		p.log.Errorw("failed to create checkout session", "payment", req.PaymentID, "error", err)
		return Session{}, fmt.Errorf("checkout: create session: %w", err)
	}
	return Session{ID: s.ID, URL: s.URL}, nil
}

func (p *stripeProvider) SessionStatus(ctx context.Context, sessionID, account string) (Status, error) {
	if sessionID == "" {
		return Status{}, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	params := &stripe.CheckoutSessionParams{}
	if account != "" {
		params.SetStripeAccount(account)
	}
	params.Context = ctx

	s, err := p.sessions.Get(sessionID, params)
	if err != nil {
		return Status{}, fmt.Errorf("checkout: get session: %w", err)
	}
	return Status{
		ID:          s.ID,
		Paid:        s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Open:        s.Status == stripe.CheckoutSessionStatusOpen,
		AmountTotal: s.AmountTotal,
		PaymentID:   s.ClientReferenceID,
	}, nil
}

// ReturnURL is where the provider sends the browser back. The session id
// placeholder is filled in by the provider.
func ReturnURL(base string, success bool) string {
	q := url.Values{}
	q.Set("success", fmt.Sprintf("%t", success))
	return base + "/checkout/return?session_id={CHECKOUT_SESSION_ID}&" + q.Encode()
}

type disabledProvider struct{}

func (disabledProvider) CreateSession(context.Context, Request) (Session, error) {
	return Session{}, ErrNotConfigured
}

func (disabledProvider) SessionStatus(context.Context, string, string) (Status, error) {
	return Status{}, ErrNotConfigured
}
