// Package payments wraps the Stripe checkout flow: session creation for a
// tour purchase and signature-verified webhook handling. Bookings are only
// ever created from a verified checkout.session.completed event, never from
// client-controlled parameters.
package payments

import (
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// CheckoutCompleted is the webhook event that confirms a paid booking.
const CheckoutCompleted = "checkout.session.completed"

type Client struct {
	webhookSecret string
}

func New(secretKey, webhookSecret string) *Client {
	stripe.Key = secretKey
	return &Client{webhookSecret: webhookSecret}
}

// CheckoutInput carries everything a checkout session needs about the tour
// being bought and where to send the customer afterwards.
type CheckoutInput struct {
	TourID        string
	TourName      string
	TourSummary   string
	ImageURL      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Price         float64
}

// CreateCheckoutSession asks Stripe for a pending-payment session handle.
func (c *Client) CreateCheckoutSession(in CheckoutInput) (*stripe.CheckoutSession, error) {
	sess, err := session.New(BuildSessionParams(in))
	if err != nil {
		return nil, fmt.Errorf("creating checkout session for tour %s: %w", in.TourID, err)
	}
	return sess, nil
}

// BuildSessionParams maps a tour purchase onto Stripe session parameters.
func BuildSessionParams(in CheckoutInput) *stripe.CheckoutSessionParams {
	var images []*string
	if in.ImageURL != "" {
		images = stripe.StringSlice([]string{in.ImageURL})
	}
	return &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		CustomerEmail:     stripe.String(in.CustomerEmail),
		ClientReferenceID: stripe.String(in.TourID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(int64(in.Price * 100)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(in.TourName + " Tour"),
						Description: stripe.String(in.TourSummary),
						Images:      images,
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
}

// VerifyWebhook checks the Stripe signature header and parses the event.
// Requests that fail verification are rejected before any state changes.
func (c *Client) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, c.webhookSecret)
}
