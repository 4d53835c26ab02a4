package lib

import (
	"context"
	"fmt"
	"math"
	"os"

	"pms/src/models"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// CreateBookingCheckout opens a hosted checkout session for the booking
// amount. The booking id rides along as metadata so the webhook can route
// the confirmation back to the record.
func CreateBookingCheckout(booking *models.Booking) (*string, *string, error) {
	sc := GetStripeClient()
	appHost := os.Getenv("APP_HOST")
	successUrl := fmt.Sprintf("%s/payment-success?bookingId=%s", appHost, booking.BookingID)
	cancelUrl := fmt.Sprintf("%s/payment-cancel", appHost)

	metadata := map[string]string{
		"booking_id": booking.BookingID,
	}
	piParams := &stripe.CheckoutSessionCreatePaymentIntentDataParams{}
	for k, v := range metadata {
		piParams.AddMetadata(k, v)
	}
	createParams := stripe.CheckoutSessionCreateParams{
		SuccessURL:        stripe.String(successUrl),
		CancelURL:         stripe.String(cancelUrl),
		UIMode:            stripe.String("hosted"),
		Mode:              stripe.String("payment"),
		PaymentIntentData: piParams,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Parking Spot - %s", booking.SpotID)),
					},
					UnitAmount: stripe.Int64(int64(math.Round(float64(booking.TotalPrice) * 100))),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: metadata,
	}

	checkoutSession, err := sc.V1CheckoutSessions.Create(context.Background(), &createParams)
	if err != nil {
		return nil, nil, err
	}
	return &checkoutSession.URL, &checkoutSession.ID, nil
}
