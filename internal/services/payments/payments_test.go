package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSessionParams(t *testing.T) {
	params := BuildSessionParams(CheckoutInput{
		TourID:        "5c88fa8cf4afda39709c2955",
		TourName:      "The Sea Explorer",
		TourSummary:   "Exploring the jaw-dropping US east coast by foot and by boat",
		ImageURL:      "https://example.com/img/tours/tour-2-cover.jpg",
		CustomerEmail: "ava@x.com",
		SuccessURL:    "https://example.com/my-tours",
		CancelURL:     "https://example.com/tour/the-sea-explorer",
		Price:         497,
	})

	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, "5c88fa8cf4afda39709c2955", *params.ClientReferenceID)
	assert.Equal(t, "ava@x.com", *params.CustomerEmail)

	require.Len(t, params.LineItems, 1)
	item := params.LineItems[0]
	assert.EqualValues(t, 1, *item.Quantity)
	assert.EqualValues(t, 49700, *item.PriceData.UnitAmount)
	assert.Equal(t, "usd", *item.PriceData.Currency)
	assert.Equal(t, "The Sea Explorer Tour", *item.PriceData.ProductData.Name)
	require.Len(t, item.PriceData.ProductData.Images, 1)
}

func TestBuildSessionParamsWithoutImage(t *testing.T) {
	params := BuildSessionParams(CheckoutInput{TourID: "x", TourName: "T", Price: 100})
	assert.Nil(t, params.LineItems[0].PriceData.ProductData.Images)
}

func TestVerifyWebhookRejectsBadSignature(t *testing.T) {
	c := New("sk_test_x", "whsec_test")

	_, err := c.VerifyWebhook([]byte(`{"type":"checkout.session.completed"}`), "t=1,v1=bad")
	assert.Error(t, err)
}
