package domain

import (
	"encoding/json"
	"strings"

	"github.com/allisson/webhook-ledger/internal/errors"
)

// UnknownEventType is used when the envelope carries no event type at all.
const UnknownEventType = "UNKNOWN_EVENT"

// Money is a Square money amount in minor currency units.
type Money struct {
	Amount   *int64 `json:"amount"`
	Currency string `json:"currency"`
}

// BillingAddress is the subset of Square's billing address this system reads.
type BillingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Payment is the payment object embedded in a webhook envelope.
type Payment struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	OrderID           string          `json:"order_id"`
	AmountMoney       *Money          `json:"amount_money"`
	BuyerEmailAddress string          `json:"buyer_email_address"`
	Note              string          `json:"note"`
	BillingAddress    *BillingAddress `json:"billing_address"`
}

// StatusOrUnknown returns the payment status, or "UNKNOWN" when absent.
func (p *Payment) StatusOrUnknown() string {
	if p == nil || p.Status == "" {
		return "UNKNOWN"
	}
	return p.Status
}

// LineItem is a single order line item.
type LineItem struct {
	Name          string `json:"name"`
	VariationName string `json:"variation_name"`
	Note          string `json:"note"`
	Quantity      string `json:"quantity"`
}

// Recipient is the named party of a pickup or shipment fulfillment.
type Recipient struct {
	DisplayName  string `json:"display_name"`
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number"`
}

// FulfillmentDetails wraps the recipient of a fulfillment leg.
type FulfillmentDetails struct {
	Recipient *Recipient `json:"recipient"`
}

// Fulfillment is one fulfillment entry of an order.
type Fulfillment struct {
	PickupDetails   *FulfillmentDetails `json:"pickup_details"`
	ShipmentDetails *FulfillmentDetails `json:"shipment_details"`
}

// Order is the subset of a Square order this system reads.
type Order struct {
	ID           string        `json:"id"`
	ReferenceID  string        `json:"reference_id"`
	LineItems    []LineItem    `json:"line_items"`
	Fulfillments []Fulfillment `json:"fulfillments"`
}

// Recipient returns the first fulfillment's recipient, preferring pickup over
// shipment details. Returns nil when the order has no usable recipient.
func (o *Order) Recipient() *Recipient {
	if o == nil || len(o.Fulfillments) == 0 {
		return nil
	}
	f := o.Fulfillments[0]
	if f.PickupDetails != nil && f.PickupDetails.Recipient != nil {
		return f.PickupDetails.Recipient
	}
	if f.ShipmentDetails != nil && f.ShipmentDetails.Recipient != nil {
		return f.ShipmentDetails.Recipient
	}
	return nil
}

// Envelope is the outer shape of a Square webhook notification. Every field is
// optional on the wire; access goes through the nil-safe methods below.
type Envelope struct {
	EventIDField string `json:"event_id"`
	IDField      string `json:"id"`
	Type         string `json:"type"`
	EventType    string `json:"event_type"`
	Data         *struct {
		Object *struct {
			Payment *Payment `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

// ParsePayload decodes a raw webhook body into an envelope.
func ParsePayload(rawBody []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, errors.Wrap(err, "failed to parse webhook payload")
	}
	return &env, nil
}

// EventID returns the event identifier, trying event_id then id.
// Returns "" when the envelope carries neither.
func (e *Envelope) EventID() string {
	if e.EventIDField != "" {
		return e.EventIDField
	}
	return e.IDField
}

// EventTypeOrUnknown returns the event type, trying type then event_type.
func (e *Envelope) EventTypeOrUnknown() string {
	if e.Type != "" {
		return e.Type
	}
	if e.EventType != "" {
		return e.EventType
	}
	return UnknownEventType
}

// Payment returns the embedded payment object, or nil.
func (e *Envelope) Payment() *Payment {
	if e.Data == nil || e.Data.Object == nil {
		return nil
	}
	return e.Data.Object.Payment
}

// BuyerName resolves the buyer's display name. The fulfillment recipient takes
// priority over the payment's billing address name.
func BuyerName(order *Order, payment *Payment) string {
	if r := order.Recipient(); r != nil && r.DisplayName != "" {
		return r.DisplayName
	}
	if payment != nil && payment.BillingAddress != nil {
		name := strings.TrimSpace(payment.BillingAddress.FirstName + " " + payment.BillingAddress.LastName)
		if name != "" {
			return name
		}
	}
	return ""
}

// BuyerEmail resolves the buyer's email, preferring the fulfillment recipient
// over the payment's buyer email address.
func BuyerEmail(order *Order, payment *Payment) string {
	if r := order.Recipient(); r != nil && r.EmailAddress != "" {
		return r.EmailAddress
	}
	if payment != nil {
		return payment.BuyerEmailAddress
	}
	return ""
}

// BuyerPhone resolves the buyer's phone number. Phone is only ever sourced
// from the fulfillment recipient.
func BuyerPhone(order *Order) string {
	if r := order.Recipient(); r != nil {
		return r.PhoneNumber
	}
	return ""
}
