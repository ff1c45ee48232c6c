package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

// NormalizeOutcome is the result of turning a webhook envelope into a ledger
// row. When Process is false the event is benign but not recordable, and
// Reason explains why.
type NormalizeOutcome struct {
	Process bool
	Reason  string
	Row     domain.LedgerRow
}

// Normalizer turns a verified webhook envelope into a ledger row, enriching it
// with order data from the payment provider when available.
type Normalizer struct {
	orders      OrderFetcher
	resolver    *PackageResolver
	maxRawChars int
	now         func() time.Time
}

// NewNormalizer creates a new Normalizer.
func NewNormalizer(orders OrderFetcher, resolver *PackageResolver, maxRawChars int) *Normalizer {
	return &Normalizer{
		orders:      orders,
		resolver:    resolver,
		maxRawChars: maxRawChars,
		now:         time.Now,
	}
}

// Normalize decides whether an event is recordable and, when it is, builds the
// ledger row. Only payment.* events with a COMPLETED payment produce rows;
// everything else is reported as an ignore with a reason. A failed or missing
// order lookup degrades to payload-only data instead of failing the event.
func (n *Normalizer) Normalize(ctx context.Context, envelope *domain.Envelope, rawBody []byte) (*NormalizeOutcome, error) {
	eventType := envelope.EventTypeOrUnknown()
	payment := envelope.Payment()

	if payment == nil {
		return &NormalizeOutcome{
			Reason: fmt.Sprintf("No payment object for event type %s", eventType),
		}, nil
	}

	paymentStatus := payment.StatusOrUnknown()
	if !strings.HasPrefix(eventType, "payment.") || paymentStatus != "COMPLETED" {
		return &NormalizeOutcome{
			Reason: fmt.Sprintf("Ignored event %s with status %s", eventType, paymentStatus),
		}, nil
	}

	var order *domain.Order
	var notes []string

	if payment.OrderID != "" {
		fetched, err := n.orders.FetchOrder(ctx, payment.OrderID)
		if err != nil {
			return nil, err
		}
		order = fetched
	} else {
		notes = append(notes, domain.NoteNoOrderID)
	}

	packageContext := n.resolver.Resolve(order, payment)
	if packageContext.Note != "" {
		notes = append(notes, packageContext.Note)
	}

	row := domain.LedgerRow{
		Timestamp:     n.now().UTC().Format(time.RFC3339),
		EventID:       envelope.EventID(),
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		PackageCode:   packageContext.PackageCode,
		Currency:      "USD",
		BuyerName:     domain.BuyerName(order, payment),
		BuyerEmail:    domain.BuyerEmail(order, payment),
		BuyerPhone:    domain.BuyerPhone(order),
		PaymentStatus: paymentStatus,
		Notes:         strings.Join(notes, ";"),
		RawEvent:      truncateRunes(string(rawBody), n.maxRawChars),
	}
	if packageContext.PartySize > 0 {
		row.PartySize = strconv.Itoa(packageContext.PartySize)
	}
	if payment.AmountMoney != nil {
		if payment.AmountMoney.Amount != nil {
			row.Amount = strconv.FormatInt(*payment.AmountMoney.Amount, 10)
		}
		if payment.AmountMoney.Currency != "" {
			row.Currency = payment.AmountMoney.Currency
		}
	}

	return &NormalizeOutcome{Process: true, Row: row}, nil
}

// truncateRunes caps the stored raw event without splitting a multibyte
// character.
func truncateRunes(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
