package domain

// PackageContext is the derived package descriptor for a payment. PartySize is
// zero when unknown; Note carries a diagnostic explaining how (or whether) the
// package was resolved.
type PackageContext struct {
	PackageCode string
	PartySize   int
	Note        string
}

// Diagnostic notes produced by package resolution and normalization.
const (
	NotePackageCodeNotInMap      = "PACKAGE_CODE_NOT_IN_MAP"
	NotePackageInferredFromText  = "PACKAGE_INFERRED_FROM_TEXT"
	NotePackageInferredFromQty   = "PACKAGE_INFERRED_FROM_QUANTITY"
	NoteUnmappedPackage          = "UNMAPPED_PACKAGE"
	NoteNoOrderID                = "NO_ORDER_ID"
	UnmappedPackageCode          = "UNMAPPED_PACKAGE"
)

// LedgerRow is the canonical output row for one processed payment event. The
// ledger schema is a fixed 14-column sheet; Values returns the columns in
// order, and that order is part of the external contract.
type LedgerRow struct {
	Timestamp     string
	EventID       string
	PaymentID     string
	OrderID       string
	PackageCode   string
	PartySize     string
	Amount        string
	Currency      string
	BuyerName     string
	BuyerEmail    string
	BuyerPhone    string
	PaymentStatus string
	Notes         string
	RawEvent      string
}

// Values returns the row as the ordered 14-column slice appended to the ledger.
func (r LedgerRow) Values() []string {
	return []string{
		r.Timestamp,
		r.EventID,
		r.PaymentID,
		r.OrderID,
		r.PackageCode,
		r.PartySize,
		r.Amount,
		r.Currency,
		r.BuyerName,
		r.BuyerEmail,
		r.BuyerPhone,
		r.PaymentStatus,
		r.Notes,
		r.RawEvent,
	}
}
