package invoicing

// PaymentStatus tracks the payment side of an invoice. It is carried and
// persisted by the reconciliation engine but never drives fulfillment.
type PaymentStatus string

const (
	PaymentStatusPaid          PaymentStatus = "PAID"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusPending       PaymentStatus = "PENDING"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
	PaymentStatusCancelled     PaymentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusPartiallyPaid, PaymentStatusPending,
		PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}
