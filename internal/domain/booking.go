package domain

import (
	"strings"
	"time"
)

// BookingStatus is the canonical status of a booking. Raw backend values are
// normalized once, at ingestion, by ParseBookingStatus.
type BookingStatus string

const (
	BookingStatusPending          BookingStatus = "PENDING"
	BookingStatusPaymentCompleted BookingStatus = "PAYMENT_COMPLETED"
	BookingStatusApproved         BookingStatus = "APPROVED"
	BookingStatusDelivered        BookingStatus = "DELIVERED"
	BookingStatusActive           BookingStatus = "ACTIVE"
	BookingStatusReturned         BookingStatus = "RETURNED"
	BookingStatusFinished         BookingStatus = "FINISHED"
	BookingStatusCompleted        BookingStatus = "COMPLETED"
	BookingStatusCancelled        BookingStatus = "CANCELLED"
	BookingStatusDeclined         BookingStatus = "DECLINED"
	BookingStatusUnknown          BookingStatus = "UNKNOWN"
)

// ParseBookingStatus maps the status strings seen on the wire to one
// canonical value.
//
// Casing matters for exactly one value: the lowercase "completed" is the
// payment-completed state that still awaits the owner's approval, while the
// uppercase "COMPLETED" is the terminal state after the return was accepted.
func ParseBookingStatus(raw string) BookingStatus {
	s := strings.TrimSpace(raw)
	if s == "completed" {
		return BookingStatusPaymentCompleted
	}
	switch strings.ToUpper(s) {
	case "PENDING":
		return BookingStatusPending
	case "PAYMENT_COMPLETED":
		return BookingStatusPaymentCompleted
	case "APPROVED", "CONFIRMED":
		return BookingStatusApproved
	case "DELIVERED":
		return BookingStatusDelivered
	case "ACTIVE":
		return BookingStatusActive
	case "RETURNED":
		return BookingStatusReturned
	case "FINISHED":
		return BookingStatusFinished
	case "COMPLETED":
		return BookingStatusCompleted
	case "CANCELLED", "CANCELED":
		return BookingStatusCancelled
	case "DECLINED", "REJECTED":
		return BookingStatusDeclined
	default:
		return BookingStatusUnknown
	}
}

// IsTerminal reports whether no further transition is expected.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusFinished, BookingStatusCompleted, BookingStatusCancelled, BookingStatusDeclined:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "STRIPE"
	PaymentMethodCash   PaymentMethod = "CASH"
)

type Payment struct {
	ID      string        `json:"id"`
	PayerID string        `json:"payerId"`
	Amount  float64       `json:"amount"`
	Status  PaymentStatus `json:"status"`
	Method  PaymentMethod `json:"method"`
	PaidAt  *time.Time    `json:"paidAt,omitempty"`
}

// IsCompleted tolerates the mixed casing the backend uses for payment rows.
func (p Payment) IsCompleted() bool {
	return strings.EqualFold(string(p.Status), string(PaymentStatusCompleted))
}

type Renter struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Phone    string `json:"phone"`
}

func (r Renter) FullName() string {
	return strings.TrimSpace(r.Name + " " + r.LastName)
}

type Vehicle struct {
	Brand  string   `json:"brand"`
	Model  string   `json:"model"`
	Year   int      `json:"year"`
	Images []string `json:"images"`
	Plate  string   `json:"plate"`
}

// Offer is the partner's published listing the booking was made against.
// It is denormalized into the booking and read-only here.
type Offer struct {
	ID               string  `json:"id,omitempty"`
	Vehicle          Vehicle `json:"vehicle"`
	WithdrawLocation string  `json:"withdrawLocation"`
	ReturnLocation   string  `json:"returnLocation"`
	PricePerDay      float64 `json:"pricePerDay,omitempty"`
}

type Booking struct {
	ID         string        `json:"id"`
	Status     BookingStatus `json:"status"`
	RawStatus  string        `json:"rawStatus,omitempty"`
	StartDate  time.Time     `json:"startDate"`
	EndDate    time.Time     `json:"endDate"`
	TotalPrice float64       `json:"totalPrice"`
	Payments   []Payment     `json:"payments"`
	Renter     Renter        `json:"renter"`
	Offer      Offer         `json:"offer"`
}

// HasCompletedPaymentFrom reports whether the renter with the given id has at
// least one completed payment on this booking.
func (b Booking) HasCompletedPaymentFrom(renterID string) bool {
	for _, p := range b.Payments {
		if p.IsCompleted() && p.PayerID == renterID {
			return true
		}
	}
	return false
}
