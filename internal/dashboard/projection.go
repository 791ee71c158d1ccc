package dashboard

import (
	"sort"
	"time"

	"viaje-seguro-partner/internal/domain"
)

// Affordances are the actions the partner may request on a booking. They only
// decide what the UI offers; the backend still validates each transition.
type Affordances struct {
	CanApprove        bool `json:"canApprove"`
	CanReject         bool `json:"canReject"`
	CanDeliver        bool `json:"canDeliver"`
	CanConfirmReceipt bool `json:"canConfirmReceipt"`
	CanMarkPaid       bool `json:"canMarkPaid"`
}

// Row is one booking plus the figures every table renders.
type Row struct {
	Booking        domain.Booking `json:"booking"`
	RenterName     string         `json:"renterName"`
	DaysUntilStart int            `json:"daysUntilStart"`
	PaidAmount     float64        `json:"paidAmount"`
	GrossPrice     float64        `json:"grossPrice"`
	RentalDays     int            `json:"rentalDays"`
	Affordances
}

type Stats struct {
	TotalEarnings   float64 `json:"totalEarnings"`
	MonthlyEarnings float64 `json:"monthlyEarnings"`
	ActiveRentals   int     `json:"activeRentals"`
}

// Snapshot is the whole dashboard derived from one booking list. A booking
// can sit in more than one view.
type Snapshot struct {
	Pending     []Row     `json:"pending"`
	Upcoming    []Row     `json:"upcoming"`
	Active      []Row     `json:"active"`
	History     []Row     `json:"history"`
	Stats       Stats     `json:"stats"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Find returns the row of bookingID from the history view.
func (s Snapshot) Find(bookingID string) (Row, bool) {
	for _, r := range s.History {
		if r.Booking.ID == bookingID {
			return r, true
		}
	}
	return Row{}, false
}

// Project recomputes every view and the earnings from scratch.
func Project(bookings []domain.Booking, now time.Time, vatPercent float64) Snapshot {
	snap := Snapshot{
		Pending:     []Row{},
		Upcoming:    []Row{},
		Active:      []Row{},
		History:     make([]Row, 0, len(bookings)),
		GeneratedAt: now,
	}
	today := DateOf(now)

	for _, b := range bookings {
		row := Row{
			Booking:        b,
			RenterName:     b.Renter.FullName(),
			DaysUntilStart: DaysUntil(now, b.StartDate),
			PaidAmount:     PaidAmount(b),
			GrossPrice:     GrossPrice(b.TotalPrice, vatPercent),
			RentalDays:     RentalDays(b.StartDate, b.EndDate),
			Affordances:    AffordancesFor(b),
		}

		if IsPending(b) {
			snap.Pending = append(snap.Pending, row)
		}
		if IsUpcoming(b, now) {
			snap.Upcoming = append(snap.Upcoming, row)
		}
		if IsActive(b) {
			snap.Active = append(snap.Active, row)
		}
		snap.History = append(snap.History, row)

		snap.Stats.TotalEarnings += row.PaidAmount
		if !b.StartDate.IsZero() && DateIn(b.StartDate, now.Location()).SameMonth(today) {
			snap.Stats.MonthlyEarnings += row.PaidAmount
		}
	}
	snap.Stats.ActiveRentals = len(snap.Active)

	byStart := func(rows []Row, desc bool) {
		sort.SliceStable(rows, func(i, j int) bool {
			if desc {
				return rows[i].Booking.StartDate.After(rows[j].Booking.StartDate)
			}
			return rows[i].Booking.StartDate.Before(rows[j].Booking.StartDate)
		})
	}
	byStart(snap.Pending, false)
	byStart(snap.Upcoming, false)
	byStart(snap.Active, false)
	byStart(snap.History, true)

	return snap
}

func IsPending(b domain.Booking) bool {
	return b.Status == domain.BookingStatusPending || b.Status == domain.BookingStatusPaymentCompleted
}

// IsUpcoming holds for approved or delivered bookings that start today or
// later, compared by calendar date.
func IsUpcoming(b domain.Booking, now time.Time) bool {
	if b.Status != domain.BookingStatusApproved && b.Status != domain.BookingStatusDelivered {
		return false
	}
	if b.StartDate.IsZero() {
		return false
	}
	return !DateIn(b.StartDate, now.Location()).Before(DateOf(now))
}

func IsActive(b domain.Booking) bool {
	return b.Status == domain.BookingStatusActive || b.Status == domain.BookingStatusReturned
}

// PaidAmount sums the completed payments made by the booking's renter and
// falls back to the booking total when there are none.
func PaidAmount(b domain.Booking) float64 {
	if !b.HasCompletedPaymentFrom(b.Renter.ID) {
		return b.TotalPrice
	}
	var sum float64
	for _, p := range b.Payments {
		if p.IsCompleted() && p.PayerID == b.Renter.ID {
			sum += p.Amount
		}
	}
	return sum
}

func AffordancesFor(b domain.Booking) Affordances {
	return Affordances{
		CanApprove:        IsPending(b),
		CanReject:         IsPending(b),
		CanDeliver:        b.Status == domain.BookingStatusApproved,
		CanConfirmReceipt: b.Status == domain.BookingStatusReturned,
		CanMarkPaid:       awaitsCash(b),
	}
}

// awaitsCash is true for a live booking paid in cash whose payment has not
// been collected yet.
func awaitsCash(b domain.Booking) bool {
	if b.Status.IsTerminal() || b.Status == domain.BookingStatusUnknown {
		return false
	}
	cash := false
	for _, p := range b.Payments {
		if p.Method != domain.PaymentMethodCash {
			continue
		}
		if p.IsCompleted() {
			return false
		}
		cash = true
	}
	return cash
}
