package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viaje-seguro-partner/internal/domain"
)

var now = time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func booking(id string, status domain.BookingStatus, start time.Time) domain.Booking {
	return domain.Booking{
		ID:         id,
		Status:     status,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, 2),
		TotalPrice: 100,
		Renter:     domain.Renter{ID: "r-" + id},
	}
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Booking.ID)
	}
	return out
}

func TestProject_Classification(t *testing.T) {
	bookings := []domain.Booking{
		booking("pending", domain.BookingStatusPending, day(2026, 11, 1)),
		booking("paid", domain.ParseBookingStatus("completed"), day(2026, 11, 2)),
		booking("approved-today", domain.BookingStatusApproved, day(2026, 10, 18)),
		booking("approved-past", domain.BookingStatusApproved, day(2026, 10, 17)),
		booking("delivered", domain.BookingStatusDelivered, day(2026, 10, 20)),
		booking("active", domain.BookingStatusActive, day(2026, 10, 10)),
		booking("returned", domain.BookingStatusReturned, day(2026, 10, 5)),
		booking("finished", domain.ParseBookingStatus("COMPLETED"), day(2026, 9, 1)),
		booking("declined", domain.BookingStatusDeclined, day(2026, 12, 1)),
	}

	snap := Project(bookings, now, 21)

	assert.ElementsMatch(t, []string{"pending", "paid"}, ids(snap.Pending))
	assert.Equal(t, []string{"approved-today", "delivered"}, ids(snap.Upcoming))
	assert.Equal(t, []string{"returned", "active"}, ids(snap.Active))
	assert.Len(t, snap.History, len(bookings))
	assert.Equal(t, "declined", snap.History[0].Booking.ID)
	assert.Equal(t, 2, snap.Stats.ActiveRentals)

	for _, r := range snap.Pending {
		assert.NotEqual(t, domain.BookingStatusActive, r.Booking.Status)
		assert.NotEqual(t, domain.BookingStatusReturned, r.Booking.Status)
	}
}

func TestProject_ActiveNeverPending(t *testing.T) {
	statuses := []string{"PENDING", "completed", "COMPLETED", "approved", "CONFIRMED", "delivered",
		"ACTIVE", "RETURNED", "FINISHED", "CANCELLED", "DECLINED", "bogus"}
	var bookings []domain.Booking
	for i, s := range statuses {
		bookings = append(bookings, booking(s, domain.ParseBookingStatus(s), now.AddDate(0, 0, i-5)))
	}

	snap := Project(bookings, now, 0)
	active := map[string]bool{}
	for _, r := range snap.Active {
		active[r.Booking.ID] = true
	}
	assert.True(t, active["ACTIVE"])
	assert.True(t, active["RETURNED"])
	for _, r := range snap.Pending {
		assert.False(t, active[r.Booking.ID], r.Booking.ID)
	}
}

func TestProject_Earnings(t *testing.T) {
	first := domain.Booking{
		ID: "b-1", Status: domain.BookingStatusFinished, TotalPrice: 100,
		StartDate: day(2026, 10, 2), EndDate: day(2026, 10, 4),
		Renter: domain.Renter{ID: "r-1"},
		Payments: []domain.Payment{
			{ID: "p-1", PayerID: "r-1", Amount: 90, Status: "COMPLETED", Method: domain.PaymentMethodStripe},
			{ID: "p-2", PayerID: "someone-else", Amount: 500, Status: "COMPLETED", Method: domain.PaymentMethodStripe},
		},
	}
	second := domain.Booking{
		ID: "b-2", Status: domain.BookingStatusFinished, TotalPrice: 50,
		StartDate: day(2026, 8, 2), EndDate: day(2026, 8, 3),
		Renter: domain.Renter{ID: "r-2"},
	}

	snap := Project([]domain.Booking{first, second}, now, 21)

	assert.Equal(t, 140.0, snap.Stats.TotalEarnings)
	assert.Equal(t, 90.0, snap.Stats.MonthlyEarnings)

	row, ok := snap.Find("b-1")
	require.True(t, ok)
	assert.Equal(t, 90.0, row.PaidAmount)
	assert.Equal(t, 121.0, row.GrossPrice)
	assert.Equal(t, 3, row.RentalDays)

	_, ok = snap.Find("missing")
	assert.False(t, ok)
}

func TestPaidAmount(t *testing.T) {
	b := domain.Booking{TotalPrice: 80, Renter: domain.Renter{ID: "r"}}
	assert.Equal(t, 80.0, PaidAmount(b))

	b.Payments = []domain.Payment{{PayerID: "r", Amount: 30, Status: "pending"}}
	assert.Equal(t, 80.0, PaidAmount(b))

	b.Payments = append(b.Payments,
		domain.Payment{PayerID: "r", Amount: 30, Status: "completed"},
		domain.Payment{PayerID: "r", Amount: 25, Status: "COMPLETED"})
	assert.Equal(t, 55.0, PaidAmount(b))
}

func TestAffordancesFor(t *testing.T) {
	tests := []struct {
		status domain.BookingStatus
		want   Affordances
	}{
		{domain.BookingStatusPending, Affordances{CanApprove: true, CanReject: true}},
		{domain.BookingStatusPaymentCompleted, Affordances{CanApprove: true, CanReject: true}},
		{domain.BookingStatusApproved, Affordances{CanDeliver: true}},
		{domain.BookingStatusDelivered, Affordances{}},
		{domain.BookingStatusActive, Affordances{}},
		{domain.BookingStatusReturned, Affordances{CanConfirmReceipt: true}},
		{domain.BookingStatusFinished, Affordances{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, AffordancesFor(domain.Booking{Status: tt.status}))
		})
	}

	t.Run("Cash awaiting collection", func(t *testing.T) {
		b := domain.Booking{
			Status:   domain.BookingStatusApproved,
			Payments: []domain.Payment{{Method: domain.PaymentMethodCash, Status: domain.PaymentStatusPending}},
		}
		assert.True(t, AffordancesFor(b).CanMarkPaid)

		b.Payments[0].Status = domain.PaymentStatusCompleted
		assert.False(t, AffordancesFor(b).CanMarkPaid)

		b.Payments[0].Status = domain.PaymentStatusPending
		b.Status = domain.BookingStatusCancelled
		assert.False(t, AffordancesFor(b).CanMarkPaid)
	})
}

func TestProject_RenterName(t *testing.T) {
	b := booking("named", domain.BookingStatusPending, day(2026, 10, 20))
	b.Renter.Name = "Ana"
	b.Renter.LastName = "Diaz"

	snap := Project([]domain.Booking{b}, now, 19)
	require.Len(t, snap.Pending, 1)
	assert.Equal(t, "Ana Diaz", snap.Pending[0].RenterName)
}

func TestIsUpcoming_HostLocation(t *testing.T) {
	bogota := time.FixedZone("COT", -5*60*60)
	// 00:30 on the 18th in Bogota, 05:30 UTC.
	localNow := time.Date(2026, 10, 18, 0, 30, 0, 0, bogota)

	startedYesterday := booking("ts", domain.BookingStatusApproved, time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC))
	assert.False(t, IsUpcoming(startedYesterday, localNow), "22:00 on the 17th local time")

	startsToday := booking("ts-today", domain.BookingStatusApproved, time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC))
	assert.True(t, IsUpcoming(startsToday, localNow))

	dateOnly := booking("date", domain.BookingStatusApproved, day(2026, 10, 18))
	assert.True(t, IsUpcoming(dateOnly, localNow))
	assert.True(t, IsUpcoming(dateOnly, time.Date(2026, 10, 18, 23, 50, 0, 0, bogota)))
	assert.False(t, IsUpcoming(dateOnly, time.Date(2026, 10, 19, 0, 10, 0, 0, bogota)))
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 0, DaysUntil(now, now.Add(-48*time.Hour)))
	assert.Equal(t, 0, DaysUntil(now, now))
	assert.Equal(t, 1, DaysUntil(now, now.Add(time.Hour)))
	assert.Equal(t, 1, DaysUntil(now, now.Add(24*time.Hour)))
	assert.Equal(t, 2, DaysUntil(now, now.Add(25*time.Hour)))
	assert.Equal(t, 0, DaysUntil(now, time.Time{}))
}

func TestRentalDays(t *testing.T) {
	assert.Equal(t, 1, RentalDays(day(2026, 1, 1), day(2026, 1, 1)))
	assert.Equal(t, 31, RentalDays(day(2026, 1, 1), day(2026, 1, 31)))
	assert.Equal(t, 29, RentalDays(day(2024, 2, 1), day(2024, 2, 29)))
	assert.Equal(t, 0, RentalDays(day(2026, 1, 2), day(2026, 1, 1)))
	assert.Equal(t, 0, RentalDays(time.Time{}, day(2026, 1, 1)))
}

func TestGrossPrice(t *testing.T) {
	assert.Equal(t, 121.0, GrossPrice(100, 21))
	assert.Equal(t, 100.0, GrossPrice(100, 0))
	assert.Equal(t, 12.1, GrossPrice(10, 21))
}
