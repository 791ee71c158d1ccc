package backend

import (
	"strings"
	"time"

	"viaje-seguro-partner/internal/domain"
)

// Wire shapes of the booking API. Prices and amounts arrive as numbers or
// numeric strings depending on the endpoint version, so flexNumber absorbs
// both.

type bookingDTO struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	StartDate  string       `json:"startDate"`
	EndDate    string       `json:"endDate"`
	TotalPrice flexNumber   `json:"totalPrice"`
	Payments   []paymentDTO `json:"payments"`
	Renter     renterDTO    `json:"renter"`
	Offer      offerDTO     `json:"offer"`
}

type paymentDTO struct {
	ID      string     `json:"id"`
	PayerID string     `json:"payerId"`
	Amount  flexNumber `json:"amount"`
	Status  string     `json:"status"`
	Method  string     `json:"method"`
	PaidAt  string     `json:"paidAt"`
}

type renterDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Phone    string `json:"phone"`
}

type offerDTO struct {
	ID               string     `json:"id"`
	WithdrawLocation string     `json:"withdrawLocation"`
	ReturnLocation   string     `json:"returnLocation"`
	PricePerDay      flexNumber `json:"pricePerDay"`
	Vehicle          vehicleDTO `json:"vehicle"`
}

type vehicleDTO struct {
	Brand  string   `json:"brand"`
	Model  string   `json:"model"`
	Year   int      `json:"year"`
	Images []string `json:"images"`
	Plate  string   `json:"plate"`
}

type deliveryMediaDTO struct {
	URLs []string `json:"urls"`
}

type errorDTO struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (d bookingDTO) toDomain() domain.Booking {
	b := domain.Booking{
		ID:         d.ID,
		Status:     domain.ParseBookingStatus(d.Status),
		RawStatus:  d.Status,
		StartDate:  parseTime(d.StartDate),
		EndDate:    parseTime(d.EndDate),
		TotalPrice: float64(d.TotalPrice),
		Renter: domain.Renter{
			ID:       d.Renter.ID,
			Name:     d.Renter.Name,
			LastName: d.Renter.LastName,
			Phone:    d.Renter.Phone,
		},
		Offer: domain.Offer{
			ID:               d.Offer.ID,
			WithdrawLocation: d.Offer.WithdrawLocation,
			ReturnLocation:   d.Offer.ReturnLocation,
			PricePerDay:      float64(d.Offer.PricePerDay),
			Vehicle: domain.Vehicle{
				Brand:  d.Offer.Vehicle.Brand,
				Model:  d.Offer.Vehicle.Model,
				Year:   d.Offer.Vehicle.Year,
				Images: d.Offer.Vehicle.Images,
				Plate:  d.Offer.Vehicle.Plate,
			},
		},
	}
	for _, p := range d.Payments {
		payment := domain.Payment{
			ID:      p.ID,
			PayerID: p.PayerID,
			Amount:  float64(p.Amount),
			Status:  domain.PaymentStatus(strings.ToUpper(p.Status)),
			Method:  domain.PaymentMethod(strings.ToUpper(p.Method)),
		}
		if t := parseTime(p.PaidAt); !t.IsZero() {
			payment.PaidAt = &t
		}
		b.Payments = append(b.Payments, payment)
	}
	return b
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseTime returns the zero time for empty or unparseable values.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
