package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"viaje-seguro-partner/internal/capture"
	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/logger"
)

// Receipt summarises the evidence recorded for one delivery phase.
type Receipt struct {
	BookingID string
	Phase     domain.DeliveryPhase
	Mileage   *int64
	URLs      []string
	Degraded  bool
}

type ReceiptNotifier interface {
	SendDeliveryReceipt(ctx context.Context, partner domain.Partner, receipt Receipt) error
}

// NopNotifier is used when no email provider is configured.
type NopNotifier struct{}

func (NopNotifier) SendDeliveryReceipt(ctx context.Context, partner domain.Partner, receipt Receipt) error {
	return nil
}

type sendFunc func(ctx context.Context, message *mail.SGMailV3) (status int, body string, err error)

type sendGridNotifier struct {
	fromEmail string
	fromName  string
	send      sendFunc
}

// NewSendGridNotifier returns NopNotifier when apiKey is empty.
func NewSendGridNotifier(apiKey, fromEmail, fromName string) ReceiptNotifier {
	if apiKey == "" {
		return NopNotifier{}
	}
	client := sendgrid.NewSendClient(apiKey)
	return &sendGridNotifier{
		fromEmail: fromEmail,
		fromName:  fromName,
		send: func(ctx context.Context, message *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, message)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}
}

func (n *sendGridNotifier) SendDeliveryReceipt(ctx context.Context, partner domain.Partner, receipt Receipt) error {
	if partner.Email == "" {
		logger.Debug("Skipping delivery receipt, partner has no email", "partnerID", partner.ID)
		return nil
	}

	message, err := n.buildReceipt(partner, receipt)
	if err != nil {
		return err
	}

	logger.ExternalServiceCall("sendgrid", "send", "bookingID", receipt.BookingID)
	status, body, err := n.send(ctx, message)
	if err == nil && status >= 400 {
		err = fmt.Errorf("sendgrid returned status %d: %s", status, body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "bookingID", receipt.BookingID)
	if err != nil {
		return fmt.Errorf("failed to send delivery receipt: %w", err)
	}
	return nil
}

func (n *sendGridNotifier) buildReceipt(partner domain.Partner, receipt Receipt) (*mail.SGMailV3, error) {
	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail("", partner.Email)
	subject := fmt.Sprintf("%s photos recorded for booking %s", phaseTitle(receipt.Phase), receipt.BookingID)

	var html bytes.Buffer
	if err := receiptTemplate.Execute(&html, receiptData(receipt)); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return mail.NewSingleEmail(from, subject, to, receiptText(receipt), html.String()), nil
}

func phaseTitle(p domain.DeliveryPhase) string {
	if p == domain.DeliveryPhaseOwnerPost {
		return "Return"
	}
	return "Delivery"
}

type receiptView struct {
	Title     string
	BookingID string
	Mileage   string
	Photos    []receiptPhoto
	Degraded  bool
}

type receiptPhoto struct {
	Label string
	URL   string
}

func receiptData(r Receipt) receiptView {
	v := receiptView{
		Title:     phaseTitle(r.Phase),
		BookingID: r.BookingID,
		Mileage:   "not recorded",
		Degraded:  r.Degraded,
	}
	if r.Mileage != nil {
		v.Mileage = fmt.Sprintf("%d km", *r.Mileage)
	}
	for i, u := range r.URLs {
		label := fmt.Sprintf("Photo %d", i+1)
		if i < capture.StepCount {
			label = capture.Steps[i].Label
		}
		v.Photos = append(v.Photos, receiptPhoto{Label: label, URL: u})
	}
	return v
}

func receiptText(r Receipt) string {
	v := receiptData(r)
	var b strings.Builder
	fmt.Fprintf(&b, "%s photos for booking %s\n", v.Title, v.BookingID)
	fmt.Fprintf(&b, "Mileage: %s\n", v.Mileage)
	if v.Degraded {
		b.WriteString("The photos were uploaded but the booking service did not record them.\n")
	}
	for _, p := range v.Photos {
		fmt.Fprintf(&b, "- %s: %s\n", p.Label, p.URL)
	}
	return b.String()
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<html>
<body>
<h2>{{.Title}} photos for booking {{.BookingID}}</h2>
<p>Mileage: <strong>{{.Mileage}}</strong></p>
{{if .Degraded}}<p>The photos were uploaded but the booking service did not record them.</p>{{end}}
<ul>
{{range .Photos}}<li><a href="{{.URL}}">{{.Label}}</a></li>
{{end}}</ul>
<p>Viaje Seguro</p>
</body>
</html>`))
