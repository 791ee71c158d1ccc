package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/logger"
)

// Client is the booking backend as seen by the partner console. Every call is
// made on behalf of the partner whose token is carried by ctx (see
// WithToken).
type Client interface {
	ListPartnerBookings(ctx context.Context) ([]domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error
	ConfirmReturn(ctx context.Context, bookingID string) error
	MarkDelivered(ctx context.Context, bookingID string) error
	MarkPaid(ctx context.Context, bookingID string) error
	SaveDeliveryMedia(ctx context.Context, bookingID string, media domain.DeliveryMedia) error
	ListDeliveryPhotos(ctx context.Context, bookingID string) ([]string, error)
}

type tokenKey struct{}

// WithToken attaches the partner's bearer token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token set by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

type httpClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) ListPartnerBookings(ctx context.Context) ([]domain.Booking, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list_partner_bookings", http.MethodGet, "/bookings/partner", nil, &raw); err != nil {
		return nil, err
	}

	dtos, err := decodeBookingList(raw)
	if err != nil {
		return nil, &domain.NetworkError{Op: "list_partner_bookings", Err: fmt.Errorf("decode: %w", err)}
	}
	bookings := make([]domain.Booking, 0, len(dtos))
	for _, d := range dtos {
		bookings = append(bookings, d.toDomain())
	}
	return bookings, nil
}

// decodeBookingList accepts a bare array or an object wrapping it.
func decodeBookingList(raw json.RawMessage) ([]bookingDTO, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var list []bookingDTO
	if raw[0] == '[' {
		err := json.Unmarshal(raw, &list)
		return list, err
	}
	var wrapped struct {
		Bookings []bookingDTO `json:"bookings"`
		Data     []bookingDTO `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Bookings != nil {
		return wrapped.Bookings, nil
	}
	return wrapped.Data, nil
}

func (c *httpClient) UpdateBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	body := map[string]string{"status": string(status)}
	return c.do(ctx, "update_booking_status", http.MethodPatch, bookingPath(bookingID, "status"), body, nil)
}

func (c *httpClient) ConfirmReturn(ctx context.Context, bookingID string) error {
	return c.do(ctx, "confirm_return", http.MethodPost, bookingPath(bookingID, "confirm-return"), nil, nil)
}

func (c *httpClient) MarkDelivered(ctx context.Context, bookingID string) error {
	return c.do(ctx, "mark_delivered", http.MethodPost, bookingPath(bookingID, "delivered"), nil, nil)
}

func (c *httpClient) MarkPaid(ctx context.Context, bookingID string) error {
	return c.do(ctx, "mark_paid", http.MethodPost, bookingPath(bookingID, "mark-paid"), nil, nil)
}

func (c *httpClient) SaveDeliveryMedia(ctx context.Context, bookingID string, media domain.DeliveryMedia) error {
	return c.do(ctx, "save_delivery_media", http.MethodPost, bookingPath(bookingID, "delivery-media"), media, nil)
}

func (c *httpClient) ListDeliveryPhotos(ctx context.Context, bookingID string) ([]string, error) {
	var out deliveryMediaDTO
	if err := c.do(ctx, "list_delivery_photos", http.MethodGet, bookingPath(bookingID, "delivery-media"), nil, &out); err != nil {
		return nil, err
	}
	if out.URLs == nil {
		return []string{}, nil
	}
	return out.URLs, nil
}

func bookingPath(bookingID, action string) string {
	return "/bookings/" + url.PathEscape(bookingID) + "/" + action
}

// do sends one JSON request. Transport failures and non-2xx answers come back
// as *domain.NetworkError; a 401 also matches domain.ErrUnauthorized and a 404
// domain.ErrNotFound.
func (c *httpClient) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger.ExternalServiceCall("backend", op, "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = &domain.NetworkError{Op: op, Err: err}
		logger.ExternalServiceResult("backend", op, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := &domain.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: statusError(resp)}
		logger.ExternalServiceResult("backend", op, err, "status", resp.StatusCode)
		return err
	}
	logger.ExternalServiceResult("backend", op, nil, "status", resp.StatusCode)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &domain.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// statusError extracts the backend's message from an error response.
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))

	var e errorDTO
	if json.Unmarshal(data, &e) == nil {
		if e.Message != "" {
			msg = e.Message
		} else if e.Error != "" {
			msg = e.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	}
	return errors.New(msg)
}
