package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"viaje-seguro-partner/internal/domain"
	"viaje-seguro-partner/internal/service"
	"viaje-seguro-partner/internal/storage"
)

type MockBackendClient struct {
	mock.Mock
}

func (m *MockBackendClient) ListPartnerBookings(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBackendClient) UpdateBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	args := m.Called(ctx, bookingID, status)
	return args.Error(0)
}

func (m *MockBackendClient) ConfirmReturn(ctx context.Context, bookingID string) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

func (m *MockBackendClient) MarkDelivered(ctx context.Context, bookingID string) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

func (m *MockBackendClient) MarkPaid(ctx context.Context, bookingID string) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

func (m *MockBackendClient) SaveDeliveryMedia(ctx context.Context, bookingID string, media domain.DeliveryMedia) error {
	args := m.Called(ctx, bookingID, media)
	return args.Error(0)
}

func (m *MockBackendClient) ListDeliveryPhotos(ctx context.Context, bookingID string) ([]string, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadFiles(ctx context.Context, prefix string, files []storage.File) ([]string, error) {
	args := m.Called(ctx, prefix, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Create(ctx context.Context, audit *domain.ActionAudit) error {
	args := m.Called(ctx, audit)
	return args.Error(0)
}

func (m *MockAuditRepo) ListByBooking(ctx context.Context, partnerID, bookingID string, limit int32) ([]domain.ActionAudit, error) {
	args := m.Called(ctx, partnerID, bookingID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ActionAudit), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendDeliveryReceipt(ctx context.Context, partner domain.Partner, receipt service.Receipt) error {
	args := m.Called(ctx, partner, receipt)
	return args.Error(0)
}

// auditWith matches an audit by action and outcome.
func auditWith(action, outcome string) interface{} {
	return mock.MatchedBy(func(a *domain.ActionAudit) bool {
		return a.Action == action && a.Outcome == outcome
	})
}
