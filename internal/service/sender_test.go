package service

import (
	"context"
	"testing"
	"time"

	"tranzac/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPDF struct {
	mock.Mock
}

func (m *mockPDF) GenerateEstimatePDF(ctx context.Context, doc models.EstimateDocument) ([]byte, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendEstimate(ctx context.Context, msg models.EstimateEmail) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func rentalFixture() *models.RentalRequest {
	return &models.RentalRequest{
		ID:               "rental-1",
		OrganizationName: "Indie Arts Collective",
		ContactName:      "Sam",
		ContactEmail:     "sam@example.com",
		EventTitle:       "Winter Showcase",
	}
}

func newTestSender(t *testing.T, cms *mockCMS, pdf *mockPDF, mailer *mockMailer) (*EstimateSender, *EstimateService) {
	t.Helper()
	svc, _ := newTestService(t, cms, nil)
	sender := NewEstimateSender(svc, cms, pdf, mailer, time.UTC, serviceLogger())
	return sender, svc
}

func TestSendEstimateMarksSent(t *testing.T) {
	cms := new(mockCMS)
	cms.On("GetBookingSlots", mock.Anything, "rental-1").Return([]models.BookingSlot{saturdayEveningSlot()}, nil)
	cms.On("GetRentalRequest", mock.Anything, "rental-1").Return(rentalFixture(), nil)
	pdf := new(mockPDF)
	pdf.On("GenerateEstimatePDF", mock.Anything, mock.Anything).Return([]byte("%PDF-1.4"), nil)
	mailer := new(mockMailer)
	mailer.On("SendEstimate", mock.Anything, mock.MatchedBy(func(msg models.EstimateEmail) bool {
		return len(msg.To) == 1 && msg.To[0] == "billing@example.com" &&
			msg.AttachName == "cost_estimate_rental-1_v0.pdf" &&
			len(msg.Attachment) > 0
	})).Return(nil)

	sender, svc := newTestSender(t, cms, pdf, mailer)
	_, err := svc.CreateEstimate(context.Background(), "rental-1", "", "admin")
	require.NoError(t, err)

	err = sender.SendEstimate(context.Background(), "rental-1", 0, []string{"billing@example.com"}, "See attached.", "admin")
	require.NoError(t, err)

	est, err := svc.GetEstimate(context.Background(), "rental-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, est.Status)
	mailer.AssertExpectations(t)
}

func TestSendEstimateDefaultsToContactEmail(t *testing.T) {
	cms := new(mockCMS)
	cms.On("GetBookingSlots", mock.Anything, "rental-1").Return([]models.BookingSlot{saturdayEveningSlot()}, nil)
	cms.On("GetRentalRequest", mock.Anything, "rental-1").Return(rentalFixture(), nil)
	pdf := new(mockPDF)
	pdf.On("GenerateEstimatePDF", mock.Anything, mock.Anything).Return([]byte("%PDF-1.4"), nil)
	mailer := new(mockMailer)
	mailer.On("SendEstimate", mock.Anything, mock.MatchedBy(func(msg models.EstimateEmail) bool {
		return len(msg.To) == 1 && msg.To[0] == "sam@example.com"
	})).Return(nil)

	sender, svc := newTestSender(t, cms, pdf, mailer)
	_, err := svc.CreateEstimate(context.Background(), "rental-1", "", "admin")
	require.NoError(t, err)

	err = sender.SendEstimate(context.Background(), "rental-1", 0, nil, "", "admin")
	require.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestSendEstimateNoRecipients(t *testing.T) {
	cms := new(mockCMS)
	cms.On("GetBookingSlots", mock.Anything, "rental-1").Return([]models.BookingSlot{saturdayEveningSlot()}, nil)
	rental := rentalFixture()
	rental.ContactEmail = ""
	cms.On("GetRentalRequest", mock.Anything, "rental-1").Return(rental, nil)

	sender, svc := newTestSender(t, cms, new(mockPDF), new(mockMailer))
	_, err := svc.CreateEstimate(context.Background(), "rental-1", "", "admin")
	require.NoError(t, err)

	err = sender.SendEstimate(context.Background(), "rental-1", 0, nil, "", "admin")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSendEstimatePDFFailureLeavesStatus(t *testing.T) {
	cms := new(mockCMS)
	cms.On("GetBookingSlots", mock.Anything, "rental-1").Return([]models.BookingSlot{saturdayEveningSlot()}, nil)
	cms.On("GetRentalRequest", mock.Anything, "rental-1").Return(rentalFixture(), nil)
	pdf := new(mockPDF)
	pdf.On("GenerateEstimatePDF", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	mailer := new(mockMailer)

	sender, svc := newTestSender(t, cms, pdf, mailer)
	_, err := svc.CreateEstimate(context.Background(), "rental-1", "", "admin")
	require.NoError(t, err)

	err = sender.SendEstimate(context.Background(), "rental-1", 0, nil, "", "admin")
	require.Error(t, err)

	est, err := svc.GetEstimate(context.Background(), "rental-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, est.Status)
	mailer.AssertNotCalled(t, "SendEstimate", mock.Anything, mock.Anything)
}

func TestSendEstimateMailerFailureLeavesStatus(t *testing.T) {
	cms := new(mockCMS)
	cms.On("GetBookingSlots", mock.Anything, "rental-1").Return([]models.BookingSlot{saturdayEveningSlot()}, nil)
	cms.On("GetRentalRequest", mock.Anything, "rental-1").Return(rentalFixture(), nil)
	pdf := new(mockPDF)
	pdf.On("GenerateEstimatePDF", mock.Anything, mock.Anything).Return([]byte("%PDF-1.4"), nil)
	mailer := new(mockMailer)
	mailer.On("SendEstimate", mock.Anything, mock.Anything).Return(assert.AnError)

	sender, svc := newTestSender(t, cms, pdf, mailer)
	_, err := svc.CreateEstimate(context.Background(), "rental-1", "", "admin")
	require.NoError(t, err)

	err = sender.SendEstimate(context.Background(), "rental-1", 0, nil, "", "admin")
	require.Error(t, err)

	est, err := svc.GetEstimate(context.Background(), "rental-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, est.Status)
}

func TestSendEstimateUnknownVersion(t *testing.T) {
	cms := new(mockCMS)
	cms.On("GetBookingSlots", mock.Anything, "rental-1").Return([]models.BookingSlot{saturdayEveningSlot()}, nil)

	sender, svc := newTestSender(t, cms, new(mockPDF), new(mockMailer))
	_, err := svc.CreateEstimate(context.Background(), "rental-1", "", "admin")
	require.NoError(t, err)

	err = sender.SendEstimate(context.Background(), "rental-1", 9, nil, "", "admin")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
