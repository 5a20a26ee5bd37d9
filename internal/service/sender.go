package service

import (
	"context"
	"fmt"
	"time"

	"tranzac/internal/domain"
	"tranzac/internal/metrics"
	"tranzac/internal/models"

	"github.com/rs/zerolog"
)

// EstimateSender renders one version to PDF, emails it, and only then
// marks the estimate sent. A failure at any step leaves the status
// untouched so the admin can retry.
type EstimateSender struct {
	estimates *EstimateService
	cms       domain.CMSClient
	pdf       domain.PDFGenerator
	mailer    domain.Mailer
	loc       *time.Location
	logger    *zerolog.Logger
}

func NewEstimateSender(
	estimates *EstimateService,
	cms domain.CMSClient,
	pdf domain.PDFGenerator,
	mailer domain.Mailer,
	loc *time.Location,
	logger *zerolog.Logger,
) *EstimateSender {
	if loc == nil {
		loc = time.UTC
	}
	return &EstimateSender{
		estimates: estimates,
		cms:       cms,
		pdf:       pdf,
		mailer:    mailer,
		loc:       loc,
		logger:    logger,
	}
}

// SendEstimate delivers a version to the given recipients. When no
// recipients are passed, the rental's contact email is used.
func (s *EstimateSender) SendEstimate(ctx context.Context, rentalRequestID string, version int, recipients []string, message, changedBy string) error {
	v, err := s.estimates.GetVersion(ctx, rentalRequestID, version)
	if err != nil {
		metrics.IncEstimateSent("error")
		return err
	}

	rental, err := s.cms.GetRentalRequest(ctx, rentalRequestID)
	if err != nil {
		metrics.IncEstimateSent("error")
		return err
	}

	if len(recipients) == 0 {
		if rental.ContactEmail == "" {
			metrics.IncEstimateSent("error")
			return fmt.Errorf("no recipients and rental has no contact email: %w", models.ErrValidation)
		}
		recipients = []string{rental.ContactEmail}
	}

	doc := BuildDocument(rental, v, s.loc, time.Now())

	started := time.Now()
	pdfBytes, err := s.pdf.GenerateEstimatePDF(ctx, doc)
	metrics.ObservePDFGeneration(time.Since(started).Seconds())
	if err != nil {
		metrics.IncEstimateSent("error")
		return fmt.Errorf("generate estimate pdf: %w", err)
	}

	email := models.EstimateEmail{
		To:         recipients,
		Subject:    fmt.Sprintf("Cost Estimate for Rental Request %s", rentalRequestID),
		Body:       s.emailBody(rental, message),
		Attachment: pdfBytes,
		AttachName: fmt.Sprintf("cost_estimate_%s_v%d.pdf", rentalRequestID, version),
	}
	if err := s.mailer.SendEstimate(ctx, email); err != nil {
		metrics.IncEstimateSent("error")
		return fmt.Errorf("send estimate email: %w", err)
	}

	// Email is out; now record the send. A failure here is logged, not
	// returned, so the client does not retry a delivery that happened.
	if _, err := s.estimates.ChangeStatus(ctx, rentalRequestID, models.StatusSent, changedBy); err != nil {
		s.logger.Error().Err(err).
			Str("rental_request_id", rentalRequestID).
			Int("version", version).
			Msg("Estimate emailed but status update failed")
	}

	metrics.IncEstimateSent("ok")
	s.logger.Info().
		Str("rental_request_id", rentalRequestID).
		Int("version", version).
		Strs("recipients", recipients).
		Msg("Estimate sent")
	return nil
}

func (s *EstimateSender) emailBody(rental *models.RentalRequest, message string) string {
	greeting := "Hello"
	if rental.ContactName != "" {
		greeting = fmt.Sprintf("Hello %s", rental.ContactName)
	}
	body := fmt.Sprintf("<p>%s,</p><p>Please find attached your cost estimate for rental request %s.</p>", greeting, rental.ID)
	if message != "" {
		body += fmt.Sprintf("<p>%s</p>", message)
	}
	return body
}
