package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/skinclinic/skinclinic/internal/domain/consultation"
	"github.com/skinclinic/skinclinic/internal/domain/identity"
	"github.com/skinclinic/skinclinic/internal/domain/notification"
	"github.com/skinclinic/skinclinic/internal/platform/events"
	"github.com/skinclinic/skinclinic/internal/platform/mpesa"
)

// Gateway is the mobile-money provider.
type Gateway interface {
	Token(ctx context.Context) (*mpesa.AccessToken, error)
	STKPush(ctx context.Context, r mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
}

// Consultations resolves a consultation owned by the calling patient.
type Consultations interface {
	ForPatient(ctx context.Context, userID, id uuid.UUID) (*consultation.Consultation, *identity.Patient, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, templateID string, data map[string]string) (*notification.Notification, error)
}

type Service struct {
	repo          Repository
	gateway       Gateway
	consultations Consultations
	notifier      Notifier
	pub           events.Publisher
	logger        zerolog.Logger
}

func NewService(repo Repository, gateway Gateway, consultations Consultations, notifier Notifier, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		repo:          repo,
		gateway:       gateway,
		consultations: consultations,
		notifier:      notifier,
		pub:           pub,
		logger:        logger.With().Str("component", "billing").Logger(),
	}
}

func (s *Service) Token(ctx context.Context) (*mpesa.AccessToken, error) {
	return s.gateway.Token(ctx)
}

// STKPush forwards a raw push request to the gateway.
func (s *Service) STKPush(ctx context.Context, req STKRequest) (*mpesa.STKPushResponse, error) {
	resp, err := s.gateway.STKPush(ctx, mpesa.STKPushRequest{Phone: req.Phone, Amount: req.Amount})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("checkout_request_id", resp.CheckoutRequestID).Int64("amount", req.Amount).Msg("stk push sent")
	return resp, nil
}

// Amount rounds a price up to the whole shillings the gateway accepts.
func Amount(price decimal.Decimal) int64 {
	return price.Ceil().IntPart()
}

// PayConsultation prompts the patient's handset for the consultation price
// and records a pending payment keyed by the gateway's checkout request.
// A failed attempt, or one whose prompt has expired, can be retried.
func (s *Service) PayConsultation(ctx context.Context, userID, consultationID uuid.UUID, req PayRequest) (*PayResult, error) {
	c, patient, err := s.consultations.ForPatient(ctx, userID, consultationID)
	if err != nil {
		return nil, err
	}
	if c.Status == consultation.StatusCancelled || c.Status == consultation.StatusNoShow {
		return nil, ErrNotPayable
	}

	amount := Amount(c.Price)
	p := &Payment{
		ConsultationID: c.ID,
		Amount:         decimal.NewFromInt(amount),
		Method:         MethodMobileMoney,
	}
	// Claiming first keeps concurrent requests from prompting the handset twice.
	if err := s.repo.Claim(ctx, p, PromptWindow); err != nil {
		return nil, err
	}

	phone := req.Phone
	if phone == "" {
		phone = patient.Phone
	}
	resp, err := s.gateway.STKPush(ctx, mpesa.STKPushRequest{
		Phone:            phone,
		Amount:           amount,
		AccountReference: c.BookingID.String(),
		Description:      c.ServiceName,
	})
	if err != nil {
		if serr := s.repo.SetStatus(ctx, p.ID, StatusFailed); serr != nil {
			s.logger.Error().Err(serr).Str("payment_id", p.ID.String()).Msg("release failed payment claim")
		}
		return nil, err
	}

	if err := s.repo.SetTransaction(ctx, p.ID, resp.CheckoutRequestID); err != nil {
		s.logger.Error().Err(err).Str("payment_id", p.ID.String()).
			Str("checkout_request_id", resp.CheckoutRequestID).Msg("handset prompted but checkout id not stored")
		return nil, err
	}
	p.TransactionID = resp.CheckoutRequestID

	s.logger.Info().Str("consultation_id", c.ID.String()).Str("checkout_request_id", resp.CheckoutRequestID).
		Int64("amount", amount).Msg("consultation payment initiated")

	if s.notifier != nil {
		data := map[string]string{"amount": p.Amount.String(), "booking_id": c.BookingID.String()}
		if _, err := s.notifier.Notify(ctx, c.PatientUserID, notification.TplPaymentRequested, data); err != nil {
			s.logger.Warn().Err(err).Msg("payment notification failed")
		}
	}
	if evt, err := events.NewEvent(events.PaymentInitiated, p); err == nil {
		if err := s.pub.Publish(ctx, evt); err != nil {
			s.logger.Warn().Err(err).Str("event", evt.Type).Msg("publish failed")
		}
	}
	return &PayResult{Payment: p, CustomerMessage: resp.CustomerMessage}, nil
}

// Payment returns the payment of a consultation owned by the calling patient.
func (s *Service) Payment(ctx context.Context, userID, consultationID uuid.UUID) (*Payment, error) {
	c, _, err := s.consultations.ForPatient(ctx, userID, consultationID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByConsultation(ctx, c.ID)
}
