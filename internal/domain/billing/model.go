package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("payment not found")
	ErrAlreadyPaid = errors.New("a payment already exists for this consultation")
	ErrNotPayable  = errors.New("consultation cannot be paid in its current status")

	ErrPaymentInProgress = errors.New("a payment prompt for this consultation is still awaiting the customer")
)

// PromptWindow is how long an STK prompt stays open on the handset. A
// pending payment older than this can be pushed again.
const PromptWindow = 90 * time.Second

type Method string

const (
	MethodCreditCard  Method = "credit_card"
	MethodDebitCard   Method = "debit_card"
	MethodMobileMoney Method = "mobile_money"
	MethodPayPal      Method = "paypal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Payment is the single payment record of a consultation. Retries reuse it.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	ConsultationID uuid.UUID       `json:"consultation_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         Method          `json:"method"`
	TransactionID  string          `json:"transaction_id"`
	Status         Status          `json:"status"`
	PaymentDate    time.Time       `json:"payment_date"`
}

// STKRequest asks the gateway for a push payment outside any consultation.
type STKRequest struct {
	Phone  string `json:"phone" form:"phone" validate:"required"`
	Amount int64  `json:"amount" form:"amount" validate:"required,gt=0"`
}

// PayRequest optionally overrides the phone on the patient's profile.
type PayRequest struct {
	Phone string `json:"phone" form:"phone"`
}

// PayResult is returned after a consultation payment was initiated.
type PayResult struct {
	Payment         *Payment `json:"payment"`
	CustomerMessage string   `json:"customer_message"`
}
