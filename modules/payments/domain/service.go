package domain

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Jbiscode/MSA-Order-Service/modules/shared/events"
)

// Service charges and refunds payments against the customer's credit.
// Rule violations do not fail the call; they are reported as failure
// messages on a FAILED payment.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ValidateAndInitiatePayment debits the payment price from entry and
// appends a DEBIT row to the ledger.
func (s *Service) ValidateAndInitiatePayment(payment *Payment, entry *CreditEntry, histories []CreditHistory) PaymentEvent {
	failures := payment.validate()
	payment.initialize()

	if payment.price.IsGreaterThan(entry.TotalCreditAmount) {
		s.logger.Error("credit not sufficient for payment",
			slog.String("customer_id", entry.CustomerID.String()),
			slog.String("credit", entry.TotalCreditAmount.String()),
			slog.String("price", payment.price.String()))
		failures = append(failures, fmt.Sprintf("CustomerId: %s 의 금액이 결제하기에 충분하지 않습니다.", entry.CustomerID))
	}
	entry.subtractCreditAmount(payment.price)

	history := newCreditHistory(payment.customerID, payment.price, Debit)
	ledger := append(slices.Clone(histories), history)
	failures = append(failures, s.validateLedger(entry, ledger)...)

	return s.conclude(payment, history, failures, PaymentCompleted, PaymentCompletedEventType)
}

// ValidateAndCancelPayment refunds the payment price to entry and appends
// a CREDIT row to the ledger.
func (s *Service) ValidateAndCancelPayment(payment *Payment, entry *CreditEntry) PaymentEvent {
	failures := payment.validate()
	entry.addCreditAmount(payment.price)
	history := newCreditHistory(payment.customerID, payment.price, Credit)

	return s.conclude(payment, history, failures, PaymentCancelled, PaymentCancelledEventType)
}

func (s *Service) validateLedger(entry *CreditEntry, ledger []CreditHistory) []string {
	var failures []string
	debits, credits := LedgerTotal(ledger, Debit), LedgerTotal(ledger, Credit)

	if debits.IsGreaterThan(credits) {
		s.logger.Error("ledger debits exceed credits",
			slog.String("customer_id", entry.CustomerID.String()),
			slog.String("credits", credits.String()),
			slog.String("debits", debits.String()))
		failures = append(failures, fmt.Sprintf("CustomerId: %s 의 잔액이 부족합니다.", entry.CustomerID))
	}
	if !entry.TotalCreditAmount.Equals(credits.Subtract(debits)) {
		s.logger.Error("credit entry does not match ledger",
			slog.String("customer_id", entry.CustomerID.String()),
			slog.String("credit", entry.TotalCreditAmount.String()),
			slog.String("ledger", credits.Subtract(debits).String()))
		failures = append(failures, fmt.Sprintf("CustomerId: %s 의 잔액이 일치하지 않습니다.", entry.CustomerID))
	}
	return failures
}

func (s *Service) conclude(payment *Payment, history CreditHistory, failures []string, success PaymentStatus, successType events.EventType) PaymentEvent {
	eventType := successType
	if len(failures) == 0 {
		payment.updateStatus(success)
		s.logger.Info("payment succeeded",
			slog.String("order_id", payment.orderID.String()),
			slog.String("status", success.String()))
	} else {
		payment.updateStatus(PaymentFailed)
		eventType = PaymentFailedEventType
		s.logger.Error("payment failed",
			slog.String("order_id", payment.orderID.String()),
			slog.Any("failure_messages", failures))
	}
	return PaymentEvent{
		BaseEvent:       events.NewBaseEvent(eventType, payment.id.String()),
		Payment:         payment,
		History:         history,
		FailureMessages: failures,
	}
}
