package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/entity"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/provider"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxAuditReason = 1024

type handleNotificationRequest interface {
	GetBody() []byte
	GetRemoteIp() string
}

type NotificationResult struct {
	Outcome    string
	Order      *entity.Order
	Shortfalls []entity.StockShortfall
}

type notificationTrace struct {
	reference string
	status    string
	remoteIP  string
}

// HandleNotification processes one gateway notification. Nothing reaches the
// ledger before the notification is verified and matched to its order, and a
// settled order is never settled again.
func (s *PaymentService) HandleNotification(ctx context.Context, req handleNotificationRequest) (*NotificationResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.HandleNotification")
	defer span.End()

	trace := notificationTrace{remoteIP: strings.TrimSpace(req.GetRemoteIp())}

	if !s.gateway.SourceAllowed(trace.remoteIP) {
		s.reject(ctx, trace, "source ip not allowed")
		span.SetStatus(codes.Error, ErrSourceNotAllowed.Error())
		return nil, ErrSourceNotAllowed
	}

	notification, err := s.gateway.ParseNotification(req.GetBody())
	if err != nil {
		s.reject(ctx, trace, err.Error())
		span.SetStatus(codes.Error, ErrMalformedNotification.Error())
		return nil, fmt.Errorf("%w: %v", ErrMalformedNotification, err)
	}
	trace.reference = notification.PaymentID
	trace.status = notification.PaymentStatus
	span.SetAttributes(
		attribute.String("order.reference", trace.reference),
		attribute.String("gateway.status", trace.status),
	)

	if !s.gateway.VerifyNotification(notification) {
		s.logger.WithFields(logrus.Fields{
			"security_event": true,
			"order_number":   trace.reference,
			"payment_status": trace.status,
			"remote_ip":      trace.remoteIP,
		}).Warn("payment_notification_signature_mismatch")
		s.reject(ctx, trace, ErrSignatureMismatch.Error())
		span.SetStatus(codes.Error, ErrSignatureMismatch.Error())
		return nil, ErrSignatureMismatch
	}

	order, err := s.orderRepo.FindByOrderNumber(ctx, notification.PaymentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if order == nil {
		s.reject(ctx, trace, ErrOrderNotFound.Error())
		return nil, ErrOrderNotFound
	}
	if notification.CustomStr1 != "" && notification.CustomStr1 != order.ID {
		s.logger.WithFields(logrus.Fields{
			"security_event": true,
			"order_number":   order.OrderNumber,
			"custom_str1":    notification.CustomStr1,
		}).Warn("payment_notification_reference_mismatch")
		s.reject(ctx, trace, ErrReferenceMismatch.Error())
		return nil, ErrReferenceMismatch
	}
	if !amountMatches(notification.AmountGross, order.TotalAmount) {
		s.logger.WithFields(logrus.Fields{
			"security_event": true,
			"order_number":   order.OrderNumber,
			"amount_gross":   notification.AmountGross,
			"order_total":    provider.FormatAmount(order.TotalAmount),
		}).Warn("payment_notification_amount_mismatch")
		s.reject(ctx, trace, ErrAmountMismatch.Error())
		return nil, ErrAmountMismatch
	}

	class := provider.ClassifyStatus(notification.PaymentStatus)
	if class == provider.StatusUnrecognized {
		s.record(ctx, trace, entity.NotificationOutcomeIgnored, "unrecognized payment status")
		return &NotificationResult{Outcome: entity.NotificationOutcomeIgnored, Order: order}, nil
	}

	if order.PaymentSettled() {
		s.record(ctx, trace, entity.NotificationOutcomeAlreadySettled, "")
		return &NotificationResult{Outcome: entity.NotificationOutcomeAlreadySettled, Order: order}, nil
	}

	settlement := buildSettlement(order, notification, class)
	result, err := s.orderRepo.SettleOrder(ctx, settlement)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			s.reject(ctx, trace, ErrOrderNotFound.Error())
			return nil, ErrOrderNotFound
		}
		s.logger.WithError(err).WithField("order_number", order.OrderNumber).Error("payment_settlement_failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrLedgerWrite.Error())
		return nil, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	if !result.Applied {
		s.record(ctx, trace, entity.NotificationOutcomeAlreadySettled, "settled concurrently")
		return &NotificationResult{Outcome: entity.NotificationOutcomeAlreadySettled, Order: order}, nil
	}

	order.Status = settlement.NewStatus
	order.PaymentStatus = settlement.NewPaymentStatus
	order.UpdatedAt = settlement.SettledAt

	if len(result.Shortfalls) > 0 {
		for _, shortfall := range result.Shortfalls {
			s.logger.WithFields(logrus.Fields{
				"order_number": order.OrderNumber,
				"product_id":   derefString(shortfall.ProductID),
				"variant_id":   derefString(shortfall.VariantID),
				"requested":    shortfall.Requested,
				"available":    shortfall.Available,
			}).Warn("stock_shortfall")
		}
		if s.metrics != nil {
			s.metrics.RecordStockShortfalls(len(result.Shortfalls))
		}
	}

	if class == provider.StatusSettledSuccess {
		s.sendConfirmation(ctx, order)
	}

	s.record(ctx, trace, entity.NotificationOutcomeSettled, "")
	s.logger.WithFields(logrus.Fields{
		"order_number":   order.OrderNumber,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	}).Info("payment_settled")

	return &NotificationResult{
		Outcome:    entity.NotificationOutcomeSettled,
		Order:      order,
		Shortfalls: result.Shortfalls,
	}, nil
}

func buildSettlement(order *entity.Order, n *provider.Notification, class provider.StatusClass) *entity.Settlement {
	settlement := &entity.Settlement{
		OrderID:          order.ID,
		NewStatus:        entity.OrderStatusCancelled,
		NewPaymentStatus: entity.PaymentStatusFailed,
		GatewayStatus:    strings.ToUpper(n.PaymentStatus),
		Items:            order.Items,
		SettledAt:        time.Now().UTC(),
	}
	if class == provider.StatusSettledSuccess {
		settlement.NewStatus = entity.OrderStatusProcessing
		settlement.NewPaymentStatus = entity.PaymentStatusPaid
	}
	if n.GatewayPaymentID != "" {
		id := n.GatewayPaymentID
		settlement.GatewayPaymentID = &id
	}
	return settlement
}

func (s *PaymentService) sendConfirmation(ctx context.Context, order *entity.Order) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendOrderConfirmation(ctx, order); err != nil {
		s.logger.WithError(fmt.Errorf("%w: %v", ErrDownstreamNotification, err)).
			WithField("order_number", order.OrderNumber).
			Error("order_confirmation_failed")
		if s.metrics != nil {
			s.metrics.RecordEmailFailure()
		}
	}
}

func (s *PaymentService) reject(ctx context.Context, trace notificationTrace, reason string) {
	s.record(ctx, trace, entity.NotificationOutcomeRejected, reason)
}

func (s *PaymentService) record(ctx context.Context, trace notificationTrace, outcome, reason string) {
	if s.metrics != nil {
		s.metrics.RecordNotification(outcome)
	}

	var reasonPtr *string
	if reason = strings.TrimSpace(reason); reason != "" {
		trimmed := truncate(reason, maxAuditReason)
		reasonPtr = &trimmed
	}
	_ = s.auditRepo.Create(ctx, &entity.NotificationAudit{
		OrderReference: truncate(trace.reference, 64),
		GatewayStatus:  truncate(trace.status, 32),
		Outcome:        outcome,
		Reason:         reasonPtr,
		RemoteIP:       truncate(trace.remoteIP, 64),
		CreatedAt:      time.Now().UTC(),
	})
}

// amountMatches compares a gateway amount with the order total at cent
// precision. An absent amount is accepted.
func amountMatches(raw string, total decimal.Decimal) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return false
	}
	return provider.FormatAmount(amount) == provider.FormatAmount(total)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
