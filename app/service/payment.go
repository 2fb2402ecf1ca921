package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/entity"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/factory"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/provider"
	"go.opentelemetry.io/otel"
)

const maxItemDescription = 255

var tracer = otel.Tracer("github.com/vibast-solutions/ms-go-storefront-payments/app/service")

type createPaymentRequest interface {
	GetOrderId() string
}

type orderRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*entity.Order, error)
	SettleOrder(ctx context.Context, settlement *entity.Settlement) (*entity.SettlementResult, error)
}

type notificationAuditRepository interface {
	Create(ctx context.Context, audit *entity.NotificationAudit) error
}

type paymentGateway interface {
	BuildPaymentRequest(input *provider.PaymentInput) (*provider.PaymentRequest, error)
	PaymentURL() string
	ParseNotification(body []byte) (*provider.Notification, error)
	VerifyNotification(n *provider.Notification) bool
	SourceAllowed(ip string) bool
}

type confirmationMailer interface {
	SendOrderConfirmation(ctx context.Context, order *entity.Order) error
}

type notificationMetrics interface {
	RecordNotification(outcome string)
	RecordStockShortfalls(count int)
	RecordEmailFailure()
}

type PaymentForm struct {
	URL     string
	Request *provider.PaymentRequest
}

type PaymentService struct {
	orderRepo orderRepository
	auditRepo notificationAuditRepository
	gateway   paymentGateway
	mailer    confirmationMailer
	metrics   notificationMetrics
	logger    logrus.FieldLogger
}

// NewPaymentService wires the payment core. mailer and metrics may be nil.
func NewPaymentService(
	orderRepo orderRepository,
	auditRepo notificationAuditRepository,
	gateway paymentGateway,
	mailer confirmationMailer,
	metrics notificationMetrics,
) *PaymentService {
	return &PaymentService{
		orderRepo: orderRepo,
		auditRepo: auditRepo,
		gateway:   gateway,
		mailer:    mailer,
		metrics:   metrics,
		logger:    factory.NewModuleLogger("payment-service"),
	}
}

func (s *PaymentService) CreatePayment(ctx context.Context, req createPaymentRequest) (*PaymentForm, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.CreatePayment")
	defer span.End()

	orderID := strings.TrimSpace(req.GetOrderId())
	if orderID == "" {
		return nil, ErrInvalidRequest
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus != entity.PaymentStatusPending {
		return nil, ErrInvalidStatus
	}

	paymentReq, err := s.gateway.BuildPaymentRequest(&provider.PaymentInput{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		Amount:        order.TotalAmount,
		Description:   describeItems(order.Items),
	})
	if err != nil {
		if errors.Is(err, provider.ErrInvalidPaymentInput) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, err
	}

	return &PaymentForm{URL: s.gateway.PaymentURL(), Request: paymentReq}, nil
}

func (s *PaymentService) GetOrderPayment(ctx context.Context, reference string) (*entity.Order, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrInvalidRequest
	}

	order, err := s.orderRepo.FindByOrderNumber(ctx, reference)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func describeItems(items []entity.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.ProductName)
		if name == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d x %s", item.Quantity, name))
	}
	return truncate(strings.Join(parts, ", "), maxItemDescription)
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := value[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
