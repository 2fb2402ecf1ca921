package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/entity"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/factory"
	"gopkg.in/gomail.v2"
)

const defaultSendTimeout = 3 * time.Second

var (
	ErrNoRecipient = errors.New("order has no customer email")
	ErrUnavailable = errors.New("mail transport unavailable")
)

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	StoreName   string
	SendTimeout time.Duration
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends order confirmations. A send that outlives the timeout is
// abandoned and reported as a failure; repeated failures open the breaker.
type SMTPMailer struct {
	dialer  dialer
	from    string
	store   string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  logrus.FieldLogger
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	return newSMTPMailer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg)
}

func newSMTPMailer(d dialer, cfg Config) *SMTPMailer {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	store := strings.TrimSpace(cfg.StoreName)
	if store == "" {
		store = "Storefront"
	}

	return &SMTPMailer{
		dialer:  d,
		from:    strings.TrimSpace(cfg.From),
		store:   store,
		timeout: timeout,
		breaker: newBreaker("order-confirmation-mailer"),
		logger:  factory.NewModuleLogger("mailer"),
	}
}

func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, order *entity.Order) error {
	if order == nil || strings.TrimSpace(order.CustomerEmail) == "" {
		return ErrNoRecipient
	}

	msg := m.confirmationMessage(order)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, err := m.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, m.send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
	}).Info("order_confirmation_sent")
	return nil
}

func (m *SMTPMailer) send(ctx context.Context, msg *gomail.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SMTPMailer) confirmationMessage(order *entity.Order) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", strings.TrimSpace(order.CustomerEmail))
	msg.SetHeader("Subject", fmt.Sprintf("%s order %s confirmed", m.store, order.OrderNumber))
	msg.SetBody("text/plain", ConfirmationBody(m.store, order))
	return msg
}

// ConfirmationBody renders the plain-text confirmation for a paid order.
func ConfirmationBody(store string, order *entity.Order) string {
	var b strings.Builder

	name := strings.TrimSpace(order.CustomerName)
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Thank you for shopping with %s. We received your payment for order %s.\n\n", store, order.OrderNumber)

	for _, item := range order.Items {
		fmt.Fprintf(&b, "%d x %s  R %s\n", item.Quantity, item.ProductName, item.TotalPrice().StringFixed(2))
	}
	if len(order.Items) > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total paid: R %s\n\n", order.TotalAmount.StringFixed(2))
	b.WriteString("We will let you know as soon as your order ships.\n")

	return b.String()
}
