package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/entity"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	err   error
	last  *gomail.Message
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.mu.Lock()
	d.calls++
	if len(m) > 0 {
		d.last = m[0]
	}
	delay, err := d.delay, d.err
	d.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return err
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func testOrder() *entity.Order {
	product := "P1"
	return &entity.Order{
		ID:            "order-1",
		OrderNumber:   "ORD-1",
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		TotalAmount:   decimal.NewFromInt(200),
		Items: []entity.OrderItem{
			{ProductID: &product, ProductName: "Linen Dress", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
		},
	}
}

func TestSendOrderConfirmation(t *testing.T) {
	d := &fakeDialer{}
	m := newSMTPMailer(d, Config{From: "shop@example.com", StoreName: "Paitons"})

	if err := m.SendOrderConfirmation(context.Background(), testOrder()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.callCount() != 1 {
		t.Fatalf("expected one send, got %d", d.callCount())
	}
	if got := d.last.GetHeader("To"); len(got) != 1 || got[0] != "jane@example.com" {
		t.Fatalf("unexpected recipient: %v", got)
	}
	if got := d.last.GetHeader("Subject"); len(got) != 1 || !strings.Contains(got[0], "ORD-1") {
		t.Fatalf("unexpected subject: %v", got)
	}
}

func TestSendOrderConfirmationRequiresRecipient(t *testing.T) {
	d := &fakeDialer{}
	m := newSMTPMailer(d, Config{From: "shop@example.com"})
	order := testOrder()
	order.CustomerEmail = " "

	if err := m.SendOrderConfirmation(context.Background(), order); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	if d.callCount() != 0 {
		t.Fatal("expected no send attempt")
	}
}

func TestSendOrderConfirmationTimesOut(t *testing.T) {
	d := &fakeDialer{delay: 200 * time.Millisecond}
	m := newSMTPMailer(d, Config{From: "shop@example.com", SendTimeout: 20 * time.Millisecond})

	start := time.Now()
	err := m.SendOrderConfirmation(context.Background(), testOrder())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Fatalf("expected send to be abandoned at the timeout, took %v", elapsed)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	d := &fakeDialer{err: errors.New("smtp: connection refused")}
	m := newSMTPMailer(d, Config{From: "shop@example.com"})

	for i := 0; i < 3; i++ {
		if err := m.SendOrderConfirmation(context.Background(), testOrder()); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}

	err := m.SendOrderConfirmation(context.Background(), testOrder())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable once breaker is open, got %v", err)
	}
	if d.callCount() != 3 {
		t.Fatalf("expected open breaker to skip the transport, got %d calls", d.callCount())
	}
}

func TestConfirmationBody(t *testing.T) {
	body := ConfirmationBody("Paitons", testOrder())

	for _, want := range []string{"Hi Jane Doe", "order ORD-1", "2 x Linen Dress  R 200.00", "Total paid: R 200.00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q, got:\n%s", want, body)
		}
	}
}
