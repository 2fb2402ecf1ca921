package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/entity"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/provider"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/service"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/types"
)

const controllerPassphrase = "jt7NOE43FZPn"

type controllerOrderRepo struct {
	findByIDFn          func(ctx context.Context, id string) (*entity.Order, error)
	findByOrderNumberFn func(ctx context.Context, orderNumber string) (*entity.Order, error)
	settleOrderFn       func(ctx context.Context, settlement *entity.Settlement) (*entity.SettlementResult, error)
}

func (r *controllerOrderRepo) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	if r.findByIDFn != nil {
		return r.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (r *controllerOrderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*entity.Order, error) {
	if r.findByOrderNumberFn != nil {
		return r.findByOrderNumberFn(ctx, orderNumber)
	}
	return nil, nil
}

func (r *controllerOrderRepo) SettleOrder(ctx context.Context, settlement *entity.Settlement) (*entity.SettlementResult, error) {
	if r.settleOrderFn != nil {
		return r.settleOrderFn(ctx, settlement)
	}
	return &entity.SettlementResult{Applied: true}, nil
}

type controllerAuditRepo struct{}

func (r *controllerAuditRepo) Create(context.Context, *entity.NotificationAudit) error {
	return nil
}

func testGateway(t *testing.T) *provider.PayFastGateway {
	t.Helper()
	gw, err := provider.NewPayFastGateway(provider.PayFastConfig{
		MerchantID:         "10000100",
		MerchantKey:        "46f0cd694581a",
		Passphrase:         controllerPassphrase,
		SignatureAlgorithm: "sha256",
		Sandbox:            true,
		BaseURL:            "https://shop.example.com",
	})
	if err != nil {
		t.Fatalf("failed to build gateway: %v", err)
	}
	return gw
}

func newTestController(t *testing.T, repo *controllerOrderRepo) (*PaymentController, *provider.PayFastGateway) {
	t.Helper()
	gw := testGateway(t)
	paymentService := service.NewPaymentService(repo, &controllerAuditRepo{}, gw, nil, nil)
	return NewPaymentController(paymentService), gw
}

func pendingOrder() *entity.Order {
	product := "P1"
	return &entity.Order{
		ID:            "order-1",
		OrderNumber:   "ORD-1",
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		Status:        entity.OrderStatusPending,
		PaymentStatus: entity.PaymentStatusPending,
		TotalAmount:   decimal.NewFromInt(100),
		Items: []entity.OrderItem{
			{ProductID: &product, ProductName: "Linen Dress", Quantity: 1, UnitPrice: decimal.NewFromInt(100)},
		},
	}
}

func signedNotification(gw *provider.PayFastGateway, fields map[string]string) string {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set(provider.SignatureField, gw.Codec().Compute(fields, controllerPassphrase))
	return values.Encode()
}

func notifyContext(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payment/notify", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreatePaymentBadBody(t *testing.T) {
	ctrl, _ := newTestController(t, &controllerOrderRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString("{bad"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := ctrl.CreatePayment(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreatePaymentSuccess(t *testing.T) {
	ctrl, gw := newTestController(t, &controllerOrderRepo{
		findByIDFn: func(_ context.Context, id string) (*entity.Order, error) {
			if id != "order-1" {
				return nil, nil
			}
			return pendingOrder(), nil
		},
	})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(`{"order_id":"order-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := ctrl.CreatePayment(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.PaymentFormResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.PaymentUrl != provider.SandboxProcessURL {
		t.Fatalf("unexpected payment url: %s", payload.PaymentUrl)
	}
	fields := map[string]string{}
	for _, field := range payload.PaymentData {
		if field.Name == provider.SignatureField {
			continue
		}
		fields[field.Name] = field.Value
	}
	if fields["amount"] != "100.00" || fields["custom_str1"] != "order-1" {
		t.Fatalf("unexpected payment data: %v", fields)
	}
	if !gw.Codec().Verify(fields, payload.Signature, controllerPassphrase) {
		t.Fatal("expected returned form to verify")
	}
}

func TestCreatePaymentStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		find func(ctx context.Context, id string) (*entity.Order, error)
		want int
	}{
		{"not found", func(context.Context, string) (*entity.Order, error) { return nil, nil }, http.StatusNotFound},
		{"already paid", func(context.Context, string) (*entity.Order, error) {
			order := pendingOrder()
			order.PaymentStatus = entity.PaymentStatusPaid
			return order, nil
		}, http.StatusBadRequest},
		{"storage error", func(context.Context, string) (*entity.Order, error) { return nil, errors.New("db down") }, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl, _ := newTestController(t, &controllerOrderRepo{findByIDFn: tc.find})
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(`{"order_id":"order-1"}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()

			if err := ctrl.CreatePayment(e.NewContext(req, rec)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestGetOrderPayment(t *testing.T) {
	ctrl, _ := newTestController(t, &controllerOrderRepo{
		findByOrderNumberFn: func(_ context.Context, orderNumber string) (*entity.Order, error) {
			if orderNumber != "ORD-1" {
				return nil, nil
			}
			return pendingOrder(), nil
		},
	})

	for reference, want := range map[string]int{"ORD-1": http.StatusOK, "ORD-9": http.StatusNotFound} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/payments/orders/"+reference, nil)
		rec := httptest.NewRecorder()
		ctx := e.NewContext(req, rec)
		ctx.SetParamNames("reference")
		ctx.SetParamValues(reference)

		if err := ctrl.GetOrderPayment(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", reference, want, rec.Code)
		}
	}
}

func TestHandleNotificationAcknowledges(t *testing.T) {
	settled := 0
	ctrl, gw := newTestController(t, &controllerOrderRepo{
		findByOrderNumberFn: func(context.Context, string) (*entity.Order, error) { return pendingOrder(), nil },
		settleOrderFn: func(_ context.Context, settlement *entity.Settlement) (*entity.SettlementResult, error) {
			settled++
			if settlement.NewPaymentStatus != entity.PaymentStatusPaid {
				t.Fatalf("unexpected settlement: %+v", settlement)
			}
			return &entity.SettlementResult{Applied: true}, nil
		},
	})

	ctx, rec := notifyContext(signedNotification(gw, map[string]string{
		"m_payment_id":   "ORD-1",
		"payment_status": "COMPLETE",
		"amount_gross":   "100.00",
		"custom_str1":    "order-1",
	}))
	if err := ctrl.HandleNotification(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var payload types.NotificationAckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload.Status != "ok" {
		t.Fatalf("unexpected ack: %s", rec.Body.String())
	}
	if settled != 1 {
		t.Fatalf("expected one settlement, got %d", settled)
	}
}

func TestHandleNotificationStatusMapping(t *testing.T) {
	gw := testGateway(t)
	valid := map[string]string{"m_payment_id": "ORD-1", "payment_status": "COMPLETE"}

	cases := []struct {
		name string
		repo *controllerOrderRepo
		body string
		want int
	}{
		{"empty body", &controllerOrderRepo{}, "", http.StatusBadRequest},
		{"missing signature", &controllerOrderRepo{}, "m_payment_id=ORD-1&payment_status=COMPLETE", http.StatusBadRequest},
		{"forged signature", &controllerOrderRepo{}, "m_payment_id=ORD-1&payment_status=COMPLETE&signature=deadbeef", http.StatusBadRequest},
		{"unknown order", &controllerOrderRepo{}, signedNotification(gw, valid), http.StatusNotFound},
		{"ledger failure", &controllerOrderRepo{
			findByOrderNumberFn: func(context.Context, string) (*entity.Order, error) { return pendingOrder(), nil },
			settleOrderFn: func(context.Context, *entity.Settlement) (*entity.SettlementResult, error) {
				return nil, errors.New("lock wait timeout")
			},
		}, signedNotification(gw, valid), http.StatusInternalServerError},
		{"already settled", &controllerOrderRepo{
			findByOrderNumberFn: func(context.Context, string) (*entity.Order, error) {
				order := pendingOrder()
				order.PaymentStatus = entity.PaymentStatusPaid
				return order, nil
			},
		}, signedNotification(gw, valid), http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			paymentService := service.NewPaymentService(tc.repo, &controllerAuditRepo{}, gw, nil, nil)
			ctrl := NewPaymentController(paymentService)
			ctx, rec := notifyContext(tc.body)

			if err := ctrl.HandleNotification(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}
