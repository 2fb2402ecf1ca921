package types

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// MaxNotificationBodyBytes caps the ITN body read from the gateway.
const MaxNotificationBodyBytes = 64 << 10

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(body.OrderId)

	return &body, nil
}

func (r *CreatePaymentRequest) Validate() error {
	if strings.TrimSpace(r.GetOrderId()) == "" {
		return errors.New("order_id is required")
	}
	return nil
}

func NewGetOrderPaymentRequestFromContext(ctx echo.Context) (*GetOrderPaymentRequest, error) {
	return &GetOrderPaymentRequest{Reference: strings.TrimSpace(ctx.Param("reference"))}, nil
}

func (r *GetOrderPaymentRequest) Validate() error {
	if r.GetReference() == "" {
		return errors.New("order reference is required")
	}
	if len(r.GetReference()) > 64 {
		return errors.New("order reference is too long")
	}
	return nil
}

// NewHandleNotificationRequestFromContext reads the raw form body. The body is
// kept verbatim so that signature verification sees exactly what was sent.
func NewHandleNotificationRequestFromContext(ctx echo.Context) (*HandleNotificationRequest, error) {
	req := ctx.Request()
	rawBody, err := io.ReadAll(http.MaxBytesReader(ctx.Response(), req.Body, MaxNotificationBodyBytes))
	if err != nil {
		return nil, err
	}

	requestID := strings.TrimSpace(req.Header.Get(echo.HeaderXRequestID))
	if requestID == "" {
		requestID = strings.TrimSpace(ctx.Response().Header().Get(echo.HeaderXRequestID))
	}

	return &HandleNotificationRequest{
		RequestId: requestID,
		RemoteIp:  ctx.RealIP(),
		Body:      rawBody,
	}, nil
}

func (r *HandleNotificationRequest) Validate() error {
	if len(r.GetBody()) == 0 {
		return errors.New("notification body is required")
	}
	return nil
}
