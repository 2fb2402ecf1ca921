package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/entity"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/factory"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/service"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	form, err := c.paymentService.CreatePayment(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentFormToResponse(form))
}

func (c *PaymentController) GetOrderPayment(ctx echo.Context) error {
	req, err := types.NewGetOrderPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.paymentService.GetOrderPayment(ctx.Request().Context(), req.GetReference())
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get order payment failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.OrderPaymentResponse{Order: mapper.OrderPaymentToResponse(order)})
}

// HandleNotification acknowledges gateway notifications. Forged or malformed
// deliveries get a 4xx; ledger failures get a 5xx and are retried by the gateway.
func (c *PaymentController) HandleNotification(ctx echo.Context) error {
	req, err := types.NewHandleNotificationRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	logger := factory.LoggerWithContext(c.logger, ctx)
	result, err := c.paymentService.HandleNotification(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSourceNotAllowed):
			return c.writeError(ctx, http.StatusForbidden, service.ErrSourceNotAllowed.Error())
		case errors.Is(err, service.ErrMalformedNotification):
			return c.writeError(ctx, http.StatusBadRequest, service.ErrMalformedNotification.Error())
		case errors.Is(err, service.ErrSignatureMismatch),
			errors.Is(err, service.ErrReferenceMismatch),
			errors.Is(err, service.ErrAmountMismatch):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		default:
			logger.WithError(err).Error("Handle payment notification failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	if result.Outcome != entity.NotificationOutcomeSettled {
		logger.WithField("outcome", result.Outcome).Info("Payment notification acknowledged without changes")
	}
	return ctx.JSON(http.StatusOK, &types.NotificationAckResponse{Status: "ok"})
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
