package factory

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func NewModuleLogger(module string) logrus.FieldLogger {
	return logrus.WithField("module", module)
}

// LoggerWithContext adds request scoped fields to logger.
func LoggerWithContext(logger logrus.FieldLogger, ctx echo.Context) logrus.FieldLogger {
	if ctx == nil {
		return logger
	}

	req := ctx.Request()
	requestID := strings.TrimSpace(req.Header.Get(echo.HeaderXRequestID))
	if requestID == "" {
		requestID = strings.TrimSpace(ctx.Response().Header().Get(echo.HeaderXRequestID))
	}

	fields := logrus.Fields{
		"method":    req.Method,
		"path":      ctx.Path(),
		"remote_ip": ctx.RealIP(),
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return logger.WithFields(fields)
}
