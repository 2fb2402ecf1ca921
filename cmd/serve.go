package cmd

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/controller"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/mailer"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/provider"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/repository"
	"github.com/vibast-solutions/ms-go-storefront-payments/app/service"
	"github.com/vibast-solutions/ms-go-storefront-payments/config"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server exposing payment creation, order payment lookup and the PayFast notify endpoint.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	if cfg.Tracing.CollectorHost != "" {
		tracerProvider, err := initTracing(context.Background(), cfg.Tracing.CollectorHost, cfg.App.ServiceName)
		if err != nil {
			logrus.WithError(err).Warn("Tracing disabled")
		} else {
			defer func() {
				if err := tracerProvider.Shutdown(context.Background()); err != nil {
					logrus.WithError(err).Warn("Tracer shutdown error")
				}
			}()
		}
	}

	paymentController := controller.NewPaymentController(paymentService)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(paymentController, echoInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

// setupHTTPServer registers routes. Internal auth guards the /payments group
// only; the gateway calls /payment/notify without credentials.
func setupHTTPServer(
	paymentController *controller.PaymentController,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.IPExtractor = echo.ExtractIPFromXFFHeader()

	e.Use(ensureRequestID())
	e.Use(tracingMiddleware(appServiceName))
	e.Use(requestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echoprometheus.NewMiddleware(""))

	e.GET("/health", paymentController.Health)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.POST(provider.NotifyPath, paymentController.HandleNotification)

	payments := e.Group("/payments", internalAuthMiddleware.RequireInternalAccess(appServiceName))
	payments.POST("", paymentController.CreatePayment)
	payments.GET("/orders/:reference", paymentController.GetOrderPayment)

	return e
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := otelsql.Open("mysql", cfg.MySQL.DSN,
		otelsql.WithAttributes(semconv.DBSystemMySQL),
		otelsql.WithSpanOptions(otelsql.SpanOptions{
			DisableQuery: true,
		}),
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	gateway, err := provider.NewPayFastGateway(provider.PayFastConfig{
		MerchantID:         cfg.PayFast.MerchantID,
		MerchantKey:        cfg.PayFast.MerchantKey,
		Passphrase:         cfg.PayFast.Passphrase,
		SignatureAlgorithm: cfg.PayFast.SignatureAlgorithm,
		Sandbox:            cfg.App.Sandbox(),
		BaseURL:            cfg.App.BaseURL,
		ItemName:           cfg.PayFast.ItemName,
		ValidateSourceIP:   cfg.PayFast.ValidateSourceIP,
		AllowedIPs:         cfg.PayFast.AllowedIPs,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Invalid PayFast configuration")
	}
	logrus.WithFields(logrus.Fields{
		"sandbox":   cfg.App.Sandbox(),
		"algorithm": gateway.Codec().Algorithm(),
	}).Info("PayFast gateway configured")

	db := mustOpenDatabase(cfg)

	orderRepo := repository.NewOrderRepository(db)
	auditRepo := repository.NewNotificationAuditRepository(db)
	notificationMetrics := metrics.NewNotificationMetrics(prometheus.DefaultRegisterer)

	var paymentService *service.PaymentService
	if cfg.Mail.Enabled() {
		smtpMailer := mailer.NewSMTPMailer(mailer.Config{
			Host:        cfg.Mail.SMTPHost,
			Port:        cfg.Mail.SMTPPort,
			Username:    cfg.Mail.SMTPUsername,
			Password:    cfg.Mail.SMTPPassword,
			From:        cfg.Mail.From,
			StoreName:   cfg.Mail.StoreName,
			SendTimeout: cfg.Mail.SendTimeout,
		})
		paymentService = service.NewPaymentService(orderRepo, auditRepo, gateway, smtpMailer, notificationMetrics)
	} else {
		logrus.Warn("SMTP not configured, order confirmation emails disabled")
		paymentService = service.NewPaymentService(orderRepo, auditRepo, gateway, nil, notificationMetrics)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, paymentService, cleanup
}
