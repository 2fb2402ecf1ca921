package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type NotificationMetrics struct {
	outcomes   *prometheus.CounterVec
	shortfalls prometheus.Counter
	mailErrors prometheus.Counter
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	factory := promauto.With(reg)

	return &NotificationMetrics{
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_payment_notifications_total",
			Help: "Payment gateway notifications by processing outcome.",
		}, []string{"outcome"}),
		shortfalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_stock_shortfalls_total",
			Help: "Order items whose stock could not cover the paid quantity.",
		}),
		mailErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_confirmation_email_failures_total",
			Help: "Order confirmation emails that could not be delivered.",
		}),
	}
}

func (m *NotificationMetrics) RecordNotification(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *NotificationMetrics) RecordStockShortfalls(count int) {
	m.shortfalls.Add(float64(count))
}

func (m *NotificationMetrics) RecordEmailFailure() {
	m.mailErrors.Inc()
}
