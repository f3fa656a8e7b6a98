package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notifierDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stealthwatch",
	Subsystem: "notifier",
	Name:      "deliveries_total",
	Help:      "Count of donation notifications by channel.",
}, []string{"channel", "status"})

// Notifier tracks delivery of donation notifications.
type Notifier struct {
	channel string
}

// NewNotifier constructs a Notifier for the given delivery channel.
func NewNotifier(channel string) *Notifier {
	if channel == "" {
		channel = "unknown"
	}
	return &Notifier{channel: channel}
}

// ObserveDelivery counts a delivery attempt.
func (m Notifier) ObserveDelivery(err error) {
	notifierDeliveriesTotal.WithLabelValues(m.channel, statusOf(err)).Inc()
}
