package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeoff_notifications_delivered_total",
		Help: "Notifications pushed into a live session channel.",
	})
	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeoff_notifications_dropped_total",
		Help: "Notifications dropped instead of delivered.",
	}, []string{"reason"})
	broadcastTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeoff_notification_broadcasts_total",
		Help: "Role and all-user broadcast operations.",
	})
)
