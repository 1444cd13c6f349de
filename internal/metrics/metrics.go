package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lessonbook",
			Name:      "slots_created_total",
			Help:      "Slots persisted by the generator.",
		},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonbook",
			Name:      "bookings_total",
			Help:      "Booking transitions by outcome.",
		},
		[]string{"operation", "result"},
	)

	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonbook",
			Name:      "deliveries_total",
			Help:      "Successful notification deliveries by channel.",
		},
		[]string{"channel"},
	)

	deliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonbook",
			Name:      "delivery_failures_total",
			Help:      "Failed notification deliveries by channel.",
		},
		[]string{"channel"},
	)

	ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonbook",
			Name:      "scheduler_ticks_total",
			Help:      "Reminder scheduler ticks by outcome (run, skipped).",
		},
		[]string{"outcome"},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lessonbook",
			Name:      "reminders_sent_total",
			Help:      "Slots marked notified by the reminder sweep.",
		},
	)

	duplicatesRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lessonbook",
			Name:      "duplicate_slots_removed_total",
			Help:      "Slots deleted by the overlap resolver.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			slotsCreated,
			bookings,
			deliveries,
			deliveryFailures,
			ticks,
			remindersSent,
			duplicatesRemoved,
		)
	})
}

func IncSlotsCreated(n int) {
	slotsCreated.Add(float64(n))
}

func IncBooking(operation, result string) {
	bookings.WithLabelValues(operation, result).Inc()
}

func IncDelivery(channel string) {
	deliveries.WithLabelValues(channel).Inc()
}

func IncDeliveryFailure(channel string) {
	deliveryFailures.WithLabelValues(channel).Inc()
}

func IncTick(outcome string) {
	ticks.WithLabelValues(outcome).Inc()
}

func IncRemindersSent() {
	remindersSent.Inc()
}

func IncDuplicatesRemoved(n int) {
	duplicatesRemoved.Add(float64(n))
}
