package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// habitsCreated counts successfully committed habits.
	habitsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "habits_created_total",
		Help: "Total number of habits created.",
	})

	// habitToggles counts committed toggles by resulting state
	// ("completed" or "uncompleted").
	habitToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_toggles_total",
			Help: "Total number of habit completion toggles by resulting state.",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(habitsCreated, habitToggles)
}
