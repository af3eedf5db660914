package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gardien_commands_processed",
	Help: "Number of slash commands processed, by outcome",
}, []string{"command", "outcome"})

var commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "gardien_command_duration_sec",
	Help: "Total duration of slash command processing",
}, []string{"command"})

var reactionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gardien_reactions_processed",
	Help: "Number of reaction-add events processed, by outcome",
}, []string{"outcome"})

var acceptanceNumber = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "gardien_acceptance_number",
	Help: "Last acceptance number handed out",
})

var logPostErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gardien_log_post_errors",
	Help: "Number of failed posts to the log channel",
})
