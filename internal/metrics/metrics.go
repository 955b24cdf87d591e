package metrics

import (
	"class-quiz-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "class_quiz"

// Metrics holds the Prometheus collectors of the quiz service. It satisfies app.Recorder.
type Metrics struct {
	Joins             prometheus.Counter
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	Answers           *prometheus.CounterVec
	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Joins: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_total",
			Help:      "Participants created by joining a class",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Quiz sessions moved from not started to in progress",
		}),
		SessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Participants finalized with a score",
		}),
		Answers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Recorded answers by outcome",
		}, []string{"outcome"}),
		RequestCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status",
		}, []string{"method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) Joined() { m.Joins.Inc() }

func (m *Metrics) SessionStarted() { m.SessionsStarted.Inc() }

func (m *Metrics) AnswerRecorded(outcome domain.Outcome) {
	m.Answers.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) SessionCompleted() { m.SessionsCompleted.Inc() }
