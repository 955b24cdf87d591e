package metrics

import (
	"testing"

	"class-quiz-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Joined()
	m.SessionStarted()
	m.AnswerRecorded(domain.OutcomeCorrect)
	m.AnswerRecorded(domain.OutcomeExpired)
	m.AnswerRecorded(domain.OutcomeExpired)
	m.SessionCompleted()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Joins))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers.WithLabelValues("correct")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Answers.WithLabelValues("expired")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Answers.WithLabelValues("incorrect")))
}
