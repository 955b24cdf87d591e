package http

import (
	"net/http"
	"strconv"
	"time"

	"class-quiz-service/internal/metrics"
	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websocket upgrades.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LogRequests logs every request and feeds the request metrics when m is non-nil.
func LogRequests(log logrus.FieldLogger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if r.URL.Path == "/ws" {
			// gorilla needs the raw writer to hijack the connection
			next.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(rec, r)
		}
		elapsed := time.Since(start)
		if m != nil {
			m.RequestCounter.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())
		}
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": elapsed.String(),
		}).Info("request")
	})
}
