// Package metrics содержит prometheus-метрики запросов к API и действий пользователей.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты действий пользователя.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultDeclined = "declined"
	ResultBusy     = "busy"
)

// Metrics объединяет коллекторы приложения.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	actions  *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "miniapp",
			Name:      "api_requests_total",
			Help:      "Количество запросов к API подписок по эндпоинту и коду ответа.",
		}, []string{"endpoint", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "miniapp",
			Name:      "api_request_duration_seconds",
			Help:      "Длительность запросов к API подписок.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "miniapp",
			Name:      "actions_total",
			Help:      "Количество действий пользователей по типу и результату.",
		}, []string{"action", "result"}),
	}
	reg.MustRegister(m.requests, m.duration, m.actions)
	return m
}

// ObserveRequest учитывает запрос к API. code 0 — ошибка транспорта.
func (m *Metrics) ObserveRequest(endpoint string, code int, d time.Duration) {
	m.requests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveAction учитывает действие пользователя.
func (m *Metrics) ObserveAction(action, result string) {
	m.actions.WithLabelValues(action, result).Inc()
}
