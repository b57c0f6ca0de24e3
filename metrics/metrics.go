// Package metrics expõe contadores Prometheus do servidor e do fluxo de trabalho.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry guarda apenas os coletores da aplicação (+ runtime do Go).
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "secom",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Requisições HTTP em andamento.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "secom",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total de requisições HTTP atendidas.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "secom",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duração das requisições HTTP.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "route"})

	statusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "secom",
		Subsystem: "workflow",
		Name:      "status_transitions_total",
		Help:      "Transições de status por entidade.",
	}, []string{"entidade", "para"})

	recordsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "secom",
		Subsystem: "workflow",
		Name:      "records_created_total",
		Help:      "Registros criados por entidade.",
	}, []string{"entidade"})

	notificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "secom",
		Subsystem: "notificacoes",
		Name:      "sent_total",
		Help:      "Notificações entregues por canal.",
	}, []string{"canal", "resultado"})

	aiRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "secom",
		Subsystem: "ia",
		Name:      "requests_total",
		Help:      "Chamadas de sugestão de IA por tipo e resultado.",
	}, []string{"tipo", "resultado"})

	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "secom",
		Subsystem: "jobs",
		Name:      "runs_total",
		Help:      "Execuções de jobs agendados.",
	}, []string{"job", "resultado"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpInFlight,
		httpRequests,
		httpDuration,
		statusTransitions,
		recordsCreated,
		notificationsSent,
		aiRequests,
		jobRuns,
	)
}

// Handler serve o endpoint /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware mede as requisições usando a rota registrada (sem ids) como label.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		c.Next()
		httpInFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func StatusTransition(entidade, para string) {
	statusTransitions.WithLabelValues(entidade, para).Inc()
}

func RecordCreated(entidade string) {
	recordsCreated.WithLabelValues(entidade).Inc()
}

func NotificationSent(canal string, ok bool) {
	notificationsSent.WithLabelValues(canal, result(ok)).Inc()
}

func AIRequest(tipo, resultado string) {
	aiRequests.WithLabelValues(tipo, resultado).Inc()
}

func JobRun(job string, ok bool) {
	jobRuns.WithLabelValues(job, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "erro"
}
