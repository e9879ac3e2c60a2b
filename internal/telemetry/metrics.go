package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/event"
)

const namespace = "quizroom"

// Metrics exposes room activity as Prometheus series. It is fed by bus events.
type Metrics struct {
	registry *prometheus.Registry

	roomsOpen        prometheus.Gauge
	playersConnected prometheus.Gauge
	gamesStarted     prometheus.Counter
	gamesFinished    prometheus.Counter
	guesses          *prometheus.CounterVec
	generations      *prometheus.CounterVec
	generationTime   prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		roomsOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_open",
			Help:      "Rooms currently open.",
		}),
		playersConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players_connected",
			Help:      "Players currently seated in a room.",
		}),
		gamesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games that passed the readiness barrier.",
		}),
		gamesFinished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reached game over.",
		}),
		guesses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guesses_total",
			Help:      "Accepted guesses by outcome.",
		}, []string{"result"}),
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_generations_total",
			Help:      "Quiz generations by outcome.",
		}, []string{"result"}),
		generationTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quiz_generation_seconds",
			Help:      "Time taken by successful quiz generations.",
			Buckets:   []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// Register subscribes the metrics to room events on bus.
func (m *Metrics) Register(bus *event.Bus) {
	bus.Subscribe(domain.EventNameRoomOpened, m.count(func(event.Event) { m.roomsOpen.Inc() }))
	bus.Subscribe(domain.EventNameRoomClosed, m.count(func(event.Event) { m.roomsOpen.Dec() }))
	bus.Subscribe(domain.EventNamePlayerJoined, m.count(func(event.Event) { m.playersConnected.Inc() }))
	bus.Subscribe(domain.EventNamePlayerLeft, m.count(func(event.Event) { m.playersConnected.Dec() }))
	bus.Subscribe(domain.EventNameGameStarted, m.count(func(event.Event) { m.gamesStarted.Inc() }))
	bus.Subscribe(domain.EventNameGameOver, m.count(func(event.Event) { m.gamesFinished.Inc() }))
	bus.Subscribe(domain.EventNameGuessScored, m.count(func(e event.Event) {
		m.guesses.WithLabelValues(outcome(e.(domain.EventGuessScored).Correct, "correct", "wrong")).Inc()
	}))
	bus.Subscribe(domain.EventNameQuizGenerated, m.count(func(e event.Event) {
		m.generations.WithLabelValues("ok").Inc()
		m.generationTime.Observe(e.(domain.EventQuizGenerated).Took.Seconds())
	}))
	bus.Subscribe(domain.EventNameQuizFailed, m.count(func(event.Event) {
		m.generations.WithLabelValues("failed").Inc()
	}))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) count(f func(e event.Event)) event.Handler {
	return func(_ context.Context, e event.Event) error {
		f(e)
		return nil
	}
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
