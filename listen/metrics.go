package listen

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

/*
Prometheus collectors of a listener. A nil `*Metrics` records nothing.
Register with `NewMetrics`, or construct the collectors manually to share
them between listeners.
*/
type Metrics struct {
	Notifications *prometheus.CounterVec
	Reconnects    prometheus.Counter
	Channels      prometheus.Gauge
}

// Creates listener collectors and registers them with the registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	out := &Metrics{
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: `sqlkit_listener_notifications_total`,
				Help: `Notifications received from the backend, by channel.`,
			},
			[]string{`channel`},
		),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: `sqlkit_listener_reconnects_total`,
			Help: `Reconnect attempts after a lost connection.`,
		}),
		Channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: `sqlkit_listener_channels`,
			Help: `Channels with at least one subscriber.`,
		}),
	}

	if reg == nil {
		return out, nil
	}
	for _, val := range []prometheus.Collector{out.Notifications, out.Reconnects, out.Channels} {
		if err := reg.Register(val); err != nil {
			return nil, fmt.Errorf(`[sqlkit] failed to register listener metrics: %w`, err)
		}
	}
	return out, nil
}

func (self *Metrics) received(channel string) {
	if self != nil && self.Notifications != nil {
		self.Notifications.WithLabelValues(channel).Inc()
	}
}

func (self *Metrics) reconnected() {
	if self != nil && self.Reconnects != nil {
		self.Reconnects.Inc()
	}
}

func (self *Metrics) setChannels(val int) {
	if self != nil && self.Channels != nil {
		self.Channels.Set(float64(val))
	}
}
