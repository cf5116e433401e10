// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package watcher

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts watcher activity. A nil *Metrics records nothing.
type Metrics struct {
	polls    prometheus.Counter
	errors   prometheus.Counter
	outcomes *prometheus.CounterVec
	watching prometheus.Gauge
}

func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_polls",
			Help:      "Number of transaction status queries issued",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_poll_errors",
			Help:      "Number of transaction status queries that failed",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes",
			Help:      "Number of watched transactions by terminal state",
		}, []string{"state"}),
		watching: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watching",
			Help:      "Number of transactions currently being watched",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.polls),
		reg.Register(m.errors),
		reg.Register(m.outcomes),
		reg.Register(m.watching),
	)
	return m, errs.Err
}

func (m *Metrics) poll() {
	if m != nil {
		m.polls.Inc()
	}
}

func (m *Metrics) started() {
	if m != nil {
		m.watching.Inc()
	}
}

func (m *Metrics) finished(out Outcome) {
	if m == nil {
		return
	}
	m.watching.Dec()
	if out.State == Errored {
		m.errors.Inc()
	}
	if out.State.Terminal() {
		m.outcomes.WithLabelValues(out.State.String()).Inc()
	}
}
