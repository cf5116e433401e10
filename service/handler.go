// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package service

import (
	"net/http"

	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/gorilla/rpc/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts served requests by method.
type Metrics struct {
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests",
			Help:      "Number of JSON-RPC requests served",
		}, []string{"method"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_failures",
			Help:      "Number of JSON-RPC requests that returned an error",
		}, []string{"method"}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		reg.Register(m.requests),
		reg.Register(m.failures),
	)
	return m, errs.Err
}

func (m *Metrics) observe(i *rpc.RequestInfo) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(i.Method).Inc()
	if i.Error != nil {
		m.failures.WithLabelValues(i.Method).Inc()
	}
}

// NewHandler serves [svc] under [ServiceName]. [metrics] may be nil.
func NewHandler(svc *Service, metrics *Metrics) (http.Handler, error) {
	server := rpc.NewServer()
	codec := json.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	server.RegisterAfterFunc(metrics.observe)
	return server, server.RegisterService(svc, ServiceName)
}
