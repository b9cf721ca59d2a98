package yugwan

import (
	"github.com/joonyo2/yugwan/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// NewMetricsHooks registers request and token refresh collectors with reg
// and returns hooks that feed them. Hooks in next still run. Pass the result
// as ClientOptions.Hooks.
func NewMetricsHooks(reg prometheus.Registerer, next *Hooks) (*Hooks, error) {
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}
	return m.Hooks(next), nil
}
