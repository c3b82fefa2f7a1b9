package machine

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/jellybean"
)

var (
	promDraws = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jellybean_machine_draws_total",
		Help: "total number of items drawn",
	})

	promClaims = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jellybean_machine_claims_total",
		Help: "total number of prizes claimed",
	})
)

func init() {
	jellybean.PromCollectors = append(jellybean.PromCollectors, promDraws, promClaims)
}
