package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shirtdrop"

//nolint:gochecknoglobals
var (
	Registry = newRegistry()

	factory = promauto.With(Registry)

	Claims = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "claims_total",
		Help:      "Claim attempts by result.",
	}, []string{"result"})

	ShirtsMinted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shirts_minted_total",
		Help:      "Shirt NFTs created on chain.",
	})

	Bids = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_placed_total",
		Help:      "Bids placed or overwritten.",
	})

	AuctionsClosed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auctions_closed_total",
		Help:      "Auctions closed by trigger.",
	}, []string{"trigger"})

	ChainCalls = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chain_rpc_duration_seconds",
		Help:      "RPC node call latency.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "result"})

	Tasks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_processed_total",
		Help:      "Background tasks by type and result.",
	}, []string{"task", "result"})
)

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

func Result(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
