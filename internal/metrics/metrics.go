package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Ledger operations
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Total completed ledger transactions",
		},
		[]string{"type"}, // DEPOSIT|WITHDRAWAL|TRANSFER|PAYMENT|AIRTIME|BILLPAY|FLOAT|LOAN
	)
	TransactionsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_failed_total",
			Help: "Total rejected or failed ledger operations",
		},
		[]string{"type"},
	)
	FeesCollected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_fees_collected_cents_total",
			Help: "Total fee revenue in cents",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionsFailed)
	prometheus.MustRegister(FeesCollected)
	prometheus.MustRegister(WorkerQueueDepth)
}
