package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_operations_total",
			Help: "Completed exchanges by direction",
		},
		[]string{"direction"},
	)
	ExchangeVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_volume_total",
			Help: "Cumulative exchanged amount (source currency units)",
		},
	)
	MinerPayoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "miner_payouts_total",
			Help: "Miner accrual payouts applied",
		},
	)
	MinerStarsAccrued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "miner_stars_accrued_total",
			Help: "Stars credited by the miner accrual job",
		},
	)
	// Ledger appends are best-effort and never roll back the parent
	// operation, so a failure here is the only signal that auditability
	// is degrading.
	LedgerAppendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_append_failures_total",
			Help: "Failed append-only ledger inserts",
		},
		[]string{"ledger"},
	)
	NotifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_failures_total",
			Help: "Failed best-effort user notifications",
		},
	)
	AccrualRunsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "miner_accrual_runs_skipped_total",
			Help: "Accrual invocations skipped because a run was in flight",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ExchangesTotal,
		ExchangeVolume,
		MinerPayoutsTotal,
		MinerStarsAccrued,
		LedgerAppendFailures,
		NotifyFailures,
		AccrualRunsSkipped,
	)
}
