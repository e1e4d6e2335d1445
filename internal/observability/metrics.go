// Package observability registers Prometheus metrics for the batch engines.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts engine activity. Amount-valued metrics are float gauges for
// dashboards only; the ledger remains the source of truth.
type Metrics struct {
	LiquidationRuns        *prometheus.CounterVec
	InstallmentsLiquidated prometheus.Counter
	InstallmentsSkipped    prometheus.Counter
	DistributionRuns       *prometheus.CounterVec
	MembersPaid            prometheus.Counter
	AuditFindings          prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsReg  *Metrics
)

// New returns the process-wide metrics registry, registering collectors on
// first use.
func New() *Metrics {
	metricsOnce.Do(func() {
		metricsReg = &Metrics{
			LiquidationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "coopfund",
				Subsystem: "liquidation",
				Name:      "runs_total",
				Help:      "Liquidation passes segmented by outcome.",
			}, []string{"outcome"}),
			InstallmentsLiquidated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coopfund",
				Subsystem: "liquidation",
				Name:      "installments_liquidated_total",
				Help:      "Installments settled by collateral seizure.",
			}),
			InstallmentsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coopfund",
				Subsystem: "liquidation",
				Name:      "installments_skipped_total",
				Help:      "Overdue installments skipped for lack of collateral.",
			}),
			DistributionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "coopfund",
				Subsystem: "distribution",
				Name:      "runs_total",
				Help:      "Distribution passes segmented by outcome.",
			}, []string{"outcome"}),
			MembersPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coopfund",
				Subsystem: "distribution",
				Name:      "members_paid_total",
				Help:      "Member payouts executed across all distribution runs.",
			}),
			AuditFindings: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coopfund",
				Subsystem: "audit",
				Name:      "findings_total",
				Help:      "Discrepancies detected by conservation audits.",
			}),
		}
		prometheus.MustRegister(
			metricsReg.LiquidationRuns,
			metricsReg.InstallmentsLiquidated,
			metricsReg.InstallmentsSkipped,
			metricsReg.DistributionRuns,
			metricsReg.MembersPaid,
			metricsReg.AuditFindings,
		)
	})
	return metricsReg
}
