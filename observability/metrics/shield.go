package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics tracks shield lifecycle activity.
type VaultMetrics struct {
	mints       *prometheus.CounterVec
	redeems     *prometheus.CounterVec
	finalized   *prometheus.CounterVec
	purchases   *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	harvested   *prometheus.CounterVec
	forSale     *prometheus.GaugeVec
	totalSupply *prometheus.GaugeVec
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

// Vault returns the lazily registered shield metrics.
func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			mints: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rca",
				Subsystem: "shield",
				Name:      "mints_total",
				Help:      "Count of successful mints by shield.",
			}, []string{"shield"}),
			redeems: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rca",
				Subsystem: "shield",
				Name:      "redeem_requests_total",
				Help:      "Count of redeem requests by shield.",
			}, []string{"shield"}),
			finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rca",
				Subsystem: "shield",
				Name:      "redeem_finalized_total",
				Help:      "Count of finalized withdrawals by shield and payout route.",
			}, []string{"shield", "route"}),
			purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rca",
				Subsystem: "shield",
				Name:      "purchases_total",
				Help:      "Count of discounted purchases by shield and kind.",
			}, []string{"shield", "kind"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rca",
				Subsystem: "shield",
				Name:      "rejected_total",
				Help:      "Count of rejected shield calls by operation and error class.",
			}, []string{"operation", "class"}),
			harvested: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rca",
				Subsystem: "shield",
				Name:      "rewards_harvested_total",
				Help:      "Count of reward tokens credited by harvests.",
			}, []string{"shield", "token"}),
			forSale: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "rca",
				Subsystem: "shield",
				Name:      "amt_for_sale",
				Help:      "Normalized underlying earmarked for sale after the last sync.",
			}, []string{"shield"}),
			totalSupply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "rca",
				Subsystem: "shield",
				Name:      "total_supply",
				Help:      "Outstanding RCA after the last state change.",
			}, []string{"shield"}),
		}
		prometheus.MustRegister(
			vaultRegistry.mints,
			vaultRegistry.redeems,
			vaultRegistry.finalized,
			vaultRegistry.purchases,
			vaultRegistry.rejected,
			vaultRegistry.harvested,
			vaultRegistry.forSale,
			vaultRegistry.totalSupply,
		)
	})
	return vaultRegistry
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

// ObserveMint counts a successful mint.
func (m *VaultMetrics) ObserveMint(shield string) {
	if m == nil {
		return
	}
	m.mints.WithLabelValues(label(shield)).Inc()
}

// ObserveRedeemRequest counts a redeem request.
func (m *VaultMetrics) ObserveRedeemRequest(shield string) {
	if m == nil {
		return
	}
	m.redeems.WithLabelValues(label(shield)).Inc()
}

// ObserveRedeemFinalize counts a finalized withdrawal. Zapped payouts are
// labelled "router".
func (m *VaultMetrics) ObserveRedeemFinalize(shield string, zapped bool) {
	if m == nil {
		return
	}
	route := "direct"
	if zapped {
		route = "router"
	}
	m.finalized.WithLabelValues(label(shield), route).Inc()
}

// ObservePurchase counts a purchase of kind "token", "u" or "rca".
func (m *VaultMetrics) ObservePurchase(shield, kind string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(label(shield), label(kind)).Inc()
}

// ObserveRejected counts a failed shield call by error class.
func (m *VaultMetrics) ObserveRejected(operation, class string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(label(operation), label(class)).Inc()
}

// ObserveHarvest counts a credited reward token.
func (m *VaultMetrics) ObserveHarvest(shield, token string) {
	if m == nil {
		return
	}
	m.harvested.WithLabelValues(label(shield), label(token)).Inc()
}

// SetForSale records the post-sync for-sale amount as a float approximation.
func (m *VaultMetrics) SetForSale(shield string, value float64) {
	if m == nil {
		return
	}
	m.forSale.WithLabelValues(label(shield)).Set(value)
}

// SetTotalSupply records outstanding RCA as a float approximation.
func (m *VaultMetrics) SetTotalSupply(shield string, value float64) {
	if m == nil {
		return
	}
	m.totalSupply.WithLabelValues(label(shield)).Set(value)
}
