package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesComputedTotal counts pricing quotes by shipping method and
	// whether the discount cap was triggered.
	QuotesComputedTotal *prometheus.CounterVec
	// CheckoutsTotal counts checkout attempts by outcome.
	CheckoutsTotal *prometheus.CounterVec
	// FreeShippingGrantedTotal counts quotes that crossed the free-shipping threshold.
	FreeShippingGrantedTotal prometheus.Counter
	// ReceiptJobsTotal counts receipt delivery jobs by outcome.
	ReceiptJobsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesComputedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_computed_total",
			Help:      "Count of pricing quotes computed, by shipping method and cap outcome.",
		}, []string{"method", "capped"})
		CheckoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Count of checkout attempts by outcome.",
		}, []string{"result"})
		FreeShippingGrantedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "free_shipping_granted_total",
			Help:      "Number of quotes whose post-discount total earned free shipping.",
		})
		ReceiptJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_jobs_total",
			Help:      "Count of order receipt jobs by outcome.",
		}, []string{"result"})

		reg.MustRegister(QuotesComputedTotal, CheckoutsTotal, FreeShippingGrantedTotal, ReceiptJobsTotal)
	})
}
