package reputation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var domainChecks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "jobshield_domain_checks_total",
	Help: "Domain blacklist checks by result (blacklisted, clean, fallback).",
}, []string{"result"})

func observeDomainCheck(result string) {
	domainChecks.WithLabelValues(result).Inc()
}
