// Package metrics exposes Prometheus counters for the dispatch loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure reasons used as the "reason" label of MailsFailed.
const (
	ReasonMalformedEvent = "malformed_event"
	ReasonCalendarIO     = "calendar_io"
	ReasonDispatch       = "dispatch"
	ReasonOther          = "other"
)

var (
	Cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailmonit_cycles_total",
		Help: "Total number of dispatch cycles by result",
	}, []string{"result"})
	MailsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailmonit_mails_fetched_total",
		Help: "Total number of sendable mails fetched from the backend",
	})
	MailsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailmonit_mails_sent_total",
		Help: "Total number of mails accepted by the delivery provider",
	}, []string{"provider", "mail_type"})
	MailsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailmonit_mails_failed_total",
		Help: "Total number of mails that could not be transformed or sent",
	}, []string{"provider", "reason"})
)

func init() {
	prometheus.MustRegister(Cycles)
	prometheus.MustRegister(MailsFetched)
	prometheus.MustRegister(MailsSent)
	prometheus.MustRegister(MailsFailed)
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
