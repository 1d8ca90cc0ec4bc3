package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteCalcTotal counts pricing engine invocations by markup strategy.
	QuoteCalcTotal *prometheus.CounterVec
	// QuoteSendTotal counts quote send outcomes.
	QuoteSendTotal *prometheus.CounterVec
	// BookingConversionTotal counts quote-to-booking conversion outcomes.
	BookingConversionTotal *prometheus.CounterVec
	// EmailSendTotal counts outbox email delivery outcomes.
	EmailSendTotal *prometheus.CounterVec
	// EmailSendLatency records email send latency in milliseconds.
	EmailSendLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteCalcTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_calculations_total",
			Help:      "Count of quote total calculations by resolved markup strategy.",
		}, []string{"strategy"})
		QuoteSendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_send_total",
			Help:      "Count of quote send outcomes.",
		}, []string{"result"})
		BookingConversionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conversion_total",
			Help:      "Count of quote-to-booking conversion outcomes.",
		}, []string{"result"})
		EmailSendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_send_total",
			Help:      "Count of outbox email delivery outcomes.",
		}, []string{"result"})
		EmailSendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "email_send_duration_ms",
			Help:      "Latency for email send attempts in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})

		mustRegisterCollector(reg, QuoteCalcTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteCalcTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteSendTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteSendTotal = v
			}
		})
		mustRegisterCollector(reg, BookingConversionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BookingConversionTotal = v
			}
		})
		mustRegisterCollector(reg, EmailSendTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EmailSendTotal = v
			}
		})
		mustRegisterCollector(reg, EmailSendLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				EmailSendLatency = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
