package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the account service's metric instruments.
type AppMetrics struct {
	RegisterTotal      metric.Int64Counter
	LoginTotal         metric.Int64Counter
	LoginFailuresTotal metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// Get returns the process-wide metric instruments, creating them on first
// use from the globally configured MeterProvider. Callers that run before
// main wires a provider (tests, mostly) get no-op instruments.
func Get() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("usercenter")
		var err error
		m := &AppMetrics{}

		m.RegisterTotal, err = meter.Int64Counter(
			"account_register_total",
			metric.WithDescription("Total number of completed registrations"),
			metric.WithUnit("{account}"),
		)
		if err != nil {
			log.Fatalf("Metrics: failed to create account_register_total: %v", err)
		}

		m.LoginTotal, err = meter.Int64Counter(
			"account_login_total",
			metric.WithDescription("Total number of successful logins"),
			metric.WithUnit("{login}"),
		)
		if err != nil {
			log.Fatalf("Metrics: failed to create account_login_total: %v", err)
		}

		m.LoginFailuresTotal, err = meter.Int64Counter(
			"account_login_failures_total",
			metric.WithDescription("Total number of rejected login attempts"),
			metric.WithUnit("{login}"),
		)
		if err != nil {
			log.Fatalf("Metrics: failed to create account_login_failures_total: %v", err)
		}

		appMetrics = m
	})
	return appMetrics
}
