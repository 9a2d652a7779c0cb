package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ResolveRequestsTotal         metric.Int64Counter
	ResolveDurationSeconds       metric.Float64Histogram
	BaselineProfilesCreatedTotal metric.Int64Counter
	ProfileStoreErrorsTotal      metric.Int64Counter
	TrackingLookupsTotal         metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("wayfinder")
		var err error
		m := &AppMetrics{}

		m.ResolveRequestsTotal, err = meter.Int64Counter(
			"role_resolve_requests_total",
			metric.WithDescription("Total number of role resolutions completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create role_resolve_requests_total: %v", err)
		}

		m.ResolveDurationSeconds, err = meter.Float64Histogram(
			"role_resolve_duration_seconds",
			metric.WithDescription("Duration of role resolutions in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create role_resolve_duration_seconds: %v", err)
		}

		m.BaselineProfilesCreatedTotal, err = meter.Int64Counter(
			"baseline_profiles_created_total",
			metric.WithDescription("Total number of baseline profiles created on first login"),
			metric.WithUnit("{profile}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create baseline_profiles_created_total: %v", err)
		}

		m.ProfileStoreErrorsTotal, err = meter.Int64Counter(
			"profile_store_errors_total",
			metric.WithDescription("Total number of profile store errors absorbed by the resolver"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create profile_store_errors_total: %v", err)
		}

		m.TrackingLookupsTotal, err = meter.Int64Counter(
			"tracking_lookups_total",
			metric.WithDescription("Total number of public tracking lookups"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create tracking_lookups_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance, initializing it
// against the current MeterProvider on first use.
func Get() *AppMetrics {
	if appMetrics == nil {
		InitAppMetrics()
	}
	return appMetrics
}
