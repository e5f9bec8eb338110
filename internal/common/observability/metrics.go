package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	pageCounter   otelmetric.Int64Counter
	fetchDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	pageCounter, _ := meter.Int64Counter(
		"pages.fetched",
		otelmetric.WithDescription("Number of pages fetched"),
	)

	fetchDuration, _ := meter.Float64Histogram(
		"pages.fetch_duration",
		otelmetric.WithDescription("Page fetch duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		pageCounter:   pageCounter,
		fetchDuration: fetchDuration,
	}
}

func (o *Observability) RecordPageFetched(ctx context.Context, status string) {
	if o.pageCounter != nil {
		o.pageCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordFetchDuration(ctx context.Context, duration time.Duration, status string) {
	if o.fetchDuration != nil {
		o.fetchDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
