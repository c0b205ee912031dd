// Package telemetry wires the OpenTelemetry metric API to a Prometheus
// registry. Instruments created through otel.Meter anywhere in the process
// are exported on the handler returned by Provider.Handler.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Options struct {
	ServiceName    string
	ServiceVersion string
	// RuntimeMetrics adds Go runtime and process collectors.
	RuntimeMetrics bool
	Logger         zerolog.Logger
}

type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	handler       http.Handler
}

type otelErrorHandler struct {
	logger zerolog.Logger
}

func (h otelErrorHandler) Handle(err error) {
	if err != nil {
		h.logger.Warn().Err(err).Msg("telemetry error")
	}
}

// Setup builds the meter provider, installs it globally and returns it.
func Setup(ctx context.Context, opts Options) (*Provider, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "ticket-booking"
	}
	attrs := []resource.Option{
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceName(opts.ServiceName)),
	}
	if opts.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(opts.ServiceVersion)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	registry := prometheus.NewRegistry()
	if opts.RuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("telemetry: start prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)
	otel.SetErrorHandler(otelErrorHandler{logger: opts.Logger})

	if opts.RuntimeMetrics {
		if err := otelruntime.Start(otelruntime.WithMeterProvider(mp)); err != nil {
			_ = mp.Shutdown(ctx)
			return nil, fmt.Errorf("telemetry: start runtime metrics: %w", err)
		}
	}

	opts.Logger.Info().Str("service", opts.ServiceName).Bool("runtime_metrics", opts.RuntimeMetrics).Msg("metrics enabled")
	return &Provider{
		meterProvider: mp,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// Handler serves the Prometheus text exposition.
func (p *Provider) Handler() http.Handler {
	return p.handler
}

func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("metric shutdown: %w", err)
	}
	return nil
}
