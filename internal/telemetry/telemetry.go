// Package telemetry owns the OpenTelemetry meter provider and the
// instruments recorded by the pipeline, batch runner, and downloader.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

const instrumentationName = "multi-transcriber"

// Provider wraps the SDK meter provider and an optional /metrics listener.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	handler       http.Handler
	server        *http.Server
	logger        *slog.Logger
}

// Setup builds a meter provider backed by a private Prometheus registry.
// When bind is non-empty the registry is served on bind at /metrics.
func Setup(ctx context.Context, serviceName, bind string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	p := &Provider{
		meterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		),
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		logger:  logger,
	}

	if bind = strings.TrimSpace(bind); bind != "" {
		ln, err := net.Listen("tcp", bind)
		if err != nil {
			_ = p.meterProvider.Shutdown(ctx)
			return nil, err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", p.handler)
		p.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics listener stopped", slog.String("error", err.Error()))
			}
		}()
		logger.Info("metrics listener started", slog.String("bind", ln.Addr().String()))
	}

	return p, nil
}

// Meter returns the application meter.
func (p *Provider) Meter() metric.Meter {
	return p.meterProvider.Meter(instrumentationName)
}

// Handler serves the Prometheus exposition of recorded metrics.
func (p *Provider) Handler() http.Handler {
	return p.handler
}

// Shutdown stops the listener and flushes the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Instruments records application metrics. A nil *Instruments records nothing.
type Instruments struct {
	pipelineRuns     metric.Int64Counter
	pipelineDuration metric.Float64Histogram
	batchFiles       metric.Int64Counter
	downloads        metric.Int64Counter
}

// NewInstruments creates the instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	pipelineRuns, err := meter.Int64Counter("transcriber.pipeline.runs",
		metric.WithDescription("Transcription pipeline invocations by outcome."))
	if err != nil {
		return nil, err
	}
	pipelineDuration, err := meter.Float64Histogram("transcriber.pipeline.duration",
		metric.WithDescription("Wall time of one pipeline invocation."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	batchFiles, err := meter.Int64Counter("transcriber.batch.files",
		metric.WithDescription("Files processed by batch runs by outcome."))
	if err != nil {
		return nil, err
	}
	downloads, err := meter.Int64Counter("transcriber.download.runs",
		metric.WithDescription("URL downloads by outcome."))
	if err != nil {
		return nil, err
	}
	return &Instruments{
		pipelineRuns:     pipelineRuns,
		pipelineDuration: pipelineDuration,
		batchFiles:       batchFiles,
		downloads:        downloads,
	}, nil
}

// PipelineRun records one terminal pipeline outcome.
func (i *Instruments) PipelineRun(ctx context.Context, mode, outcome string, elapsed time.Duration) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	)
	i.pipelineRuns.Add(ctx, 1, attrs)
	i.pipelineDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// BatchFile records one file handled by the batch runner.
func (i *Instruments) BatchFile(ctx context.Context, outcome string) {
	if i == nil {
		return
	}
	i.batchFiles.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Download records one terminal download outcome.
func (i *Instruments) Download(ctx context.Context, outcome string) {
	if i == nil {
		return
	}
	i.downloads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
