package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes claim-domain instruments.
type Metrics struct {
	claimsCreated     metric.Int64Counter
	claimTransitions  metric.Int64Counter
	settlements       metric.Int64Counter
	verificationRuns  metric.Int64Counter
	caseAnalysisCalls metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "sanad"
	}
	meter := provider.Meter(name)

	claimsCreated, err := meter.Int64Counter("sanad_claims_created_total")
	if err != nil {
		return nil, err
	}
	claimTransitions, err := meter.Int64Counter("sanad_claim_transitions_total")
	if err != nil {
		return nil, err
	}
	settlements, err := meter.Int64Counter("sanad_settlements_total")
	if err != nil {
		return nil, err
	}
	verificationRuns, err := meter.Int64Counter("sanad_verification_runs_total")
	if err != nil {
		return nil, err
	}
	caseAnalysisCalls, err := meter.Int64Counter("sanad_case_analysis_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		claimsCreated:     claimsCreated,
		claimTransitions:  claimTransitions,
		settlements:       settlements,
		verificationRuns:  verificationRuns,
		caseAnalysisCalls: caseAnalysisCalls,
	}, nil
}

// NewNoop returns instruments backed by the no-op provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

func (m *Metrics) RecordClaimCreated(ctx context.Context, category string) {
	if m == nil {
		return
	}
	m.claimsCreated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("category", category),
	)...))
}

func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.claimTransitions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("from_status", from),
		attribute.String("to_status", to),
	)...))
}

func (m *Metrics) RecordSettlement(ctx context.Context, compensationType string) {
	if m == nil {
		return
	}
	m.settlements.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("compensation_type", compensationType),
	)...))
}

// RecordVerification counts verification flow runs by kind (boarding_pass, flight_status, documents) and result.
func (m *Metrics) RecordVerification(ctx context.Context, kind, result string) {
	if m == nil {
		return
	}
	m.verificationRuns.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	)...))
}

func (m *Metrics) RecordCaseAnalysis(ctx context.Context, mode string, cached bool) {
	if m == nil {
		return
	}
	m.caseAnalysisCalls.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("mode", mode),
		attribute.Bool("cached", cached),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"category":          {},
	"from_status":       {},
	"to_status":         {},
	"compensation_type": {},
	"kind":              {},
	"result":            {},
	"mode":              {},
	"cached":            {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
