package infra

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"ollama-chat/config"
)

// defaultServiceName は OTEL_SERVICE_NAME が空のときのサービス名。
const defaultServiceName = "ollama-chat"

// InitTracer はトレーサープロバイダーを初期化する。
// OTEL_ENABLED=false の場合は nil を返す（トレーシング無効）。
func InitTracer(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	if !cfg.OtelEnabled {
		return nil, nil
	}

	// ローカルのコレクターへ送信する
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(ResourceAttributes(cfg)...),
		resource.WithProcessPID(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.OtelSamplingRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// ResourceAttributes はホストのトレースに付与するリソース属性を返す。
func ResourceAttributes(cfg *config.Config) []attribute.KeyValue {
	name := cfg.OtelServiceName
	if name == "" {
		name = defaultServiceName
	}

	return []attribute.KeyValue{
		semconv.ServiceName(name),
		semconv.ServiceVersion(config.Version),
		attribute.String("db.system", databaseSystem(cfg.DatabaseURL)),
		attribute.String("ollama.host", cfg.OllamaHost),
	}
}

func databaseSystem(rawURL string) string {
	switch {
	case strings.HasPrefix(rawURL, mysqlScheme):
		return "mysql"
	case strings.HasPrefix(rawURL, sqliteScheme):
		return "sqlite"
	default:
		return "other_sql"
	}
}

// newSampler はサンプリング率に応じたサンプラーを返す。親スパンの判定を優先する。
func newSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case rate <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}
