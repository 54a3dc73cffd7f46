package observability

import (
	"context"
	"testing"
)

func TestSetupTracing_None(t *testing.T) {
	ctx := context.Background()
	tp, err := SetupTracing(ctx, TracerConfig{ServiceName: "ui5fw-test", ExporterType: "none"})
	if err != nil {
		t.Fatalf("SetupTracing() with none exporter failed: %v", err)
	}
	if err := ShutdownTracing(ctx, tp); err != nil {
		t.Errorf("ShutdownTracing() failed: %v", err)
	}
}

func TestSetupTracing_Stdout(t *testing.T) {
	ctx := context.Background()
	tp, err := SetupTracing(ctx, TracerConfig{
		ServiceName:  "ui5fw-test",
		ExporterType: "stdout",
		SamplingRate: 1.0,
	})
	if err != nil {
		t.Fatalf("SetupTracing() failed: %v", err)
	}
	defer func() {
		if err := ShutdownTracing(ctx, tp); err != nil {
			t.Errorf("ShutdownTracing() failed: %v", err)
		}
	}()

	_, span := StartSpan(ctx, TracerName, "test-operation")
	span.End()
}

func TestSetupTracing_UnsupportedExporter(t *testing.T) {
	if _, err := SetupTracing(context.Background(), TracerConfig{ExporterType: "zipkin"}); err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func TestDefaultTracerConfig(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if got := DefaultTracerConfig().ExporterType; got != "none" {
		t.Errorf("ExporterType = %q, want none", got)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	cfg := DefaultTracerConfig()
	if cfg.ExporterType != "otlp" || cfg.OTLPEndpoint != "localhost:4317" {
		t.Errorf("unexpected config %+v", cfg)
	}
}
