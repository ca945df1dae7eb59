// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if provider.tp != nil {
		t.Error("Expected noop provider (tp == nil)")
	}

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("Expected noop tracer span to be non-recording")
	}
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "presenced", ExporterType: "invalid"})
	if err == nil {
		t.Fatal("Expected error for invalid exporter type")
	}
	expectedMsg := "unsupported exporter type: invalid (supported: grpc, http)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1.0, want: "AlwaysOnSampler"},
		{rate: 2.0, want: "AlwaysOnSampler"},
		{rate: 0.0, want: "AlwaysOffSampler"},
		{rate: -1, want: "AlwaysOffSampler"},
		{rate: 0.5, want: "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		got := samplerFor(tt.rate).Description()
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("samplerFor(%v) = %q, want prefix %q", tt.rate, got, tt.want)
		}
	}
}

func TestProvider_ShutdownNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := (&Provider{}).Shutdown(ctx); err != nil {
		t.Errorf("Expected no error on noop shutdown, got: %v", err)
	}
	var nilProvider *Provider
	if err := nilProvider.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected nil provider shutdown to be a no-op, got: %v", err)
	}
}

func TestEndSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	})

	_, ok := StartSpan(context.Background(), "recognition.submit", RecognitionAttributes(false, 0)...)
	EndSpan(ok, nil, "")

	_, failed := StartSpan(context.Background(), "recognition.submit")
	EndSpan(failed, errors.New("dial tcp: refused"), "network")

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 ended spans, got %d", len(spans))
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("successful span should not carry error status")
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("failed span status = %v, want Error", spans[1].Status().Code)
	}
}
