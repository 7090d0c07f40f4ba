package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-documind-backend/internal/config"
)

func preserveOTelGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func enabled(name string) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: name,
		SampleRatio: 1.0,
	}
}

func TestSetupOTel_Disabled_NoOp(t *testing.T) {
	preserveOTelGlobals(t)
	prevTP := otel.GetTracerProvider()

	cfg := enabled("svc")
	cfg.Enabled = false
	shutdown, err := SetupOTel(context.Background(), cfg, "v0.0.0")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned error: %v", err)
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatalf("disabled tracing must not replace the global provider")
	}
}

func TestSetupOTel_InstallsProviderAndPropagator(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		preserveOTelGlobals(t)
		cfg := enabled("svc")
		cfg.Insecure = insecure

		shutdown, err := SetupOTel(context.Background(), cfg, "v1.2.3")
		if err != nil {
			t.Fatalf("insecure=%v: unexpected err: %v", insecure, err)
		}
		if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
			t.Fatalf("insecure=%v: expected *sdktrace.TracerProvider", insecure)
		}

		ctx, span := Tracer("services/DocumentService").Start(context.Background(), "Get")
		carrier := propagation.MapCarrier{}
		otel.GetTextMapPropagator().Inject(ctx, carrier)
		span.End()
		if !strings.HasPrefix(carrier.Get("traceparent"), "00-") {
			t.Fatalf("insecure=%v: traceparent not injected: %v", insecure, carrier)
		}

		ct, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		_ = shutdown(ct)
		cancel()
	}
}

func TestSetupOTel_CanceledContext_StillSucceeds(t *testing.T) {
	preserveOTelGlobals(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	shutdown, err := SetupOTel(ctx, enabled("svc-canceled"), "vX")
	if err != nil {
		t.Fatalf("unexpected err with canceled ctx: %v", err)
	}
	_ = shutdown(context.Background())
}

func TestSetupOTel_FailuresLeaveGlobalsIntact(t *testing.T) {
	origExp, origRes := newExporter, newResource
	t.Cleanup(func() { newExporter, newResource = origExp, origRes })

	cases := map[string]func(){
		"exporter": func() {
			newExporter = func(context.Context, ...otlptracegrpc.Option) (*otlptrace.Exporter, error) {
				return nil, errors.New("boom-exporter")
			}
		},
		"resource": func() {
			newResource = func(context.Context, string, string) (*resource.Resource, error) {
				return nil, errors.New("boom-resource")
			}
		},
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			preserveOTelGlobals(t)
			newExporter, newResource = origExp, origRes
			breakIt()

			prevTP := otel.GetTracerProvider()
			prevProp := otel.GetTextMapPropagator()
			_, err := SetupOTel(context.Background(), enabled("svc"), "v0")
			if err == nil || !strings.Contains(err.Error(), "boom-"+name) {
				t.Fatalf("expected wrapped boom-%s, got %v", name, err)
			}
			if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
				t.Fatalf("globals changed on failure")
			}
		})
	}
}

func TestSetupOTel_BlankServiceName_UsesDefault(t *testing.T) {
	preserveOTelGlobals(t)
	orig := newResource
	t.Cleanup(func() { newResource = orig })

	var gotName, gotVersion string
	newResource = func(_ context.Context, serviceName, version string) (*resource.Resource, error) {
		gotName, gotVersion = serviceName, version
		return nil, errors.New("stop here")
	}
	_, _ = SetupOTel(context.Background(), enabled(""), "v1.2.3")
	if gotName != DefaultServiceName || gotVersion != "v1.2.3" {
		t.Fatalf("resource got (%q, %q)", gotName, gotVersion)
	}
}

func TestSampler(t *testing.T) {
	cases := map[float64]string{
		1:    "AlwaysOnSampler",
		1.5:  "AlwaysOnSampler",
		0:    "AlwaysOffSampler",
		-1:   "AlwaysOffSampler",
		0.25: "TraceIDRatioBased{0.25}",
	}
	for ratio, root := range cases {
		got := sampler(ratio).Description()
		if !strings.HasPrefix(got, "ParentBased{root:"+root) {
			t.Fatalf("sampler(%v) = %q; want root %s", ratio, got, root)
		}
	}
}

func TestTracer_ScopesByComponent(t *testing.T) {
	preserveOTelGlobals(t)
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := Tracer("autosave").Start(context.Background(), "save")
	defer span.End()
	ro, ok := span.(sdktrace.ReadOnlySpan)
	if !ok {
		t.Fatalf("expected sdk span, got %T", span)
	}
	if got := ro.InstrumentationScope().Name; got != instrumentationPrefix+"autosave" {
		t.Fatalf("scope = %q", got)
	}
	var _ trace.Tracer = Tracer("x")
}
