// ABOUTME: OpenTelemetry metrics setup for leadsync
// ABOUTME: No-op by default; LEADSYNC_OTEL_ENABLED=true exports metrics to stdout
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationScope = "github.com/harperreed/leadsync"

// ExportInterval is how often the stdout exporter flushes.
const ExportInterval = 30 * time.Second

var shutdownFns []func(context.Context) error

// Enabled reports whether telemetry is active.
func Enabled() bool {
	return os.Getenv("LEADSYNC_OTEL_ENABLED") == "true"
}

// Init installs the global meter provider. When telemetry is disabled the
// provider is a no-op.
func Init(ctx context.Context) error {
	if !Enabled() {
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	// stdout carries command output and the MCP transport.
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
	if err != nil {
		return fmt.Errorf("telemetry: stdout exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(ExportInterval))),
	)
	otel.SetMeterProvider(mp)
	shutdownFns = append(shutdownFns, mp.Shutdown)

	return nil
}

// Meter returns the leadsync meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationScope)
}

// Shutdown flushes pending metrics and stops the providers.
func Shutdown(ctx context.Context) {
	for _, fn := range shutdownFns {
		_ = fn(ctx)
	}
	shutdownFns = nil
}
