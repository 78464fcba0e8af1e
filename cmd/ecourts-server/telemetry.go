package main

import (
	"context"
	"log/slog"

	"ecourts-backend/lib/serviceutil"
	"ecourts-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	tel, err := telemetry.SetupFromEnv(ctx, "ecourts-server")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		tel.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx)
}
