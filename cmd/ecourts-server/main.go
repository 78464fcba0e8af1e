package main

import (
	"flag"
	"log/slog"
	"net/http"

	"ecourts-backend/internal/app"
	"ecourts-backend/internal/telemetry"
	"ecourts-backend/lib/serviceutil"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the configuration file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	server, err := app.Build(ctx, cfg, telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("init server", err)
	}

	mux := http.NewServeMux()
	server.Service.Mount(mux)

	err = serviceutil.StartHttpServer(ctx, cfg.Server.Port, mux)
	closeErr := server.Close()
	if err != nil {
		serviceutil.Fatal("serve", err)
	}
	if closeErr != nil {
		slog.Warn("close server resources", "err", closeErr)
	}
}
