package main

import (
	"context"

	"ecourts-backend/cmd/ecourts-cli/commands"
	"ecourts-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "ecourts-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
