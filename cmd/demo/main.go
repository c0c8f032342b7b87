// Command demo converts a captured model response into canonical output
// items. It reports the run to the lifecycle hooks, records it in the run
// log, optionally publishes it to Pulse, and validates the final message
// against an output schema.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"goa.design/clue/log"

	"goa.design/agentcore/runtime/agent/telemetry"
)

func main() {
	var (
		configF = flag.String("config", "demo.yaml", "Path of the YAML configuration")
		dbgF    = flag.Bool("debug", false, "Enable debug logs")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))

	cfg, err := loadConfig(*configF)
	if err != nil {
		log.Fatalf(ctx, err, "failed to load configuration")
	}
	if *dbgF || cfg.Debug {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}
	log.Print(ctx, log.KV{K: "provider", V: cfg.Provider}, log.KV{K: "mode", V: cfg.Mode}, log.KV{K: "run_id", V: cfg.RunID})

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, telemetry.Clue())
	if err != nil {
		log.Fatalf(ctx, err, "failed to initialize")
	}
	defer a.Close(context.WithoutCancel(ctx))

	if err := a.Run(ctx, os.Stdout); err != nil {
		log.Errorf(ctx, err, "run failed")
		a.Close(context.WithoutCancel(ctx))
		os.Exit(1)
	}
}
